package testevents

import "time"

// Config holds configuration for the event generator.
type Config struct {
	BaseURL      string        // Base URL of the service
	RedisAddr    string        // When set, events go to the redis feed instead of HTTP
	Channel      string        // Redis channel
	NumBlocks    int           // Number of block ticks to generate
	LogsPerBlock int           // Logs embedded in each block tick
	Markets      int           // Number of distinct markets
	Account      string        // Account to sign in as; generated when empty
	Workers      int           // Number of concurrent publishers
	Timeout      time.Duration // HTTP request timeout
	OutputFile   string        // Output file for events
	LogFile      string        // Log file for test output
	Verbose      bool          // Enable verbose logging
}

// AckResponse is the reply to POST /events.
type AckResponse struct {
	Status    string `json:"status"`
	Listeners int    `json:"listeners"`
}

// EngineStats is the engine section of GET /stats.
type EngineStats struct {
	Handled uint64 `json:"handled"`
	Ignored uint64 `json:"ignored"`
	Failed  uint64 `json:"failed"`
}

// ServiceStats is the subset of GET /stats the runner reads.
type ServiceStats struct {
	Engine         EngineStats `json:"engine"`
	Dropped        uint64      `json:"dropped"`
	PendingActions int         `json:"pendingActions"`
}

// Stats holds run statistics.
type Stats struct {
	BlocksGenerated  int
	LogsGenerated    int
	EventsSubmitted  int
	EventsSuccessful int
	EventsFailed     int
	EngineHandled    uint64
	EngineFailed     uint64
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
