package model

// EventName identifies a kind of domain event.
type EventName string

// Event taxonomy.
const (
	NewBlock                        EventName = "NewBlock"
	OrderEvent                      EventName = "OrderEvent"
	OrderCreated                    EventName = "OrderCreated"
	OrderCanceled                   EventName = "OrderCanceled"
	OrderExpired                    EventName = "OrderExpired"
	OrderFilled                     EventName = "OrderFilled"
	MarketCreated                   EventName = "MarketCreated"
	MarketFinalized                 EventName = "MarketFinalized"
	MarketMigrated                  EventName = "MarketMigrated"
	MarketTransferred               EventName = "MarketTransferred"
	MarketParticipantsDisavowed     EventName = "MarketParticipantsDisavowed"
	MarketsUpdated                  EventName = "MarketsUpdated"
	TokensTransferred               EventName = "TokensTransferred"
	TokenBalanceChanged             EventName = "TokenBalanceChanged"
	TokensMinted                    EventName = "TokensMinted"
	ProfitLossChanged               EventName = "ProfitLossChanged"
	InitialReportSubmitted          EventName = "InitialReportSubmitted"
	InitialReporterRedeemed         EventName = "InitialReporterRedeemed"
	InitialReporterTransferred      EventName = "InitialReporterTransferred"
	DisputeCrowdsourcerCreated      EventName = "DisputeCrowdsourcerCreated"
	DisputeCrowdsourcerCompleted    EventName = "DisputeCrowdsourcerCompleted"
	DisputeCrowdsourcerContribution EventName = "DisputeCrowdsourcerContribution"
	DisputeCrowdsourcerRedeemed     EventName = "DisputeCrowdsourcerRedeemed"
	DisputeWindowCreated            EventName = "DisputeWindowCreated"
	UniverseForked                  EventName = "UniverseForked"
	ReportingStateChanged           EventName = "ReportingStateChanged"
	TradingProceedsClaimed          EventName = "TradingProceedsClaimed"
	ParticipationTokensRedeemed     EventName = "ParticipationTokensRedeemed"
	ReportingParticipantDisavowed   EventName = "ReportingParticipantDisavowed"
)

var taxonomy = []EventName{
	NewBlock,
	OrderEvent,
	OrderCreated,
	OrderCanceled,
	OrderExpired,
	OrderFilled,
	MarketCreated,
	MarketFinalized,
	MarketMigrated,
	MarketTransferred,
	MarketParticipantsDisavowed,
	MarketsUpdated,
	TokensTransferred,
	TokenBalanceChanged,
	TokensMinted,
	ProfitLossChanged,
	InitialReportSubmitted,
	InitialReporterRedeemed,
	InitialReporterTransferred,
	DisputeCrowdsourcerCreated,
	DisputeCrowdsourcerCompleted,
	DisputeCrowdsourcerContribution,
	DisputeCrowdsourcerRedeemed,
	DisputeWindowCreated,
	UniverseForked,
	ReportingStateChanged,
	TradingProceedsClaimed,
	ParticipationTokensRedeemed,
	ReportingParticipantDisavowed,
}

// Taxonomy returns every known event name.
func Taxonomy() []EventName {
	out := make([]EventName, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// Known reports whether name is part of the taxonomy.
func Known(name EventName) bool {
	for _, n := range taxonomy {
		if n == name {
			return true
		}
	}
	return false
}

// OrderEventType is the sub-kind carried by an OrderEvent.
type OrderEventType int

const (
	OrderEventCreate OrderEventType = iota
	OrderEventCancel
	OrderEventExpire
	OrderEventFill
)

// ParseOrderEventType accepts the numeric code or the lower-case name.
func ParseOrderEventType(e Event) (OrderEventType, bool) {
	if n, ok := e.Int64(FieldEventType); ok {
		t := OrderEventType(n)
		return t, t >= OrderEventCreate && t <= OrderEventFill
	}
	switch e.String(FieldEventType) {
	case "create", "Create":
		return OrderEventCreate, true
	case "cancel", "Cancel":
		return OrderEventCancel, true
	case "expire", "Expire":
		return OrderEventExpire, true
	case "fill", "Fill":
		return OrderEventFill, true
	}
	return 0, false
}

// TokenType distinguishes minted token kinds.
type TokenType int

const (
	ReputationToken TokenType = iota
	DisputeCrowdsourcerToken
	ParticipationToken
)
