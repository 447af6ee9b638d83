package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PendingKind is the kind of user action awaiting confirmation.
type PendingKind string

const (
	PlaceOrder             PendingKind = "PLACE_ORDER"
	CreateMarket           PendingKind = "CREATE_MARKET"
	SubmitReport           PendingKind = "SUBMIT_REPORT"
	SubmitDispute          PendingKind = "SUBMIT_DISPUTE"
	BuyParticipationTokens PendingKind = "BUY_PARTICIPATION_TOKENS"
	MigrateV1V2            PendingKind = "MIGRATE_V1_V2"
)

// ParsePendingKind validates s.
func ParsePendingKind(s string) (PendingKind, bool) {
	switch k := PendingKind(s); k {
	case PlaceOrder, CreateMarket, SubmitReport, SubmitDispute, BuyParticipationTokens, MigrateV1V2:
		return k, true
	}
	return "", false
}

// PendingStatus of an action.
type PendingStatus string

const (
	StatusPending PendingStatus = "Pending"
	StatusSuccess PendingStatus = "Success"
	StatusFailure PendingStatus = "Failure"
)

// PendingKey identifies a pending action.
type PendingKey struct {
	ResourceID string      `json:"resource_id"`
	Kind       PendingKind `json:"kind"`
}

func (k PendingKey) String() string { return string(k.Kind) + ":" + k.ResourceID }

// PendingAction is a user action awaiting on-chain confirmation.
type PendingAction struct {
	Key       PendingKey    `json:"key"`
	Status    PendingStatus `json:"status"`
	Data      any           `json:"data,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// OrderKey correlates a submitted order with its on-chain creation.
type OrderKey struct {
	Amount  decimal.Decimal
	Price   decimal.Decimal
	Outcome int64
	Market  string
}

// String renders the key as amount_price_outcome_market with exact decimals.
func (k OrderKey) String() string {
	return fmt.Sprintf("%s_%s_%d_%s", k.Amount.String(), k.Price.String(), k.Outcome, k.Market)
}

// OrderKeyFromEvent builds the correlation key of an order event.
func OrderKeyFromEvent(e Event) (OrderKey, bool) {
	amount, ok := e.Decimal(FieldAmount)
	if !ok {
		return OrderKey{}, false
	}
	price, ok := e.Decimal(FieldPrice)
	if !ok {
		return OrderKey{}, false
	}
	outcome, ok := e.Int64(FieldOutcome)
	if !ok {
		return OrderKey{}, false
	}
	return OrderKey{Amount: amount, Price: price, Outcome: outcome, Market: e.Market()}, true
}

// ParsePendingStatus accepts a status name in any case. Empty means Pending.
func ParsePendingStatus(s string) (PendingStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending":
		return StatusPending, true
	case "success":
		return StatusSuccess, true
	case "failure":
		return StatusFailure, true
	}
	return "", false
}
