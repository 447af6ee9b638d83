// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Event is a decoded domain event as emitted by the chain-log decoder.
// Events are immutable once published.
type Event struct {
	Name    EventName      `json:"name"`
	Removed bool           `json:"removed,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
	// Logs carries the embedded batch of a NewBlock event.
	Logs []Event `json:"logs,omitempty"`
}

// Field names read by the reconciliation handlers.
const (
	FieldMarket               = "market"
	FieldOrderCreator         = "orderCreator"
	FieldOrderFiller          = "orderFiller"
	FieldTransactionHash      = "transactionHash"
	FieldBlockHash            = "blockHash"
	FieldOrderID              = "orderId"
	FieldAmount               = "amount"
	FieldPrice                = "price"
	FieldOutcome              = "outcome"
	FieldTradeGroupID         = "tradeGroupId"
	FieldMarketCreator        = "marketCreator"
	FieldReporter             = "reporter"
	FieldFrom                 = "from"
	FieldTo                   = "to"
	FieldOwner                = "owner"
	FieldAccount              = "account"
	FieldSender               = "sender"
	FieldTarget               = "target"
	FieldTokenType            = "tokenType"
	FieldUniverse             = "universe"
	FieldOriginalUniverse     = "originalUniverse"
	FieldForkingMarket        = "forkingMarket"
	FieldEventType            = "eventType"
	FieldExtraInfo            = "extraInfo"
	FieldReportingParticipant = "reportingParticipant"
	FieldMarketsInfo          = "marketsInfo"

	FieldHighestAvailableBlockNumber = "highestAvailableBlockNumber"
	FieldBlocksBehindCurrent         = "blocksBehindCurrent"
	FieldLastSyncedBlockNumber       = "lastSyncedBlockNumber"
	FieldPercentSynced               = "percentSynced"
	FieldTimestamp                   = "timestamp"
)

// Field returns the raw value stored under key.
func (e Event) Field(key string) (any, bool) {
	if e.Fields == nil {
		return nil, false
	}
	v, ok := e.Fields[key]
	return v, ok && v != nil
}

// String returns the field as a string. Numbers are formatted without
// exponent; missing fields yield "".
func (e Event) String(key string) string {
	v, ok := e.Field(key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Int64 returns the field as an integer.
func (e Event) Int64(key string) (int64, bool) {
	v, ok := e.Field(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		return int64(t), true
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 0, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Float64 returns the field as a float.
func (e Event) Float64(key string) (float64, bool) {
	v, ok := e.Field(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// Decimal returns the field as an exact decimal.
func (e Event) Decimal(key string) (decimal.Decimal, bool) {
	v, ok := e.Field(key)
	if !ok {
		return decimal.Zero, false
	}
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	}
	return decimal.Zero, false
}

// Bool returns the field as a boolean.
func (e Event) Bool(key string) bool {
	v, ok := e.Field(key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	}
	return false
}

// TxHash returns the transaction hash of the event, if any.
func (e Event) TxHash() string { return e.String(FieldTransactionHash) }

// Market returns the market id of the event, if any.
func (e Event) Market() string { return e.String(FieldMarket) }

// Markets collects the non-empty market ids of events, preserving order.
func Markets(events []Event) []string {
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if m := ev.Market(); m != "" {
			ids = append(ids, m)
		}
	}
	return ids
}
