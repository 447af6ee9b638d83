package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SameAddress reports whether a and b name the same account. Hex
// addresses compare case-insensitively; empty never matches.
func SameAddress(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if common.IsHexAddress(a) && common.IsHexAddress(b) {
		return common.HexToAddress(a) == common.HexToAddress(b)
	}
	return strings.EqualFold(a, b)
}

// FilterByAddress returns the events whose field key belongs to address.
func FilterByAddress(events []Event, address string, keys ...string) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		for _, k := range keys {
			if SameAddress(ev.String(k), address) {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}
