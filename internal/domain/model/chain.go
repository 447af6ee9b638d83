package model

// ChainHead is the sync status carried by block ticks.
type ChainHead struct {
	CurrentBlockNumber    int64   `json:"current_block_number"`
	BlocksBehindCurrent   int64   `json:"blocks_behind_current"`
	LastSyncedBlockNumber int64   `json:"last_synced_block_number"`
	PercentSynced         float64 `json:"percent_synced"`
	Timestamp             int64   `json:"timestamp"`
}

// ChainHeadFromEvent reads the sync fields of a block tick.
func ChainHeadFromEvent(e Event) ChainHead {
	var h ChainHead
	h.CurrentBlockNumber, _ = e.Int64(FieldHighestAvailableBlockNumber)
	h.BlocksBehindCurrent, _ = e.Int64(FieldBlocksBehindCurrent)
	h.LastSyncedBlockNumber, _ = e.Int64(FieldLastSyncedBlockNumber)
	h.PercentSynced, _ = e.Float64(FieldPercentSynced)
	h.Timestamp, _ = e.Int64(FieldTimestamp)
	return h
}

// MarketInfo is the subset of market data the reconciler tracks.
type MarketInfo struct {
	ID              string         `json:"id"`
	Universe        string         `json:"universe,omitempty"`
	TransactionHash string         `json:"transaction_hash,omitempty"`
	Creator         string         `json:"creator,omitempty"`
	Description     string         `json:"description,omitempty"`
	ReportingState  string         `json:"reporting_state,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// ForkingInfo describes an in-progress universe fork.
type ForkingInfo struct {
	ForkingMarket string `json:"forking_market"`
	Universe      string `json:"universe"`
}

// MarketInfosFromEvent reads the marketsInfo field of a MarketsUpdated
// event, which may hold a single market or a list of them.
func MarketInfosFromEvent(e Event) []MarketInfo {
	v, ok := e.Field(FieldMarketsInfo)
	if !ok {
		return nil
	}
	var raw []map[string]any
	switch t := v.(type) {
	case map[string]any:
		raw = append(raw, t)
	case []map[string]any:
		raw = t
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				raw = append(raw, m)
			}
		}
	}
	out := make([]MarketInfo, 0, len(raw))
	for _, m := range raw {
		if mi, ok := MarketInfoFromRow(m); ok {
			out = append(out, mi)
		}
	}
	return out
}

// MarketInfoFromRow builds a MarketInfo from a decoded row. Unknown columns
// land in Extra. The result is only valid when the id is present.
func MarketInfoFromRow(m map[string]any) (MarketInfo, bool) {
	fields := Event{Fields: m}
	mi := MarketInfo{
		ID:              fields.String("id"),
		Universe:        fields.String(FieldUniverse),
		TransactionHash: fields.String(FieldTransactionHash),
		Creator:         fields.String("author"),
		Description:     fields.String("description"),
		ReportingState:  fields.String("reportingState"),
		Extra:           make(map[string]any),
	}
	if mi.Creator == "" {
		mi.Creator = fields.String(FieldMarketCreator)
	}
	for k, v := range m {
		switch k {
		case "id", FieldUniverse, FieldTransactionHash, "author", FieldMarketCreator, "description", "reportingState":
		default:
			mi.Extra[k] = v
		}
	}
	return mi, mi.ID != ""
}
