package testevents

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/shopspring/decimal"
)

// Constants for random value generation.
const (
	maxAmountTicks = 1000
	maxPriceTicks  = 99
	outcomeCount   = 2
	firstBlock     = 1_000_000
	blockSeconds   = 15
)

// logKinds are cycled through when filling a block.
var logKinds = []model.EventName{
	model.OrderCreated,
	model.OrderFilled,
	model.OrderCanceled,
	model.MarketCreated,
	model.TokensTransferred,
	model.MarketsUpdated,
}

func randomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

func randomHash() string {
	b := make([]byte, common.HashLength)
	_, _ = rand.Read(b)
	return common.BytesToHash(b).Hex()
}

func randomAddress() string {
	b := make([]byte, common.AddressLength)
	_, _ = rand.Read(b)
	return common.BytesToAddress(b).Hex()
}

// generateBlocks builds NewBlock ticks with embedded logs. Roughly half of
// the logs involve account so the engine's user paths are exercised.
func generateBlocks(ctx context.Context, config *Config, stats *Stats) ([]model.Event, error) {
	logger.Get().Info(ctx, "generating block ticks",
		logger.Int("blocks", config.NumBlocks),
		logger.Int("logsPerBlock", config.LogsPerBlock))

	markets := make([]string, maxInt(config.Markets, 1))
	for i := range markets {
		markets[i] = randomAddress()
	}

	start := time.Now().Unix()
	blocks := make([]model.Event, 0, config.NumBlocks)
	for i := 0; i < config.NumBlocks; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		number := int64(firstBlock + i)
		tick := model.Event{
			Name: model.NewBlock,
			Fields: map[string]any{
				model.FieldBlockHash:                   randomHash(),
				model.FieldHighestAvailableBlockNumber: number,
				model.FieldLastSyncedBlockNumber:       number,
				model.FieldBlocksBehindCurrent:         0,
				model.FieldPercentSynced:               "100",
				model.FieldTimestamp:                   start + int64(i*blockSeconds),
			},
		}
		for j := 0; j < config.LogsPerBlock; j++ {
			kind := logKinds[(i*config.LogsPerBlock+j)%len(logKinds)]
			tick.Logs = append(tick.Logs, generateLog(kind, markets, config.Account, j%2 == 0))
		}
		blocks = append(blocks, tick)
		stats.LogsGenerated += len(tick.Logs)
	}

	stats.BlocksGenerated = len(blocks)
	logger.Get().Info(ctx, "generated block ticks", logger.Int("blocks", len(blocks)), logger.Int("logs", stats.LogsGenerated))
	return blocks, nil
}

// generateLog creates one decoded log of the given kind.
func generateLog(kind model.EventName, markets []string, account string, own bool) model.Event {
	actor := randomAddress()
	if own && account != "" {
		actor = account
	}
	market := markets[randomInt(int64(len(markets)))]
	amount := decimal.NewFromInt(randomInt(maxAmountTicks) + 1).Shift(-1)
	price := decimal.NewFromInt(randomInt(maxPriceTicks) + 1).Shift(-2)

	fields := map[string]any{
		model.FieldTransactionHash: randomHash(),
		model.FieldMarket:          market,
	}
	switch kind {
	case model.OrderCreated, model.OrderCanceled:
		fields[model.FieldOrderCreator] = actor
		fields[model.FieldOrderID] = randomHash()
		fields[model.FieldAmount] = amount.String()
		fields[model.FieldPrice] = price.String()
		fields[model.FieldOutcome] = randomInt(outcomeCount)
	case model.OrderFilled:
		fields[model.FieldOrderCreator] = randomAddress()
		fields[model.FieldOrderFiller] = actor
		fields[model.FieldAmount] = amount.String()
		fields[model.FieldPrice] = price.String()
		fields[model.FieldOutcome] = randomInt(outcomeCount)
		fields[model.FieldTradeGroupID] = randomHash()
	case model.MarketCreated:
		fields[model.FieldMarketCreator] = actor
		fields[model.FieldExtraInfo] = map[string]any{"description": "generated market"}
	case model.TokensTransferred:
		fields[model.FieldFrom] = actor
		fields[model.FieldTo] = randomAddress()
		fields[model.FieldAmount] = amount.String()
	}
	return model.Event{Name: kind, Fields: fields}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
