package sqlstore

// Param names one positional argument of a query. List params are bound
// as PostgreSQL arrays.
type Param struct {
	Name string
	List bool
}

// Query is a named, parameterized statement.
type Query struct {
	SQL    string
	Params []Param
}

func arg(name string) Param  { return Param{Name: name} }
func list(name string) Param { return Param{Name: name, List: true} }

// Request method names served from the persistent store.
const (
	MethodMarketsInfo        = "getMarketsInfo"
	MethodMarkets            = "getMarkets"
	MethodMarketOrderBook    = "getMarketOrderBook"
	MethodAccountOpenOrders  = "getAccountOpenOrders"
	MethodTradingHistory     = "getMarketTradingHistory"
	MethodTradingPositions   = "getUserTradingPositions"
	MethodReportingHistory   = "getAccountReportingHistory"
	MethodDisputeWindow      = "getDisputeWindow"
	MethodReportingMarkets   = "getReportingMarkets"
	MethodDisputingMarkets   = "getDisputingMarkets"
	MethodForkingInfo        = "getForkingInfo"
	MethodUniverseDetails    = "getUniverseDetails"
	MethodAccountFrozenFunds = "getAccountFrozenFunds"
	MethodAnalytics          = "getAnalytics"
)

// DefaultQueries returns the statement table. The caller owns the map.
func DefaultQueries() map[string]Query {
	return map[string]Query{
		MethodMarketsInfo: {
			SQL: `SELECT market_id AS id, universe, transaction_hash AS "transactionHash", market_creator AS author,
       description, reporting_state AS "reportingState", end_time AS "endTime", volume
FROM markets WHERE market_id = ANY($1)`,
			Params: []Param{list("marketIds")},
		},
		MethodMarkets: {
			SQL: `SELECT market_id AS id FROM markets
WHERE universe = $1 AND ($2::text IS NULL OR reporting_state = $2)
ORDER BY creation_block_number DESC`,
			Params: []Param{arg("universe"), arg("reportingState")},
		},
		MethodMarketOrderBook: {
			SQL: `SELECT order_id AS "orderId", outcome, order_type AS "orderType", price, amount, order_creator AS "orderCreator"
FROM orders WHERE market_id = $1 AND order_state = 'OPEN'
ORDER BY outcome, order_type, price`,
			Params: []Param{arg("marketId")},
		},
		MethodAccountOpenOrders: {
			SQL: `SELECT order_id AS "orderId", market_id AS market, outcome, order_type AS "orderType", price, amount
FROM orders WHERE order_creator = $1 AND order_state = 'OPEN'
ORDER BY creation_block_number DESC`,
			Params: []Param{arg("account")},
		},
		MethodTradingHistory: {
			SQL: `SELECT transaction_hash AS "transactionHash", outcome, price, amount, timestamp
FROM trades WHERE market_id = $1
ORDER BY block_number DESC, log_index DESC`,
			Params: []Param{arg("marketId")},
		},
		MethodTradingPositions: {
			SQL: `SELECT market_id AS market, outcome, net_position AS "netPosition", realized_profit AS "realizedProfit",
       unrealized_profit AS "unrealizedProfit"
FROM positions WHERE account = $1 AND (cardinality($2::text[]) = 0 OR market_id = ANY($2))`,
			Params: []Param{arg("account"), list("marketIds")},
		},
		MethodReportingHistory: {
			SQL: `SELECT market_id AS market, payout, amount_staked AS "amountStaked", block_number AS "blockNumber"
FROM reports WHERE universe = $1 AND reporter = $2
ORDER BY block_number DESC`,
			Params: []Param{arg("universe"), arg("reporter")},
		},
		MethodDisputeWindow: {
			SQL: `SELECT dispute_window AS address, start_time AS "startTime", end_time AS "endTime", fees
FROM dispute_windows WHERE universe = $1
ORDER BY start_time DESC LIMIT 1`,
			Params: []Param{arg("universe")},
		},
		MethodReportingMarkets: {
			SQL: `SELECT market_id AS id, reporting_state AS "reportingState" FROM markets
WHERE universe = $1 AND reporting_state IN ('DESIGNATED_REPORTING', 'OPEN_REPORTING')
  AND (cardinality($2::text[]) = 0 OR market_id = ANY($2))`,
			Params: []Param{arg("universe"), list("marketIds")},
		},
		MethodDisputingMarkets: {
			SQL: `SELECT market_id AS id, reporting_state AS "reportingState" FROM markets
WHERE universe = $1 AND reporting_state IN ('CROWDSOURCING_DISPUTE', 'AWAITING_NEXT_WINDOW')
  AND (cardinality($2::text[]) = 0 OR market_id = ANY($2))`,
			Params: []Param{arg("universe"), list("marketIds")},
		},
		MethodForkingInfo: {
			SQL: `SELECT forking_market AS "forkingMarket", universe FROM universes
WHERE universe = $1 AND forking_market IS NOT NULL`,
			Params: []Param{arg("universe")},
		},
		MethodUniverseDetails: {
			SQL: `SELECT u.universe, u.parent_universe AS "parentUniverse", u.open_interest AS "openInterest",
       COALESCE(b.balance, 0) AS balance
FROM universes u LEFT JOIN balances b ON b.universe = u.universe AND b.owner = $2
WHERE u.universe = $1`,
			Params: []Param{arg("universe"), arg("account")},
		},
		MethodAccountFrozenFunds: {
			SQL: `SELECT market_id AS market, frozen_funds AS "frozenFunds" FROM frozen_funds WHERE account = $1`,
			Params: []Param{arg("account")},
		},
		MethodAnalytics: {
			SQL: `SELECT bucket, volume, trades FROM account_activity
WHERE account = $1 AND bucket >= to_timestamp($2)
ORDER BY bucket`,
			Params: []Param{arg("account"), arg("since")},
		},
	}
}
