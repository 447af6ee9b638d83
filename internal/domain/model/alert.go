package model

// AlertName classifies a user-visible notification.
type AlertName string

const (
	AlertPublicTrade          AlertName = "PUBLICTRADE"
	AlertCancelOrder          AlertName = "CANCELORDER"
	AlertPublicFillOrder      AlertName = "PUBLICFILLORDER"
	AlertCreateMarket         AlertName = "CREATEMARKET"
	AlertClaimTradingProceeds AlertName = "CLAIMTRADINGPROCEEDS"
	AlertDoInitialReport      AlertName = "DOINITIALREPORT"
	AlertContribute           AlertName = "CONTRIBUTE"
	AlertRedeemStake          AlertName = "REDEEMSTAKE"
	AlertMigrateFromLegRep    AlertName = "MIGRATE_FROM_LEG_REP_TOKEN"
)

// Alert is a notification keyed by ID; a second alert with the same ID
// replaces the first.
type Alert struct {
	ID        string         `json:"id"`
	Name      AlertName      `json:"name"`
	Params    map[string]any `json:"params,omitempty"`
	Status    PendingStatus  `json:"status"`
	Toast     bool           `json:"toast,omitempty"`
	Timestamp int64          `json:"timestamp"`
}
