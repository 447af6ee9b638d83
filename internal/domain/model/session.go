package model

// Page is the screen the user currently looks at.
type Page string

const (
	PageNone      Page = "none"
	PageTrade     Page = "trade"
	PageReporting Page = "reporting"
	PageDisputing Page = "disputing"
)

// ParsePage maps free text to a Page; unknown values become PageNone.
func ParsePage(s string) Page {
	switch Page(s) {
	case PageTrade, PageReporting, PageDisputing:
		return Page(s)
	}
	return PageNone
}

// Identity is the signed-in account.
type Identity struct {
	Address  string `json:"address"`
	IsLogged bool   `json:"is_logged"`
}

// View is the page and market in focus.
type View struct {
	Page     Page   `json:"page"`
	MarketID string `json:"market_id,omitempty"`
}

// Session is a point-in-time copy of the user's session state.
type Session struct {
	Identity Identity `json:"identity"`
	View     View     `json:"view"`
	Universe string   `json:"universe"`
}

// Owns reports whether the session is logged in as address.
func (s Session) Owns(address string) bool {
	return s.Identity.IsLogged && SameAddress(s.Identity.Address, address)
}

// OnTrade reports whether the trade page of market is open.
func (s Session) OnTrade(market string) bool {
	return s.View.Page == PageTrade && market != "" && s.View.MarketID == market
}
