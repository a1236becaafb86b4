package models

// Side of an order or of a trading hypothesis: "BUY"/"SELL" or empty.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PriceDecision: entry/stop/target set derived once per confirmed episode.
type PriceDecision struct {
	Side            Side
	OrderPrice      float64
	StopLossPrice   float64
	TakeProfitPrice float64
}
