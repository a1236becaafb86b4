package service

import (
	"fmt"
	"math"
	"strings"

	"wallex_bot/internal/models"
)

func FormatOutcome(symbol string, d models.PriceDecision, o models.OrderOutcome, price string) string {
	var b strings.Builder
	switch {
	case o.Placed:
		fmt.Fprintf(&b, "*✅ %s %s*\n\n", sideIcon(d.Side), symbol)
		fmt.Fprintf(&b, "Entry: `%s`\nSL: `%s`\nTP: `%s`\nRR: `%s`\n", price, f6(d.StopLossPrice), f6(d.TakeProfitPrice), f2(rr(d)))
		fmt.Fprintf(&b, "ID: `%s`\n", o.ClientOrderID)
	default:
		fmt.Fprintf(&b, "*⚠️ %s %s не выставлен*\n\nПричина: `%s`\n", sideIcon(d.Side), symbol, o.Reason)
		if o.Status != "" {
			fmt.Fprintf(&b, "Статус: `%s`\n", o.Status)
		}
	}
	if len(o.Cancelled) > 0 {
		fmt.Fprintf(&b, "Отменено: `%d`\n", len(o.Cancelled))
	}
	return b.String()
}

func FormatOrderDone(o models.Order) string {
	icon := "🟢"
	if o.Status != models.OrderStatusFilled {
		icon = "⚪️"
	}
	return fmt.Sprintf(
		"*%s %s %s*\n\n"+
			"ID: `%s`\n"+
			"Статус: `%s`\n"+
			"Исполнено: `%s` из `%s`\n",
		icon, o.Side, o.Symbol,
		o.ClientOrderID,
		o.Status,
		f6(o.ExecutedQty), f6(o.Quantity),
	)
}

func sideIcon(s models.Side) string {
	switch s {
	case models.SideBuy:
		return "📈 BUY"
	case models.SideSell:
		return "📉 SELL"
	}
	return string(s)
}

// rr: то же reward/risk, что и в pricing, только для текста
func rr(d models.PriceDecision) float64 {
	risk := math.Abs(d.OrderPrice - d.StopLossPrice)
	if risk == 0 {
		return 0
	}
	return math.Abs(d.TakeProfitPrice-d.OrderPrice) / risk
}

func f2(v float64) string { return fmt.Sprintf("%.2f", v) }

func f6(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
}
