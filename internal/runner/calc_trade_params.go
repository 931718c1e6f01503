package runner

import (
	"fmt"

	"signal_trader/internal/models"

	"github.com/shopspring/decimal"
)

// pricePlaces: точность цен TP/SL, которую принимает брокер.
const pricePlaces = 5

// TradeParams: цены выхода для рыночного ордера.
type TradeParams struct {
	Entry      float64
	TakeProfit float64
	StopLoss   float64
}

// calcTradeParams сдвигает TP в сторону сделки, SL против неё, на заданное число пипсов.
func calcTradeParams(dir models.Direction, entry, tpPips, slPips, pipSize float64) (TradeParams, error) {
	if !positive(entry) {
		return TradeParams{}, models.Fatal("trade params", fmt.Errorf("entry must be positive, got %v", entry))
	}
	if !positive(pipSize) || tpPips <= 0 || slPips <= 0 {
		return TradeParams{}, models.Fatal("trade params",
			fmt.Errorf("pip distances must be positive: tp=%v sl=%v pip=%v", tpPips, slPips, pipSize))
	}

	px := decimal.NewFromFloat(entry)
	pip := decimal.NewFromFloat(pipSize)
	tpOff := decimal.NewFromFloat(tpPips).Mul(pip)
	slOff := decimal.NewFromFloat(slPips).Mul(pip)

	var tp, sl decimal.Decimal
	switch dir {
	case models.DirectionBuy:
		tp, sl = px.Add(tpOff), px.Sub(slOff)
	case models.DirectionSell:
		tp, sl = px.Sub(tpOff), px.Add(slOff)
	default:
		return TradeParams{}, models.Fatal("trade params", fmt.Errorf("unknown direction %d", dir))
	}

	tp = tp.Round(pricePlaces)
	sl = sl.Round(pricePlaces)
	if !tp.IsPositive() || !sl.IsPositive() {
		return TradeParams{}, models.Fatal("trade params",
			fmt.Errorf("exit price not positive: tp=%s sl=%s", tp, sl))
	}

	return TradeParams{
		Entry:      entry,
		TakeProfit: tp.InexactFloat64(),
		StopLoss:   sl.InexactFloat64(),
	}, nil
}
