package service

import (
	"context"
	"net/http"
	"strconv"

	"signal_trader/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// pricePlaces: сколько знаков OANDA принимает для цен TP/SL на мажорах.
const pricePlaces = 5

// PlaceOrder: рыночный ордер с TP и SL, выставляемыми при исполнении.
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	if req.SignedUnits == 0 {
		return models.OrderResult{}, errors.New("place order: zero units")
	}

	body := orderRequest{Order: marketOrder{
		Instrument:       req.Instrument,
		Units:            strconv.FormatInt(req.SignedUnits, 10),
		Type:             "MARKET",
		PositionFill:     "DEFAULT",
		TakeProfitOnFill: priceBound{Price: formatPrice(req.TakeProfitPrice)},
		StopLossOnFill:   priceBound{Price: formatPrice(req.StopLossPrice)},
	}}

	var r orderResponse
	if err := c.do(ctx, http.MethodPost, c.accountPath("orders"), nil, body, &r); err != nil {
		return models.OrderResult{}, err
	}

	if r.OrderCancelTransaction != nil {
		return models.OrderResult{}, errors.Errorf("order cancelled: %s", r.OrderCancelTransaction.Reason)
	}

	res := models.OrderResult{SignedUnits: req.SignedUnits}
	if r.OrderCreateTransaction != nil {
		res.OrderID = r.OrderCreateTransaction.ID
	}
	if fill := r.OrderFillTransaction; fill != nil {
		if res.OrderID == "" {
			res.OrderID = fill.ID
		}
		if fill.TradeOpened != nil {
			res.TradeID = fill.TradeOpened.TradeID
		}
		if px, err := parseOptionalFloat(fill.Price); err == nil {
			res.FillPrice = px
		}
	}
	return res, nil
}

func formatPrice(px float64) string {
	return decimal.NewFromFloat(px).StringFixed(pricePlaces)
}
