package service

import (
	"context"
	"math"
	"net/http"
	"net/url"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"

	"github.com/pkg/errors"
)

// ClosePosition закрывает всё по инструменту (long и short).
// Если позиции нет, это не ошибка: возвращается пустой результат.
func (c *Client) ClosePosition(ctx context.Context, instrument string) (models.CloseResult, error) {
	res := models.CloseResult{Instrument: instrument}

	var r closePositionResponse
	err := c.do(ctx, http.MethodPut, c.accountPath("positions", url.PathEscape(instrument), "close"), nil,
		closePositionRequest{LongUnits: "ALL", ShortUnits: "ALL"}, &r)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			logger.Warn("[BROKER] close %s: no position (%s)", instrument, apiErr.ErrorCode)
			return res, nil
		}
		return res, err
	}

	for _, fill := range []*fillTransaction{r.LongOrderFillTransaction, r.ShortOrderFillTransaction} {
		if fill == nil {
			continue
		}
		units, err := parseOptionalFloat(fill.Units)
		if err != nil {
			return res, errors.Wrapf(err, "close fill %s units %q", fill.ID, fill.Units)
		}
		pl, err := parseOptionalFloat(fill.PL)
		if err != nil {
			return res, errors.Wrapf(err, "close fill %s pl %q", fill.ID, fill.PL)
		}
		res.ClosedUnits += int64(math.Abs(units))
		res.RealizedPL += pl
	}
	return res, nil
}
