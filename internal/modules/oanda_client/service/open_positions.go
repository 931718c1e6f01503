package service

import (
	"context"
	"net/http"
	"strconv"

	"signal_trader/internal/models"

	"github.com/pkg/errors"
)

// OpenPositions: открытые сделки счёта по инструменту, со знаком объёма.
func (c *Client) OpenPositions(ctx context.Context, instrument string) ([]models.Position, error) {
	var r openTradesResponse
	if err := c.do(ctx, http.MethodGet, c.accountPath("openTrades"), nil, nil, &r); err != nil {
		return nil, err
	}

	out := make([]models.Position, 0, len(r.Trades))
	for _, t := range r.Trades {
		if t.Instrument != instrument {
			continue
		}
		units, err := strconv.ParseFloat(t.CurrentUnits, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "trade %s currentUnits %q", t.ID, t.CurrentUnits)
		}
		pl, err := parseOptionalFloat(t.UnrealizedPL)
		if err != nil {
			return nil, errors.Wrapf(err, "trade %s unrealizedPL %q", t.ID, t.UnrealizedPL)
		}
		out = append(out, models.Position{
			Instrument:   t.Instrument,
			SignedUnits:  int64(units),
			UnrealizedPL: pl,
		})
	}
	return out, nil
}

func parseOptionalFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
