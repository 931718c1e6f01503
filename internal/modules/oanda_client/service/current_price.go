package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// CurrentPrice: середина между лучшими bid и ask.
func (c *Client) CurrentPrice(ctx context.Context, instrument string) (float64, error) {
	var r pricingResponse
	q := url.Values{"instruments": []string{instrument}}
	if err := c.do(ctx, http.MethodGet, c.accountPath("pricing"), q, nil, &r); err != nil {
		return 0, err
	}

	for _, p := range r.Prices {
		if p.Instrument != instrument {
			continue
		}
		if len(p.Bids) == 0 || len(p.Asks) == 0 {
			return 0, errors.Errorf("no quotes for %s", instrument)
		}
		bid, err := strconv.ParseFloat(p.Bids[0].Price, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "bid %q", p.Bids[0].Price)
		}
		ask, err := strconv.ParseFloat(p.Asks[0].Price, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "ask %q", p.Asks[0].Price)
		}
		return (bid + ask) / 2, nil
	}
	return 0, errors.Errorf("instrument %s not in pricing response", instrument)
}
