package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// Candles: последние count баров (mid) по инструменту.
func (c *Client) Candles(ctx context.Context, instrument, granularity string, count int) ([]Candle, error) {
	q := url.Values{
		"count":       []string{strconv.Itoa(count)},
		"granularity": []string{granularity},
		"price":       []string{"M"},
	}
	var r candlesResponse
	if err := c.do(ctx, http.MethodGet, "/instruments/"+url.PathEscape(instrument)+"/candles", q, nil, &r); err != nil {
		return nil, err
	}

	out := make([]Candle, 0, len(r.Candles))
	for _, k := range r.Candles {
		var vals [4]float64
		for i, s := range []string{k.Mid.O, k.Mid.H, k.Mid.L, k.Mid.C} {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "candle %s price %q", k.Time, s)
			}
			vals[i] = v
		}
		out = append(out, Candle{
			Time:     k.Time,
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   k.Volume,
			Complete: k.Complete,
		})
	}
	return out, nil
}
