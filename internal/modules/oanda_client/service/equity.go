package service

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
)

// Equity: NAV счёта. Сбой запроса всегда ошибка, никогда не ноль.
func (c *Client) Equity(ctx context.Context) (float64, error) {
	var r accountSummaryResponse
	if err := c.do(ctx, http.MethodGet, c.accountPath("summary"), nil, nil, &r); err != nil {
		return 0, err
	}
	nav, err := strconv.ParseFloat(r.Account.NAV, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "account NAV %q", r.Account.NAV)
	}
	return nav, nil
}
