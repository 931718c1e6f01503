package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const DefaultAPIURL = "https://api-fxpractice.oanda.com/v3"

type Config struct {
	APIURL    string
	APIKey    string
	AccountID string
	Timeout   time.Duration
}

// Client: OANDA REST v3 для одного счёта.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	accountID string
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.APIURL, "/")
	if base == "" {
		base = DefaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   base,
		apiKey:    cfg.APIKey,
		accountID: cfg.AccountID,
	}
}

// APIError: ответ OANDA с кодом не 2xx.
type APIError struct {
	Status    int    `json:"-"`
	ErrorCode string `json:"errorCode"`
	Message   string `json:"errorMessage"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("oanda http %d: %s: %s", e.Status, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("oanda http %d: %s", e.Status, e.Message)
}

func (c *Client) accountPath(parts ...string) string {
	return "/accounts/" + url.PathEscape(c.accountID) + "/" + strings.Join(parts, "/")
}

// do выполняет запрос; тело in кодируется в JSON, ответ декодируется в out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := sonic.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "%s %s marshal", method, path)
		}
		body = bytes.NewReader(payload)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.Wrapf(err, "%s %s new request", method, path)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept-Datetime-Format", "RFC3339")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "%s %s read body", method, path)
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jerr := sonic.Unmarshal(data, apiErr); jerr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return errors.WithMessagef(apiErr, "%s %s", method, path)
	}

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "%s %s decode; body=%s", method, path, string(data))
	}
	return nil
}
