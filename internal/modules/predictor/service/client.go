package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

type Config struct {
	URL         string
	Instrument  string
	Granularity string
	Timeout     time.Duration
}

// Client ходит в сервис модели: прогноз, переобучение, готовность.
type Client struct {
	http        *http.Client
	baseURL     string
	instrument  string
	granularity string
	timeout     time.Duration
	now         func() time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		// ретрейн может идти минутами, поэтому таймаут клиента не ставим, его задаёт ctx
		http:        &http.Client{},
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		instrument:  cfg.Instrument,
		granularity: cfg.Granularity,
		timeout:     timeout,
		now:         time.Now,
	}
}

type predictRequest struct {
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
}

type predictResponse struct {
	Direction  *int               `json:"direction"`
	Confidence *float64           `json:"confidence"`
	Indicators map[string]float64 `json:"indicators"`
}

type backtestResponse struct {
	Samples            *int     `json:"samples"`
	TrainAccuracy      float64  `json:"train_accuracy"`
	TestAccuracy       *float64 `json:"test_accuracy"`
	ConfidentAccuracy  float64  `json:"confident_accuracy"`
	ConfidenceCoverage float64  `json:"confidence_coverage"`
}

type healthResponse struct {
	ModelReady bool `json:"model_ready"`
}

// Predict: прогноз на текущий бар. Ответ не по контракту считается фатальной ошибкой.
func (c *Client) Predict(ctx context.Context) (models.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var raw []byte
	err := c.do(ctx, http.MethodPost, "/predict", predictRequest{
		Instrument:  c.instrument,
		Granularity: c.granularity,
	}, &raw)
	if err != nil {
		return models.Signal{}, err
	}

	var r predictResponse
	if err := sonic.Unmarshal(raw, &r); err != nil {
		return models.Signal{}, models.Fatal("predict", errors.Wrapf(err, "decode %q", string(raw)))
	}
	if r.Direction == nil || r.Confidence == nil {
		return models.Signal{}, models.Fatal("predict", errors.Errorf("incomplete prediction %q", string(raw)))
	}

	sig := models.Signal{
		Direction:  models.Direction(*r.Direction),
		Confidence: *r.Confidence,
		Indicators: r.Indicators,
		At:         c.now(),
	}
	for name, v := range sig.Indicators {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.Signal{}, models.Fatal("predict", errors.Errorf("indicator %s is %v", name, v))
		}
	}
	if err := sig.Validate(); err != nil {
		return models.Signal{}, models.Fatal("predict", err)
	}
	return sig, nil
}

// Retrain блокируется до конца обучения или отмены ctx.
func (c *Client) Retrain(ctx context.Context) error {
	start := c.now()
	if err := c.do(ctx, http.MethodPost, "/retrain", predictRequest{
		Instrument:  c.instrument,
		Granularity: c.granularity,
	}, nil); err != nil {
		return err
	}
	logger.Info("[PREDICT] retrain done in %s", c.now().Sub(start).Round(time.Millisecond))
	return nil
}

// Backtest переобучает модель на обучающей части истории и меряет точность на остатке.
// Идёт так же долго, как Retrain, поэтому срок задаёт только ctx.
func (c *Client) Backtest(ctx context.Context) (models.BacktestResult, error) {
	var raw []byte
	err := c.do(ctx, http.MethodPost, "/backtest", predictRequest{
		Instrument:  c.instrument,
		Granularity: c.granularity,
	}, &raw)
	if err != nil {
		return models.BacktestResult{}, err
	}

	var r backtestResponse
	if err := sonic.Unmarshal(raw, &r); err != nil {
		return models.BacktestResult{}, models.Fatal("backtest", errors.Wrapf(err, "decode %q", string(raw)))
	}
	if r.Samples == nil || r.TestAccuracy == nil {
		return models.BacktestResult{}, models.Fatal("backtest", errors.Errorf("incomplete backtest %q", string(raw)))
	}
	return models.BacktestResult{
		Samples:            *r.Samples,
		TrainAccuracy:      r.TrainAccuracy,
		TestAccuracy:       *r.TestAccuracy,
		ConfidentAccuracy:  r.ConfidentAccuracy,
		ConfidenceCoverage: r.ConfidenceCoverage,
	}, nil
}

func (c *Client) ModelReady(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var raw []byte
	if err := c.do(ctx, http.MethodGet, "/health", nil, &raw); err != nil {
		return false, err
	}
	var r healthResponse
	if err := sonic.Unmarshal(raw, &r); err != nil {
		return false, models.Fatal("model health", errors.Wrapf(err, "decode %q", string(raw)))
	}
	return r.ModelReady, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, out *[]byte) error {
	var body io.Reader
	if in != nil {
		payload, err := sonic.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "%s %s marshal", method, path)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "%s %s new request", method, path)
	}
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
		return errors.WithMessagef(
			fmt.Errorf("predictor http %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
			"%s %s", method, path)
	}
	if out != nil {
		*out = data
	}
	return nil
}
