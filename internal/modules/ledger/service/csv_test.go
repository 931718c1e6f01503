package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"signal_trader/internal/models"

	"github.com/stretchr/testify/require"
)

var ts = time.Date(2026, 3, 10, 12, 15, 0, 0, time.UTC)

func trade(id string, units int64) models.TradeRecord {
	return models.TradeRecord{
		ID:          id,
		Timestamp:   ts,
		Instrument:  "EUR_USD",
		Direction:   models.DirectionSell,
		Confidence:  0.74,
		SignedUnits: units,
		Price:       1.1,
		TakeProfit:  1.0985,
		StopLoss:    1.101,
		OrderID:     "77",
		Indicators:  map[string]float64{"rsi": 38.2, "atr": 1.5},
	}
}

func TestCSVHeaderWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	l, err := NewCSV(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.AppendTrade(ctx, trade("a", -2727)))
	require.NoError(t, l.AppendTrade(ctx, trade("b", 1000)))

	data, err := os.ReadFile(filepath.Join(dir, TradesFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, strings.Join(tradeHeader, ","), lines[0])
	require.Equal(t, 1, strings.Count(string(data), "signed_units"))
	require.Contains(t, lines[1], `"{""atr"":1.5,""rsi"":38.2}"`)

	// новый экземпляр поверх существующего файла не дублирует заголовок
	l2, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, l2.AppendTrade(ctx, trade("c", 5)))
	data, err = os.ReadFile(filepath.Join(dir, TradesFile))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), "signed_units"))
}

func TestCSVRecentTradesRoundTrip(t *testing.T) {
	l, err := NewCSV(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, l.AppendTrade(ctx, trade(id, int64(i+1))))
	}

	recs, err := l.RecentTrades(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "b", recs[0].ID)
	require.Equal(t, "c", recs[1].ID)

	want := trade("c", 3)
	require.Equal(t, want, recs[1])
}

func TestCSVEmptyLedger(t *testing.T) {
	l, err := NewCSV(filepath.Join(t.TempDir(), "nested", "dir"))
	require.NoError(t, err)
	ctx := context.Background()

	recs, err := l.RecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, recs)

	s, err := l.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, models.LedgerSummary{}, s)
}

func TestCSVSkipWithoutSignal(t *testing.T) {
	dir := t.TempDir()
	l, err := NewCSV(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.AppendSkip(ctx, models.SkipRecord{
		ID: "s1", Timestamp: ts, Instrument: "EUR_USD", Reason: "market closed",
	}))
	dir1 := models.DirectionBuy
	conf := 0.41
	require.NoError(t, l.AppendSkip(ctx, models.SkipRecord{
		ID: "s2", Timestamp: ts, Instrument: "EUR_USD", Direction: &dir1, Confidence: &conf,
		Reason: "low confidence", Indicators: map[string]float64{"rsi": 50},
	}))

	rows, err := l.readRows(SkipsFile)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"s1", "2026-03-10T12:15:00Z", "EUR_USD", "", "", "market closed", ""},
		{"s2", "2026-03-10T12:15:00Z", "EUR_USD", "1", "0.41", "low confidence", `{"rsi":50}`},
	}, rows)
}

func TestCSVSummary(t *testing.T) {
	l, err := NewCSV(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, l.AppendTrade(ctx, trade(id, 100)))
	}
	for i, pl := range []float64{12.5, -4, 0, 3.5} {
		require.NoError(t, l.AppendClose(ctx, models.CloseRecord{
			ID: string(rune('w' + i)), Timestamp: ts, Instrument: "EUR_USD", ClosedUnits: 100, RealizedPL: pl,
		}))
	}

	s, err := l.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, s.TotalTrades)
	require.Equal(t, 2, s.Wins)
	require.Equal(t, 1, s.Losses)
	require.InDelta(t, 66.666, s.WinRate, 0.01)
	require.InDelta(t, 12.0, s.NetPL, 1e-9)
}

func TestCSVCorruptRow(t *testing.T) {
	dir := t.TempDir()
	l, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ClosesFile),
		[]byte(strings.Join(closeHeader, ",")+"\nx,not-a-time,EUR_USD,1,2\n"), 0o644))

	_, err = l.Summary(context.Background())
	require.Error(t, err)
}
