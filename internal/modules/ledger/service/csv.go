package service

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"signal_trader/internal/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const (
	TradesFile = "trade_log.csv"
	SkipsFile  = "skipped_trades.csv"
	ClosesFile = "closed_positions.csv"
)

var (
	tradeHeader = []string{"id", "timestamp", "instrument", "direction", "confidence", "signed_units",
		"price", "take_profit", "stop_loss", "order_id", "indicators"}
	skipHeader  = []string{"id", "timestamp", "instrument", "direction", "confidence", "reason_skipped", "indicators"}
	closeHeader = []string{"id", "timestamp", "instrument", "closed_units", "realized_pl"}
)

// CSV: журнал в трёх append-only файлах. Заголовок пишется один раз, при создании файла.
type CSV struct {
	dir string
	mu  sync.Mutex
}

func NewCSV(dir string) (*CSV, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "ledger dir %s", dir)
	}
	return &CSV{dir: dir}, nil
}

func (l *CSV) AppendTrade(_ context.Context, rec models.TradeRecord) error {
	ind, err := encodeIndicators(rec.Indicators)
	if err != nil {
		return err
	}
	return l.append(TradesFile, tradeHeader, []string{
		rec.ID,
		formatTime(rec.Timestamp),
		rec.Instrument,
		strconv.Itoa(int(rec.Direction)),
		formatFloat(rec.Confidence),
		strconv.FormatInt(rec.SignedUnits, 10),
		formatFloat(rec.Price),
		formatFloat(rec.TakeProfit),
		formatFloat(rec.StopLoss),
		rec.OrderID,
		ind,
	})
}

func (l *CSV) AppendSkip(_ context.Context, rec models.SkipRecord) error {
	ind, err := encodeIndicators(rec.Indicators)
	if err != nil {
		return err
	}
	var dir, conf string
	if rec.Direction != nil {
		dir = strconv.Itoa(int(*rec.Direction))
	}
	if rec.Confidence != nil {
		conf = formatFloat(*rec.Confidence)
	}
	return l.append(SkipsFile, skipHeader, []string{
		rec.ID,
		formatTime(rec.Timestamp),
		rec.Instrument,
		dir,
		conf,
		rec.Reason,
		ind,
	})
}

func (l *CSV) AppendClose(_ context.Context, rec models.CloseRecord) error {
	return l.append(ClosesFile, closeHeader, []string{
		rec.ID,
		formatTime(rec.Timestamp),
		rec.Instrument,
		strconv.FormatInt(rec.ClosedUnits, 10),
		formatFloat(rec.RealizedPL),
	})
}

func (l *CSV) Summary(_ context.Context) (models.LedgerSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	trades, err := l.readRows(TradesFile)
	if err != nil {
		return models.LedgerSummary{}, err
	}
	rows, err := l.readRows(ClosesFile)
	if err != nil {
		return models.LedgerSummary{}, err
	}
	closes := make([]models.CloseRecord, 0, len(rows))
	for i, row := range rows {
		c, err := parseClose(row)
		if err != nil {
			return models.LedgerSummary{}, errors.Wrapf(err, "%s row %d", ClosesFile, i+2)
		}
		closes = append(closes, c)
	}
	return models.Summarize(len(trades), closes), nil
}

// RecentTrades: последние n сделок, старые первыми.
func (l *CSV) RecentTrades(_ context.Context, n int) ([]models.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.readRows(TradesFile)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	out := make([]models.TradeRecord, 0, len(rows))
	for _, row := range rows {
		t, err := parseTrade(row)
		if err != nil {
			return nil, errors.Wrap(err, TradesFile)
		}
		out = append(out, t)
	}
	return out, nil
}

func (l *CSV) append(name string, header, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(header); err != nil {
			return errors.Wrapf(err, "write header %s", path)
		}
	}
	if err := w.Write(row); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "flush %s", path)
}

// readRows читает файл без заголовка. Отсутствующий файл: пустой журнал.
func (l *CSV) readRows(name string) ([][]string, error) {
	path := filepath.Join(l.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		if first {
			first = false
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseTrade(row []string) (models.TradeRecord, error) {
	if len(row) != len(tradeHeader) {
		return models.TradeRecord{}, errors.Errorf("trade row has %d fields, want %d", len(row), len(tradeHeader))
	}
	var p fieldParser
	rec := models.TradeRecord{
		ID:          row[0],
		Timestamp:   p.time(row[1]),
		Instrument:  row[2],
		Direction:   models.Direction(p.int(row[3])),
		Confidence:  p.float(row[4]),
		SignedUnits: p.int64(row[5]),
		Price:       p.float(row[6]),
		TakeProfit:  p.float(row[7]),
		StopLoss:    p.float(row[8]),
		OrderID:     row[9],
	}
	if row[10] != "" {
		if err := sonic.UnmarshalString(row[10], &rec.Indicators); err != nil {
			return rec, errors.Wrap(err, "indicators")
		}
	}
	return rec, p.err
}

func parseClose(row []string) (models.CloseRecord, error) {
	if len(row) != len(closeHeader) {
		return models.CloseRecord{}, errors.Errorf("close row has %d fields, want %d", len(row), len(closeHeader))
	}
	var p fieldParser
	rec := models.CloseRecord{
		ID:          row[0],
		Timestamp:   p.time(row[1]),
		Instrument:  row[2],
		ClosedUnits: p.int64(row[3]),
		RealizedPL:  p.float(row[4]),
	}
	return rec, p.err
}

// fieldParser запоминает первую ошибку разбора, чтобы не проверять каждое поле.
type fieldParser struct{ err error }

func (p *fieldParser) float(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *fieldParser) int64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *fieldParser) int(s string) int {
	return int(p.int64(s))
}

func (p *fieldParser) time(s string) time.Time {
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func encodeIndicators(ind map[string]float64) (string, error) {
	if len(ind) == 0 {
		return "", nil
	}
	// sonic по умолчанию не сортирует ключи
	s, err := sonic.ConfigStd.MarshalToString(ind)
	return s, errors.Wrap(err, "encode indicators")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
