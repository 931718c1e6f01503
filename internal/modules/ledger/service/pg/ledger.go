package pg

import (
	"context"
	"fmt"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/ledger/service/pg/sql"
	"signal_trader/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

// Ledger: журнал в Postgres. Таблицы создаются при первом подключении.
type Ledger struct {
	db  db.TxManager
	sql *sql.Queries
}

func NewLedger(ctx context.Context, tm db.TxManager) (*Ledger, error) {
	l := &Ledger{db: tm, sql: sql.New()}
	if err := l.sql.Migrate(ctx, tm.Conn()); err != nil {
		return nil, fmt.Errorf("pg.Ledger migrate: %w", err)
	}
	return l, nil
}

func (l *Ledger) AppendTrade(ctx context.Context, rec models.TradeRecord) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.AppendTrade: %w", err)
		}
	}()
	ind, err := encodeIndicators(rec.Indicators)
	if err != nil {
		return err
	}
	return l.sql.InsertTrade(ctx, l.db.Conn(), &sql.InsertTradeParams{
		ID:          rec.ID,
		Ts:          rec.Timestamp.UTC(),
		Instrument:  rec.Instrument,
		Direction:   int16(rec.Direction),
		Confidence:  rec.Confidence,
		SignedUnits: rec.SignedUnits,
		Price:       rec.Price,
		TakeProfit:  rec.TakeProfit,
		StopLoss:    rec.StopLoss,
		OrderID:     rec.OrderID,
		Indicators:  ind,
	})
}

func (l *Ledger) AppendSkip(ctx context.Context, rec models.SkipRecord) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.AppendSkip: %w", err)
		}
	}()
	ind, err := encodeIndicators(rec.Indicators)
	if err != nil {
		return err
	}
	var dir *int16
	if rec.Direction != nil {
		d := int16(*rec.Direction)
		dir = &d
	}
	return l.sql.InsertSkip(ctx, l.db.Conn(), &sql.InsertSkipParams{
		ID:         rec.ID,
		Ts:         rec.Timestamp.UTC(),
		Instrument: rec.Instrument,
		Direction:  dir,
		Confidence: rec.Confidence,
		Reason:     rec.Reason,
		Indicators: ind,
	})
}

func (l *Ledger) AppendClose(ctx context.Context, rec models.CloseRecord) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.AppendClose: %w", err)
		}
	}()
	return l.sql.InsertClose(ctx, l.db.Conn(), &sql.InsertCloseParams{
		ID:          rec.ID,
		Ts:          rec.Timestamp.UTC(),
		Instrument:  rec.Instrument,
		ClosedUnits: rec.ClosedUnits,
		RealizedPl:  rec.RealizedPL,
	})
}

// Summary читает счётчики в одной транзакции, чтобы они были согласованы.
func (l *Ledger) Summary(ctx context.Context) (s models.LedgerSummary, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Summary: %w", err)
		}
	}()
	err = l.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		total, err := l.sql.CountTrades(ctxTx, tx)
		if err != nil {
			return err
		}
		st, err := l.sql.CloseStats(ctxTx, tx)
		if err != nil {
			return err
		}
		s = summaryFromStats(total, st)
		return nil
	})
	return s, err
}

func (l *Ledger) RecentTrades(ctx context.Context, n int) (out []models.TradeRecord, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.RecentTrades: %w", err)
		}
	}()
	rows, err := l.sql.RecentTrades(ctx, l.db.Conn(), int32(n))
	if err != nil {
		return nil, err
	}
	out = make([]models.TradeRecord, 0, len(rows))
	for _, r := range rows {
		rec := models.TradeRecord{
			ID:          r.ID,
			Timestamp:   r.Ts,
			Instrument:  r.Instrument,
			Direction:   models.Direction(r.Direction),
			Confidence:  r.Confidence,
			SignedUnits: r.SignedUnits,
			Price:       r.Price,
			TakeProfit:  r.TakeProfit,
			StopLoss:    r.StopLoss,
			OrderID:     r.OrderID,
		}
		if len(r.Indicators) > 0 {
			if err = sonic.Unmarshal(r.Indicators, &rec.Indicators); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func summaryFromStats(total int64, st sql.CloseStatsRow) models.LedgerSummary {
	s := models.LedgerSummary{
		TotalTrades: int(total),
		Wins:        int(st.Wins),
		Losses:      int(st.Losses),
		NetPL:       st.NetPl,
	}
	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = float64(s.Wins) / float64(decided) * 100
	}
	return s
}

func encodeIndicators(ind map[string]float64) ([]byte, error) {
	if len(ind) == 0 {
		return nil, nil
	}
	return sonic.Marshal(ind)
}
