package sql

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX: пул или транзакция.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct{}

func New() *Queries {
	return &Queries{}
}

func (q *Queries) Migrate(ctx context.Context, db DBTX) error {
	_, err := db.Exec(ctx, Schema)
	return err
}

const insertTrade = `-- name: InsertTrade :exec
INSERT INTO trades (id, ts, instrument, direction, confidence, signed_units, price, take_profit, stop_loss, order_id, indicators)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

type InsertTradeParams struct {
	ID          string
	Ts          time.Time
	Instrument  string
	Direction   int16
	Confidence  float64
	SignedUnits int64
	Price       float64
	TakeProfit  float64
	StopLoss    float64
	OrderID     string
	Indicators  []byte
}

func (q *Queries) InsertTrade(ctx context.Context, db DBTX, arg *InsertTradeParams) error {
	_, err := db.Exec(ctx, insertTrade,
		arg.ID,
		arg.Ts,
		arg.Instrument,
		arg.Direction,
		arg.Confidence,
		arg.SignedUnits,
		arg.Price,
		arg.TakeProfit,
		arg.StopLoss,
		arg.OrderID,
		arg.Indicators,
	)
	return err
}

const insertSkip = `-- name: InsertSkip :exec
INSERT INTO skipped_trades (id, ts, instrument, direction, confidence, reason_skipped, indicators)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertSkipParams struct {
	ID         string
	Ts         time.Time
	Instrument string
	Direction  *int16
	Confidence *float64
	Reason     string
	Indicators []byte
}

func (q *Queries) InsertSkip(ctx context.Context, db DBTX, arg *InsertSkipParams) error {
	_, err := db.Exec(ctx, insertSkip,
		arg.ID,
		arg.Ts,
		arg.Instrument,
		arg.Direction,
		arg.Confidence,
		arg.Reason,
		arg.Indicators,
	)
	return err
}

const insertClose = `-- name: InsertClose :exec
INSERT INTO closed_positions (id, ts, instrument, closed_units, realized_pl)
VALUES ($1, $2, $3, $4, $5)
`

type InsertCloseParams struct {
	ID          string
	Ts          time.Time
	Instrument  string
	ClosedUnits int64
	RealizedPl  float64
}

func (q *Queries) InsertClose(ctx context.Context, db DBTX, arg *InsertCloseParams) error {
	_, err := db.Exec(ctx, insertClose, arg.ID, arg.Ts, arg.Instrument, arg.ClosedUnits, arg.RealizedPl)
	return err
}

const countTrades = `-- name: CountTrades :one
SELECT count(*) FROM trades
`

func (q *Queries) CountTrades(ctx context.Context, db DBTX) (int64, error) {
	var n int64
	err := db.QueryRow(ctx, countTrades).Scan(&n)
	return n, err
}

const closeStats = `-- name: CloseStats :one
SELECT
	count(*) FILTER (WHERE realized_pl > 0),
	count(*) FILTER (WHERE realized_pl < 0),
	coalesce(sum(realized_pl), 0)
FROM closed_positions
`

type CloseStatsRow struct {
	Wins   int64
	Losses int64
	NetPl  float64
}

func (q *Queries) CloseStats(ctx context.Context, db DBTX) (CloseStatsRow, error) {
	var r CloseStatsRow
	err := db.QueryRow(ctx, closeStats).Scan(&r.Wins, &r.Losses, &r.NetPl)
	return r, err
}

const recentTrades = `-- name: RecentTrades :many
SELECT id::text, ts, instrument, direction, confidence, signed_units, price, take_profit, stop_loss, order_id, indicators
FROM (SELECT * FROM trades ORDER BY ts DESC LIMIT $1) t
ORDER BY ts
`

type TradeRow struct {
	ID          string
	Ts          time.Time
	Instrument  string
	Direction   int16
	Confidence  float64
	SignedUnits int64
	Price       float64
	TakeProfit  float64
	StopLoss    float64
	OrderID     string
	Indicators  []byte
}

func (q *Queries) RecentTrades(ctx context.Context, db DBTX, limit int32) ([]TradeRow, error) {
	rows, err := db.Query(ctx, recentTrades, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TradeRow
	for rows.Next() {
		var i TradeRow
		if err := rows.Scan(
			&i.ID,
			&i.Ts,
			&i.Instrument,
			&i.Direction,
			&i.Confidence,
			&i.SignedUnits,
			&i.Price,
			&i.TakeProfit,
			&i.StopLoss,
			&i.OrderID,
			&i.Indicators,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
