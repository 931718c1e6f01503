package models

import "time"

// TradeRecord: строка журнала исполненных сделок.
type TradeRecord struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Instrument  string             `json:"instrument"`
	Direction   Direction          `json:"direction"`
	Confidence  float64            `json:"confidence"`
	SignedUnits int64              `json:"signed_units"`
	Price       float64            `json:"price"`
	TakeProfit  float64            `json:"take_profit"`
	StopLoss    float64            `json:"stop_loss"`
	OrderID     string             `json:"order_id"`
	Indicators  map[string]float64 `json:"indicators"`
}

// SkipRecord: строка журнала пропусков. Direction/Confidence пустые, если прогноза не было.
type SkipRecord struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Instrument string             `json:"instrument"`
	Direction  *Direction         `json:"direction"`
	Confidence *float64           `json:"confidence"`
	Reason     string             `json:"reason_skipped"`
	Indicators map[string]float64 `json:"indicators"`
}

// CloseRecord: закрытие позиции движком (разворот), с реализованным P/L.
type CloseRecord struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Instrument  string    `json:"instrument"`
	ClosedUnits int64     `json:"closed_units"`
	RealizedPL  float64   `json:"realized_pl"`
}

type LedgerSummary struct {
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"` // в процентах
	NetPL       float64 `json:"net_pl"`
}

// Summarize считает статистику по сделкам и закрытиям.
func Summarize(totalTrades int, closes []CloseRecord) LedgerSummary {
	s := LedgerSummary{TotalTrades: totalTrades}
	for _, c := range closes {
		switch {
		case c.RealizedPL > 0:
			s.Wins++
		case c.RealizedPL < 0:
			s.Losses++
		}
		s.NetPL += c.RealizedPL
	}
	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = float64(s.Wins) / float64(decided) * 100
	}
	return s
}
