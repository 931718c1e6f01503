package models

import "time"

type OutcomeStatus string

const (
	OutcomeExecuted OutcomeStatus = "executed"
	OutcomeSkipped  OutcomeStatus = "skipped"
)

// Причины пропуска цикла.
const (
	ReasonPaused         = "paused"
	ReasonMarketClosed   = "market closed"
	ReasonLowConfidence  = "low confidence"
	ReasonAlreadyHolding = "already holding"
	ReasonZeroSize       = "position size is zero"
)

// Outcome: ровно один на цикл. Executed или Skipped, без третьего варианта.
type Outcome struct {
	Status     OutcomeStatus `json:"status"`
	Instrument string        `json:"instrument"`
	Reason     string        `json:"reason,omitempty"`

	// HasSignal=false для пропусков до получения прогноза (пауза, рынок закрыт).
	HasSignal  bool               `json:"has_signal"`
	Direction  Direction          `json:"direction"`
	Confidence float64            `json:"confidence"`
	Indicators map[string]float64 `json:"indicators,omitempty"`

	SignedUnits int64   `json:"signed_units,omitempty"`
	Price       float64 `json:"price,omitempty"`
	TakeProfit  float64 `json:"take_profit,omitempty"`
	StopLoss    float64 `json:"stop_loss,omitempty"`
	OrderID     string  `json:"order_id,omitempty"`

	At time.Time `json:"at"`
}

func Executed(instrument string, sig Signal, units int64, at time.Time) Outcome {
	return Outcome{
		Status:      OutcomeExecuted,
		Instrument:  instrument,
		HasSignal:   true,
		Direction:   sig.Direction,
		Confidence:  sig.Confidence,
		Indicators:  sig.Indicators,
		SignedUnits: units,
		At:          at,
	}
}

// Skipped без сигнала.
func Skipped(instrument, reason string, at time.Time) Outcome {
	return Outcome{
		Status:     OutcomeSkipped,
		Instrument: instrument,
		Reason:     reason,
		At:         at,
	}
}

// SkippedWithSignal: пропуск после получения прогноза.
func SkippedWithSignal(instrument, reason string, sig Signal, at time.Time) Outcome {
	o := Skipped(instrument, reason, at)
	o.HasSignal = true
	o.Direction = sig.Direction
	o.Confidence = sig.Confidence
	o.Indicators = sig.Indicators
	return o
}

func (o Outcome) IsExecuted() bool { return o.Status == OutcomeExecuted }
