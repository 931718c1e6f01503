package models

import (
	"fmt"
	"math"
	"time"
)

// Direction: сторона сигнала. Значения совпадают с выходом модели: 1 покупка, 0 продажа.
type Direction int

const (
	DirectionSell Direction = 0
	DirectionBuy  Direction = 1
)

func (d Direction) Valid() bool { return d == DirectionBuy || d == DirectionSell }

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "buy"
	case DirectionSell:
		return "sell"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Sign: +1 для покупки (long), -1 для продажи (short).
func (d Direction) Sign() int64 {
	if d == DirectionBuy {
		return 1
	}
	return -1
}

// Emoji для сообщений в телеграм.
func (d Direction) Emoji() string {
	if d == DirectionBuy {
		return "🟢 Buy"
	}
	return "🔴 Sell"
}

// Signal: прогноз на один цикл.
type Signal struct {
	Direction  Direction          `json:"direction"`
	Confidence float64            `json:"confidence"`
	Indicators map[string]float64 `json:"indicators"`
	At         time.Time          `json:"at"`
}

// Validate проверяет контракт предиктора. Нарушение: фатальная ошибка цикла, а не пропуск.
func (s Signal) Validate() error {
	if !s.Direction.Valid() {
		return fmt.Errorf("invalid direction %d", int(s.Direction))
	}
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence %v out of [0,1]", s.Confidence)
	}
	return nil
}

// BacktestResult: оценка модели на отложенной выборке, проценты уже умножены на 100.
type BacktestResult struct {
	Samples            int     `json:"samples"`
	TrainAccuracy      float64 `json:"train_accuracy"`
	TestAccuracy       float64 `json:"test_accuracy"`
	ConfidentAccuracy  float64 `json:"confident_accuracy"`
	ConfidenceCoverage float64 `json:"confidence_coverage"`
}
