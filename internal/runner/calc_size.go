package runner

import (
	"fmt"
	"math"

	"signal_trader/internal/models"

	"github.com/shopspring/decimal"
)

// Size считает размер позиции в целых юнитах:
//
//	margin = price / leverage  (маржа на один юнит)
//	units  = floor(equity * riskFraction / margin)
//
// Округление только вниз: бюджет риска не превышается никогда.
// Неположительные входы дают Fatal. Это ошибка конфига или брокера, а не повод пропустить цикл.
func Size(price, equity, riskFraction, leverage float64) (int64, error) {
	switch {
	case !positive(price):
		return 0, models.Fatal("size", fmt.Errorf("price must be positive, got %v", price))
	case !positive(equity):
		return 0, models.Fatal("size", fmt.Errorf("equity must be positive, got %v", equity))
	case !positive(leverage):
		return 0, models.Fatal("size", fmt.Errorf("leverage must be positive, got %v", leverage))
	case !positive(riskFraction) || riskFraction > 1:
		return 0, models.Fatal("size", fmt.Errorf("risk fraction must be in (0,1], got %v", riskFraction))
	}

	budget := decimal.NewFromFloat(equity).Mul(decimal.NewFromFloat(riskFraction))
	margin := decimal.NewFromFloat(price).Div(decimal.NewFromFloat(leverage))
	units := budget.Div(margin).Floor().IntPart()

	// страховка от погрешности float у вызывающего
	floatBudget := equity * riskFraction
	floatMargin := price / leverage
	for units > 0 && float64(units)*floatMargin > floatBudget {
		units--
	}
	return units, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
