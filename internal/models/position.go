package models

// Position: снимок открытой сделки у брокера. Не кэшируется, перечитывается каждый цикл.
type Position struct {
	Instrument   string  `json:"instrument"`
	SignedUnits  int64   `json:"signed_units"`
	UnrealizedPL float64 `json:"unrealized_pl"`
}

// Long/Short по знаку количества.
func (p Position) Long() bool  { return p.SignedUnits > 0 }
func (p Position) Short() bool { return p.SignedUnits < 0 }

// CloseResult: итог закрытия позиции целиком (long+short).
type CloseResult struct {
	Instrument  string  `json:"instrument"`
	ClosedUnits int64   `json:"closed_units"`
	RealizedPL  float64 `json:"realized_pl"`
}

type OrderRequest struct {
	Instrument      string
	SignedUnits     int64
	TakeProfitPrice float64
	StopLossPrice   float64
}

type OrderResult struct {
	OrderID     string  `json:"order_id"`
	TradeID     string  `json:"trade_id"`
	FillPrice   float64 `json:"fill_price"`
	SignedUnits int64   `json:"signed_units"`
}
