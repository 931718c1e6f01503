package service

import "time"

type openTradesResponse struct {
	Trades []struct {
		ID           string `json:"id"`
		Instrument   string `json:"instrument"`
		Price        string `json:"price"`
		CurrentUnits string `json:"currentUnits"`
		UnrealizedPL string `json:"unrealizedPL"`
	} `json:"trades"`
}

type closePositionRequest struct {
	LongUnits  string `json:"longUnits"`
	ShortUnits string `json:"shortUnits"`
}

type fillTransaction struct {
	ID    string `json:"id"`
	Units string `json:"units"`
	Price string `json:"price"`
	PL    string `json:"pl"`
}

type closePositionResponse struct {
	LongOrderFillTransaction  *fillTransaction `json:"longOrderFillTransaction"`
	ShortOrderFillTransaction *fillTransaction `json:"shortOrderFillTransaction"`
}

type pricingResponse struct {
	Prices []struct {
		Instrument string `json:"instrument"`
		Tradeable  bool   `json:"tradeable"`
		Bids       []struct {
			Price string `json:"price"`
		} `json:"bids"`
		Asks []struct {
			Price string `json:"price"`
		} `json:"asks"`
	} `json:"prices"`
}

type accountSummaryResponse struct {
	Account struct {
		ID       string `json:"id"`
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
		NAV      string `json:"NAV"`
	} `json:"account"`
}

type priceBound struct {
	Price string `json:"price"`
}

type marketOrder struct {
	Instrument       string     `json:"instrument"`
	Units            string     `json:"units"`
	Type             string     `json:"type"`
	PositionFill     string     `json:"positionFill"`
	TakeProfitOnFill priceBound `json:"takeProfitOnFill"`
	StopLossOnFill   priceBound `json:"stopLossOnFill"`
}

type orderRequest struct {
	Order marketOrder `json:"order"`
}

type orderResponse struct {
	OrderCreateTransaction *struct {
		ID string `json:"id"`
	} `json:"orderCreateTransaction"`
	OrderFillTransaction *struct {
		ID          string `json:"id"`
		Price       string `json:"price"`
		Units       string `json:"units"`
		TradeOpened *struct {
			TradeID string `json:"tradeID"`
		} `json:"tradeOpened"`
	} `json:"orderFillTransaction"`
	OrderCancelTransaction *struct {
		Reason string `json:"reason"`
	} `json:"orderCancelTransaction"`
}

type candlesResponse struct {
	Candles []struct {
		Time     time.Time `json:"time"`
		Volume   int64     `json:"volume"`
		Complete bool      `json:"complete"`
		Mid      struct {
			O string `json:"o"`
			H string `json:"h"`
			L string `json:"l"`
			C string `json:"c"`
		} `json:"mid"`
	} `json:"candles"`
}

// Candle: средние (mid) цены бара.
type Candle struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Complete bool
}
