package models

import "time"

// TradeOrder is a fill confirmed by the broker. It is reconstructed from raw
// terminal records on every query and never cached.
type TradeOrder struct {
	Symbol   string
	Direct   Direction
	Price    float64
	Quanty   int64
	Datetime time.Time
}

// TradeContract is a broker-side order record: what was requested, how much
// of it traded so far, and the broker's own status code for it.
type TradeContract struct {
	OrderID  string
	Symbol   string
	Direct   Direction
	Price    float64
	Traded   int64
	Total    int64
	Status   int
	Datetime time.Time
}
