package models

import "time"

// Bar is one aggregated market-data candle.
type Bar struct {
	Symbol        string
	Datetime      time.Time
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Last          float64
	PrevClose     float64
	TotalTurnover float64
	Volume        int64
	Period        string
}

// Tick is one level-2 snapshot.
type Tick struct {
	Symbol    string
	Datetime  time.Time
	Last      float64
	PrevClose float64
	Asks      []float64
	Bids      []float64
	AskVols   []int64
	BidVols   []int64
}
