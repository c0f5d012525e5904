package models

// Account is the broker-reported funds view. It is replaced wholesale on
// every sync event; the broker is the sole source of truth, so fields are
// never merged into an existing value.
type Account struct {
	AvailableFunds float64
}

// Position is a per-symbol holding. AvailableQuantity is the portion that
// may be sold today.
type Position struct {
	Quantity          int64
	AvailableQuantity int64
}
