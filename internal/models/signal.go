package models

import "fmt"

// Direction is the side of a trading signal.
type Direction string

const (
	DirectionBuy    Direction = "BUY"
	DirectionSell   Direction = "SELL"
	DirectionClose  Direction = "CLOSE"
	DirectionBuyAll Direction = "BUY_ALL"
)

// Inverse returns the direction that closes a position opened with d.
// Only BUY and SELL have a meaningful inverse; everything that is not a BUY
// closes with a BUY.
func (d Direction) Inverse() Direction {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}

// OrderStatus is the lifecycle state of a signal inside the pipeline.
// The only legal transitions are APPLY -> SUBMIT and APPLY -> DROP;
// SUBMIT and DROP are terminal.
type OrderStatus int

const (
	StatusInit OrderStatus = iota
	StatusApply
	StatusDrop
	StatusSubmit
)

func (s OrderStatus) String() string {
	switch s {
	case StatusInit:
		return "INIT"
	case StatusApply:
		return "APPLY"
	case StatusDrop:
		return "DROP"
	case StatusSubmit:
		return "SUBMIT"
	}
	return fmt.Sprintf("OrderStatus(%d)", int(s))
}

// Terminal reports whether no further transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusSubmit || s == StatusDrop
}

// Signal is a directional trading intent produced by the strategy layer.
// Everything except the status is fixed at construction time.
type Signal struct {
	ID       string
	Datetime string
	Symbol   string
	Signal   Direction
	Price    float64
	Quanty   int64

	// Computed exit levels carried along for the eventual closing order.
	Close             float64
	CloseWithLow      float64
	CloseWithSuperLow float64
	Stop              float64

	Feature     string
	Add         bool
	Index       int
	CloseDirect Direction

	status OrderStatus
}

// NewSignal builds a signal from the bar it was generated on. The id is
// derived from the bar timestamp unless one is supplied.
func NewSignal(id string, bar *Bar, quanty int64, signal Direction, closePrice, closeLow, closeSuperLow, stop float64, feature string, add bool, index int) *Signal {
	if id == "" {
		id = bar.Datetime.Format("20060102150405")
	}

	return &Signal{
		ID:                id,
		Datetime:          bar.Datetime.Format("20060102150405"),
		Symbol:            bar.Symbol,
		Signal:            signal,
		Price:             bar.Last,
		Quanty:            quanty,
		Close:             closePrice,
		CloseWithLow:      closeLow,
		CloseWithSuperLow: closeSuperLow,
		Stop:              stop,
		Feature:           feature,
		Add:               add,
		Index:             index,
		CloseDirect:       signal.Inverse(),
		status:            StatusApply,
	}
}

// Status returns the current lifecycle state.
func (s *Signal) Status() OrderStatus {
	return s.status
}

// MarkSubmitted records a successful hand-off to the broker.
func (s *Signal) MarkSubmitted() error {
	return s.transition(StatusSubmit)
}

// MarkDropped records a sizing or admission rejection.
func (s *Signal) MarkDropped() error {
	return s.transition(StatusDrop)
}

func (s *Signal) transition(next OrderStatus) error {
	if s.status.Terminal() {
		return fmt.Errorf("signal %s already %s, cannot move to %s", s.ID, s.status, next)
	}
	s.status = next
	return nil
}
