// Package feed holds the market-watching side of the system: trading-time
// helpers, the trading-calendar and margin-debt lookups, and the Watcher
// capability implemented by concrete data feeds.
package feed

import (
	"context"
	"time"

	"astock-signal-trader-go/internal/mq"
	"go.uber.org/zap"
)

// Watcher is the single capability a market watcher must provide: block and
// observe until the context is cancelled.
type Watcher interface {
	Watch(ctx context.Context) error
}

// DataFeed is the shared base for concrete watchers: it knows the trading
// session boundaries, the trading calendar, and how to publish observations.
type DataFeed struct {
	logger   *zap.Logger
	bus      mq.Bus
	exchange string
	calendar *CalendarClient
}

// NewDataFeed wires a feed to its publish exchange and calendar.
func NewDataFeed(logger *zap.Logger, bus mq.Bus, exchange string, calendar *CalendarClient) *DataFeed {
	return &DataFeed{
		logger:   logger.Named("feed"),
		bus:      bus,
		exchange: exchange,
		calendar: calendar,
	}
}

// InTradingSession reports whether t falls inside the exchange's continuous
// trading hours (09:30-11:30, 13:00-15:00).
func (f *DataFeed) InTradingSession(t time.Time) bool {
	hm := t.Hour()*100 + t.Minute()
	return (hm >= 930 && hm <= 1130) || (hm >= 1300 && hm <= 1500)
}

// AfterTradingSession reports whether t is past the close.
func (f *DataFeed) AfterTradingSession(t time.Time) bool {
	return t.Hour() > 14
}

// IsTradingDay reports whether t's date is an exchange trading day.
func (f *DataFeed) IsTradingDay(ctx context.Context, t time.Time) (bool, error) {
	return f.calendar.IsTradingDay(ctx, t)
}

// SendMessage publishes an observation under the given routing key.
func (f *DataFeed) SendMessage(routingKey string, body []byte) error {
	return f.bus.Publish(f.exchange, routingKey, body)
}
