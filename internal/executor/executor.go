// Package executor implements the order sizing and risk engine: it turns
// directional trading intents into admissible, funds- and position-bounded
// orders and publishes them on the account synchronization channel.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"astock-signal-trader-go/internal/config"
	"astock-signal-trader-go/internal/journal"
	"astock-signal-trader-go/internal/models"
	"astock-signal-trader-go/internal/mq"
	"go.uber.org/zap"
)

// OrderInstruction is the wire body published for every accepted order.
// Quanty carries the final sized quantity, not the requested one.
type OrderInstruction struct {
	Direct models.Direction `json:"direct"`
	Symbol string           `json:"symbol"`
	Quanty int64            `json:"quanty"`
	Price  float64          `json:"price"`
	Type   string           `json:"type"`
}

// AccountSnapshot is the inbound sync message: the broker host's latest view
// of funds, optionally positions, and optionally an order instruction to
// dispatch against that fresh state.
type AccountSnapshot struct {
	AvailableMoney float64                     `json:"available_money"`
	Positions      map[string]PositionSnapshot `json:"positions,omitempty"`
	Order          *OrderRequest               `json:"order,omitempty"`
}

// PositionSnapshot is one per-symbol holding inside a snapshot.
type PositionSnapshot struct {
	Quanty          int64 `json:"quanty"`
	AvailableQuanty int64 `json:"available_quanty"`
}

// OrderRequest is an order instruction embedded in a snapshot.
type OrderRequest struct {
	Direct models.Direction `json:"direct"`
	Symbol string           `json:"symbol"`
	Quanty int64            `json:"quanty"`
	Price  float64          `json:"price"`
	Type   string           `json:"type"`
}

// Executor sizes signals against its cached account/position view and
// publishes admissible orders. The cache is only ever replaced wholesale from
// the sync loop; Order reads a consistent snapshot of it, which may be stale
// by up to one sync interval.
type Executor struct {
	name          string
	cfg           *config.Trading
	logger        *zap.Logger
	bus           mq.Bus
	journal       *journal.Journal
	orderExchange string
	accountQueue  string

	mu        sync.RWMutex
	account   *models.Account
	positions map[string]models.Position
}

// NewExecutor creates an executor. The journal may be nil when no audit
// trail is wanted.
func NewExecutor(cfg *config.Config, logger *zap.Logger, bus mq.Bus, jnl *journal.Journal) *Executor {
	return &Executor{
		name:          cfg.Executor.Name,
		cfg:           &cfg.Trading,
		logger:        logger.Named("executor").With(zap.String("name", cfg.Executor.Name)),
		bus:           bus,
		journal:       jnl,
		orderExchange: cfg.MQ.OrderExchange,
		accountQueue:  cfg.Executor.AccountQueue,
		positions:     make(map[string]models.Position),
	}
}

// RoutingKey returns the per-instance key orders are published under.
func (e *Executor) RoutingKey() string {
	return "trader." + e.name
}

// Account returns the last synced funds view, nil before the first snapshot.
func (e *Executor) Account() *models.Account {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.account
}

// Position returns the last synced holding for symbol, nil when untracked.
func (e *Executor) Position(symbol string) *models.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pos, ok := e.positions[symbol]
	if !ok {
		return nil
	}
	return &pos
}

// Order sizes the request against the cached account/position state and, when
// admissible, publishes the resulting instruction. A rejection returns a nil
// instruction and no error: insufficient funds or position is a normal,
// logged outcome, not a fault. Only publication failures are errors.
func (e *Executor) Order(symbol string, direct models.Direction, price float64, quanty int64, orderType string) (*OrderInstruction, error) {
	e.mu.RLock()
	account := e.account
	positions := e.positions
	e.mu.RUnlock()

	if account == nil {
		e.drop(symbol, direct, price, quanty, orderType, "no account snapshot received yet")
		return nil, nil
	}

	var sized int64
	var reason string
	switch direct {
	case models.DirectionBuy:
		sized, reason = e.sizeBuy(account, symbol, price, quanty)
	case models.DirectionSell:
		sized, reason = e.sizeSell(positions, symbol, quanty)
	default:
		sized, reason = 0, fmt.Sprintf("direction %q is not dispatchable", direct)
	}

	if sized <= 0 {
		e.drop(symbol, direct, price, quanty, orderType, reason)
		return nil, nil
	}

	inst := &OrderInstruction{
		Direct: direct,
		Symbol: symbol,
		Quanty: sized,
		Price:  price,
		Type:   orderType,
	}

	body, err := json.Marshal(inst)
	if err != nil {
		return nil, fmt.Errorf("marshal order instruction: %w", err)
	}
	if err := e.bus.Publish(e.orderExchange, e.RoutingKey(), body); err != nil {
		return nil, fmt.Errorf("publish order for %s: %w", symbol, err)
	}

	e.logger.Info("Order published",
		zap.String("symbol", symbol),
		zap.String("direct", string(direct)),
		zap.Int64("requested", quanty),
		zap.Int64("sized", sized),
		zap.Float64("price", price))
	e.record(symbol, direct, price, quanty, sized, orderType, models.StatusSubmit, "")

	return inst, nil
}

// Execute drives a signal through sizing and advances its status.
func (e *Executor) Execute(sig *models.Signal, orderType string) error {
	inst, err := e.Order(sig.Symbol, sig.Signal, sig.Price, sig.Quanty, orderType)
	if err != nil {
		return err
	}
	if inst == nil {
		return sig.MarkDropped()
	}
	return sig.MarkSubmitted()
}

// sizeBuy clamps a buy so it stays inside available funds. When the
// fee-adjusted notional exceeds funds, the quantity is cut to the largest
// whole lot the raw funds cover. Star-board symbols whose clamped quantity
// lands under their larger minimum lot are raised to it if funds allow.
func (e *Executor) sizeBuy(account *models.Account, symbol string, price float64, quanty int64) (int64, string) {
	r := quanty
	if float64(quanty)*price*(1+e.cfg.FeeRate) > account.AvailableFunds {
		r = int64(account.AvailableFunds/price/float64(e.cfg.LotSize)) * e.cfg.LotSize
	}

	if r == 0 {
		return 0, fmt.Sprintf("insufficient funds to buy %s", symbol)
	}

	if strings.HasPrefix(symbol, e.cfg.StarPrefix) && r < e.cfg.StarLotSize &&
		account.AvailableFunds >= float64(e.cfg.StarLotSize)*price {
		r = e.cfg.StarLotSize
	}

	return r, ""
}

// sizeSell clamps a sell to the sellable position. Star-board symbols under
// their minimum lot are raised to it when the position supports that.
func (e *Executor) sizeSell(positions map[string]models.Position, symbol string, quanty int64) (int64, string) {
	pos, ok := positions[symbol]
	if !ok || pos.AvailableQuantity == 0 {
		return 0, fmt.Sprintf("no sellable position in %s", symbol)
	}

	r := quanty
	if r > pos.AvailableQuantity {
		r = pos.AvailableQuantity
	}

	if strings.HasPrefix(symbol, e.cfg.StarPrefix) && r < e.cfg.StarLotSize &&
		pos.AvailableQuantity >= e.cfg.StarLotSize {
		r = e.cfg.StarLotSize
	}

	return r, ""
}

// SyncAccount blocks consuming account snapshots until ctx is cancelled.
// This is the executor's only way of learning new account state, and the
// cache's single writer; run it on its own goroutine, apart from the one
// issuing Order calls.
func (e *Executor) SyncAccount(ctx context.Context) error {
	e.logger.Info("Starting account sync loop", zap.String("queue", e.accountQueue))
	return e.bus.Consume(ctx, e.accountQueue, e.handleSnapshot)
}

// handleSnapshot replaces the cache wholesale and dispatches any embedded
// order. A payload that does not deserialize is a hard error: the channel has
// no redelivery path for it.
func (e *Executor) handleSnapshot(body []byte) error {
	var snap AccountSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fmt.Errorf("malformed account snapshot: %w", err)
	}

	account := &models.Account{AvailableFunds: snap.AvailableMoney}
	var positions map[string]models.Position
	if snap.Positions != nil {
		positions = make(map[string]models.Position, len(snap.Positions))
		for symbol, p := range snap.Positions {
			positions[symbol] = models.Position{Quantity: p.Quanty, AvailableQuantity: p.AvailableQuanty}
		}
	}

	// New values are built fully before the swap so readers never see a
	// half-updated snapshot.
	e.mu.Lock()
	e.account = account
	if positions != nil {
		e.positions = positions
	}
	e.mu.Unlock()

	e.logger.Debug("Account snapshot applied",
		zap.Float64("available_money", snap.AvailableMoney),
		zap.Int("positions", len(snap.Positions)))

	if snap.Order != nil {
		o := snap.Order
		if _, err := e.Order(o.Symbol, o.Direct, o.Price, o.Quanty, o.Type); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor) drop(symbol string, direct models.Direction, price float64, quanty int64, orderType, reason string) {
	e.logger.Error("Order dropped",
		zap.String("symbol", symbol),
		zap.String("direct", string(direct)),
		zap.Int64("requested", quanty),
		zap.String("reason", reason))
	e.record(symbol, direct, price, quanty, 0, orderType, models.StatusDrop, reason)
}

func (e *Executor) record(symbol string, direct models.Direction, price float64, requested, final int64, orderType string, status models.OrderStatus, reason string) {
	if e.journal == nil {
		return
	}

	rec := &models.OrderRecord{
		Symbol:       symbol,
		Direct:       string(direct),
		Price:        price,
		RequestedQty: requested,
		FinalQty:     final,
		OrderType:    orderType,
		Status:       status.String(),
		Reason:       reason,
	}
	if err := e.journal.Record(rec); err != nil {
		// The journal is an audit aid; a write failure must not undo a
		// published order.
		e.logger.Error("Failed to journal order", zap.String("symbol", symbol), zap.Error(err))
	}
}
