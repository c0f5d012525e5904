package broker

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"astock-signal-trader-go/internal/config"
	"astock-signal-trader-go/internal/models"
	"go.uber.org/zap"
)

// Fixed query-type strings accepted by the terminal's detail query primitive.
const (
	queryAccount  = "account"
	queryOrder    = "order"
	queryDeal     = "deal"
	queryPosition = "position"
)

// ErrCancelUnsupported is returned when a cancel is requested but no cancel
// primitive was supplied at construction.
var ErrCancelUnsupported = errors.New("no cancel primitive configured")

// RawDetail is one record as returned by the terminal's detail query
// primitive. Which fields are populated depends on the query type.
type RawDetail struct {
	InstrumentID string
	ExchangeID   string
	Direction    int
	Price        float64
	Volume       int64
	TradedPrice  float64
	VolumeTraded int64
	VolumeTotal  int64
	OrderSysID   string
	OrderStatus  int
	InsertDate   string // YYYYMMDD
	InsertTime   string // HH:MM:SS or HHMMSS
	TradeDate    string
	TradeTime    string

	// Account fields.
	Available         float64
	Balance           float64
	EnableBailBalance float64

	// Position fields.
	CanUseVolume int64
}

// DetailFunc is the terminal's synchronous detail query primitive.
type DetailFunc func(accountID string, accountType AccountType, queryType string) ([]RawDetail, error)

// SubmitFunc is the terminal's fire-and-forget order submission primitive.
// The positional argument shape is fixed by the terminal and must be
// reproduced exactly.
type SubmitFunc func(op OpCode, orderStyle int, accountID, symbol string, priceStyle int, price float64, volume int64, strategy string, priority int, ctx any)

// CancelFunc is the terminal's optional fire-and-forget cancel primitive.
type CancelFunc func(orderID, accountID string, accountType AccountType, ctx any)

// Trader is the only component that speaks the terminal's native vocabulary.
// It translates domain orders into operation codes, submits them through the
// injected primitives, and maps raw query records back into domain entities.
//
// The terminal host may invoke a shared Trader reentrantly from several
// strategies; Order and CancelOrder serialize on an internal mutex, and the
// in-flight counter lets external monitoring detect a submission in flight.
type Trader struct {
	logger *zap.Logger
	cfg    *config.Broker

	detail DetailFunc
	submit SubmitFunc
	cancel CancelFunc
	ctx    any // opaque terminal context handle, passed through untouched

	mu       sync.Mutex
	inFlight atomic.Int64
}

// NewTrader wires a Trader to the terminal's capability functions. cancel
// may be nil when the terminal host does not expose one.
func NewTrader(cfg *config.Broker, logger *zap.Logger, detail DetailFunc, submit SubmitFunc, cancel CancelFunc, terminalCtx any) *Trader {
	return &Trader{
		logger: logger.Named("broker"),
		cfg:    cfg,
		detail: detail,
		submit: submit,
		cancel: cancel,
		ctx:    terminalCtx,
	}
}

// InFlight reports how many submissions are currently inside the terminal
// primitive. It is a monitoring gauge, not a lock.
func (t *Trader) InFlight() int64 {
	return t.inFlight.Load()
}

// Order resolves the operation code for the request and hands it to the
// terminal. A negative quantity is a sell; the absolute value is submitted.
// No response is interpreted: confirmation has to come later through
// GetOrder/GetDeal.
func (t *Trader) Order(bar *models.Bar, symbol string, price float64, quantity int64, accountType AccountType, accountID string, isDebtBuy bool) error {
	op, err := ResolveOpCode(accountType, quantity, isDebtBuy)
	if err != nil {
		return fmt.Errorf("resolve op code for %s: %w", symbol, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight.Add(1)
	defer t.inFlight.Add(-1)

	t.logger.Info("Submitting order to terminal",
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Int64("quantity", quantity),
		zap.Int("op_code", int(op)),
		zap.String("account_id", accountID),
		zap.String("account_type", string(accountType)),
	)

	volume := quantity
	if volume < 0 {
		volume = -volume
	}
	t.submit(op, t.cfg.OrderStyle, accountID, symbol, t.cfg.PriceStyle, price, volume, t.cfg.StrategyName, t.cfg.Priority, t.ctx)

	t.logger.Info("Order handed to terminal", zap.String("symbol", symbol))
	return nil
}

// CancelOrder asks the terminal to cancel a working order. When no cancel
// primitive was configured the call is skipped and reported.
func (t *Trader) CancelOrder(orderID, accountID string, accountType AccountType) error {
	if t.cancel == nil {
		t.logger.Error("Cancel requested but no cancel primitive configured", zap.String("order_id", orderID))
		return ErrCancelUnsupported
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight.Add(1)
	defer t.inFlight.Add(-1)

	t.logger.Info("Cancelling order", zap.String("order_id", orderID), zap.String("account_id", accountID))
	t.cancel(orderID, accountID, accountType, t.ctx)
	return nil
}

// GetAccount returns the account's funds view. Zero records from the
// terminal is reported and yields a nil account, not an error.
func (t *Trader) GetAccount(accountID string, accountType AccountType) (*models.Account, error) {
	records, err := t.detail(accountID, accountType, queryAccount)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		t.logger.Error("Terminal returned no account records", zap.String("account_id", accountID))
		return nil, nil
	}

	return &models.Account{AvailableFunds: records[0].EnableBailBalance}, nil
}

// GetAvailable returns the account's available cash, 0 when the terminal
// reports nothing.
func (t *Trader) GetAvailable(accountID string, accountType AccountType) (float64, error) {
	records, err := t.detail(accountID, accountType, queryAccount)
	if err != nil {
		return 0, err
	}

	var result float64
	for _, r := range records {
		result = r.Available
	}
	return result, nil
}

// GetBalance returns the account's total balance, 0 when the terminal
// reports nothing.
func (t *Trader) GetBalance(accountID string, accountType AccountType) (float64, error) {
	records, err := t.detail(accountID, accountType, queryAccount)
	if err != nil {
		return 0, err
	}

	var result float64
	for _, r := range records {
		result = r.Balance
	}
	return result, nil
}

// GetHoldings returns the sellable quantity per symbol, keyed by the dotted
// "code.exchange" form the rest of the system uses.
func (t *Trader) GetHoldings(accountID string, accountType AccountType) (map[string]int64, error) {
	records, err := t.detail(accountID, accountType, queryPosition)
	if err != nil {
		return nil, err
	}

	holdings := make(map[string]int64, len(records))
	for _, r := range records {
		holdings[r.InstrumentID+"."+r.ExchangeID] = r.CanUseVolume
	}
	return holdings, nil
}

// GetPosition returns the holding for one symbol, nil when the terminal does
// not report one.
func (t *Trader) GetPosition(accountID string, accountType AccountType, symbol string) (*models.Position, error) {
	records, err := t.detail(accountID, accountType, queryPosition)
	if err != nil {
		return nil, err
	}

	code := symbolCode(symbol)
	for _, r := range records {
		if r.InstrumentID == code {
			return &models.Position{Quantity: r.Volume, AvailableQuantity: r.CanUseVolume}, nil
		}
	}

	t.logger.Error("Terminal returned no position for symbol", zap.String("symbol", symbol))
	return nil, nil
}

// GetDeal returns the fills for one symbol and raw direction code.
func (t *Trader) GetDeal(accountID string, accountType AccountType, symbol string, direction int) ([]models.TradeOrder, error) {
	records, err := t.detail(accountID, accountType, queryDeal)
	if err != nil {
		return nil, err
	}

	code := symbolCode(symbol)
	var deals []models.TradeOrder
	for _, r := range records {
		if r.InstrumentID != code || r.Direction != direction {
			continue
		}
		dt, err := parseTerminalTime(r.TradeDate, r.TradeTime)
		if err != nil {
			return nil, fmt.Errorf("deal %s: %w", r.InstrumentID, err)
		}
		deals = append(deals, models.TradeOrder{
			Symbol:   r.InstrumentID,
			Direct:   ParseDirection(r.Direction),
			Price:    r.Price,
			Quanty:   r.Volume,
			Datetime: dt,
		})
	}
	return deals, nil
}

// GetOrder returns the still-working orders for one symbol and raw direction
// code. Orders in a terminal status are excluded.
func (t *Trader) GetOrder(accountID string, accountType AccountType, symbol string, direction int) ([]models.TradeContract, error) {
	return t.orders(accountID, accountType, symbol, direction, true)
}

// GetAllOrders returns every order for one symbol and raw direction code
// regardless of status.
func (t *Trader) GetAllOrders(accountID string, accountType AccountType, symbol string, direction int) ([]models.TradeContract, error) {
	return t.orders(accountID, accountType, symbol, direction, false)
}

func (t *Trader) orders(accountID string, accountType AccountType, symbol string, direction int, liveOnly bool) ([]models.TradeContract, error) {
	records, err := t.detail(accountID, accountType, queryOrder)
	if err != nil {
		return nil, err
	}

	code := symbolCode(symbol)
	var contracts []models.TradeContract
	for _, r := range records {
		if r.InstrumentID != code || r.Direction != direction {
			continue
		}
		if liveOnly {
			if _, live := liveOrderStatuses[r.OrderStatus]; !live {
				continue
			}
		}
		dt, err := parseTerminalTime(r.InsertDate, r.InsertTime)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", r.OrderSysID, err)
		}
		contracts = append(contracts, models.TradeContract{
			OrderID:  r.OrderSysID,
			Symbol:   r.InstrumentID,
			Direct:   ParseDirection(r.Direction),
			Price:    r.TradedPrice,
			Traded:   r.VolumeTraded,
			Total:    r.VolumeTotal,
			Status:   r.OrderStatus,
			Datetime: dt,
		})
	}
	return contracts, nil
}

// symbolCode strips the exchange suffix from a dotted symbol:
// "600000.SH" -> "600000".
func symbolCode(symbol string) string {
	if i := strings.IndexByte(symbol, '.'); i >= 0 {
		return symbol[:i]
	}
	return symbol
}

// parseTerminalTime combines the terminal's date and time strings. The time
// part arrives either colon-separated or compact.
func parseTerminalTime(date, clock string) (time.Time, error) {
	layouts := []string{"20060102 15:04:05", "20060102 150405"}
	raw := date + " " + clock
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable terminal timestamp %q", raw)
}
