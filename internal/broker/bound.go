package broker

import "astock-signal-trader-go/internal/models"

// BoundTrader binds a Trader to one account so call sites don't have to
// thread the account id and type through every call.
type BoundTrader struct {
	trader      *Trader
	accountID   string
	accountType AccountType
}

// Bind scopes a trader to a single account.
func Bind(trader *Trader, accountID string, accountType AccountType) *BoundTrader {
	return &BoundTrader{trader: trader, accountID: accountID, accountType: accountType}
}

func (b *BoundTrader) Order(bar *models.Bar, symbol string, price float64, quantity int64, isDebtBuy bool) error {
	return b.trader.Order(bar, symbol, price, quantity, b.accountType, b.accountID, isDebtBuy)
}

func (b *BoundTrader) CancelOrder(orderID string) error {
	return b.trader.CancelOrder(orderID, b.accountID, b.accountType)
}

func (b *BoundTrader) GetAccount() (*models.Account, error) {
	return b.trader.GetAccount(b.accountID, b.accountType)
}

func (b *BoundTrader) GetAvailable() (float64, error) {
	return b.trader.GetAvailable(b.accountID, b.accountType)
}

func (b *BoundTrader) GetBalance() (float64, error) {
	return b.trader.GetBalance(b.accountID, b.accountType)
}

func (b *BoundTrader) GetHoldings() (map[string]int64, error) {
	return b.trader.GetHoldings(b.accountID, b.accountType)
}

func (b *BoundTrader) GetPosition(symbol string) (*models.Position, error) {
	return b.trader.GetPosition(b.accountID, b.accountType, symbol)
}

func (b *BoundTrader) GetDeal(symbol string, direction int) ([]models.TradeOrder, error) {
	return b.trader.GetDeal(b.accountID, b.accountType, symbol, direction)
}

func (b *BoundTrader) GetOrder(symbol string, direction int) ([]models.TradeContract, error) {
	return b.trader.GetOrder(b.accountID, b.accountType, symbol, direction)
}

func (b *BoundTrader) GetAllOrders(symbol string, direction int) ([]models.TradeContract, error) {
	return b.trader.GetAllOrders(b.accountID, b.accountType, symbol, direction)
}
