package broker

import (
	"fmt"

	"astock-signal-trader-go/internal/models"
)

// AccountType selects which operation-code family an order uses.
type AccountType string

const (
	AccountTypeStock  AccountType = "STOCK"
	AccountTypeCredit AccountType = "CREDIT"
)

// OpCode is the terminal's integer operation code. The values are part of
// the broker protocol and must not be changed.
type OpCode int

const (
	OpStockBuy  OpCode = 23
	OpStockSell OpCode = 24

	// Margin-account regimes.
	OpCreditDebtBuy        OpCode = 27 // buy with borrowed cash
	OpCreditShortSell      OpCode = 28 // sell borrowed stock
	OpCreditBuyReturnStock OpCode = 29
	OpCreditSellReturnCash OpCode = 31
	OpCreditCashBuy        OpCode = 33 // buy with the account's own cash
	OpCreditSell           OpCode = 34
)

// Raw terminal direction codes as they appear on order and deal records.
const (
	rawDirectionBuy  = 48
	rawDirectionSell = 49
)

// liveOrderStatuses is the closed set of broker status codes meaning an
// order is still working. Terminal-status orders are excluded from GetOrder.
var liveOrderStatuses = map[int]struct{}{
	50: {}, 51: {}, 52: {}, 53: {}, 54: {}, 55: {}, 56: {},
}

// ResolveOpCode maps (account type, sign of quantity, debt-buy flag) to the
// single operation code the terminal expects for that combination.
func ResolveOpCode(accountType AccountType, quantity int64, isDebtBuy bool) (OpCode, error) {
	if quantity == 0 {
		return 0, fmt.Errorf("quantity must be non-zero")
	}
	buy := quantity > 0

	switch accountType {
	case AccountTypeStock:
		if buy {
			return OpStockBuy, nil
		}
		return OpStockSell, nil
	case AccountTypeCredit:
		if !buy {
			return OpCreditSell, nil
		}
		if isDebtBuy {
			return OpCreditDebtBuy, nil
		}
		return OpCreditCashBuy, nil
	}

	return 0, fmt.Errorf("unknown account type %q", accountType)
}

// ParseDirection converts a raw terminal direction code into a domain
// direction. Unknown codes map to the empty direction.
func ParseDirection(code int) models.Direction {
	switch code {
	case rawDirectionBuy:
		return models.DirectionBuy
	case rawDirectionSell:
		return models.DirectionSell
	}
	return ""
}
