package exchange

import "bot-arena-go/internal/models"

// Account is the cash and position one competitor trades with.
type Account struct {
	Cash     float64 `json:"cash"`
	Position float64 `json:"position"`
}

// Equity marks the account to market at price.
func (a Account) Equity(price float64) float64 {
	return a.Cash + a.Position*price
}

// Fill describes an executed market order.
type Fill struct {
	Side     models.Side
	Price    float64
	Qty      float64
	Notional float64 // cash spent on a buy, gross proceeds of a sell
	Fee      float64
	Flat     bool // the sell left no position behind
}

// Exchange executes market orders against an account at a given price.
// A false return means the order was skipped and the account is untouched.
type Exchange interface {
	Buy(acct *Account, price, portion float64) (Fill, bool)
	Sell(acct *Account, price, portion float64) (Fill, bool)
}
