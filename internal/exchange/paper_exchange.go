package exchange

import (
	"bot-arena-go/internal/models"
	"math"
)

// DefaultDustThreshold is the position size below which a sell flattens the account.
const DefaultDustThreshold = 1e-8

// PaperExchange fills market orders instantly at the quoted price, charging a
// proportional fee. It holds no state of its own.
type PaperExchange struct {
	FeeRate       float64
	MinNotional   float64 // orders worth less than this are skipped
	DustThreshold float64
}

// NewPaperExchange builds an exchange from the fee and notional settings of cfg.
func NewPaperExchange(cfg *models.Config) *PaperExchange {
	return &PaperExchange{
		FeeRate:       cfg.FeeRate,
		MinNotional:   cfg.MinNotionalValue,
		DustThreshold: DefaultDustThreshold,
	}
}

// Buy spends portion of the account's cash. The fee is taken out of the spent
// amount and the remainder converted to position at price.
func (e *PaperExchange) Buy(acct *Account, price, portion float64) (Fill, bool) {
	if acct == nil || !(price > 0) {
		return Fill{}, false
	}
	usd := acct.Cash * clampPortion(portion)
	if usd < e.MinNotional || usd <= 0 {
		return Fill{}, false
	}
	fee := usd * e.FeeRate
	qty := (usd - fee) / price

	acct.Cash -= usd
	if acct.Cash < 0 {
		acct.Cash = 0
	}
	acct.Position += qty
	return Fill{Side: models.Buy, Price: price, Qty: qty, Notional: usd, Fee: fee}, true
}

// Sell sells portion of the position and credits the proceeds net of fee.
// A remainder under the dust threshold is written off.
func (e *PaperExchange) Sell(acct *Account, price, portion float64) (Fill, bool) {
	if acct == nil || !(price > 0) {
		return Fill{}, false
	}
	qty := acct.Position * clampPortion(portion)
	gross := qty * price
	if gross < e.MinNotional || qty <= 0 {
		return Fill{}, false
	}
	fee := gross * e.FeeRate

	acct.Cash += gross - fee
	acct.Position -= qty
	flat := false
	if acct.Position < e.DustThreshold {
		acct.Position = 0
		flat = true
	}
	return Fill{Side: models.Sell, Price: price, Qty: qty, Notional: gross, Fee: fee, Flat: flat}, true
}

func clampPortion(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Min(1, math.Max(0, p))
}
