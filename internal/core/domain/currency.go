package domain

import (
	"github.com/shopspring/decimal"
)

// BtcScale is the canonical scale of bitcoin amounts.
const BtcScale int32 = 8

// PaymentMethod identifies a fiat payment rail supported by a currency.
type PaymentMethod string

const (
	Swish     PaymentMethod = "SWISH"
	Sepa      PaymentMethod = "SEPA"
	Zelle     PaymentMethod = "ZELLE"
	FasterPay PaymentMethod = "FP"
	MobilePay PaymentMethod = "MOBILEPAY"
)

// CanonicalName implements hashutil.Named.
func (p PaymentMethod) CanonicalName() string {
	return string(p)
}

// Currency holds the reference data of a fiat currency: the canonical scale
// of its amounts and the trade amount bounds enforced on offers.
type Currency struct {
	Code           string
	Scale          int32
	MinAmount      decimal.Decimal
	MaxAmount      decimal.Decimal
	PaymentMethods []PaymentMethod
}

// Rescale rounds (half-up) an amount to the canonical scale of the currency.
// Every amount tied to a currency must be rescaled before being hashed,
// signed or compared.
func (c Currency) Rescale(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.Scale)
}

// SupportsPaymentMethod returns whether the given payment method can be used
// for offers in this currency.
func (c Currency) SupportsPaymentMethod(paymentMethod PaymentMethod) bool {
	for _, pm := range c.PaymentMethods {
		if pm == paymentMethod {
			return true
		}
	}
	return false
}

var currencies = map[string]Currency{
	"SEK": {
		Code:           "SEK",
		Scale:          0,
		MinAmount:      decimal.NewFromInt(100),
		MaxAmount:      decimal.NewFromInt(10000),
		PaymentMethods: []PaymentMethod{Swish},
	},
	"EUR": {
		Code:           "EUR",
		Scale:          2,
		MinAmount:      decimal.NewFromInt(10),
		MaxAmount:      decimal.NewFromInt(1000),
		PaymentMethods: []PaymentMethod{Sepa, MobilePay},
	},
	"USD": {
		Code:           "USD",
		Scale:          2,
		MinAmount:      decimal.NewFromInt(10),
		MaxAmount:      decimal.NewFromInt(1000),
		PaymentMethods: []PaymentMethod{Zelle},
	},
	"GBP": {
		Code:           "GBP",
		Scale:          2,
		MinAmount:      decimal.NewFromInt(10),
		MaxAmount:      decimal.NewFromInt(1000),
		PaymentMethods: []PaymentMethod{FasterPay, Sepa},
	},
}

// GetCurrency returns the reference data for a currency code.
func GetCurrency(code string) (Currency, error) {
	currency, ok := currencies[code]
	if !ok {
		return Currency{}, ErrCurrencyNotSupported
	}
	return currency, nil
}
