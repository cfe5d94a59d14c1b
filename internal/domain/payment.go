package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places of the minor currency unit.
const MoneyPlaces = 2

// PaymentState is a receipt's payment status: either unpaid, or paid with a
// specific method. The zero value is Unpaid.
type PaymentState struct {
	paid   bool
	method PaymentMethod
}

// Unpaid returns the unpaid state.
func Unpaid() PaymentState {
	return PaymentState{}
}

// Paid returns the paid state for a cash or card method.
func Paid(method PaymentMethod) PaymentState {
	return PaymentState{paid: true, method: method}
}

// IsPaid reports whether the receipt is paid.
func (s PaymentState) IsPaid() bool {
	return s.paid
}

// Method returns the payment method. It is empty for unpaid receipts.
func (s PaymentState) Method() PaymentMethod {
	return s.method
}

// Validate rejects paid states with a method other than cash or card.
func (s PaymentState) Validate() error {
	if !s.paid {
		return nil
	}
	if s.method != PaymentMethodCash && s.method != PaymentMethodCard {
		return fmt.Errorf("%w: receipts are paid by cash or card", ErrInvalidPaymentMethod)
	}
	return nil
}

func (s PaymentState) String() string {
	if !s.paid {
		return "unpaid"
	}
	return "paid:" + string(s.method)
}

// ParsePaymentState parses "unpaid", "cash" or "card" (also "paid:cash").
func ParsePaymentState(s string) (PaymentState, error) {
	switch s {
	case "", "unpaid":
		return Unpaid(), nil
	case "cash", "paid:cash":
		return Paid(PaymentMethodCash), nil
	case "card", "paid:card":
		return Paid(PaymentMethodCard), nil
	default:
		return PaymentState{}, fmt.Errorf("%w: unknown payment state %q", ErrInvalidTransition, s)
	}
}

// CommissionFor returns total x ratePercent / 100 rounded to the minor unit.
func CommissionFor(total, ratePercent decimal.Decimal) decimal.Decimal {
	return total.Mul(ratePercent).Div(decimal.NewFromInt(100)).Round(MoneyPlaces)
}
