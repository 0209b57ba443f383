package service

import (
	"blendcaja/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashMethods is the set of payment method ids that move physical cash.
type CashMethods map[uuid.UUID]bool

func cashMethodsOf(metodos []model.PaymentMethod) CashMethods {
	set := make(CashMethods, len(metodos))
	for _, m := range metodos {
		if m.IsCash {
			set[m.ID] = true
		}
	}
	return set
}

// ExpectedCash folds a session ledger into the cash that should be in the drawer:
//
//	Σ OPENING_FLOAT + Σ MANUAL_IN + Σ SALE_PROCEEDS − Σ MANUAL_OUT − Σ change_given
//
// restricted to movements tendered with a cash method. Order does not matter.
func ExpectedCash(movs []model.CashMovement, cash CashMethods) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movs {
		if !cash[m.PaymentMethodID] {
			continue
		}
		total = total.Add(signedAmount(m, true))
	}
	return total
}

// TotalsByPaymentMethod nets every movement per payment method, cash and
// non-cash alike. Change given only reduces cash methods.
func TotalsByPaymentMethod(movs []model.CashMovement, cash CashMethods) map[uuid.UUID]decimal.Decimal {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, m := range movs {
		totals[m.PaymentMethodID] = totals[m.PaymentMethodID].Add(signedAmount(m, cash[m.PaymentMethodID]))
	}
	return totals
}

func signedAmount(m model.CashMovement, isCash bool) decimal.Decimal {
	switch m.Type {
	case model.MovementOpeningFloat, model.MovementManualIn:
		return m.Amount
	case model.MovementSaleProceeds:
		if isCash {
			return m.Amount.Sub(m.ChangeGiven)
		}
		return m.Amount
	case model.MovementManualOut:
		return m.Amount.Neg()
	default:
		return decimal.Zero
	}
}
