package service_test

import (
	"testing"

	"blendcaja/internal/model"
	"blendcaja/internal/service"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var (
	cashID = uuid.MustParse("6b4a4a8e-0d52-4a57-9f38-1d8f2f7c0001")
	cardID = uuid.MustParse("6b4a4a8e-0d52-4a57-9f38-1d8f2f7c0002")
	cashOf = service.CashMethods{cashID: true}
)

func mov(typ model.MovementType, method uuid.UUID, amount, change string) model.CashMovement {
	m := model.CashMovement{ID: uuid.New(), Type: typ, PaymentMethodID: method, Amount: dec(amount)}
	if change != "" {
		m.ChangeGiven = dec(change)
	}
	return m
}

func TestExpectedCash(t *testing.T) {
	cases := []struct {
		name string
		movs []model.CashMovement
		want string
	}{
		{"empty ledger", nil, "0"},
		{"float only", []model.CashMovement{mov(model.MovementOpeningFloat, cashID, "50", "")}, "50"},
		{
			"reference day",
			[]model.CashMovement{
				mov(model.MovementOpeningFloat, cashID, "50", ""),
				mov(model.MovementSaleProceeds, cashID, "80", "5"),
				mov(model.MovementSaleProceeds, cardID, "40", ""),
				mov(model.MovementManualIn, cashID, "20", ""),
			},
			"145",
		},
		{
			"manual out reduces cash",
			[]model.CashMovement{
				mov(model.MovementOpeningFloat, cashID, "100", ""),
				mov(model.MovementManualOut, cashID, "30.25", ""),
			},
			"69.75",
		},
		{
			"non-cash movements ignored",
			[]model.CashMovement{
				mov(model.MovementManualIn, cardID, "500", ""),
				mov(model.MovementManualOut, cardID, "10", ""),
			},
			"0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := service.ExpectedCash(tc.movs, cashOf)
			assert.True(t, dec(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestTotalsByPaymentMethod(t *testing.T) {
	movs := []model.CashMovement{
		mov(model.MovementOpeningFloat, cashID, "50", ""),
		mov(model.MovementSaleProceeds, cashID, "80", "5"),
		mov(model.MovementSaleProceeds, cardID, "40", ""),
		mov(model.MovementSaleProceeds, cardID, "15.50", ""),
		mov(model.MovementManualOut, cashID, "10", ""),
	}
	totals := service.TotalsByPaymentMethod(movs, cashOf)

	assert.Len(t, totals, 2)
	assert.True(t, dec("115").Equal(totals[cashID]))
	assert.True(t, dec("55.50").Equal(totals[cardID]))
	assert.True(t, totals[cashID].Equal(service.ExpectedCash(movs, cashOf)))
}

// genLedger builds a ledger from raw cent amounts. The amount picks the
// movement type and tender so the generator stays a single int slice.
func genLedger(cents []int64) []model.CashMovement {
	types := []model.MovementType{model.MovementOpeningFloat, model.MovementSaleProceeds, model.MovementManualIn, model.MovementManualOut}
	movs := make([]model.CashMovement, 0, len(cents))
	for _, c := range cents {
		m := model.CashMovement{
			ID:              uuid.New(),
			Type:            types[c%4],
			PaymentMethodID: cashID,
			Amount:          decimal.New(c, -2),
		}
		if c%3 == 0 {
			m.PaymentMethodID = cardID
		}
		if m.Type == model.MovementSaleProceeds && m.PaymentMethodID == cashID {
			m.ChangeGiven = decimal.New(c%7, -2)
		}
		movs = append(movs, m)
	}
	return movs
}

func TestExpectedCash_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("appending a movement adds exactly its signed cash effect", prop.ForAll(
		func(cents []int64) bool {
			movs := genLedger(cents)
			running := decimal.Zero
			for i := range movs {
				m := movs[i]
				if m.PaymentMethodID == cashID {
					switch m.Type {
					case model.MovementManualOut:
						running = running.Sub(m.Amount)
					default:
						running = running.Add(m.Amount).Sub(m.ChangeGiven)
					}
				}
				if !service.ExpectedCash(movs[:i+1], cashOf).Equal(running) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(1, 1_000_000)),
	))

	properties.Property("order of movements does not matter", prop.ForAll(
		func(cents []int64) bool {
			movs := genLedger(cents)
			reversed := make([]model.CashMovement, len(movs))
			for i, m := range movs {
				reversed[len(movs)-1-i] = m
			}
			return service.ExpectedCash(movs, cashOf).Equal(service.ExpectedCash(reversed, cashOf))
		},
		gen.SliceOf(gen.Int64Range(1, 1_000_000)),
	))

	properties.Property("cash total equals expected cash", prop.ForAll(
		func(cents []int64) bool {
			movs := genLedger(cents)
			return service.TotalsByPaymentMethod(movs, cashOf)[cashID].Equal(service.ExpectedCash(movs, cashOf))
		},
		gen.SliceOf(gen.Int64Range(1, 1_000_000)),
	))

	properties.TestingRun(t)
}
