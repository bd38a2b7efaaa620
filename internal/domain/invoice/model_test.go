package invoice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/gymlane/gymlane/internal/types"
)

func testInvoice() *Invoice {
	return &Invoice{
		ID:            "inv_1",
		InvoiceNumber: "INV-0001",
		InvoiceStatus: types.InvoiceStatusDraft,
		InvoiceType:   types.InvoiceTypeOneOff,
		Currency:      "usd",
		LineItems: []*LineItem{
			{Name: "Membership", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(10000)},
			{Name: "Towel service", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(500)},
		},
	}
}

func TestComputeTotals(t *testing.T) {
	inv := testInvoice()
	inv.Tax = decimal.NewFromInt(900)
	inv.Discount = decimal.NewFromInt(1000)

	inv.ComputeTotals()

	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(11000)))
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(10900)))
}

func TestComputeTotalsClampsNegativeToZero(t *testing.T) {
	inv := testInvoice()
	inv.Discount = decimal.NewFromInt(99999)

	inv.ComputeTotals()

	assert.True(t, inv.Total.IsZero())
}

func TestValidateEnforcesTotalLaw(t *testing.T) {
	inv := testInvoice()
	inv.Tax = decimal.NewFromInt(900)
	inv.ComputeTotals()
	assert.NoError(t, inv.Validate())

	inv.Total = inv.Total.Add(decimal.NewFromInt(1))
	assert.Error(t, inv.Validate())
}

func TestValidateRejectsNegativeAmounts(t *testing.T) {
	inv := testInvoice()
	inv.ComputeTotals()
	inv.Discount = decimal.NewFromInt(-100)

	assert.Error(t, inv.Validate())
}

func TestValidateRejectsInvertedPeriod(t *testing.T) {
	inv := testInvoice()
	inv.ComputeTotals()
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	inv.PeriodStart = &start
	inv.PeriodEnd = &end

	assert.Error(t, inv.Validate())
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -1)

	inv := testInvoice()
	inv.InvoiceStatus = types.InvoiceStatusSent
	inv.DueDate = &due
	assert.True(t, inv.IsOverdue(now))

	future := now.AddDate(0, 0, 1)
	inv.DueDate = &future
	assert.False(t, inv.IsOverdue(now))

	inv.DueDate = &due
	inv.InvoiceStatus = types.InvoiceStatusPaid
	assert.False(t, inv.IsOverdue(now))

	inv.InvoiceStatus = types.InvoiceStatusSent
	inv.DueDate = nil
	assert.False(t, inv.IsOverdue(now))
}
