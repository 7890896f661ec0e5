package core_test

import (
	"testing"
	"time"

	"order-desk/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyFormatter(t *testing.T) {
	tests := []struct {
		symbol, locale, amount, want string
	}{
		{"₺", "tr", "1234.5", "₺1.234,50"},
		{"₺", "tr", "0", "₺0,00"},
		{"₺", "tr", "1234567.891", "₺1.234.567,89"},
		{"$", "en", "1234.5", "$1,234.50"},
		{"$", "en", "-42.1", "-$42.10"},
		{"₺", "??not a locale??", "10", "₺10,00"},
	}
	for _, tt := range tests {
		t.Run(tt.locale+" "+tt.amount, func(t *testing.T) {
			m := core.NewMoneyFormatter(tt.symbol, tt.locale)
			assert.Equal(t, tt.want, m.Format(d(tt.amount)))
		})
	}
}

func TestBuildOrderDocument(t *testing.T) {
	pid := 4
	order := &core.Order{
		ID:            12,
		CustomerName:  "Ayşe Yılmaz",
		Status:        core.StatusPartiallyPaid,
		Address:       "Kadıköy",
		LaborCost:     d("50"),
		DeliveryFee:   d("25"),
		TaxRate:       d("0"),
		DiscountType:  core.DiscountAmount,
		DiscountValue: d("20"),
		TotalPrice:    d("255"),
		IsActive:      true,
		CreatedAt:     time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC),
		Items: []core.OrderItem{
			{ProductID: &pid, ProductName: "Tile", Quantity: 2, UnitPrice: d("100"), IsActive: true},
			{IsManual: true, ManualName: "Old line", Quantity: 9, UnitPrice: d("9"), IsActive: false},
		},
	}
	settlement := core.NewSettlement(order, payments("100"))
	money := core.NewMoneyFormatter("₺", "tr")

	doc := core.BuildOrderDocument(order, nil, core.CompanyInfo{Name: "Desk Ltd"}, settlement, money)

	assert.Equal(t, "2024-05-17", doc.Date)
	assert.Equal(t, "Ayşe Yılmaz", doc.Customer.Name)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "Tile", doc.Lines[0].Name)
	assert.Equal(t, "₺200,00", doc.Lines[0].LineTotalText)

	assertDec(t, "255", doc.Totals.GrandTotal, "grand")
	assert.Equal(t, "₺255,00", doc.Text["grand_total"])
	assert.Equal(t, "₺100,00", doc.Text["total_paid"])
	assert.Equal(t, "₺155,00", doc.Text["remaining"])
	assert.Equal(t, "Desk Ltd", doc.Company.Name)
}

func TestBuildOrderDocument_CancelledKeepsLines(t *testing.T) {
	order := &core.Order{
		Status:   core.StatusCancelled,
		IsActive: false,
		TaxRate:  d("0"),
		Items: []core.OrderItem{
			{IsManual: true, ManualName: "Fitting", Quantity: 1, UnitPrice: d("30"), IsActive: false},
		},
	}
	doc := core.BuildOrderDocument(order, &core.Customer{Name: "B"}, core.CompanyInfo{}, core.NewSettlement(order, nil), core.NewMoneyFormatter("₺", "tr"))
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "Fitting", doc.Lines[0].Name)
	assert.Equal(t, "B", doc.Customer.Name)
}
