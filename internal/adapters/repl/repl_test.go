package repl

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"order-desk/internal/app"
	"order-desk/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	app.ApplicationService
	created *core.OrderDraft
}

func (f *fakeService) GetCustomer(ctx context.Context, id int) (*core.Customer, error) {
	if id != 1 {
		return nil, &core.NotFoundError{Entity: "customer", ID: id}
	}
	return &core.Customer{ID: 1, Name: "Ayşe Yılmaz", Address: "Kadıköy"}, nil
}

func (f *fakeService) GetProduct(ctx context.Context, id int) (*app.ProductResult, error) {
	return &app.ProductResult{Product: &core.Product{ID: id, Name: "Tile", CurrentPrice: decimal.NewFromInt(100)}}, nil
}

func (f *fakeService) PreviewOrderTotals(ctx context.Context, d core.OrderDraft) (*core.OrderTotals, error) {
	t := d.Totals()
	return &t, nil
}

func (f *fakeService) CreateOrder(ctx context.Context, d core.OrderDraft) (*app.OrderResult, error) {
	f.created = &d
	o := &core.Order{ID: 9, CustomerID: d.CustomerID, Status: core.StatusPending, IsActive: true}
	return &app.OrderResult{Order: o, Totals: d.Totals()}, nil
}

func run(t *testing.T, svc app.ApplicationService, input string) string {
	t.Helper()
	var out bytes.Buffer
	Run(context.Background(), svc, bufio.NewReader(strings.NewReader(input)), &out)
	return out.String()
}

func TestNewOrderWizard(t *testing.T) {
	svc := &fakeService{}
	input := strings.Join([]string{
		"/new-order 1",
		"3 2",            // catalog line, price from product
		"* 1 40 Cutting", // manual line
		"oops",           // rejected
		"done",
		"50",  // labor
		"",    // delivery
		"10%", // discount
		"back door",
		"y",
		"/exit",
	}, "\n") + "\n"

	out := run(t, svc, input)

	require.NotNil(t, svc.created, out)
	d := svc.created
	require.Len(t, d.Items, 2)
	assert.Equal(t, 3, *d.Items[0].ProductID)
	assert.True(t, decimal.NewFromInt(100).Equal(d.Items[0].UnitPrice))
	assert.True(t, d.Items[1].IsManual)
	assert.Equal(t, "Cutting", d.Items[1].ManualName)
	assert.Equal(t, core.DiscountPercentage, d.DiscountType)
	assert.True(t, decimal.NewFromInt(50).Equal(d.LaborCost))
	assert.Equal(t, "back door", d.Description)
	assert.Equal(t, "Kadıköy", d.Address)
	assert.Contains(t, out, "Invalid format")
	assert.Contains(t, out, "Order created (ID: 9")
	assert.Contains(t, out, "Goodbye!")
}

func TestNewOrderWizard_Declined(t *testing.T) {
	svc := &fakeService{}
	out := run(t, svc, "/new-order 1\n3 1 10\ndone\n\n\n\n\nn\n")
	assert.Nil(t, svc.created)
	assert.Contains(t, out, "Order not created.")
}

func TestDispatchErrors(t *testing.T) {
	out := run(t, &fakeService{}, "hello\n/new-order 2\n/show\n/nope\n/q\n")
	assert.Contains(t, out, "Commands start with '/'")
	assert.Contains(t, out, "Error: customer 2 not found")
	assert.Contains(t, out, "Usage: /show <order-id>")
	assert.Contains(t, out, "Unknown command: /nope")
}
