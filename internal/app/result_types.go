package app

import (
	"order-desk/internal/core"

	"github.com/shopspring/decimal"
)

// OrderResult is returned by order lifecycle operations.
type OrderResult struct {
	Order  *core.Order      `json:"order"`
	Totals core.OrderTotals `json:"totals"`
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.Order `json:"orders"`
}

// PaymentResult is returned by payment operations. Status is the order status
// after the payment was applied.
type PaymentResult struct {
	Payment   *core.Payment    `json:"payment"`
	Status    core.OrderStatus `json:"order_status"`
	Remaining decimal.Decimal  `json:"remaining"`
}

// PaymentListResult is returned by ListPayments.
type PaymentListResult struct {
	Payments []core.Payment  `json:"payments"`
	Total    decimal.Decimal `json:"total"`
}

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []core.Customer `json:"customers"`
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// ProductResult is a product with its stock history.
type ProductResult struct {
	Product   *core.Product        `json:"product"`
	Movements []core.StockMovement `json:"movements"`
}

// ExpenseTypeListResult is returned by ListExpenseTypes.
type ExpenseTypeListResult struct {
	ExpenseTypes []core.ExpenseType `json:"expense_types"`
}

// ExpenseListResult is returned by ListExpenses.
type ExpenseListResult struct {
	Expenses []core.Expense  `json:"expenses"`
	Total    decimal.Decimal `json:"total"`
}

// LookupListResult is returned by ListLookup.
type LookupListResult struct {
	Entries []core.LookupEntry `json:"entries"`
}

// DebtReportResult is returned by CustomerDebtReport.
type DebtReportResult struct {
	Customers []core.CustomerDebt `json:"customers"`
	TotalDebt decimal.Decimal     `json:"total_debt"`
}

// StatementResult is returned by CustomerStatement.
type StatementResult struct {
	Customer *core.Customer       `json:"customer"`
	Lines    []core.StatementLine `json:"lines"`
	Balance  decimal.Decimal      `json:"balance"`
}
