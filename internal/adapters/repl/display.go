package repl

import (
	"fmt"
	"io"
	"strings"

	"order-desk/internal/app"
	"order-desk/internal/core"
)

func printCustomers(out io.Writer, result *app.CustomerListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintln(out, "  CUSTOMERS")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	if len(result.Customers) == 0 {
		fmt.Fprintln(out, "  No customers found.")
		fmt.Fprintln(out, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(out, "  %-6s %-28s %-16s %s\n", "ID", "NAME", "PHONE", "EMAIL")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, c := range result.Customers {
		fmt.Fprintf(out, "  %-6d %-28s %-16s %s\n", c.ID, c.Name, c.Phone, c.Email)
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printProducts(out io.Writer, result *app.ProductListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintln(out, "  PRODUCTS")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	if len(result.Products) == 0 {
		fmt.Fprintln(out, "  No products found.")
		fmt.Fprintln(out, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(out, "  %-6s %-32s %-7s %12s %8s\n", "ID", "NAME", "UNIT", "PRICE", "STOCK")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, p := range result.Products {
		fmt.Fprintf(out, "  %-6d %-32s %-7s %12s %8d\n", p.ID, p.Name, p.Unit, p.CurrentPrice.StringFixed(2), p.Stock)
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printOrders(out io.Writer, result *app.OrderListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintln(out, "  ORDERS")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	if len(result.Orders) == 0 {
		fmt.Fprintln(out, "  No orders found.")
		fmt.Fprintln(out, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(out, "  %-6s %-10s %-26s %-15s %10s\n", "ID", "DATE", "CUSTOMER", "STATUS", "TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, o := range result.Orders {
		fmt.Fprintf(out, "  %-6d %-10s %-26s %-15s %10s\n",
			o.ID, o.CreatedAt.Format("2006-01-02"), o.CustomerName, o.Status, o.TotalPrice.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

// printOrderDetail prints the lines and totals of an order; st is optional.
func printOrderDetail(out io.Writer, result *app.OrderResult, st *core.Settlement) {
	o := result.Order
	fmt.Fprintln(out, strings.Repeat("-", 72))
	fmt.Fprintf(out, "  Order %d  Customer: %s  Status: %s\n", o.ID, o.CustomerName, o.Status)
	if o.Description != "" {
		fmt.Fprintf(out, "  Notes: %s\n", o.Description)
	}
	fmt.Fprintf(out, "  %-4s %-32s %8s %12s %12s\n", "#", "ITEM", "QTY", "UNIT PRICE", "LINE TOTAL")
	for i, it := range o.CurrentItems() {
		line := core.LineAmount{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
		fmt.Fprintf(out, "  %-4d %-32s %8d %12s %12s\n",
			i+1, it.DisplayName(), it.Quantity, it.UnitPrice.StringFixed(2), line.Total().StringFixed(2))
	}
	printTotals(out, &result.Totals)
	if st != nil {
		fmt.Fprintf(out, "  %-58s %12s\n", "Paid", st.TotalPaid.StringFixed(2))
		fmt.Fprintf(out, "  %-58s %12s\n", "Remaining", st.Remaining.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 72))
}

func printTotals(out io.Writer, t *core.OrderTotals) {
	fmt.Fprintf(out, "  %-58s %12s\n", "Items", t.ItemsTotal.StringFixed(2))
	fmt.Fprintf(out, "  %-58s %12s\n", "Tax ("+t.TaxRate.String()+"%)", t.TaxAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-58s %12s\n", "Subtotal", t.Subtotal.StringFixed(2))
	if !t.DiscountAmount.IsZero() {
		fmt.Fprintf(out, "  %-58s %12s\n", "Discount", t.DiscountAmount.Neg().StringFixed(2))
	}
	fmt.Fprintf(out, "  %-58s %12s\n", "GRAND TOTAL", t.GrandTotal.StringFixed(2))
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `
Catalog:
  /customers                           list active customers
  /products                            list active products with stock
  /restock <product-id> <delta> [note] manual stock adjustment

Orders:
  /orders [customer-id]                list orders
  /show <order-id>                     order lines, totals and balance
  /new-order <customer-id>             interactive order wizard
  /cancel <order-id>                   cancel an unpaid order

Payments:
  /pay <order-id> <amount> [date]      record a payment
  /unpay <payment-id>                  cancel a payment

Reports:
  /debt                                customer debt
  /report <year>                       monthly revenue and expenses
  /expenses <year> <month>             expense breakdown
  /statement <customer-id>             customer statement
  /reconcile                           re-derive order statuses

  /help                                this list
  /exit                                quit`)
}
