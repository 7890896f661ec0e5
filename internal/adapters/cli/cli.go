package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"order-desk/internal/app"
	"order-desk/internal/core"
)

// Usage lists the one-shot commands.
const Usage = `Available commands:
  debt                      customer debt report
  report <year>             monthly revenue / expense report
  expenses <year> <month>   expense breakdown by type
  statement <customer-id>   customer statement with running balance
  order <id>                order with settlement
  totals                    price an order draft read as JSON from stdin
  reconcile                 re-derive order statuses from payments
  seed-lookup               insert missing default lookup entries`

// Run executes a one-shot CLI command. args is os.Args[1:]; the first element
// is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", Usage)
	}

	switch args[0] {
	case "debt", "debts":
		result, err := svc.CustomerDebtReport(ctx)
		if err != nil {
			return fmt.Errorf("debt report: %w", err)
		}
		printDebtReport(stdout, result)

	case "report":
		year, err := intArg(args, 1, "year")
		if err != nil {
			return err
		}
		report, err := svc.FinancialReport(ctx, year)
		if err != nil {
			return fmt.Errorf("financial report: %w", err)
		}
		printFinancialReport(stdout, report)

	case "expenses":
		year, err := intArg(args, 1, "year")
		if err != nil {
			return err
		}
		month, err := intArg(args, 2, "month")
		if err != nil {
			return err
		}
		result, err := svc.ExpenseBreakdown(ctx, year, month)
		if err != nil {
			return fmt.Errorf("expense breakdown: %w", err)
		}
		printExpenseBreakdown(stdout, result)

	case "statement":
		id, err := intArg(args, 1, "customer-id")
		if err != nil {
			return err
		}
		result, err := svc.CustomerStatement(ctx, id)
		if err != nil {
			return fmt.Errorf("customer statement: %w", err)
		}
		printStatement(stdout, result)

	case "order":
		id, err := intArg(args, 1, "id")
		if err != nil {
			return err
		}
		order, err := svc.GetOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		st, err := svc.GetOrderSettlement(ctx, id)
		if err != nil {
			return fmt.Errorf("get settlement: %w", err)
		}
		return encodeJSON(stdout, map[string]any{"order": order.Order, "totals": order.Totals, "settlement": st})

	case "totals":
		var draft core.OrderDraft
		if err := json.NewDecoder(stdin).Decode(&draft); err != nil {
			return fmt.Errorf("invalid JSON draft: %w", err)
		}
		totals, err := svc.PreviewOrderTotals(ctx, draft)
		if err != nil {
			return fmt.Errorf("compute totals: %w", err)
		}
		return encodeJSON(stdout, totals)

	case "reconcile":
		result, err := svc.ReconcileOrderStatuses(ctx)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		fmt.Fprintf(stdout, "Checked %d orders, changed %d.\n", result.Checked, len(result.Changed))
		for _, c := range result.Changed {
			fmt.Fprintf(stdout, "  order %-6d %s -> %s\n", c.OrderID, c.From, c.To)
		}

	case "seed-lookup":
		n, err := svc.SeedLookupDefaults(ctx)
		if err != nil {
			return fmt.Errorf("seed lookup: %w", err)
		}
		fmt.Fprintf(stdout, "Inserted %d default lookup entries.\n", n)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], Usage)
	}
	return nil
}

func intArg(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("usage: %s <%s>", args[0], name)
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", name, args[i])
	}
	return v, nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDebtReport(w io.Writer, result *app.DebtReportResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %-74s\n", "CUSTOMER DEBT")
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %-6s %-26s %6s %12s %12s %12s\n", "ID", "CUSTOMER", "ORDERS", "ORDERED", "PAID", "DEBT")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, d := range result.Customers {
		fmt.Fprintf(w, "  %-6d %-26s %6d %12s %12s %12s\n",
			d.CustomerID, truncate(d.CustomerName, 26), d.OrderCount,
			d.TotalOrderAmount.StringFixed(2), d.TotalPaidAmount.StringFixed(2), d.RemainingDebt.StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("-", 78))
	fmt.Fprintf(w, "  %-62s %12s\n", "TOTAL", result.TotalDebt.StringFixed(2))
	fmt.Fprintln(w, strings.Repeat("=", 78))
}

func printFinancialReport(w io.Writer, r *core.FinancialReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 56))
	fmt.Fprintf(w, "  FINANCIAL REPORT %d\n", r.Year)
	fmt.Fprintln(w, strings.Repeat("=", 56))
	fmt.Fprintf(w, "  %-6s %15s %15s %15s\n", "MONTH", "REVENUE", "EXPENSES", "PROFIT")
	fmt.Fprintln(w, strings.Repeat("-", 56))
	for _, m := range r.Months {
		fmt.Fprintf(w, "  %-6d %15s %15s %15s\n", m.Month,
			m.Revenue.StringFixed(2), m.Expenses.StringFixed(2), m.Profit.StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("-", 56))
	fmt.Fprintf(w, "  %-6s %15s %15s %15s\n", "TOTAL",
		r.TotalRevenue.StringFixed(2), r.TotalExpenses.StringFixed(2), r.Profit.StringFixed(2))
	fmt.Fprintln(w, strings.Repeat("=", 56))
	if len(r.ExpenseBreakdown) > 0 {
		fmt.Fprintln(w, "  Expenses by type:")
		for _, t := range r.ExpenseBreakdown {
			fmt.Fprintf(w, "    %-30s %15s\n", truncate(t.TypeName, 30), t.Amount.StringFixed(2))
		}
	}
}

func printExpenseBreakdown(w io.Writer, b *core.ExpenseBreakdown) {
	fmt.Fprintf(w, "Expenses %04d-%02d: %s\n", b.Year, b.Month, b.Total.StringFixed(2))
	for _, t := range b.ByType {
		fmt.Fprintf(w, "  %-30s %15s\n", truncate(t.TypeName, 30), t.Amount.StringFixed(2))
	}
}

func printStatement(w io.Writer, s *app.StatementResult) {
	fmt.Fprintf(w, "Statement for %s (id %d)\n", s.Customer.Name, s.Customer.ID)
	fmt.Fprintf(w, "  %-10s %-8s %8s %12s %12s %12s\n", "DATE", "KIND", "REF", "DEBIT", "CREDIT", "BALANCE")
	for _, l := range s.Lines {
		fmt.Fprintf(w, "  %-10s %-8s %8d %12s %12s %12s\n", l.Date, l.Kind, l.Reference,
			l.Debit.StringFixed(2), l.Credit.StringFixed(2), l.RunningBalance.StringFixed(2))
	}
	fmt.Fprintf(w, "  Balance: %s\n", s.Balance.StringFixed(2))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
