package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"order-desk/internal/adapters/cli"
	"order-desk/internal/app"
	"order-desk/internal/core"

	"github.com/shopspring/decimal"
)

var errExit = errors.New("exit")

// Run starts the interactive loop. Every command starts with a slash; report
// commands are delegated to the one-shot CLI so both surfaces print the same tables.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer) {
	fmt.Fprintln(out, "Order Desk")
	fmt.Fprintln(out, "Type /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				return
			}
			continue
		}
		if !strings.HasPrefix(input, "/") {
			fmt.Fprintln(out, "Commands start with '/'. Type /help for the list.")
			continue
		}
		if dErr := dispatch(ctx, svc, reader, out, input); dErr != nil {
			if errors.Is(dErr, errExit) {
				fmt.Fprintln(out, "Goodbye!")
				return
			}
			fmt.Fprintf(out, "Error: %v\n", dErr)
		}
		if err != nil {
			return
		}
	}
}

func dispatch(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer, input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "customers":
		result, err := svc.ListCustomers(ctx, false)
		if err != nil {
			return err
		}
		printCustomers(out, result)

	case "products":
		result, err := svc.ListProducts(ctx, false)
		if err != nil {
			return err
		}
		printProducts(out, result)

	case "orders":
		var filter core.OrderFilter
		if len(args) > 0 {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintln(out, "Usage: /orders [customer-id]")
				return nil
			}
			filter.CustomerID = id
		}
		result, err := svc.ListOrders(ctx, filter)
		if err != nil {
			return err
		}
		printOrders(out, result)

	case "show":
		id, ok := idArg(out, args, "/show <order-id>")
		if !ok {
			return nil
		}
		result, err := svc.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		st, err := svc.GetOrderSettlement(ctx, id)
		if err != nil {
			return err
		}
		printOrderDetail(out, result, st)

	case "new-order":
		id, ok := idArg(out, args, "/new-order <customer-id>")
		if !ok {
			return nil
		}
		return handleNewOrder(ctx, reader, out, svc, id)

	case "cancel":
		id, ok := idArg(out, args, "/cancel <order-id>")
		if !ok {
			return nil
		}
		result, err := svc.CancelOrder(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Order %d CANCELLED. Stock restored.\n", result.Order.ID)

	case "pay":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: /pay <order-id> <amount> [YYYY-MM-DD]")
			return nil
		}
		orderID, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(out, "Invalid order id: %s\n", args[0])
			return nil
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			fmt.Fprintf(out, "Invalid amount: %s\n", args[1])
			return nil
		}
		order, err := svc.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		in := core.RecordPaymentInput{OrderID: orderID, CustomerID: order.Order.CustomerID, Amount: amount}
		if len(args) >= 3 {
			in.PaymentDate = args[2]
		}
		result, err := svc.RecordPayment(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Payment %d recorded. Order %d is %s, remaining %s.\n",
			result.Payment.ID, orderID, result.Status, result.Remaining.StringFixed(2))

	case "unpay":
		id, ok := idArg(out, args, "/unpay <payment-id>")
		if !ok {
			return nil
		}
		result, err := svc.CancelPayment(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Payment %d cancelled. Order %d is %s.\n", id, result.Payment.OrderID, result.Status)

	case "restock":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: /restock <product-id> <delta> [note]")
			return nil
		}
		productID, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(out, "Invalid product id: %s\n", args[0])
			return nil
		}
		delta, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || delta == 0 {
			fmt.Fprintf(out, "Invalid delta: %s\n", args[1])
			return nil
		}
		p, err := svc.AdjustStock(ctx, app.AdjustStockRequest{
			ProductID: productID,
			Delta:     delta,
			Note:      strings.Join(args[2:], " "),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s stock is now %d.\n", p.Name, p.Stock)

	case "debt", "report", "expenses", "statement", "reconcile", "seed-lookup":
		return cli.Run(ctx, svc, append([]string{cmd}, args...), reader, out)

	case "help", "h":
		printHelp(out)

	case "exit", "quit", "e", "q":
		return errExit

	default:
		fmt.Fprintf(out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}

func idArg(out io.Writer, args []string, usage string) (int, bool) {
	if len(args) < 1 {
		fmt.Fprintf(out, "Usage: %s\n", usage)
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		fmt.Fprintf(out, "Invalid id: %s\n", args[0])
		return 0, false
	}
	return id, true
}
