package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"order-desk/internal/app"
	"order-desk/internal/core"

	"github.com/shopspring/decimal"
)

// handleNewOrder runs an interactive order creation session.
func handleNewOrder(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService, customerID int) error {
	customer, err := svc.GetCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Creating order for %s (id %d)\n", customer.Name, customer.ID)
	fmt.Fprintln(out, "Enter order lines. Type 'done' when finished, 'cancel' to abort.")
	fmt.Fprintln(out, "  Catalog line: <product-id> <quantity> [unit-price]")
	fmt.Fprintln(out, "  Manual line:  * <quantity> <unit-price> <name...>")

	draft := core.OrderDraft{CustomerID: customerID, Address: customer.Address}
	lineNum := 1
	for {
		fmt.Fprintf(out, "  Line %d: ", lineNum)
		raw, rerr := reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		switch strings.ToLower(raw) {
		case "cancel":
			fmt.Fprintln(out, "Order creation cancelled.")
			return nil
		case "done":
		case "":
			if rerr != nil {
				fmt.Fprintln(out, "Order creation cancelled.")
				return nil
			}
			continue
		default:
			item, msg := parseLine(ctx, svc, raw)
			if msg != "" {
				fmt.Fprintln(out, "  "+msg)
				continue
			}
			draft.Items = append(draft.Items, item)
			lineNum++
			continue
		}
		break
	}

	if len(draft.Items) == 0 {
		fmt.Fprintln(out, "No lines entered. Order not created.")
		return nil
	}

	draft.LaborCost = promptDecimal(reader, out, "Labor cost [0]: ")
	draft.DeliveryFee = promptDecimal(reader, out, "Delivery fee [0]: ")
	fmt.Fprint(out, "Discount (e.g. 10% or 50, blank for none): ")
	if d := readLine(reader); d != "" {
		if strings.HasSuffix(d, "%") {
			draft.DiscountType = core.DiscountPercentage
			d = strings.TrimSuffix(d, "%")
		} else {
			draft.DiscountType = core.DiscountAmount
		}
		v, err := decimal.NewFromString(d)
		if err != nil {
			fmt.Fprintln(out, "Invalid discount. Order not created.")
			return nil
		}
		draft.DiscountValue = v
	}
	fmt.Fprint(out, "Notes (optional): ")
	draft.Description = readLine(reader)

	totals, err := svc.PreviewOrderTotals(ctx, draft)
	if err != nil {
		return err
	}
	printTotals(out, totals)

	fmt.Fprint(out, "\nCreate this order? (y/n): ")
	if choice := strings.ToLower(readLine(reader)); choice != "y" && choice != "yes" {
		fmt.Fprintln(out, "Order not created.")
		return nil
	}

	result, err := svc.CreateOrder(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nOrder created (ID: %d, Status: %s)\n", result.Order.ID, result.Order.Status)
	printOrderDetail(out, result, nil)
	fmt.Fprintf(out, "Use '/pay %d <amount>' to record a payment.\n", result.Order.ID)
	return nil
}

// parseLine turns one wizard line into an item draft. A catalog line without
// a price takes the product's current price.
func parseLine(ctx context.Context, svc app.ApplicationService, raw string) (core.OrderItemDraft, string) {
	parts := strings.Fields(raw)
	if parts[0] == "*" {
		if len(parts) < 4 {
			return core.OrderItemDraft{}, "Invalid format. Use: * <quantity> <unit-price> <name...>"
		}
		qty, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || qty <= 0 {
			return core.OrderItemDraft{}, "Invalid quantity."
		}
		price, err := decimal.NewFromString(parts[2])
		if err != nil || price.IsNegative() {
			return core.OrderItemDraft{}, "Invalid price."
		}
		return core.OrderItemDraft{
			IsManual:   true,
			ManualName: strings.Join(parts[3:], " "),
			Quantity:   qty,
			UnitPrice:  price,
		}, ""
	}

	if len(parts) < 2 {
		return core.OrderItemDraft{}, "Invalid format. Use: <product-id> <quantity> [unit-price]"
	}
	productID, err := strconv.Atoi(parts[0])
	if err != nil {
		return core.OrderItemDraft{}, "Invalid product id."
	}
	qty, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || qty <= 0 {
		return core.OrderItemDraft{}, "Invalid quantity."
	}
	var price decimal.Decimal
	if len(parts) >= 3 {
		price, err = decimal.NewFromString(parts[2])
		if err != nil || price.IsNegative() {
			return core.OrderItemDraft{}, "Invalid price."
		}
	} else {
		p, err := svc.GetProduct(ctx, productID)
		if err != nil {
			return core.OrderItemDraft{}, fmt.Sprintf("Product %d: %v", productID, err)
		}
		price = p.Product.CurrentPrice
	}
	return core.OrderItemDraft{ProductID: &productID, Quantity: qty, UnitPrice: price}, ""
}

func readLine(reader *bufio.Reader) string {
	s, _ := reader.ReadString('\n')
	return strings.TrimSpace(s)
}

func promptDecimal(reader *bufio.Reader, out io.Writer, prompt string) decimal.Decimal {
	for {
		fmt.Fprint(out, prompt)
		s := readLine(reader)
		if s == "" {
			return decimal.Zero
		}
		v, err := decimal.NewFromString(s)
		if err == nil && !v.IsNegative() {
			return v
		}
		fmt.Fprintln(out, "  Enter a non-negative amount.")
	}
}
