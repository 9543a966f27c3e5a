package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"billing/internal/apperr"
	"billing/internal/orders"
	"billing/pkg/models"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Issue, inspect and delete sales invoices",
}

var orderCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue an invoice and take the items out of stock",
	Long: `Issue a sales invoice for the given cart. Every line is checked against the
catalogue and current stock before anything changes; one short line rejects the
whole invoice. An interstate GSTIN puts the tax into IGST, otherwise it is split
evenly into CGST and SGST.`,
	Example: `  billing order create --item P1:3 --item P2:1 --customer "Acme Traders"
  billing order create --item P1:2 --customer "Ravi" --gstin 27AAAAA0000A1Z5`,
	Args: cobra.NoArgs,
	RunE: runOrderCreate,
}

var orderDeleteCmd = &cobra.Command{
	Use:   "delete <order-id|serial>",
	Short: "Delete an invoice and return its items to stock (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderDelete,
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices, newest first",
	Args:  cobra.NoArgs,
	RunE:  runOrderList,
}

var orderShowCmd = &cobra.Command{
	Use:   "show <order-id|serial>",
	Short: "Print one invoice as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderShow,
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderCreateCmd, orderDeleteCmd, orderListCmd, orderShowCmd)

	orderCreateCmd.Flags().StringArrayP("item", "i", nil, "Cart line as PRODUCT_ID:QTY (repeatable)")
	orderCreateCmd.Flags().String("customer", "", "Customer name")
	orderCreateCmd.Flags().String("email", "", "Customer email")
	orderCreateCmd.Flags().String("phone", "", "Customer phone")
	orderCreateCmd.Flags().String("gstin", "", "Customer GSTIN")
	orderCreateCmd.Flags().String("notes", "", "Invoice notes")
	_ = orderCreateCmd.MarkFlagRequired("item")
	_ = orderCreateCmd.MarkFlagRequired("customer")
}

// parseCart turns PRODUCT_ID:QTY arguments into cart items.
func parseCart(raw []string) ([]models.CartItem, error) {
	const op = "parseCart"

	cart := make([]models.CartItem, 0, len(raw))
	for _, item := range raw {
		i := strings.LastIndex(item, ":")
		if i <= 0 || i == len(item)-1 {
			return nil, apperr.New(op, apperr.ErrInvalidOrderInput, "expected PRODUCT_ID:QTY", item)
		}
		qty, err := strconv.Atoi(item[i+1:])
		if err != nil {
			return nil, apperr.New(op, apperr.ErrInvalidOrderInput, "quantity is not a number", item)
		}
		cart = append(cart, models.CartItem{ProductID: strings.TrimSpace(item[:i]), Quantity: qty})
	}
	return cart, nil
}

func runOrderCreate(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetStringArray("item")
	cart, err := parseCart(raw)
	if err != nil {
		return err
	}

	customer := models.Customer{}
	customer.Name, _ = cmd.Flags().GetString("customer")
	customer.Email, _ = cmd.Flags().GetString("email")
	customer.Phone, _ = cmd.Flags().GetString("phone")
	customer.GSTIN, _ = cmd.Flags().GetString("gstin")
	customer.Notes, _ = cmd.Flags().GetString("notes")
	customer.GSTIN = strings.ToUpper(strings.TrimSpace(customer.GSTIN))

	return withApp(cmd, func(ctx context.Context, a *app) error {
		order, err := a.orders.CreateOrder(ctx, cart, customer)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, order)
	})
}

func runOrderDelete(cmd *cobra.Command, args []string) error {
	role, err := actingRole(cmd)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		order, err := a.orders.Get(args[0])
		if err != nil {
			return err
		}
		if err := a.orders.DeleteOrder(ctx, order.ID, role); err != nil {
			return err
		}
		fmt.Printf("Deleted %s; %d line(s) returned to stock\n", order.SerialNumber, len(order.Items))
		return nil
	})
}

func runOrderList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		list := a.orders.List()
		if len(list) == 0 {
			fmt.Println("No invoices yet")
			return nil
		}
		for _, o := range list {
			fmt.Printf("%-16s %s  %-24s %12s  margin %10s  %s\n",
				o.SerialNumber,
				o.Date.Format("2006-01-02"),
				o.CustomerName,
				o.TotalAmount.StringFixed(2),
				orders.Margin(o).StringFixed(2),
				o.Status)
		}
		return nil
	})
}

func runOrderShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		order, err := a.orders.Get(args[0])
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, order)
	})
}
