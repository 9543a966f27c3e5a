package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"billing/internal/apperr"
	"billing/internal/purchase"
	"billing/pkg/models"
)

var purchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Record supplier purchases and review them into stock",
}

var purchaseIntakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Record a supplier purchase from a JSON file",
	Long: `Record a supplier purchase. Stock purchases wait in the review queue until
finalized; expense purchases (natureOfPurchase "Other") are confirmed at once and
never touch stock. Supplier SKUs are linked to catalogue SKUs through the saved
supplier mappings.`,
	Example: `  billing purchase intake --file po.json
  cat po.json | billing purchase intake --file -`,
	Args: cobra.NoArgs,
	RunE: runPurchaseIntake,
}

var purchasePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List purchases awaiting review",
	Args:  cobra.NoArgs,
	RunE:  runPurchasePending,
}

var purchaseHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List confirmed purchases, newest first",
	Args:  cobra.NoArgs,
	RunE:  runPurchaseHistory,
}

var purchaseEditCmd = &cobra.Command{
	Use:   "edit <purchase-id> <item-id>",
	Short: "Change the quantity, cost or catalogue link of a pending line",
	Args:  cobra.ExactArgs(2),
	RunE:  runPurchaseEdit,
}

var purchaseRejectCmd = &cobra.Command{
	Use:   "reject <purchase-id> [item-id]",
	Short: "Drop a pending line, or the whole pending purchase",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPurchaseReject,
}

var purchaseFinalizeCmd = &cobra.Command{
	Use:   "finalize <purchase-id>",
	Short: "Receive a reviewed purchase into stock and set landed costs",
	Args:  cobra.ExactArgs(1),
	RunE:  runPurchaseFinalize,
}

var purchaseRevertCmd = &cobra.Command{
	Use:   "revert <purchase-id>",
	Short: "Undo a purchase and take its quantities back out of stock (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPurchaseRevert,
}

func init() {
	rootCmd.AddCommand(purchaseCmd)
	purchaseCmd.AddCommand(purchaseIntakeCmd, purchasePendingCmd, purchaseHistoryCmd,
		purchaseEditCmd, purchaseRejectCmd, purchaseFinalizeCmd, purchaseRevertCmd)

	purchaseIntakeCmd.Flags().StringP("file", "f", "", "Purchase JSON file, or - for stdin")
	_ = purchaseIntakeCmd.MarkFlagRequired("file")

	purchaseEditCmd.Flags().Int("qty", 0, "New quantity")
	purchaseEditCmd.Flags().String("cost", "", "New cost per unit in the purchase currency")
	purchaseEditCmd.Flags().String("sku", "", "Catalogue SKU to link the line to")
}

func readPurchase(path string) (models.PurchaseOrder, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return models.PurchaseOrder{}, fmt.Errorf("failed to open purchase file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var po models.PurchaseOrder
	if err := json.NewDecoder(r).Decode(&po); err != nil {
		return models.PurchaseOrder{}, apperr.New("readPurchase", apperr.ErrInvalidOrderInput, err.Error(), path)
	}
	return po, nil
}

func runPurchaseIntake(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	po, err := readPurchase(path)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		out, err := a.purchases.Intake(ctx, po)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, out)
	})
}

func printPurchases(list []models.PurchaseOrder) {
	if len(list) == 0 {
		fmt.Println("None")
		return
	}
	for _, po := range list {
		fmt.Printf("%-12s %s  %-24s %-6s %-9s qty %6d  INR %12s\n",
			po.ID, po.Date, po.SupplierName, po.NatureOfPurchase, po.Status,
			po.TotalQuantity, po.InvestmentINR.StringFixed(2))
		for _, item := range po.Items {
			link := item.InternalSKU
			if link == "" {
				link = "(unlinked)"
			}
			fmt.Printf("    %-36s %-16s -> %-14s x%-5d @ %s %s\n",
				item.ID, item.SupplierSKU, link, item.Quantity, item.CostPerUnit.String(), po.Currency)
		}
	}
}

func runPurchasePending(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		printPurchases(a.purchases.Pending())
		return nil
	})
}

func runPurchaseHistory(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		printPurchases(a.purchases.History())
		return nil
	})
}

func runPurchaseEdit(cmd *cobra.Command, args []string) error {
	var edit purchase.ItemEdit
	if cmd.Flags().Changed("qty") {
		qty, _ := cmd.Flags().GetInt("qty")
		edit.Quantity = &qty
	}
	if cmd.Flags().Changed("cost") {
		raw, _ := cmd.Flags().GetString("cost")
		cost, err := decimal.NewFromString(raw)
		if err != nil {
			return apperr.New("runPurchaseEdit", apperr.ErrInvalidOrderInput, "cost is not a number", raw)
		}
		edit.CostPerUnit = &cost
	}
	if cmd.Flags().Changed("sku") {
		sku, _ := cmd.Flags().GetString("sku")
		edit.InternalSKU = &sku
	}
	if edit == (purchase.ItemEdit{}) {
		return fmt.Errorf("nothing to change: pass --qty, --cost or --sku")
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		po, err := a.purchases.EditPendingItem(ctx, args[0], args[1], edit)
		if err != nil {
			return err
		}
		printPurchases([]models.PurchaseOrder{po})
		return nil
	})
}

func runPurchaseReject(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if len(args) == 1 {
			if err := a.purchases.RejectPending(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Dropped %s from the review queue\n", args[0])
			return nil
		}

		removed, err := a.purchases.RejectItem(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if removed {
			fmt.Printf("Dropped the last line; %s left the review queue\n", args[0])
		} else {
			fmt.Printf("Dropped line %s\n", args[1])
		}
		return nil
	})
}

func runPurchaseFinalize(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.purchases.FinalizeReview(ctx, args[0])
		if err != nil {
			return err
		}
		for _, c := range res.Stock.Changes {
			fmt.Printf("%-14s %6d -> %6d\n", c.ProductID, c.Before, c.After)
		}
		fmt.Printf("Confirmed %s\n", res.Purchase.ID)
		return nil
	})
}

func runPurchaseRevert(cmd *cobra.Command, args []string) error {
	role, err := actingRole(cmd)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.purchases.Revert(ctx, args[0], role)
		if err != nil {
			return err
		}
		for _, c := range res.Stock.Changes {
			fmt.Printf("%-14s %6d -> %6d\n", c.ProductID, c.Before, c.After)
		}
		for _, c := range res.Shortfalls {
			fmt.Fprintf(os.Stderr, "warning: %s was %d short and has been set to 0\n", c.ProductID, c.Shortfall)
		}
		fmt.Printf("Reverted %s\n", res.Purchase.ID)
		return nil
	})
}
