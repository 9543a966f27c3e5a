package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"billing/internal/state"
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Inspect stock levels",
}

var stockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products with stock on hand and landed cost",
	Args:  cobra.NoArgs,
	RunE:  runStockList,
}

func init() {
	rootCmd.AddCommand(stockCmd)
	stockCmd.AddCommand(stockListCmd)

	stockListCmd.Flags().Bool("low", false, "Only products below the low-stock threshold")
}

func runStockList(cmd *cobra.Command, args []string) error {
	lowOnly, _ := cmd.Flags().GetBool("low")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		var rows int
		a.store.View(func(st *state.State) {
			for _, p := range st.Products {
				low := p.Stock < st.LowStockThreshold
				if lowOnly && !low {
					continue
				}
				flag := ""
				if low {
					flag = "LOW"
				}
				fmt.Printf("%-14s %-32s %6d  cost %10s  price %10s  %s\n",
					p.ID, p.Name, p.Stock, p.CostPrice.StringFixed(2), p.Price.StringFixed(2), flag)
				rows++
			}
		})
		if rows == 0 {
			fmt.Println("No products")
		}
		return nil
	})
}
