package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"billing/internal/apperr"
	"billing/pkg/models"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Manage supplier SKU links and wattage tags used at purchase intake",
}

var mappingAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Link a supplier SKU to a catalogue SKU, or tag a catalogue SKU with a wattage",
	Example: `  billing mapping add --supplier "Shenzhen Lights" --supplier-sku SZ-050 --sku TEV-50
  billing mapping add --sku TEV-50 --watts 50W`,
	Args: cobra.NoArgs,
	RunE: runMappingAdd,
}

var mappingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supplier links and wattage tags",
	Args:  cobra.NoArgs,
	RunE:  runMappingList,
}

var mappingRemoveCmd = &cobra.Command{
	Use:   "remove <mapping-id>",
	Short: "Remove a supplier link or wattage tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runMappingRemove,
}

func init() {
	rootCmd.AddCommand(mappingCmd)
	mappingCmd.AddCommand(mappingAddCmd, mappingListCmd, mappingRemoveCmd)

	mappingAddCmd.Flags().String("sku", "", "Catalogue SKU")
	mappingAddCmd.Flags().String("supplier", "", "Supplier name")
	mappingAddCmd.Flags().String("supplier-sku", "", "Supplier's SKU")
	mappingAddCmd.Flags().String("name", "", "Catalogue name (default: the product's name)")
	mappingAddCmd.Flags().String("watts", "", "Wattage tag, e.g. 50W")
	mappingAddCmd.MarkFlagsMutuallyExclusive("watts", "supplier-sku")
	_ = mappingAddCmd.MarkFlagRequired("sku")
}

func runMappingAdd(cmd *cobra.Command, args []string) error {
	sku, _ := cmd.Flags().GetString("sku")
	watts, _ := cmd.Flags().GetString("watts")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if cmd.Flags().Changed("watts") {
			m, err := a.purchases.AddWattMapping(ctx, models.WattMapping{InternalSKU: sku, Watts: watts})
			if err != nil {
				return err
			}
			fmt.Printf("Tagged %s as %s (%s)\n", m.InternalSKU, m.Watts, m.ID)
			return nil
		}

		m := models.SupplierMapping{InternalSKU: sku}
		m.SupplierName, _ = cmd.Flags().GetString("supplier")
		m.SupplierSKU, _ = cmd.Flags().GetString("supplier-sku")
		m.InternalName, _ = cmd.Flags().GetString("name")
		m, err := a.purchases.AddSupplierMapping(ctx, m)
		if err != nil {
			return err
		}
		fmt.Printf("Linked %s / %s -> %s (%s)\n", m.SupplierName, m.SupplierSKU, m.InternalSKU, m.ID)
		return nil
	})
}

func runMappingList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		fmt.Println("Supplier links:")
		for _, m := range a.purchases.SupplierMappings() {
			fmt.Printf("  %-36s %-24s %-16s -> %-14s %s\n", m.ID, m.SupplierName, m.SupplierSKU, m.InternalSKU, m.InternalName)
		}
		fmt.Println("Wattage tags:")
		for _, m := range a.purchases.WattMappings() {
			fmt.Printf("  %-36s %-14s %s\n", m.ID, m.InternalSKU, m.Watts)
		}
		return nil
	})
}

func runMappingRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		err := a.purchases.RemoveSupplierMapping(ctx, args[0])
		if errors.Is(err, apperr.ErrMappingNotFound) {
			err = a.purchases.RemoveWattMapping(ctx, args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	})
}
