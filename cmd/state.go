package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"billing/internal/cloudsync"
	"billing/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Import or export the whole state as a sync document",
}

var stateExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the state in the shared document format",
	Example: `  billing state export -o backup.json`,
	Args:    cobra.NoArgs,
	RunE:    runStateExport,
}

var stateImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Replace local collections with those in a document",
	Long: `Replace local collections with the ones present in a sync document. Keys the
document does not carry keep their local values. The change is pushed like any
other when cloud mode is on.`,
	Args: cobra.ExactArgs(1),
	RunE: runStateImport,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateExportCmd, stateImportCmd)

	stateExportCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runStateExport(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		blob, err := cloudsync.NewDocument(a.store.Snapshot(), time.Now()).Encode()
		if err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}
		if outputPath == "" {
			_, err = os.Stdout.Write(append(blob, '\n'))
			return err
		}
		if err := os.WriteFile(outputPath, blob, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		a.log.Info().Str("file", outputPath).Int("bytes", len(blob)).Msg("State exported")
		return nil
	})
}

func runStateImport(cmd *cobra.Command, args []string) error {
	var (
		blob []byte
		err  error
	)
	if args[0] == "-" {
		blob, err = io.ReadAll(os.Stdin)
	} else {
		blob, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := cloudsync.DecodeDocument(blob)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		var replaced []string
		err := a.store.Update("runStateImport", func(st *state.State) error {
			replaced = doc.ApplyTo(st)
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("Imported %v\n", replaced)
		return nil
	})
}
