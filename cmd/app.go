package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"billing/internal/apperr"
	"billing/internal/cloudsync"
	"billing/internal/config"
	"billing/internal/ledger"
	"billing/internal/logger"
	"billing/internal/orders"
	"billing/internal/purchase"
	"billing/internal/state"
	"billing/pkg/models"
)

const commandTimeout = 2 * time.Minute

// app wires the services one command needs.
type app struct {
	cfg       *config.Config
	store     *state.Store
	orders    *orders.Manager
	purchases *purchase.Workflow
	sync      *cloudsync.Reconciler
	log       zerolog.Logger
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	log := logger.WithComponent("app")

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		cfg.LedgerDBPath = path
	}

	persister, err := state.OpenBolt(cfg.LedgerDBPath)
	if err != nil {
		return nil, err
	}
	store, err := state.Open(persister)
	if err != nil {
		_ = persister.Close()
		return nil, err
	}

	// Fill fields an older or imported state left empty.
	err = store.Replace("openApp", func(st *state.State) error {
		if st.Company.InvoicePrefix == "" {
			st.Company.InvoicePrefix = cfg.InvoicePrefix
		}
		if st.LowStockThreshold <= 0 {
			st.LowStockThreshold = cfg.LowStockThreshold
		}
		return nil
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var remote cloudsync.DocumentStore
	if cfg.HasDriveCredentials() {
		drive, err := cloudsync.NewDriveStore(ctx, cloudsync.DriveConfig{
			AccessToken:     cfg.DriveAccessToken,
			CredentialsFile: cfg.GoogleApplicationCredentials,
			CredentialsJSON: cfg.GoogleCredentials,
			SharedDriveID:   cfg.SharedDriveID,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Drive unavailable, running local-only")
		} else {
			remote = drive
		}
	}

	l := ledger.New()
	a := &app{
		cfg:       cfg,
		store:     store,
		orders:    orders.NewManager(store, l),
		purchases: purchase.NewWorkflow(store, l),
		sync: cloudsync.NewReconciler(store, remote, cloudsync.Options{
			FileName: cfg.RemoteFileName,
			Debounce: cfg.SyncDebounce,
		}),
		log: log,
	}

	if cfg.CloudSyncEnabled && remote != nil && !store.Session().CloudEnabled {
		if err := a.sync.SetCloudEnabled(true); err != nil {
			log.Warn().Err(err).Msg("Failed to enable cloud sync")
		}
	}

	log.Debug().
		Str("db", cfg.LedgerDBPath).
		Bool("remote", remote != nil).
		Bool("cloud", store.Session().CloudEnabled).
		Msg("Application opened")
	return a, nil
}

// close flushes any scheduled push, then closes the database.
func (a *app) close(ctx context.Context) {
	if err := a.sync.Close(ctx); err != nil && !errors.Is(err, apperr.ErrSyncUnavailable) {
		a.log.Warn().Err(err).Msg("Final sync failed; local state is saved")
	}
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("Failed to close ledger database")
	}
}

// withApp runs fn with a ready app and a cancellable context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := commandContext(commandTimeout)
	defer cancel()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	return fn(ctx, a)
}

// commandContext creates a context with timeout and signal handling.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	log := logger.WithComponent("cmd")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func actingRole(cmd *cobra.Command) (models.Role, error) {
	raw, _ := cmd.Flags().GetString("role")
	role := models.Role(strings.ToLower(raw))
	switch role {
	case models.RoleAdmin, models.RoleEmployee:
		return role, nil
	}
	return "", fmt.Errorf("unknown role %q: use admin or employee", raw)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeError adds a hint for the error kinds a user can act on.
func describeError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("operation timed out: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("operation was canceled")
	case errors.Is(err, apperr.ErrPermissionDenied):
		return fmt.Errorf("%w\nRun the command with --role admin", err)
	case errors.Is(err, apperr.ErrUnresolvedSku):
		return fmt.Errorf("%w\nLink every line with 'billing purchase edit --sku' or drop it with 'billing purchase reject'", err)
	case errors.Is(err, apperr.ErrSyncUnavailable):
		return fmt.Errorf("%w\nSet GDRIVE_ACCESS_TOKEN or GOOGLE_APPLICATION_CREDENTIALS and run 'billing sync enable'", err)
	}
	return err
}
