package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LEDGER_DB_PATH", "SYNC_DEBOUNCE", "LOW_STOCK_THRESHOLD", "REMOTE_FILE_NAME", "CLOUD_SYNC_ENABLED",
		"GDRIVE_ACCESS_TOKEN", "GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_CREDENTIALS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LedgerDBPath != "billing.db" {
		t.Errorf("LedgerDBPath = %q", cfg.LedgerDBPath)
	}
	if cfg.SyncDebounce != 2*time.Second {
		t.Errorf("SyncDebounce = %v, want 2s", cfg.SyncDebounce)
	}
	if cfg.LowStockThreshold != 500 {
		t.Errorf("LowStockThreshold = %d, want 500", cfg.LowStockThreshold)
	}
	if cfg.RemoteFileName != "tevolta_cloud_db.json" {
		t.Errorf("RemoteFileName = %q", cfg.RemoteFileName)
	}
	if cfg.CloudSyncEnabled || cfg.HasDriveCredentials() {
		t.Errorf("cloud sync should be off without credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYNC_DEBOUNCE", "250ms")
	t.Setenv("CLOUD_SYNC_ENABLED", "true")
	t.Setenv("GDRIVE_ACCESS_TOKEN", "token")
	t.Setenv("INVOICE_PREFIX", "INV")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SyncDebounce != 250*time.Millisecond || !cfg.CloudSyncEnabled || cfg.InvoicePrefix != "INV" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.HasDriveCredentials() {
		t.Errorf("HasDriveCredentials() = false")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SYNC_DEBOUNCE", "soon", "SYNC_DEBOUNCE"},
		{"SYNC_DEBOUNCE", "-1s", "SYNC_DEBOUNCE"},
		{"LOW_STOCK_THRESHOLD", "many", "LOW_STOCK_THRESHOLD"},
		{"CLOUD_SYNC_ENABLED", "perhaps", "CLOUD_SYNC_ENABLED"},
		{"INVOICE_PREFIX", "T/E", "INVOICE_PREFIX"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
