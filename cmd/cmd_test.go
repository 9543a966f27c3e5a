package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"billing/internal/apperr"
	"billing/pkg/models"
)

func TestParseCart(t *testing.T) {
	cart, err := parseCart([]string{"P1:3", "SKU:WITH:COLON:2"})
	if err != nil {
		t.Fatalf("parseCart() error = %v", err)
	}
	want := []models.CartItem{{ProductID: "P1", Quantity: 3}, {ProductID: "SKU:WITH:COLON", Quantity: 2}}
	for i := range want {
		if cart[i] != want[i] {
			t.Errorf("cart[%d] = %+v, want %+v", i, cart[i], want[i])
		}
	}
}

func TestParseCartRejects(t *testing.T) {
	for _, raw := range []string{"P1", ":3", "P1:", "P1:three"} {
		_, err := parseCart([]string{raw})
		if !errors.Is(err, apperr.ErrInvalidOrderInput) {
			t.Errorf("parseCart(%q) error = %v, want ErrInvalidOrderInput", raw, err)
		}
		if got := apperr.Subjects(err); len(got) != 1 || got[0] != raw {
			t.Errorf("parseCart(%q) subjects = %v", raw, got)
		}
	}
}

func TestActingRole(t *testing.T) {
	tests := []struct {
		flag    string
		want    models.Role
		wantErr bool
	}{
		{"admin", models.RoleAdmin, false},
		{"Employee", models.RoleEmployee, false},
		{"root", "", true},
	}
	for _, tt := range tests {
		c := &cobra.Command{}
		c.Flags().String("role", "admin", "")
		_ = c.Flags().Set("role", tt.flag)

		got, err := actingRole(c)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("actingRole(%q) = %q, %v", tt.flag, got, err)
		}
	}
}

func TestDescribeErrorKeepsKind(t *testing.T) {
	err := describeError(apperr.New("DeleteOrder", apperr.ErrPermissionDenied, "admin role required"))
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Errorf("kind lost: %v", err)
	}
	if !strings.Contains(err.Error(), "--role admin") {
		t.Errorf("missing hint: %v", err)
	}
}

func TestRoleDefaultsToEmployee(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("role")
	if flag == nil || flag.DefValue != string(models.RoleEmployee) {
		t.Fatalf("--role default = %v, want employee", flag)
	}
}
