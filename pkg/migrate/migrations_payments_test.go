package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hirelocal/hirelocal-backend/pkg/migrate"
)

func TestTransactionsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_booking_transactions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no booking transactions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS booking_transactions",
		"CHECK (gross_amount_cents > 0)",
		"CHECK (platform_fee_cents >= 0)",
		"CHECK (platform_fee_cents <= gross_amount_cents)",
		"CREATE UNIQUE INDEX ux_booking_transactions_booking_open ON booking_transactions (booking_id)",
		"WHERE status <> 'failed'",
		"DROP TABLE IF EXISTS booking_transactions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAccountsMigrationContainsUniqueIndexes(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_connected_accounts.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no connected accounts migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE UNIQUE INDEX ux_connected_accounts_provider ON connected_accounts (provider_id)",
		"CREATE UNIQUE INDEX ux_connected_accounts_account ON connected_accounts (account_id)",
		"DROP TABLE IF EXISTS connected_accounts",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
