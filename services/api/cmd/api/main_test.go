package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/storage/pebblestore"
)

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCommand(&cli{})
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestUsersPut_Pebble(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ESCROW_STORAGE_DRIVER", "pebble")
	t.Setenv("ESCROW_STORAGE_PEBBLE_DIR", dir)
	t.Setenv("ESCROW_LOG_LEVEL", "error")

	err := runCommand(t, "users", "put", "--id", "seller-1", "--role", "Seller", "--payout", "iban=DE00,bank=Example")
	require.NoError(t, err)

	st, err := pebblestore.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	u, err := st.GetUser(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleSeller, u.Role)
	require.Equal(t, map[string]string{"iban": "DE00", "bank": "Example"}, u.PayoutDetails)
}

func TestUsersPut_RejectsUnknownRole(t *testing.T) {
	t.Setenv("ESCROW_STORAGE_DRIVER", "pebble")
	t.Setenv("ESCROW_STORAGE_PEBBLE_DIR", t.TempDir())
	t.Setenv("ESCROW_LOG_LEVEL", "error")

	err := runCommand(t, "users", "put", "--id", "x", "--role", "auditor")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	t.Setenv("ESCROW_STORAGE_DRIVER", "pebble")
	t.Setenv("ESCROW_STORAGE_PEBBLE_DIR", t.TempDir())
	t.Setenv("ESCROW_LOG_LEVEL", "error")

	for _, args := range [][]string{{"migrate"}, {"migrate", "down", "--steps", "2"}} {
		err := runCommand(t, args...)
		require.True(t, errors.Is(err, errMigrationsNeedPostgres), "args %v: got %v", args, err)
	}
}

func TestRoot_InvalidConfig(t *testing.T) {
	t.Setenv("ESCROW_STORAGE_DRIVER", "mysql")

	err := runCommand(t, "migrate")
	require.Error(t, err)
	require.Contains(t, err.Error(), "storage.driver")
}
