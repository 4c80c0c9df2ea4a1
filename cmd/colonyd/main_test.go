package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jlo00/colonyNetwork/pkg/colony"
	"github.com/Jlo00/colonyNetwork/pkg/config"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
	"github.com/Jlo00/colonyNetwork/pkg/ledger"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:    "ERROR",
		DBDriver:    "sqlite",
		DatabaseURL: "file:" + filepath.Join(t.TempDir(), "nested", "colony.db"),
	}
}

func TestDemoPersistsVerifiableJournal(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)

	rt, err := newRuntime(ctx, cfg)
	require.NoError(t, err)
	report, err := runDemo(ctx, rt, 20, 10000)
	require.NoError(t, err)
	require.NoError(t, rt.Close(ctx))

	assert.Equal(t, uint64(20), report.FeeInverse)
	assert.Equal(t, colony.PhaseFinalized, report.Task.Phase)
	require.Len(t, report.Settlements, 1)
	assert.Equal(t, int64(9500), report.Settlements[0].Payout)
	assert.Equal(t, int64(500), report.Settlements[0].Fee)
	assert.Contains(t, report.Balances, balanceRow{Holder: "worker", Token: string(contracts.Native), Amount: 9500})
	assert.Contains(t, report.Balances, balanceRow{Holder: "treasury", Token: string(contracts.Native), Amount: 500})

	store, closeDB, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = closeDB() }()
	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, int(report.JournalLen))
	assert.NoError(t, ledger.Verify(entries))
	assert.Equal(t, report.JournalHead, entries[len(entries)-1].ContentHash)
}

func TestRuntimeLoadsProfile(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.ProfilePath = filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(cfg.ProfilePath, []byte("schema_version: 1.2.0\nfee_inverse: 50\n"), 0o600))

	rt, err := newRuntime(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = rt.Close(ctx) }()
	assert.Equal(t, uint64(50), rt.net.FeeInverse())
	assert.Equal(t, "CLNY", rt.profile.MetaColony.Token.Symbol)
}

func TestOpenDBRejectsUnknownDriver(t *testing.T) {
	_, _, err := openDB(context.Background(), &config.Config{DBDriver: "mysql"})
	assert.ErrorContains(t, err, "unsupported db driver")
}

func TestEnsureSQLiteDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, ensureSQLiteDir("file:"+filepath.Join(dir, "x.db")+"?cache=shared"))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.NoError(t, ensureSQLiteDir(":memory:"))
}
