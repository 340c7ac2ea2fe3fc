package common_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmdcommon "github.com/jonesrussell/north-cloud/legal-indexer/cmd/common"
	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/config"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"titles":54}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig writes a YAML file and isolates the test from stray .env files.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))

	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newDeps(t *testing.T, content string) cmdcommon.CommandDeps {
	t.Helper()

	cfg, err := config.Load(writeConfig(t, content))
	require.NoError(t, err)
	return cmdcommon.CommandDeps{Logger: infralogger.NewNop(), Config: cfg}
}

func checkNames(svc *cmdcommon.Services) []string {
	var names []string
	for _, c := range svc.Checks() {
		names = append(names, c.Name)
	}
	return names
}

func TestNewServices_Defaults(t *testing.T) {
	backendSrv := fakeBackend(t)
	deps := newDeps(t, "backend:\n  url: "+backendSrv.URL+"\n")

	svc, err := cmdcommon.NewServices(context.Background(), deps)
	require.NoError(t, err)
	defer svc.Close()

	assert.NotNil(t, svc.USCode)
	assert.NotNil(t, svc.UCC)
	assert.Nil(t, svc.Ledger)
	assert.Nil(t, svc.Mirror)
	assert.Nil(t, svc.Archiver)
	assert.Len(t, svc.Corpora(), 2)
	assert.Equal(t, []string{"backend", "govinfo"}, checkNames(svc))

	backendCheck := svc.Checks()[0]
	assert.True(t, backendCheck.Required)
	require.NoError(t, backendCheck.Ping(context.Background()))

	stats, err := svc.UCC.Status(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 54, stats["titles"], 0)
}

func TestNewServices_SQLiteLedger(t *testing.T) {
	backendSrv := fakeBackend(t)
	dsn := filepath.Join(t.TempDir(), "ledger.db")
	deps := newDeps(t, "backend:\n  url: "+backendSrv.URL+"\nledger:\n  driver: sqlite3\n  dsn: "+dsn+"\n")

	svc, err := cmdcommon.NewServices(context.Background(), deps)
	require.NoError(t, err)
	defer svc.Close()

	require.NotNil(t, svc.Ledger)
	require.NoError(t, svc.Ledger.Ping(context.Background()))
	assert.Contains(t, checkNames(svc), "ledger")
}

func TestNewServices_CorpusSelection(t *testing.T) {
	backendSrv := fakeBackend(t)
	deps := newDeps(t, "backend:\n  url: "+backendSrv.URL+"\nindexer:\n  corpora: [ucc]\n")

	svc, err := cmdcommon.NewServices(context.Background(), deps)
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Require(domain.CorpusUCC))
	require.ErrorIs(t, svc.Require(domain.CorpusUSCode), cmdcommon.ErrCorpusDisabled)

	corpora := svc.Corpora()
	assert.Len(t, corpora, 1)
	assert.Contains(t, corpora, domain.CorpusUCC)
	assert.Equal(t, []string{"backend"}, checkNames(svc))
}

func TestNewServices_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	backendSrv := fakeBackend(t)
	deps := newDeps(t, "backend:\n  url: "+backendSrv.URL+"\ncache:\n  redis:\n    address: "+mr.Addr()+"\n")

	svc, err := cmdcommon.NewServices(context.Background(), deps)
	require.NoError(t, err)
	svc.Close()

	mr.Close()
	_, err = cmdcommon.NewServices(context.Background(), deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect fetch cache")
}

func TestNewServices_RequiresDeps(t *testing.T) {
	_, err := cmdcommon.NewServices(context.Background(), cmdcommon.CommandDeps{})
	require.ErrorIs(t, err, cmdcommon.ErrLoggerRequired)
}

func TestNewCommandDeps_FlagOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)

	path := writeConfig(t, "logging:\n  level: warn\n")
	viper.Set(cmdcommon.KeyConfig, path)
	viper.Set(cmdcommon.KeyLogLevel, "ERROR")

	deps, err := cmdcommon.NewCommandDeps()
	require.NoError(t, err)
	assert.Equal(t, "error", deps.Config.Logging.Level)
	assert.False(t, deps.Config.Logging.Debug)

	viper.Set(cmdcommon.KeyLogLevel, "chatty")
	_, err = cmdcommon.NewCommandDeps()
	require.Error(t, err)
}
