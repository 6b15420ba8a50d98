package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storyai/internal/config"
	"storyai/internal/story"
	"storyai/internal/wallet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Terminal.ProcessingDelay = "0s"
	cfg.Terminal.BootEnabled = false
	return cfg
}

func TestRunExec_PrintsScrollback(t *testing.T) {
	var out bytes.Buffer
	err := runExec(context.Background(), testConfig(t), &out, []string{"view story", "   "})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "> view story")
	assert.Contains(t, got, "[1] "+story.SeedLines()[0])
}

func TestRunExec_FailedCommand(t *testing.T) {
	var out bytes.Buffer
	err := runExec(context.Background(), testConfig(t), &out, []string{"bogus", "time"})
	require.ErrorIs(t, err, errCommandsFailed)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out.String(), "Command not found: bogus. Type 'help' to see available commands.")
	assert.Contains(t, out.String(), "Current System Time: ")
}

func TestRunExec_WithWallet(t *testing.T) {
	execWallet = testWallet
	t.Cleanup(func() { execWallet = "" })

	var out bytes.Buffer
	err := runExec(context.Background(), testConfig(t), &out, []string{"submit line The lights flickered."})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "> WALLET CONNECTED SUCCESSFULLY")
	assert.Contains(t, out.String(), "Line submitted successfully!")
}

func TestNewApp_SQLiteSharesStoryAcrossSessions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Story.Backend = "sqlite"
	cfg.Story.DatabasePath = filepath.Join(t.TempDir(), "data", "story.db")

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.generator)

	first, err := a.newSession(false)
	require.NoError(t, err)
	defer first.session.Close()
	second, err := a.newSession(false)
	require.NoError(t, err)
	defer second.session.Close()

	first.session.Start(ctx)
	second.session.Start(ctx)
	require.NoError(t, first.session.Submit(ctx, "connect "+testWallet))
	require.NoError(t, first.session.Submit(ctx, "submit line A door creaked open."))

	assert.True(t, first.wallet.Connected())
	assert.False(t, second.wallet.Connected(), "wallets are per session")

	lines, err := a.store.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A door creaked open.", lines[len(lines)-1])
}

func TestSessionFactory_IsolatesPreferences(t *testing.T) {
	cfg := testConfig(t)
	cfg.Terminal.Theme = "light"
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	sess, release, err := a.sessionFactory(true)()
	require.NoError(t, err)
	defer release()
	assert.False(t, sess.Interactive())

	sc, err := a.newSession(false)
	require.NoError(t, err)
	defer sc.session.Close()
	assert.Equal(t, "light", sc.prefs.Theme())
}

func TestHelpStyle(t *testing.T) {
	assert.Equal(t, "light", helpStyle("light"))
	assert.Equal(t, "dark", helpStyle("dark"))
	assert.Equal(t, "dark", helpStyle(""))
}

func TestNewApp_RPCOracleUsesEveryEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Wallet.Oracle = "rpc"
	cfg.Wallet.RPCEndpoint = "https://primary.example"
	cfg.Wallet.FallbackEndpoints = []string{"https://second.example", "https://third.example"}

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	rpc, ok := a.oracle.(*wallet.RPCOracle)
	require.True(t, ok, "rpc config wires an RPCOracle, got %T", a.oracle)
	assert.Equal(t, []string{
		"https://primary.example",
		"https://second.example",
		"https://third.example",
	}, rpc.Endpoints)
	assert.Equal(t, cfg.Wallet.TokenAddress, rpc.Mint)
}

func TestNewApp_DefaultRPCFallbacks(t *testing.T) {
	cfg := testConfig(t)
	cfg.Wallet.Oracle = "rpc"

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	rpc := a.oracle.(*wallet.RPCOracle)
	assert.Equal(t, cfg.RPCEndpoints(), rpc.Endpoints)
	assert.Len(t, rpc.Endpoints, 4)
}

func TestRunExec_ExportsToConfiguredDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Story.ExportDir = filepath.Join(t.TempDir(), "exports")

	var out bytes.Buffer
	require.NoError(t, runExec(context.Background(), cfg, &out, []string{"export story ../tale.txt"}))
	assert.Contains(t, out.String(), "Story exported successfully to tale.txt")

	data, err := os.ReadFile(filepath.Join(cfg.Story.ExportDir, "tale.txt"))
	require.NoError(t, err)
	assert.Equal(t, strings.Join(story.SeedLines(), "\n"), string(data))
}
