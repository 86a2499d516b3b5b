package commands_test

import (
	"io"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise-dev/spendwise/internal/config"
	"github.com/spendwise-dev/spendwise/internal/fakeapi"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "spendwise-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "spendwise")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/spendwise")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

// home is a spendwise state directory wired to an in-process backend.
type home struct {
	dir    string
	apiURL string
}

func newHome(t *testing.T) *home {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	srv := httptest.NewServer(fakeapi.New(fakeapi.Options{}, logger).Handler())
	t.Cleanup(srv.Close)
	return &home{dir: t.TempDir(), apiURL: srv.URL + "/api"}
}

func (h *home) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"SPENDWISE_HOME="+h.dir,
		"SPENDWISE_API_URL="+h.apiURL,
		"SPENDWISE_LOG_LEVEL=error",
	)
	cmd.Dir = h.dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (h *home) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func runSpendwise(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "SPENDWISE_HOME="+t.TempDir())
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, err := runSpendwise(t, "init", dir)
	require.NoError(t, err)

	for _, d := range []string{"import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runSpendwise(t, "init", dir, "--api-url", "https://money.example.com/api")
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "https://money.example.com/api", cfg.API.BaseURL)
	assert.Empty(t, cfg.StateDir)
	assert.True(t, cfg.Mirror.Enabled)
}

func TestInit_Currency(t *testing.T) {
	dir := t.TempDir()
	_, err := runSpendwise(t, "init", dir, "--currency", "usd")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "settings.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "currency: USD")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, err := runSpendwise(t, "init", dir)
	require.NoError(t, err)

	out, err := runSpendwise(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, out, "already exists")

	_, err = runSpendwise(t, "init", dir, "--force")
	require.NoError(t, err)
}

func TestInit_RejectsBadURL(t *testing.T) {
	dir := t.TempDir()
	out, err := runSpendwise(t, "init", dir, "--api-url", "ftp://example.com")
	require.Error(t, err)
	assert.Contains(t, out, "must be http or https")

	_, statErr := os.Stat(filepath.Join(dir, config.FileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestVersion(t *testing.T) {
	out, err := runSpendwise(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "spendwise version")
	assert.Contains(t, out, "commit:")
}

func TestSettings_SetAndShow(t *testing.T) {
	h := newHome(t)

	out := h.mustRun(t, "settings", "set", "currency", "eur")
	assert.Contains(t, out, "Set currency")

	out = h.mustRun(t, "settings", "show")
	assert.Contains(t, out, "currency: EUR")

	out, err := h.run(t, "settings", "set", "theme", "neon")
	require.Error(t, err)
	assert.Contains(t, out, "unknown theme")

	h.mustRun(t, "settings", "reset")
	out = h.mustRun(t, "settings", "show")
	assert.Contains(t, out, "currency: INR")
}

func TestCommands_RequireLogin(t *testing.T) {
	h := newHome(t)

	out, err := h.run(t, "tx", "list")
	require.Error(t, err)
	assert.Contains(t, out, "spendwise login")
}

func TestCommands_EndToEnd(t *testing.T) {
	h := newHome(t)
	h.mustRun(t, "settings", "set", "currency", "usd")

	out := h.mustRun(t, "register", "--email", "Pat@Example.com", "--first-name", "Pat", "--password", "hunter22")
	assert.Contains(t, out, "pat@example.com")

	out = h.mustRun(t, "whoami", "--check")
	assert.Contains(t, out, "Pat <pat@example.com>")

	out = h.mustRun(t, "categories", "add", "Food", "--icon", "F")
	assert.Contains(t, out, "Added category Food")
	h.mustRun(t, "categories", "add", "Salary", "--type", "income")

	out = h.mustRun(t, "tx", "add", "--amount", "90", "--category", "food", "--description", "Groceries")
	assert.Contains(t, out, "$90.00")
	h.mustRun(t, "tx", "add", "--type", "income", "--amount", "1000", "--category", "Salary", "--description", "Paycheck")

	out = h.mustRun(t, "tx", "list")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "Paycheck")
	assert.Contains(t, out, "2 of 2 transactions")

	out = h.mustRun(t, "tx", "list", "--type", "expense")
	assert.NotContains(t, out, "Paycheck")
	assert.Contains(t, out, "1 of 1 transactions")

	out = h.mustRun(t, "report", "summary", "--month", "current")
	assert.Contains(t, out, "Income:        $1,000.00")
	assert.Contains(t, out, "Expenses:      $90.00")
	assert.Contains(t, out, "Net:           +$910.00")

	out = h.mustRun(t, "budgets", "add", "--category", "Food", "--amount", "100")
	assert.Contains(t, out, "budget of $100.00 for Food")

	out = h.mustRun(t, "budgets", "progress", "--alerts")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "90%")
	assert.Contains(t, out, "alert")

	out = h.mustRun(t, "sync")
	assert.Contains(t, out, "Synced 2 transactions, 2 categories, 0 accounts, 1 budgets")

	out = h.mustRun(t, "sync", "--status")
	assert.Contains(t, out, "Last sync:")
	assert.Contains(t, out, "transactions")

	out = h.mustRun(t, "activity")
	assert.Contains(t, out, "create")

	h.mustRun(t, "logout")
	_, err := h.run(t, "tx", "list")
	require.Error(t, err)
}

func TestTxImport_ChaseStatement(t *testing.T) {
	h := newHome(t)
	h.mustRun(t, "register", "--email", "imp@example.com", "--password", "secret1")
	h.mustRun(t, "categories", "add", "Uncategorized")

	statement := "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n" +
		"DEBIT,01/05/2025,WHOLE FOODS MARKET,-82.17,DEBIT_CARD,9913.83,\n" +
		"DEBIT,01/09/2025,SHELL OIL 5744,-41.20,DEBIT_CARD,9872.63,\n" +
		"CREDIT,01/15/2025,ACME CONSULTING INVOICE 1042,3500.00,ACH_CREDIT,13372.63,\n"
	file := filepath.Join(h.dir, "january.csv")
	require.NoError(t, os.WriteFile(file, []byte(statement), 0o644))

	out := h.mustRun(t, "tx", "import", file, "--dry-run")
	assert.Contains(t, out, "january.csv: 3 new, 0 duplicates (dry run)")

	out = h.mustRun(t, "tx", "import", file, "--expense-category", "Uncategorized")
	assert.Contains(t, out, "january.csv: imported 3, skipped 0 duplicates")

	out = h.mustRun(t, "tx", "import", file)
	assert.Contains(t, out, "january.csv: imported 0, skipped 3 duplicates")

	out = h.mustRun(t, "tx", "list", "--month", "2025-01")
	assert.Contains(t, out, "WHOLE FOODS MARKET")
	assert.Contains(t, out, "3 of 3 transactions")

	out = h.mustRun(t, "tx", "export")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4, out)
}

func TestTxImport_Directory(t *testing.T) {
	h := newHome(t)
	h.mustRun(t, "init", h.dir, "--api-url", h.apiURL)
	h.mustRun(t, "register", "--email", "dir@example.com", "--password", "secret1")

	drop := filepath.Join(h.dir, "import")
	statement := "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n" +
		"DEBIT,02/01/2025,NETFLIX.COM,-15.49,DEBIT_CARD,13357.14,\n"
	require.NoError(t, os.WriteFile(filepath.Join(drop, "feb.csv"), []byte(statement), 0o644))

	out := h.mustRun(t, "tx", "import", drop)
	assert.Contains(t, out, "feb.csv: imported 1")

	_, err := os.Stat(filepath.Join(drop, "processed", "feb.csv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(drop, "feb.csv"))
	assert.True(t, os.IsNotExist(err))
}
