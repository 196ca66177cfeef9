package restore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/GoPGVault/pkg/history"
	"github.com/supporttools/GoPGVault/pkg/identifier"
	"github.com/supporttools/GoPGVault/pkg/registry"
	"github.com/supporttools/GoPGVault/pkg/tools"
)

// callLog records the order of admin calls, tool invocations and history
// writes across the whole orchestration.
type callLog struct {
	calls []string
}

func (l *callLog) add(call string) { l.calls = append(l.calls, call) }

// fakeAdmin implements postgres.Admin, logging lifecycle calls.
type fakeAdmin struct {
	log       *callLog
	databases []string
	createErr error
	dropErr   error
}

func (f *fakeAdmin) ListDatabases(context.Context) ([]string, error) { return f.databases, nil }

func (f *fakeAdmin) DatabaseExists(_ context.Context, name string) (bool, error) {
	for _, db := range f.databases {
		if db == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAdmin) TerminateConnections(_ context.Context, name string) error {
	f.log.add("terminate:" + name)
	return nil
}

func (f *fakeAdmin) DropDatabase(_ context.Context, name string) error {
	f.log.add("drop:" + name)
	return f.dropErr
}

func (f *fakeAdmin) CreateDatabase(_ context.Context, name string) error {
	f.log.add("create:" + name)
	return f.createErr
}

func (f *fakeAdmin) Close() error { return nil }

// fakeRunner implements tools.Runner, logging invocations.
type fakeRunner struct {
	log      *callLog
	probeErr error
	runErr   error
	lastArgs []string
	streamed []bool
}

func (f *fakeRunner) Run(_ context.Context, tool string, args []string, _ map[string]string, stream bool) (tools.Result, error) {
	if len(args) > 0 && args[0] == "--list" {
		f.log.add("probe:" + tool)
		if f.probeErr != nil {
			return tools.Result{}, f.probeErr
		}
		return tools.Result{Stdout: ";     Archive created..."}, nil
	}

	f.log.add("run:" + tool)
	f.lastArgs = append([]string{tool}, args...)
	f.streamed = append(f.streamed, stream)
	if f.runErr != nil {
		return tools.Result{}, f.runErr
	}
	return tools.Result{}, nil
}

// scriptedPrompter replays canned answers.
type scriptedPrompter struct {
	confirms []bool
	selects  []int
	inputs   []string
}

func (p *scriptedPrompter) Confirm(string) (bool, error) {
	if len(p.confirms) == 0 {
		return false, errors.New("unexpected Confirm call")
	}
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

func (p *scriptedPrompter) Select(_ string, options []string) (int, error) {
	if len(p.selects) == 0 {
		return 0, errors.New("unexpected Select call")
	}
	choice := p.selects[0]
	p.selects = p.selects[1:]
	if choice >= len(options) {
		return 0, errors.New("scripted choice out of range")
	}
	return choice, nil
}

func (p *scriptedPrompter) Input(string) (string, error) {
	if len(p.inputs) == 0 {
		return "", errors.New("unexpected Input call")
	}
	value := p.inputs[0]
	p.inputs = p.inputs[1:]
	return value, nil
}

type fixture struct {
	orchestrator *Orchestrator
	admin        *fakeAdmin
	runner       *fakeRunner
	prompter     *scriptedPrompter
	log          *callLog
	entries      *[]history.Entry
	dumpDir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := &callLog{}
	entries := make([]history.Entry, 0)
	ledger := history.NewLedger(&entries, func() error {
		log.add("history:save")
		return nil
	}, func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })

	runner := &fakeRunner{log: log}
	prompter := &scriptedPrompter{}
	dumpDir := t.TempDir()

	return &fixture{
		orchestrator: &Orchestrator{
			RestoreTool:   "sh", // real tool names are irrelevant with a fake runner
			SQLTool:       "sh",
			DumpDirectory: dumpDir,
			Runner:        runner,
			Ledger:        ledger,
			Prompter:      prompter,
		},
		admin:    &fakeAdmin{log: log, databases: []string{"sales", "inventory"}},
		runner:   runner,
		prompter: prompter,
		log:      log,
		entries:  &entries,
		dumpDir:  dumpDir,
	}
}

func (f *fixture) writeDump(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(f.dumpDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testProfile() registry.Profile {
	return registry.Profile{Type: registry.TypePostgres, Host: "db1", Port: 5432, User: "postgres", Password: "pw"}
}

// TestDropRecreateOrdering tests that terminate, drop and create all precede
// the restore invocation, which precedes the history write
func TestDropRecreateOrdering(t *testing.T) {
	f := newFixture(t)
	f.writeDump(t, "sales.sql", "CREATE TABLE t (id int);")
	f.prompter.confirms = []bool{true, true} // destructive gate + final gate

	result, err := f.orchestrator.Run(context.Background(), f.admin, "prod", testProfile(), Options{
		ArchivePath:    "sales.sql",
		TargetDatabase: "sales",
		Strategy:       StrategyDropRecreate,
	})
	require.NoError(t, err)
	assert.False(t, result.Cancelled)

	assert.Equal(t, []string{
		"terminate:sales",
		"drop:sales",
		"create:sales",
		"run:sh",
		"history:save",
	}, f.log.calls)

	require.Len(t, *f.entries, 1)
	entry := (*f.entries)[0]
	assert.Equal(t, history.OperationRestore, entry.OperationType)
	assert.Equal(t, history.StatusSuccess, entry.Status)
	assert.Equal(t, "sales", entry.Database)
	assert.NotZero(t, entry.FileSize)

	// Plain SQL goes through the SQL client with the file argument, streamed.
	assert.Contains(t, f.runner.lastArgs, "--file")
	assert.Equal(t, []bool{true}, f.runner.streamed)
}

// TestDropSucceedsCreateFails tests partial lifecycle failure: failed entry,
// distinct message, no restore invocation
func TestDropSucceedsCreateFails(t *testing.T) {
	f := newFixture(t)
	f.writeDump(t, "sales.sql", "SELECT 1;")
	f.prompter.confirms = []bool{true, true}
	f.admin.createErr = errors.New("out of disk")

	_, err := f.orchestrator.Run(context.Background(), f.admin, "prod", testProfile(), Options{
		ArchivePath:    "sales.sql",
		TargetDatabase: "sales",
		Strategy:       StrategyDropRecreate,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dropped but not recreated")

	require.Len(t, *f.entries, 1)
	entry := (*f.entries)[0]
	assert.Equal(t, history.StatusFailed, entry.Status)
	assert.Contains(t, entry.ErrorMessage, "out of disk")
	assert.Zero(t, entry.FileSize)

	// The restore tool must never run after a failed preparation.
	for _, call := range f.log.calls {
		assert.NotEqual(t, "run:sh", call)
	}
}

// TestDeclineDestructiveGate tests that declining is a normal exit without
// history or lifecycle calls
func TestDeclineDestructiveGate(t *testing.T) {
	f := newFixture(t)
	f.writeDump(t, "sales.sql", "SELECT 1;")
	f.prompter.confirms = []bool{false}

	result, err := f.orchestrator.Run(context.Background(), f.admin, "prod", testProfile(), Options{
		ArchivePath:    "sales.sql",
		TargetDatabase: "sales",
		Strategy:       StrategyDropRecreate,
	})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Empty(t, *f.entries)
	assert.Empty(t, f.log.calls)
}

// TestDeclineFinalGate tests the second confirmation
func TestDeclineFinalGate(t *testing.T) {
	f := newFixture(t)
	f.writeDump(t, "sales.sql", "SELECT 1;")
	f.prompter.confirms = []bool{true, false}

	result, err := f.orchestrator.Run(context.Background(), f.admin, "prod", testProfile(), Options{
		ArchivePath:    "sales.sql",
		TargetDatabase: "sales",
		Strategy:       StrategyDropRecreate,
	})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Empty(t, *f.entries)
}

// TestVerificationFailure tests that an unreadable archive aborts before any
// destructive step and is recorded as a failed restore
func TestVerificationFailure(t *testing.T) {
	f := newFixture(t)
	f.writeDump(t, "sales.dump", "not a real archive")
	f.runner.probeErr = &tools.ExecError{Tool: "pg_restore", ExitCode: 1, Stderr: "input file does not appear to be a valid archive"}

	_, err := f.orchestrator.Run(context.Background(), f.admin, "prod", testProfile(), Options{
		ArchivePath:    "sales.dump",
		TargetDatabase: "sales",
		Strategy:       StrategyExisting,
	})
	assert.ErrorIs(t, err, ErrVerificationFailed)

	require.Len(t, *f.entries, 1)
	assert.Equal(t, history.StatusFailed, (*f.entries)[0].Status)

	// Only the probe ran; no lifecycle call, no restore.
	assert.Equal(t, []string{"probe:sh", "history:save"}, f.log.calls)
}

// TestArchiveRestoreInvocation tests the binary-format execution path
func TestArchiveRestoreInvocation(t *testing.T) {
	f := newFixture(t)
	f.writeDump(t, "sales.dump", "PGDMP")
	f.prompter.confirms = []bool{true}

	result, err := f.orchestrator.Run(context.Background(), f.admin, "prod", testProfile(), Options{
		ArchivePath:    "sales.dump",
		TargetDatabase: "sales",
		Strategy:       StrategyExisting,
	})
	require.NoError(t, err)
	assert.False(t, result.Cancelled)

	assert.Contains(t, f.runner.lastArgs, "--no-owner")
	assert.Contains(t, f.runner.lastArgs, "--no-privileges")
	assert.Contains(t, f.runner.lastArgs, "--verbose")
	assert.Equal(t, []bool{true}, f.runner.streamed, "restores always stream output")
}

// TestExplicitPathResolution tests dumps-directory-first source lookup
func TestExplicitPathResolution(t *testing.T) {
	f := newFixture(t)
	path := f.writeDump(t, "known.sql", "SELECT 1;")

	// Bare name resolves inside the dumps directory.
	resolved, err := f.orchestrator.selectSource(Options{ArchivePath: "known.sql"})
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	// An absolute path outside the dumps directory resolves second.
	outside := filepath.Join(t.TempDir(), "elsewhere.sql")
	require.NoError(t, os.WriteFile(outside, []byte("SELECT 1;"), 0644))
	resolved, err = f.orchestrator.selectSource(Options{ArchivePath: outside})
	require.NoError(t, err)
	assert.Equal(t, outside, resolved)

	_, err = f.orchestrator.selectSource(Options{ArchivePath: "missing.sql"})
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

// TestHistorySourceRejectsMissingFile tests the on-disk existence check
func TestHistorySourceRejectsMissingFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Ledger.Append(history.Entry{
		OperationType: history.OperationDump,
		Database:      "sales",
		FilePath:      filepath.Join(f.dumpDir, "vanished.dump"),
		Status:        history.StatusSuccess,
	})
	require.NoError(t, err)

	f.prompter.selects = []int{0, 0} // history source, first entry
	_, err = f.orchestrator.selectSource(Options{})
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

// TestSelectFromDirectory tests extension filtering
func TestSelectFromDirectory(t *testing.T) {
	f := newFixture(t)
	f.writeDump(t, "a.dump", "x")
	f.writeDump(t, "b.sql", "x")
	f.writeDump(t, "notes.txt", "x")

	f.prompter.selects = []int{1, 1} // directory source, second file
	resolved, err := f.orchestrator.selectSource(Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dumpDir, "b.sql"), resolved)
}

// TestStrategyPromptWhenTargetGiven tests the two-way strategy question
func TestStrategyPromptWhenTargetGiven(t *testing.T) {
	f := newFixture(t)
	f.prompter.selects = []int{1}

	target, strategy, err := f.orchestrator.selectTargetStrategy(context.Background(), f.admin, Options{TargetDatabase: "sales"})
	require.NoError(t, err)
	assert.Equal(t, "sales", target)
	assert.Equal(t, StrategyExisting, strategy)
}

// TestTargetSelectionExistingDatabase tests picking from the live list
func TestTargetSelectionExistingDatabase(t *testing.T) {
	f := newFixture(t)
	f.prompter.selects = []int{0, 1} // existing, second database

	target, strategy, err := f.orchestrator.selectTargetStrategy(context.Background(), f.admin, Options{})
	require.NoError(t, err)
	assert.Equal(t, "inventory", target)
	assert.Equal(t, StrategyExisting, strategy)
}

// TestTargetSelectionCreateNew tests name entry and validation
func TestTargetSelectionCreateNew(t *testing.T) {
	f := newFixture(t)
	f.prompter.selects = []int{1}
	f.prompter.inputs = []string{"fresh_db"}

	target, strategy, err := f.orchestrator.selectTargetStrategy(context.Background(), f.admin, Options{})
	require.NoError(t, err)
	assert.Equal(t, "fresh_db", target)
	assert.Equal(t, StrategyCreateNew, strategy)

	f.prompter.selects = []int{1}
	f.prompter.inputs = []string{"123 bad name"}
	_, _, err = f.orchestrator.selectTargetStrategy(context.Background(), f.admin, Options{})
	assert.ErrorIs(t, err, identifier.ErrInvalidIdentifier)
}
