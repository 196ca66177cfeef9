// Package restore orchestrates database restores from dump artifacts,
// driving source resolution, format verification, target-database lifecycle
// and the external restore tools, with every outcome recorded in history.
package restore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/supporttools/GoPGVault/pkg/history"
	"github.com/supporttools/GoPGVault/pkg/identifier"
	"github.com/supporttools/GoPGVault/pkg/postgres"
	"github.com/supporttools/GoPGVault/pkg/registry"
	"github.com/supporttools/GoPGVault/pkg/storage/local"
	"github.com/supporttools/GoPGVault/pkg/tools"
)

var (
	// ErrVerificationFailed indicates the dump archive could not be read by
	// the probe. Raised before any destructive step.
	ErrVerificationFailed = errors.New("dump archive verification failed")
	// ErrSourceNotFound indicates no dump artifact could be resolved.
	ErrSourceNotFound = errors.New("dump file not found")
)

// Format classifies a verified dump artifact.
type Format int

const (
	// FormatSQL is a plain-text SQL script, executed via psql.
	FormatSQL Format = iota
	// FormatArchive is a binary/custom-format archive, restored via
	// pg_restore.
	FormatArchive
)

// Strategy selects how the target database is prepared.
type Strategy int

const (
	// StrategyUnset means the user has not chosen yet.
	StrategyUnset Strategy = iota
	// StrategyDropRecreate terminates sessions, drops and recreates the
	// target before restoring.
	StrategyDropRecreate
	// StrategyExisting restores into the target as it stands.
	StrategyExisting
	// StrategyCreateNew creates a fresh database to restore into.
	StrategyCreateNew
)

// Prompter is the collaborator boundary to the interactive layer. Declining
// a confirmation is a normal early exit, never an error.
type Prompter interface {
	Confirm(message string) (bool, error)
	Select(message string, options []string) (int, error)
	Input(message string) (string, error)
}

// Options controls a single restore run.
type Options struct {
	// ArchivePath optionally names the dump artifact, resolved against the
	// dumps directory first and the working directory second.
	ArchivePath string
	// TargetDatabase optionally names the database to restore into.
	TargetDatabase string
	// Strategy optionally fixes the target preparation strategy.
	Strategy Strategy
}

// Result reports how a restore run ended. Cancelled runs write no history.
type Result struct {
	Cancelled bool
	Entry     history.Entry
}

// Orchestrator drives the restore state machine.
type Orchestrator struct {
	RestoreTool   string
	SQLTool       string
	DumpDirectory string
	Runner        tools.Runner
	Ledger        *history.Ledger
	Prompter      Prompter
}

// Run executes the restore state machine: SELECT_SOURCE, VERIFY_FORMAT,
// SELECT_TARGET_STRATEGY, confirmation gates, target lifecycle, EXECUTE and
// RECORD_OUTCOME. Execution failures are recorded as failed history entries
// before being returned; a decline at any gate returns a Cancelled result.
func (o *Orchestrator) Run(ctx context.Context, admin postgres.Admin, connectionName string, profile registry.Profile, opts Options) (Result, error) {
	switch profile.Type {
	case registry.TypePostgres:
		// Supported below.
	case registry.TypeSQLite:
		return Result{}, fmt.Errorf("connection type %q does not support restores", profile.Type)
	default:
		return Result{}, fmt.Errorf("unknown connection type %q", profile.Type)
	}

	source, err := o.selectSource(opts)
	if err != nil {
		return Result{}, err
	}

	format, err := o.verifyFormat(ctx, source)
	if err != nil {
		// Verification failures happen mid-orchestration and are part of
		// the auditable record even though nothing was touched yet.
		return o.recordFailure(connectionName, opts.TargetDatabase, source, err)
	}

	target, strategy, err := o.selectTargetStrategy(ctx, admin, opts)
	if err != nil {
		return Result{}, err
	}

	if err := identifier.Validate(target); err != nil {
		return Result{}, err
	}

	// The executing tool must exist before any destructive step is taken.
	execTool := o.SQLTool
	if format == FormatArchive {
		execTool = o.RestoreTool
	}
	if err := tools.Look(execTool); err != nil {
		return Result{}, err
	}

	if strategy == StrategyDropRecreate {
		// Destructive-action confirmation, distinct from the final gate.
		ok, err := o.Prompter.Confirm(fmt.Sprintf(
			"This will terminate all connections to %q, drop it and recreate it. Continue?", target))
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{Cancelled: true}, nil
		}
	}

	ok, err := o.Prompter.Confirm(fmt.Sprintf("Restore %s into database %q?", filepath.Base(source), target))
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Cancelled: true}, nil
	}

	if err := o.prepareTarget(ctx, admin, target, strategy); err != nil {
		return o.recordFailure(connectionName, target, source, err)
	}

	if err := o.execute(ctx, profile, target, source, format); err != nil {
		return o.recordFailure(connectionName, target, source, err)
	}

	entry := history.Entry{
		OperationType:  history.OperationRestore,
		Database:       target,
		ConnectionName: connectionName,
		FilePath:       source,
		Status:         history.StatusSuccess,
	}
	if info, statErr := os.Stat(source); statErr == nil {
		entry.FileSize = info.Size()
	}

	recorded, histErr := o.Ledger.Append(entry)
	if histErr != nil {
		return Result{}, fmt.Errorf("restore succeeded but history write failed: %w", histErr)
	}

	logrus.Infof("Restore of %s into %q complete (%s)", filepath.Base(source), target, humanize.Bytes(uint64(entry.FileSize)))
	return Result{Entry: recorded}, nil
}

// selectSource resolves the dump artifact to restore from. An explicit path
// is checked against the dumps directory first, then the working directory.
// Without one, the user picks from the successful-dumps history or from the
// files in the dumps directory.
func (o *Orchestrator) selectSource(opts Options) (string, error) {
	if opts.ArchivePath != "" {
		candidates := []string{
			filepath.Join(o.DumpDirectory, opts.ArchivePath),
			opts.ArchivePath,
		}
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrSourceNotFound, opts.ArchivePath)
	}

	choice, err := o.Prompter.Select("Select restore source", []string{
		"Previous dump from history",
		"File from dumps directory",
	})
	if err != nil {
		return "", err
	}

	if choice == 0 {
		return o.selectFromHistory()
	}
	return o.selectFromDirectory()
}

func (o *Orchestrator) selectFromHistory() (string, error) {
	dumps := o.Ledger.SuccessfulDumps(0)
	if len(dumps) == 0 {
		return "", fmt.Errorf("%w: no successful dumps in history", ErrSourceNotFound)
	}

	labels := make([]string, len(dumps))
	for i, entry := range dumps {
		labels[i] = history.Describe(entry)
	}

	choice, err := o.Prompter.Select("Select dump from history", labels)
	if err != nil {
		return "", err
	}

	source := dumps[choice].FilePath
	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("%w: %s no longer exists on disk", ErrSourceNotFound, source)
	}

	return source, nil
}

func (o *Orchestrator) selectFromDirectory() (string, error) {
	files, err := local.NewClient(o.DumpDirectory).ListArtifacts()
	if err != nil {
		return "", err
	}

	if len(files) == 0 {
		return "", fmt.Errorf("%w: no dump files in %s", ErrSourceNotFound, o.DumpDirectory)
	}

	choice, err := o.Prompter.Select("Select dump file", files)
	if err != nil {
		return "", err
	}

	return filepath.Join(o.DumpDirectory, files[choice]), nil
}

// verifyFormat classifies the artifact. A .sql extension is trusted as plain
// SQL without deeper inspection; anything else must be readable by the
// archive tool's table-of-contents probe.
func (o *Orchestrator) verifyFormat(ctx context.Context, source string) (Format, error) {
	if strings.EqualFold(filepath.Ext(source), ".sql") {
		return FormatSQL, nil
	}

	if err := tools.Look(o.RestoreTool); err != nil {
		return 0, err
	}

	if _, err := o.Runner.Run(ctx, o.RestoreTool, []string{"--list", source}, nil, false); err != nil {
		return 0, fmt.Errorf("%w: %s is not a readable archive: %v", ErrVerificationFailed, filepath.Base(source), err)
	}

	return FormatArchive, nil
}

// selectTargetStrategy settles on the target database and how to prepare it.
func (o *Orchestrator) selectTargetStrategy(ctx context.Context, admin postgres.Admin, opts Options) (string, Strategy, error) {
	if opts.TargetDatabase != "" {
		if opts.Strategy != StrategyUnset {
			return opts.TargetDatabase, opts.Strategy, nil
		}

		choice, err := o.Prompter.Select(
			fmt.Sprintf("How should database %q be prepared?", opts.TargetDatabase),
			[]string{"Drop and recreate", "Restore into existing"})
		if err != nil {
			return "", StrategyUnset, err
		}
		if choice == 0 {
			return opts.TargetDatabase, StrategyDropRecreate, nil
		}
		return opts.TargetDatabase, StrategyExisting, nil
	}

	choice, err := o.Prompter.Select("Select restore target", []string{
		"Existing database",
		"Create new database",
	})
	if err != nil {
		return "", StrategyUnset, err
	}

	if choice == 0 {
		databases, err := admin.ListDatabases(ctx)
		if err != nil {
			return "", StrategyUnset, err
		}
		if len(databases) == 0 {
			return "", StrategyUnset, fmt.Errorf("no databases available on the server")
		}

		picked, err := o.Prompter.Select("Select target database", databases)
		if err != nil {
			return "", StrategyUnset, err
		}
		return databases[picked], StrategyExisting, nil
	}

	name, err := o.Prompter.Input("New database name")
	if err != nil {
		return "", StrategyUnset, err
	}
	if err := identifier.Validate(name); err != nil {
		return "", StrategyUnset, err
	}

	// Collisions are enforced by the server on CREATE DATABASE.
	return name, StrategyCreateNew, nil
}

// prepareTarget runs the lifecycle steps for the chosen strategy. These are
// separate sequential calls, not a transaction: a partial failure is
// surfaced exactly as it happened.
func (o *Orchestrator) prepareTarget(ctx context.Context, admin postgres.Admin, target string, strategy Strategy) error {
	switch strategy {
	case StrategyExisting:
		return nil

	case StrategyCreateNew:
		return admin.CreateDatabase(ctx, target)

	case StrategyDropRecreate:
		if err := admin.TerminateConnections(ctx, target); err != nil {
			return err
		}
		if err := admin.DropDatabase(ctx, target); err != nil {
			return err
		}
		if err := admin.CreateDatabase(ctx, target); err != nil {
			return fmt.Errorf("database %q was dropped but not recreated: %w", target, err)
		}
		return nil

	default:
		return fmt.Errorf("no target preparation strategy selected")
	}
}

// execute runs the restore tool. Output is always streamed so operators see
// progress on long-running restores.
func (o *Orchestrator) execute(ctx context.Context, profile registry.Profile, target, source string, format Format) error {
	env := map[string]string{"PGPASSWORD": profile.Password}

	connectionArgs := []string{
		"--host", profile.Host,
		"--port", strconv.Itoa(profile.Port),
		"--username", profile.User,
		"--no-password",
	}

	switch format {
	case FormatArchive:
		args := append(connectionArgs,
			"--dbname", target,
			"--no-owner",
			"--no-privileges",
			"--verbose",
			source,
		)
		logrus.Infof("Restoring archive %s into %q", filepath.Base(source), target)
		_, err := o.Runner.Run(ctx, o.RestoreTool, args, env, true)
		return err

	case FormatSQL:
		args := append(connectionArgs,
			"--dbname", target,
			"--file", source,
		)
		logrus.Infof("Executing SQL script %s against %q", filepath.Base(source), target)
		_, err := o.Runner.Run(ctx, o.SQLTool, args, env, true)
		return err

	default:
		return fmt.Errorf("unknown dump format")
	}
}

// recordFailure writes a failed history entry and returns the original
// error. If the history write itself fails, that persistence error is
// surfaced distinctly instead of masking the original.
func (o *Orchestrator) recordFailure(connectionName, target, source string, cause error) (Result, error) {
	entry := history.Entry{
		OperationType:  history.OperationRestore,
		Database:       target,
		ConnectionName: connectionName,
		FilePath:       source,
		Status:         history.StatusFailed,
		ErrorMessage:   failureDetail(cause),
	}

	recorded, histErr := o.Ledger.Append(entry)
	if histErr != nil {
		return Result{}, fmt.Errorf("failed to record restore outcome (%v): %w", cause, histErr)
	}

	return Result{Entry: recorded}, cause
}

// failureDetail prefers the captured stderr of a failed subprocess.
func failureDetail(err error) string {
	var execErr *tools.ExecError
	if errors.As(err, &execErr) && execErr.Stderr != "" {
		return execErr.Stderr
	}
	return err.Error()
}
