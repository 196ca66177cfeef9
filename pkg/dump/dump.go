// Package dump orchestrates database backups through the external pg_dump
// tool and records every attempt in the operation history.
package dump

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/supporttools/GoPGVault/pkg/history"
	"github.com/supporttools/GoPGVault/pkg/identifier"
	"github.com/supporttools/GoPGVault/pkg/postgres"
	"github.com/supporttools/GoPGVault/pkg/registry"
	"github.com/supporttools/GoPGVault/pkg/storage/local"
	"github.com/supporttools/GoPGVault/pkg/tools"
)

// ErrDatabaseNotFound indicates the requested database does not exist on the
// target server.
var ErrDatabaseNotFound = errors.New("database not found on server")

// Uploader ships a finished dump artifact offsite. Optional.
type Uploader interface {
	UploadDump(ctx context.Context, dumpPath string) (string, error)
}

// Options controls a single dump run.
type Options struct {
	// Database is the database to back up. Required.
	Database string
	// OutputName optionally overrides the generated base name. A timestamp
	// is still appended before the extension; custom names never bypass the
	// timestamp rule.
	OutputName string
	// Verbose streams pg_dump output while it runs.
	Verbose bool
}

// Orchestrator drives pg_dump and bookkeeping for one configured dumps
// directory.
type Orchestrator struct {
	DumpTool      string
	DumpDirectory string
	Runner        tools.Runner
	Ledger        *history.Ledger
	Uploader      Uploader

	// Now is injectable for filename tests; defaults to time.Now.
	Now func() time.Time
}

// timestampLayout matches the artifact naming convention.
const timestampLayout = "20060102-150405"

// Filename computes the artifact name for a database and optional custom
// base, using the orchestrator clock.
func (o *Orchestrator) Filename(database, customBase string) string {
	timestamp := o.now().Format(timestampLayout)

	if customBase == "" {
		return fmt.Sprintf("%s_backup_%s.dump", database, timestamp)
	}

	base := strings.TrimSuffix(customBase, filepath.Ext(customBase))
	return fmt.Sprintf("%s_%s.dump", base, timestamp)
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run performs a dump of the selected database using the given admin
// connection and profile, and always records the outcome in history: a
// success entry with the artifact size, or a failed entry carrying the tool's
// stderr before the error is returned.
func (o *Orchestrator) Run(ctx context.Context, admin postgres.Admin, connectionName string, profile registry.Profile, opts Options) (history.Entry, error) {
	switch profile.Type {
	case registry.TypePostgres:
		// Supported below.
	case registry.TypeSQLite:
		return history.Entry{}, fmt.Errorf("connection type %q does not support pg_dump backups", profile.Type)
	default:
		return history.Entry{}, fmt.Errorf("unknown connection type %q", profile.Type)
	}

	if err := identifier.Validate(opts.Database); err != nil {
		return history.Entry{}, err
	}

	// Precondition gates: no state is touched if these fail.
	if err := tools.Look(o.DumpTool); err != nil {
		return history.Entry{}, err
	}

	exists, err := admin.DatabaseExists(ctx, opts.Database)
	if err != nil {
		return history.Entry{}, err
	}
	if !exists {
		return history.Entry{}, fmt.Errorf("%w: %s", ErrDatabaseNotFound, opts.Database)
	}

	store := local.NewClient(o.DumpDirectory)

	outputPath, err := store.ArtifactPath(o.Filename(opts.Database, opts.OutputName))
	if err != nil {
		return history.Entry{}, err
	}

	args := []string{
		"--host", profile.Host,
		"--port", strconv.Itoa(profile.Port),
		"--username", profile.User,
		"--no-password",
		"--format", "custom",
		// Portable restores regardless of the roles on the target server.
		"--no-owner",
		"--no-privileges",
		"--file", outputPath,
		opts.Database,
	}

	env := map[string]string{"PGPASSWORD": profile.Password}

	logrus.Infof("Dumping database %s to %s", opts.Database, outputPath)
	_, runErr := o.Runner.Run(ctx, o.DumpTool, args, env, opts.Verbose)

	entry := history.Entry{
		OperationType:  history.OperationDump,
		Database:       opts.Database,
		ConnectionName: connectionName,
		FilePath:       outputPath,
	}

	if runErr != nil {
		entry.Status = history.StatusFailed
		entry.ErrorMessage = failureDetail(runErr)

		if recorded, histErr := o.Ledger.Append(entry); histErr != nil {
			return recorded, fmt.Errorf("failed to record dump outcome (%v): %w", runErr, histErr)
		}
		return entry, runErr
	}

	size, statErr := store.ArtifactSize(outputPath)
	if statErr != nil {
		entry.Status = history.StatusFailed
		entry.ErrorMessage = statErr.Error()

		if recorded, histErr := o.Ledger.Append(entry); histErr != nil {
			return recorded, fmt.Errorf("failed to record dump outcome (%v): %w", statErr, histErr)
		}
		return entry, fmt.Errorf("dump completed but artifact is missing: %w", statErr)
	}

	entry.Status = history.StatusSuccess
	entry.FileSize = size

	recorded, histErr := o.Ledger.Append(entry)
	if histErr != nil {
		return recorded, fmt.Errorf("dump succeeded but history write failed: %w", histErr)
	}

	logrus.Infof("Dump complete: %s (%s)", outputPath, humanize.Bytes(uint64(size)))

	if o.Uploader != nil {
		if _, uploadErr := o.Uploader.UploadDump(ctx, outputPath); uploadErr != nil {
			// Offsite copies are best-effort.
			logrus.Warnf("Offsite copy failed: %v", uploadErr)
		}
	}

	return recorded, nil
}

// failureDetail prefers the captured stderr of a failed subprocess.
func failureDetail(err error) string {
	var execErr *tools.ExecError
	if errors.As(err, &execErr) && execErr.Stderr != "" {
		return execErr.Stderr
	}
	return err.Error()
}
