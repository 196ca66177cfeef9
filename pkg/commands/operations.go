package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/GoPGVault/pkg/config"
	"github.com/supporttools/GoPGVault/pkg/dump"
	"github.com/supporttools/GoPGVault/pkg/history"
	"github.com/supporttools/GoPGVault/pkg/restore"
)

// Dump backs up a database on the resolved connection and returns the
// recorded history entry.
func (a *App) Dump(ctx context.Context, explicitName string, opts dump.Options) (history.Entry, error) {
	connectionName, profile, err := a.resolveProfile(explicitName)
	if err != nil {
		return history.Entry{}, err
	}

	admin, err := a.OpenAdmin(ctx, profile)
	if err != nil {
		return history.Entry{}, err
	}
	defer func() {
		if closeErr := admin.Close(); closeErr != nil {
			logrus.Warnf("Failed to close admin connection: %v", closeErr)
		}
	}()

	orchestrator := &dump.Orchestrator{
		DumpTool:      config.CFG.Tools.PGDump,
		DumpDirectory: a.dumpDirectory(),
		Runner:        a.Runner,
		Ledger:        a.Registry.History(),
	}
	if uploader := a.uploader(); uploader != nil {
		orchestrator.Uploader = uploader
	}

	return orchestrator.Run(ctx, admin, connectionName, profile, opts)
}

// Restore runs the restore state machine against the resolved connection.
func (a *App) Restore(ctx context.Context, explicitName string, opts restore.Options) (restore.Result, error) {
	connectionName, profile, err := a.resolveProfile(explicitName)
	if err != nil {
		return restore.Result{}, err
	}

	admin, err := a.OpenAdmin(ctx, profile)
	if err != nil {
		return restore.Result{}, err
	}
	defer func() {
		if closeErr := admin.Close(); closeErr != nil {
			logrus.Warnf("Failed to close admin connection: %v", closeErr)
		}
	}()

	orchestrator := &restore.Orchestrator{
		RestoreTool:   config.CFG.Tools.PGRestore,
		SQLTool:       config.CFG.Tools.PSQL,
		DumpDirectory: a.dumpDirectory(),
		Runner:        a.Runner,
		Ledger:        a.Registry.History(),
		Prompter:      a.Prompter,
	}

	return orchestrator.Run(ctx, admin, connectionName, profile, opts)
}

// ListDatabases returns the user databases on the resolved connection.
func (a *App) ListDatabases(ctx context.Context, explicitName string) ([]string, error) {
	_, profile, err := a.resolveProfile(explicitName)
	if err != nil {
		return nil, err
	}

	admin, err := a.OpenAdmin(ctx, profile)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := admin.Close(); closeErr != nil {
			logrus.Warnf("Failed to close admin connection: %v", closeErr)
		}
	}()

	return admin.ListDatabases(ctx)
}

// DropDatabase terminates all sessions on the named database and drops it,
// after an explicit destructive confirmation. Declining is a normal early
// exit reported through the cancelled flag.
func (a *App) DropDatabase(ctx context.Context, explicitName, database string) (cancelled bool, err error) {
	_, profile, err := a.resolveProfile(explicitName)
	if err != nil {
		return false, err
	}

	ok, err := a.Prompter.Confirm(fmt.Sprintf(
		"This will terminate all connections to %q and drop it permanently. Continue?", database))
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	admin, err := a.OpenAdmin(ctx, profile)
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := admin.Close(); closeErr != nil {
			logrus.Warnf("Failed to close admin connection: %v", closeErr)
		}
	}()

	if err := admin.TerminateConnections(ctx, database); err != nil {
		return false, err
	}
	if err := admin.DropDatabase(ctx, database); err != nil {
		return false, err
	}

	logrus.Infof("Dropped database %q", database)
	return false, nil
}
