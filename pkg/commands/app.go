// Package commands implements the command handlers behind the CLI surface.
// Each handler resolves a connection through the registry and session,
// hands it to an orchestrator and leaves a history record behind.
package commands

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/GoPGVault/pkg/config"
	"github.com/supporttools/GoPGVault/pkg/postgres"
	"github.com/supporttools/GoPGVault/pkg/registry"
	"github.com/supporttools/GoPGVault/pkg/restore"
	"github.com/supporttools/GoPGVault/pkg/session"
	"github.com/supporttools/GoPGVault/pkg/storage/s3"
	"github.com/supporttools/GoPGVault/pkg/tools"
)

// AdminOpener establishes an administrative connection for a profile.
// Injectable so handlers can be tested without a live server.
type AdminOpener func(ctx context.Context, profile registry.Profile) (postgres.Admin, error)

// App wires the persisted stores and collaborator boundaries together for
// one process. The admin connection handle is opened per command and closed
// on every exit path; there is no process-wide connection singleton.
type App struct {
	Registry  *registry.Store
	Session   *session.Store
	Runner    tools.Runner
	Prompter  restore.Prompter
	OpenAdmin AdminOpener
}

// NewApp loads the persisted state and returns a ready-to-use App.
func NewApp(prompter restore.Prompter) (*App, error) {
	reg := registry.NewStore(config.RegistryPath())
	if err := reg.Load(); err != nil {
		return nil, err
	}

	sess := session.NewStore(config.SessionPath())
	if err := sess.Load(); err != nil {
		return nil, err
	}

	return &App{
		Registry: reg,
		Session:  sess,
		Runner:   tools.NewExecRunner(),
		Prompter: prompter,
		OpenAdmin: func(ctx context.Context, profile registry.Profile) (postgres.Admin, error) {
			return postgres.Open(ctx, profile)
		},
	}, nil
}

// resolveProfile applies the precedence rule: explicit name, then the
// session pointer, then the registry default.
func (a *App) resolveProfile(explicitName string) (string, registry.Profile, error) {
	sessionName, _ := a.Session.Active()
	return a.Registry.Resolve(explicitName, sessionName)
}

// dumpDirectory returns the effective dumps directory: the persisted
// settings override wins over the configured default.
func (a *App) dumpDirectory() string {
	if dir := a.Registry.Settings().DumpDirectory; dir != "" {
		return dir
	}
	return config.CFG.DumpDirectory
}

// SetDumpDirectory persists a dumps-directory override in the registry
// document. An empty value clears the override back to the configured
// default.
func (a *App) SetDumpDirectory(dir string) error {
	settings := a.Registry.Settings()
	settings.DumpDirectory = dir
	return a.Registry.UpdateSettings(settings)
}

// DumpDirectory returns the effective dumps directory.
func (a *App) DumpDirectory() string {
	return a.dumpDirectory()
}

// uploader returns the optional offsite uploader, or nil when S3 copies are
// disabled or misconfigured.
func (a *App) uploader() *s3.Client {
	if !config.CFG.S3.Enabled {
		return nil
	}

	client, err := s3.NewClient()
	if err != nil {
		logrus.Warnf("S3 offsite copies disabled: %v", err)
		return nil
	}
	return client
}
