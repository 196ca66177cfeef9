package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/GoPGVault/pkg/registry"
)

// Connect verifies the named profile is reachable, marks it as the session's
// active connection and records the connection time.
func (a *App) Connect(ctx context.Context, name string) error {
	profile, err := a.Registry.Get(name)
	if err != nil {
		return err
	}

	switch profile.Type {
	case registry.TypePostgres:
		admin, err := a.OpenAdmin(ctx, profile)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", name, err)
		}
		// The probe connection is not kept; commands open their own handle.
		if err := admin.Close(); err != nil {
			logrus.Warnf("Failed to close probe connection: %v", err)
		}
	case registry.TypeSQLite:
		// File-based engines have no server to probe.
	default:
		return fmt.Errorf("unknown connection type %q", profile.Type)
	}

	if err := a.Registry.TouchLastUsed(name); err != nil {
		return err
	}

	return a.Session.Set(name)
}

// Disconnect clears the session pointer without touching saved profiles.
func (a *App) Disconnect() error {
	return a.Session.Clear()
}

// AddConnection registers a new named profile.
func (a *App) AddConnection(name string, profile registry.Profile) error {
	return a.Registry.Add(name, profile)
}

// RemoveConnection deletes a profile. A session pointing at the removed
// profile is cleared so it cannot dangle on a name we know is gone.
func (a *App) RemoveConnection(name string) error {
	if err := a.Registry.Remove(name); err != nil {
		return err
	}

	if active, ok := a.Session.Active(); ok && active == name {
		return a.Session.Clear()
	}
	return nil
}

// RenameConnection renames a profile, carrying the session pointer along.
func (a *App) RenameConnection(oldName, newName string) error {
	if err := a.Registry.Rename(oldName, newName); err != nil {
		return err
	}

	if active, ok := a.Session.Active(); ok && active == oldName {
		return a.Session.Set(newName)
	}
	return nil
}

// SetDefaultConnection marks a profile as the fallback when neither an
// explicit name nor a session pointer is given.
func (a *App) SetDefaultConnection(name string) error {
	return a.Registry.SetDefault(name)
}

// ListConnections returns all profiles, most recently used first.
func (a *App) ListConnections() []registry.NamedProfile {
	return a.Registry.ListSortedByRecency()
}

// ActiveConnection reports the resolved connection for display purposes.
func (a *App) ActiveConnection() (string, registry.Profile, error) {
	return a.resolveProfile("")
}
