package commands

import (
	"github.com/supporttools/GoPGVault/pkg/history"
)

// HistoryList returns recorded operations, optionally filtered by type and
// truncated, newest first.
func (a *App) HistoryList(operationType string, limit int) []history.Entry {
	return a.Registry.History().Query(operationType, limit)
}

// HistoryDelete soft-deletes the entry matching an ID or file path and
// reports whether anything matched.
func (a *App) HistoryDelete(idOrPath string) (bool, error) {
	return a.Registry.History().SoftDelete(idOrPath)
}

// HistoryClear removes entries of the given operation type (empty clears
// all) and returns the removed count.
func (a *App) HistoryClear(operationType string) (int, error) {
	return a.Registry.History().Clear(operationType)
}
