// Package history manages the append-only ledger of dump and restore
// operations. Entries live inside the persisted registry document; the ledger
// operates on that slice and saves through a callback supplied by its owner.
package history

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operation types recorded in the ledger.
const (
	OperationDump    = "dump"
	OperationRestore = "restore"
)

// Entry statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Entry represents one recorded dump or restore attempt. Entries are never
// mutated after append except for the soft-delete marker.
type Entry struct {
	ID             string     `json:"id"`
	OperationType  string     `json:"operationType"`
	Timestamp      time.Time  `json:"timestamp"`
	Database       string     `json:"database"`
	ConnectionName string     `json:"connectionName"`
	FilePath       string     `json:"filePath"`
	FileSize       int64      `json:"fileSize"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	Deleted        bool       `json:"deleted,omitempty"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// Ledger provides ledger operations over an externally owned entry slice.
// The slice is kept newest-first so reads never re-sort.
type Ledger struct {
	entries *[]Entry
	save    func() error
	now     func() time.Time
}

// NewLedger creates a ledger over entries. save is invoked after every
// mutation; now may be nil and defaults to time.Now.
func NewLedger(entries *[]Entry, save func() error, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{entries: entries, save: save, now: now}
}

// Append assigns the entry a unique ID and timestamp, prepends it to the
// ledger and persists. The stored entry is returned.
func (l *Ledger) Append(entry Entry) (Entry, error) {
	entry.ID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	*l.entries = append([]Entry{entry}, *l.entries...)

	if err := l.save(); err != nil {
		return Entry{}, err
	}

	return entry, nil
}

// Query returns entries filtered by operation type (empty matches all) and
// truncated to limit (0 means unlimited), preserving newest-first order.
func (l *Ledger) Query(operationType string, limit int) []Entry {
	var result []Entry

	for _, entry := range *l.entries {
		if operationType != "" && entry.OperationType != operationType {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) == limit {
			break
		}
	}

	return result
}

// FindByID returns the entry with the given ID.
func (l *Ledger) FindByID(id string) (Entry, bool) {
	for _, entry := range *l.entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}

// FindByFilePath returns the first (newest) entry whose file path matches.
func (l *Ledger) FindByFilePath(path string) (Entry, bool) {
	for _, entry := range *l.entries {
		if entry.FilePath == path {
			return entry, true
		}
	}
	return Entry{}, false
}

// SoftDelete marks the entry matching the given ID or file path as deleted.
// It reports false without persisting when nothing matched.
func (l *Ledger) SoftDelete(idOrPath string) (bool, error) {
	entries := *l.entries
	for i := range entries {
		if entries[i].ID != idOrPath && entries[i].FilePath != idOrPath {
			continue
		}
		deletedAt := l.now()
		entries[i].Deleted = true
		entries[i].DeletedAt = &deletedAt

		if err := l.save(); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

// Clear physically removes entries matching the operation type (empty clears
// everything) and returns how many were removed.
func (l *Ledger) Clear(operationType string) (int, error) {
	kept := make([]Entry, 0, len(*l.entries))
	removed := 0

	for _, entry := range *l.entries {
		if operationType == "" || entry.OperationType == operationType {
			removed++
			continue
		}
		kept = append(kept, entry)
	}

	if removed == 0 {
		return 0, nil
	}

	*l.entries = kept
	if err := l.save(); err != nil {
		return 0, err
	}

	return removed, nil
}

// SuccessfulDumps returns non-deleted successful dump entries, newest-first,
// optionally truncated.
func (l *Ledger) SuccessfulDumps(limit int) []Entry {
	var result []Entry

	for _, entry := range *l.entries {
		if entry.OperationType != OperationDump || entry.Status != StatusSuccess || entry.Deleted {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) == limit {
			break
		}
	}

	return result
}

// Describe returns a short human-readable summary of an entry, used by
// selection prompts.
func Describe(entry Entry) string {
	parts := []string{
		entry.Timestamp.Format("2006-01-02 15:04:05"),
		entry.Database,
		entry.FilePath,
	}
	return strings.Join(parts, "  ")
}
