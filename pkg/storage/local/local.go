// Package local manages the dumps directory on the local filesystem.
package local

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// dumpExtensions are the artifact extensions recognized in the dumps
// directory.
var dumpExtensions = map[string]bool{
	".dump": true,
	".dmp":  true,
	".sql":  true,
	".gz":   true,
	".tar":  true,
}

// IsDumpArtifact reports whether a file name carries a recognized dump
// extension.
func IsDumpArtifact(name string) bool {
	return dumpExtensions[strings.ToLower(filepath.Ext(name))]
}

// Client represents a dumps directory
type Client struct {
	Directory string
}

// NewClient creates a client for the given dumps directory
func NewClient(directory string) *Client {
	return &Client{Directory: directory}
}

// EnsurePath ensures the dumps directory exists
func (c *Client) EnsurePath() error {
	if err := os.MkdirAll(c.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create dumps directory %s: %w", c.Directory, err)
	}
	return nil
}

// ArtifactPath returns the full path for a dump file, creating the
// directory if needed.
func (c *Client) ArtifactPath(fileName string) (string, error) {
	if err := c.EnsurePath(); err != nil {
		return "", err
	}
	return filepath.Join(c.Directory, fileName), nil
}

// ListArtifacts returns the dump files in the directory, sorted by name.
func (c *Client) ListArtifacts() ([]string, error) {
	entries, err := os.ReadDir(c.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read dumps directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsDumpArtifact(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	return files, nil
}

// ArtifactSize returns the on-disk size of a dump artifact.
func (c *Client) ArtifactSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat dump file: %w", err)
	}
	return info.Size(), nil
}
