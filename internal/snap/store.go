package snap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// Store is a directory of snapshot files, one per inventory run, named after
// the run's start timestamp. Because the names are RFC 3339, reverse
// lexicographic order equals reverse chronological order.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// List returns the names of all snapshot files, newest first.
// Subdirectories and other non-regular entries are skipped.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Read loads the named snapshot and validates it.
func (st *Store) Read(name string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(st.dir, name))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	snapshot := new(Snapshot)
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("unmarshalling snapshot %s: %w", name, err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	return snapshot, nil
}

// Write persists a snapshot as <start>.json, writing to a temp file first and
// renaming so readers never observe a partial snapshot.
func (st *Store) Write(snapshot *Snapshot) (string, error) {
	if err := snapshot.Validate(); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}

	name := snapshot.Metadata.Start + ".json"
	path := filepath.Join(st.dir, name)
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("renaming snapshot into place: %w", err)
	}
	return name, nil
}
