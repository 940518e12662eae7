// Package store provides the file and SQLite backed event-log stores.
package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilianp07/busalloc/core/sim"
)

// JSONLStore keeps one newline-delimited JSON file per run in a directory.
type JSONLStore struct {
	dir string
}

// NewJSONLStore creates the directory if needed.
func NewJSONLStore(dir string) (*JSONLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JSONLStore{dir: dir}, nil
}

func (s *JSONLStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".jsonl")
}

// SaveEvents writes the log, one event per line.
func (s *JSONLStore) SaveEvents(ctx context.Context, runID string, events sim.EventLog) error {
	if _, err := os.Stat(s.path(runID)); err == nil {
		return fmt.Errorf("run %s already stored", runID)
	}
	f, err := os.Create(s.path(runID))
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return err
		}
		if err := enc.Encode(ev); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadEvents reads the log back in file order, which is the canonical order.
func (s *JSONLStore) LoadEvents(ctx context.Context, runID string) (sim.EventLog, error) {
	f, err := os.Open(s.path(runID))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	defer func() { _ = f.Close() }()

	var out sim.EventLog
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var ev sim.SimulationEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		out = append(out, ev)
	}
	return out, sc.Err()
}

// Runs lists stored run IDs sorted lexicographically.
func (s *JSONLStore) Runs(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".jsonl"); ok {
			ids = append(ids, name)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the file store.
func (s *JSONLStore) Close() error { return nil }
