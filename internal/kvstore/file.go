package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"danmu/internal/logging"
)

// File keeps records in memory and mirrors them to a JSON file. A missing or
// unreadable file starts the store empty.
type File struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// OpenFile loads path if it exists. An empty path yields a store that never
// persists.
func OpenFile(path string, logger *slog.Logger) *File {
	logger = logging.NewComponentLogger(logger, "kvstore")
	f := &File{
		path:    path,
		logger:  logger,
		records: make(map[string]Record),
		now:     time.Now,
	}
	if path == "" {
		return f
	}
	if err := f.load(); err != nil {
		logger.Warn("failed to load cache file",
			logging.String(logging.FieldEventType, "kvstore_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "cached search and comment results are refetched"))
	}
	return f
}

func (f *File) Get(_ context.Context, key string) (Record, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	record, ok := f.records[key]
	return record, ok, nil
}

func (f *File) Put(_ context.Context, key string, value []byte) (bool, error) {
	record := newRecord(key, value, f.now())
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.records[key]; ok && existing.Hash == record.Hash {
		return false, nil
	}
	f.records[key] = record
	if err := f.save(); err != nil {
		return true, fmt.Errorf("persist cache: %w", err)
	}
	return true, nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[key]; !ok {
		return nil
	}
	delete(f.records, key)
	if err := f.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

func (f *File) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = make(map[string]Record)
	if err := f.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	f.logger.Debug("cleared cache file", logging.String("path", f.path))
	return nil
}

func (f *File) Count(context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records), nil
}

func (f *File) Close() error { return nil }

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	f.records = make(map[string]Record, len(records))
	for _, record := range records {
		if record.Key == "" {
			continue
		}
		f.records[record.Key] = record
	}
	f.logger.Debug("loaded cache file",
		logging.Int("entry_count", len(f.records)),
		logging.String("path", f.path))
	return nil
}

// save writes the records atomically via a temp file.
func (f *File) save() error {
	if f.path == "" {
		return nil
	}
	records := make([]Record, 0, len(f.records))
	for _, record := range f.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
