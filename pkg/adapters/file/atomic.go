package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const seqFile = "seq"

// jsonDir stores one JSON document per integer ID in a directory.
// The mutex serializes writers within a process only; the file stores are meant
// for single-process (CLI) use.
type jsonDir[T any] struct {
	path     string
	notFound error
	mu       *sync.Mutex
}

func newJSONDir[T any](path string, notFound error) jsonDir[T] {
	return jsonDir[T]{path: path, notFound: notFound, mu: &sync.Mutex{}}
}

func (d jsonDir[T]) file(id int) string {
	return filepath.Join(d.path, strconv.Itoa(id)+".json")
}

// save writes v atomically: temp file, fsync, rename.
func (d jsonDir[T]) save(id int, v *T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %d: %w", id, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return writeAtomic(d.path, d.file(id), data)
}

func (d jsonDir[T]) load(id int) (*T, error) {
	data, err := os.ReadFile(d.file(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, d.notFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", d.file(id), err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", d.file(id), err)
	}
	return &v, nil
}

func (d jsonDir[T]) delete(id int) error {
	err := os.Remove(d.file(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", d.file(id), err)
	}
	return nil
}

func (d jsonDir[T]) list() ([]int, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", d.path, err)
	}

	ids := []int{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue // Not one of ours (e.g. leftover temp file)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// nextID bumps the counter file. It never hands out an ID lower than an
// existing document, so directories populated by hand keep working.
func (d jsonDir[T]) nextID() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	last := 0
	data, err := os.ReadFile(filepath.Join(d.path, seqFile))
	switch {
	case err == nil:
		last, err = strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return 0, fmt.Errorf("corrupt sequence file in %s: %w", d.path, err)
		}
	case !os.IsNotExist(err):
		return 0, fmt.Errorf("failed to read sequence file: %w", err)
	}

	ids, err := d.list()
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		last = max(last, ids[len(ids)-1])
	}

	next := last + 1
	if err := writeAtomic(d.path, filepath.Join(d.path, seqFile), []byte(strconv.Itoa(next))); err != nil {
		return 0, err
	}
	return next, nil
}

func writeAtomic(dir, destPath string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	// Same directory as the destination, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // No-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
