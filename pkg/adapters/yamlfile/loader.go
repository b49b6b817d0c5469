package yamlfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/questline/pkg/domain"
)

// Loader implements ports.TemplateLoader over files and directories.
// Directories are scanned (non-recursively) for .yaml, .yml and .json files.
type Loader struct {
	paths []string
	now   func() time.Time
}

// NewLoader creates a loader over the given paths.
func NewLoader(paths ...string) *Loader {
	return &Loader{paths: paths, now: time.Now}
}

// WithClock sets the clock used to stamp loaded templates.
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// IsTemplateFile reports whether path has a supported extension.
func IsTemplateFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Load decodes every template, in path order then file name order.
func (l *Loader) Load(ctx context.Context) ([]*domain.Template, error) {
	files, err := l.files()
	if err != nil {
		return nil, err
	}

	at := l.now()
	out := make([]*domain.Template, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tpl, err := LoadFile(path, at)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, nil
}

func (l *Loader) files() ([]string, error) {
	var files []string
	for _, p := range l.paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && IsTemplateFile(e.Name()) {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// LoadFile decodes one template file. The name defaults to the file name.
func LoadFile(path string, at time.Time) (*domain.Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if strings.TrimSpace(doc.Name) == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	tpl, err := doc.Template(at)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tpl, nil
}
