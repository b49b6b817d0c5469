// Package validator resolves template sources on disk and checks them with the engine.
package validator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/questline/pkg/adapters/loam"
	"github.com/aretw0/questline/pkg/adapters/yamlfile"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/ports"
)

// Source is one loadable unit: a YAML/JSON file or a Loam directory.
type Source struct {
	Path   string
	Loader ports.TemplateLoader
}

// Report is the outcome of validating one loaded template.
type Report struct {
	Source   string
	Template *domain.Template
	Result   domain.ValidationResult
}

// Sources resolves path. A file is read as a template document. A directory
// holding markdown is a Loam repository; any other directory yields one source
// per template file it contains.
func Sources(path string) ([]Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !yamlfile.IsTemplateFile(path) {
			return nil, fmt.Errorf("%s: unsupported template file", path)
		}
		return []Source{{Path: path, Loader: yamlfile.NewLoader(path)}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			l, err := loam.Open(path)
			if err != nil {
				return nil, err
			}
			return []Source{{Path: path, Loader: l}}, nil
		}
		if yamlfile.IsTemplateFile(e.Name()) {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: no templates found", path)
	}

	sort.Strings(files)
	out := make([]Source, 0, len(files))
	for _, f := range files {
		out = append(out, Source{Path: f, Loader: yamlfile.NewLoader(f)})
	}
	return out, nil
}

// LoadPath returns every template found under path.
func LoadPath(ctx context.Context, path string) ([]*domain.Template, error) {
	sources, err := Sources(path)
	if err != nil {
		return nil, err
	}
	var out []*domain.Template
	for _, src := range sources {
		tpls, err := src.Loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, tpls...)
	}
	return out, nil
}

// ValidatePath loads path and validates each template. Load failures abort;
// validation failures are reported.
func ValidatePath(ctx context.Context, eng ports.GraphEngine, path string) ([]Report, error) {
	sources, err := Sources(path)
	if err != nil {
		return nil, err
	}

	var reports []Report
	for _, src := range sources {
		tpls, err := src.Loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tpls {
			reports = append(reports, Report{Source: src.Path, Template: t, Result: eng.Validate(t)})
		}
	}
	return reports, nil
}

// Invalid counts the reports with hard errors.
func Invalid(reports []Report) int {
	n := 0
	for _, r := range reports {
		if !r.Result.Valid() {
			n++
		}
	}
	return n
}
