package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Output is the result of Build.
type Output struct {
	Style     string
	Index     Index
	Manifests []Manifest
}

// Build reads SourceFile from src and produces the published index and one
// manifest per item, with each file's content read from src.
func Build(src fs.FS, style string) (*Output, error) {
	if style == "" {
		style = DefaultStyle
	}
	if !validSegment(style) {
		return nil, fmt.Errorf("%w: style %q", ErrInvalid, style)
	}

	data, err := fs.ReadFile(src, SourceFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", SourceFile, err)
	}
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, SourceFile, err)
	}

	var errs []error
	seen := make(map[string]bool, len(ix.Items))
	out := &Output{Style: style, Index: Index{
		Schema:   "https://ui.shadcn.com/schema/registry.json",
		Name:     ix.Name,
		Homepage: ix.Homepage,
		Items:    make([]Item, 0, len(ix.Items)),
	}}

	for _, it := range ix.Items {
		switch {
		case !validSegment(it.Name):
			errs = append(errs, fmt.Errorf("item %q: invalid name", it.Name))
			continue
		case seen[it.Name]:
			errs = append(errs, fmt.Errorf("item %q: duplicate name", it.Name))
			continue
		case len(it.Files) == 0:
			errs = append(errs, fmt.Errorf("item %q: no files", it.Name))
			continue
		}
		seen[it.Name] = true

		m := Manifest{Schema: SchemaURL, Item: it}
		m.Files = make([]File, 0, len(it.Files))
		listed := make([]File, 0, len(it.Files))
		for _, f := range it.Files {
			p := path.Clean(f.Path)
			if !fs.ValidPath(p) {
				errs = append(errs, fmt.Errorf("item %q: invalid file path %q", it.Name, f.Path))
				continue
			}
			content, err := fs.ReadFile(src, p)
			if err != nil {
				errs = append(errs, fmt.Errorf("item %q: %w", it.Name, err))
				continue
			}
			listed = append(listed, File{Path: f.Path, Type: f.Type})
			m.Files = append(m.Files, File{Path: f.Path, Type: f.Type, Content: string(content)})
		}

		it.Files = listed
		out.Index.Items = append(out.Index.Items, it)
		out.Manifests = append(out.Manifests, m)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return out, nil
}

// WriteDir writes r/index.json and r/styles/<style>/<name>.json below dir.
func (o *Output) WriteDir(dir string) error {
	styleDir := filepath.Join(dir, "r", "styles", o.Style)
	if err := os.MkdirAll(styleDir, 0o755); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(dir, "r", "index.json"), o.Index); err != nil {
		return err
	}
	for _, m := range o.Manifests {
		if err := writeJSONFile(filepath.Join(styleDir, m.Name+".json"), m); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(name), err)
	}
	data = append(data, '\n')
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, name)
}

// validSegment reports whether s can be used as a single path element.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && fs.ValidPath(s) && path.Base(s) == s
}
