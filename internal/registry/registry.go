// Package registry models a shadcn-style component registry: the source
// description in registry.json, the built index and per-component
// manifests, and read access to them for the HTTP server.
package registry

import "errors"

// SchemaURL is written as "$schema" in every manifest.
const SchemaURL = "https://ui.shadcn.com/schema/registry-item.json"

// DefaultStyle is the style directory used when none is given.
const DefaultStyle = "default"

// SourceFile is the registry description file at the root of a source tree.
const SourceFile = "registry.json"

// SourceDir holds the component sources inside a source tree. It is the
// root of the /r/registry/ route.
const SourceDir = "registry"

var (
	ErrNotFound = errors.New("registry: not found")
	ErrInvalid  = errors.New("registry: invalid document")
)

// File is one file belonging to a component. Content is only set in
// manifests.
type File struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Item describes one installable component.
type Item struct {
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Title                string   `json:"title,omitempty"`
	Description          string   `json:"description,omitempty"`
	Dependencies         []string `json:"dependencies,omitempty"`
	RegistryDependencies []string `json:"registryDependencies,omitempty"`
	Files                []File   `json:"files"`
}

// Index is both the shape of registry.json and of the published
// r/index.json.
type Index struct {
	Schema   string `json:"$schema,omitempty"`
	Name     string `json:"name"`
	Homepage string `json:"homepage,omitempty"`
	Items    []Item `json:"items"`
}

// Manifest is a published component with file contents inlined.
type Manifest struct {
	Schema string `json:"$schema"`
	Item
}

// Find returns the index item called name.
func (ix *Index) Find(name string) (Item, bool) {
	for _, it := range ix.Items {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}
