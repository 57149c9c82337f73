package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jfoltran/uiregistry/internal/registry"
)

type registryHandlers struct {
	catalog *registry.Catalog
}

func (rh *registryHandlers) index(w http.ResponseWriter, r *http.Request) {
	doc, err := rh.catalog.Index()
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, "Registry index not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to read registry index")
	default:
		writeJSON(w, http.StatusOK, doc)
	}
}

func (rh *registryHandlers) manifest(w http.ResponseWriter, r *http.Request) {
	style := r.PathValue("style")
	component, ok := strings.CutSuffix(r.PathValue("file"), ".json")
	if !ok {
		notFound(w, r)
		return
	}

	doc, err := rh.catalog.Manifest(style, component)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Component %q not found in style %q", component, style))
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to read component manifest")
	default:
		writeJSON(w, http.StatusOK, doc)
	}
}

func (rh *registryHandlers) source(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("path")
	data, err := rh.catalog.Source(p)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, "File not found: "+p)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to read file")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write(data)
	}
}

func (rh *registryHandlers) colors(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".json")
	if !ok {
		notFound(w, r)
		return
	}
	doc, err := rh.catalog.Colors(r.PathValue("base"), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read colors")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
