// Package api exposes device sessions over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/spawn"
)

// Sessions is the device-facing session surface (implemented by session.Manager).
type Sessions interface {
	ReportLocation(deviceID string, fix model.LocationFix) error
	ReportUnavailable(deviceID string) error
	Snapshot(deviceID string) (spawn.Snapshot, error)
	MarkImageLoaded(deviceID, key string) error
	Catch(ctx context.Context, deviceID, key string) (model.Catch, error)
	Catches(ctx context.Context, deviceID string, limit int) ([]model.Catch, error)
	Close(deviceID string) error
}

// Catalog lists the species known to the lookup service.
type Catalog interface {
	ListPokemon(ctx context.Context, limit, offset int) (*model.SpeciesPage, error)
}

// NewRouter wires the device routes. catalog may be nil, in which case
// /catalog is not served.
func NewRouter(sessions Sessions, catalog Catalog) *mux.Router {
	h := &handlers{sessions: sessions, catalog: catalog}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)

	r.HandleFunc("/devices/{device}", h.closeSession).Methods(http.MethodDelete)

	d := r.PathPrefix("/devices/{device}").Subrouter()
	d.HandleFunc("/location", h.reportLocation).Methods(http.MethodPost)
	d.HandleFunc("/spawns", h.snapshot).Methods(http.MethodGet)
	d.HandleFunc("/spawns/{key}/image-loaded", h.imageLoaded).Methods(http.MethodPost)
	d.HandleFunc("/spawns/{key}/catch", h.catch).Methods(http.MethodPost)
	d.HandleFunc("/catches", h.catches).Methods(http.MethodGet)

	if catalog != nil {
		r.HandleFunc("/catalog", h.listCatalog).Methods(http.MethodGet)
	}
	return r
}
