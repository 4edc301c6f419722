package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/pokeapi"
	"github.com/udisondev/geospawn/internal/session"
	"github.com/udisondev/geospawn/internal/spawn"
)

const (
	defaultCatalogLimit = 20
	maxCatalogLimit     = 200
	maxBodyBytes        = 4 << 10
)

type handlers struct {
	sessions Sessions
	catalog  Catalog
}

// LocationRequest is the body of POST /devices/{device}/location.
// Unavailable reports that the device has no location sensor.
type LocationRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Unavailable bool     `json:"unavailable"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) reportLocation(w http.ResponseWriter, r *http.Request) {
	device := mux.Vars(r)["device"]

	var req LocationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var err error
	switch {
	case req.Unavailable:
		err = h.sessions.ReportUnavailable(device)
	case req.Latitude != nil && req.Longitude != nil:
		err = h.sessions.ReportLocation(device, model.NewLocationFix(*req.Latitude, *req.Longitude))
	default:
		writeError(w, http.StatusBadRequest, "latitude and longitude required")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Snapshot(mux.Vars(r)["device"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if snap.Markers == nil {
		snap.Markers = []spawn.Marker{}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) imageLoaded(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.sessions.MarkImageLoaded(vars["device"], vars["key"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) catch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c, err := h.sessions.Catch(r.Context(), vars["device"], vars["key"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) catches(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	list, err := h.sessions.Catches(r.Context(), mux.Vars(r)["device"], limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []model.Catch{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(mux.Vars(r)["device"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listCatalog(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultCatalogLimit)
	if err != nil || limit <= 0 || limit > maxCatalogLimit {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	page, err := h.catalog.ListPokemon(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// fail maps domain errors to status codes.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *pokeapi.StatusError

	switch {
	case errors.Is(err, session.ErrInvalidLocation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, spawn.ErrUnknownSpawn):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrOutOfRange):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, spawn.ErrStopped):
		writeError(w, http.StatusGone, err.Error())
	case errors.As(err, &statusErr), errors.Is(err, model.ErrMalformed):
		slog.Warn("upstream lookup failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "upstream lookup failed")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
