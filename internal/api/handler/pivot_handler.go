package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/internal/pivot"
	"go-retail-pivot/internal/store"
	"go-retail-pivot/pkg/router"
	"go-retail-pivot/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Config wires the handler to its collaborators.
type Config struct {
	Store        *store.Store
	Catalog      *pivot.Catalog // cloned per session, never mutated
	Options      []pivot.Option
	Outputs      *utils.OutputManager
	BuildTimeout time.Duration
	Log          logrus.FieldLogger
}

// Handler serves the pivot API. Each saved view gets a session holding its
// built View and expansion state.
type Handler struct {
	store   *store.Store
	catalog *pivot.Catalog
	options []pivot.Option
	outputs *utils.OutputManager
	timeout time.Duration
	log     logrus.FieldLogger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu   sync.Mutex
	spec model.ViewSpec
	view *pivot.View
}

// New creates a handler.
func New(cfg Config) *Handler {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = pivot.DefaultRetailCatalog()
	}
	timeout := cfg.BuildTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		store:    cfg.Store,
		catalog:  catalog,
		options:  cfg.Options,
		outputs:  cfg.Outputs,
		timeout:  timeout,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// RowsResponse is a flattened pivot with its column definitions.
type RowsResponse struct {
	ViewID     string                  `json:"viewId,omitempty"`
	Dimensions []model.Dimension       `json:"dimensions"`
	Measures   []model.AggregationSpec `json:"measures"`
	Rows       []pivot.DisplayRow      `json:"rows"`
	Stats      model.BuildStats        `json:"stats"`
}

// NodeRequest names a node to expand or collapse.
type NodeRequest struct {
	NodeID string `json:"nodeId"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).WithField("status", status).Error("❌ Failed to encode response")
	}
}

// statusOf maps engine and store errors onto HTTP codes.
func statusOf(err error) int {
	var pe *pivot.Error
	switch {
	case errors.Is(err, store.ErrViewNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, pivot.ErrNodeLimit):
		return http.StatusUnprocessableEntity
	case errors.As(err, &pe):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("❌ Request failed")
	}
	http.Error(w, err.Error(), status)
}

func (h *Handler) newView(spec model.ViewSpec) (*pivot.View, error) {
	v := pivot.NewView(h.catalog.Clone(), h.options...)
	if err := v.ApplySpec(spec); err != nil {
		return nil, err
	}
	return v, nil
}

func (h *Handler) rebuild(ctx context.Context, v *pivot.View) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return v.Rebuild(ctx)
}

func rowsOf(id string, v *pivot.View) RowsResponse {
	dims, aggs := v.Columns()
	rows := v.Rows()
	if rows == nil {
		rows = []pivot.DisplayRow{}
	}
	return RowsResponse{ViewID: id, Dimensions: dims, Measures: aggs, Rows: rows, Stats: v.Stats()}
}

// GetCatalog lists selectable dimensions and aggregations
// @Summary Get catalog
// @Description List dimensions and aggregations grouped by display category
// @Tags catalog
// @Produce json
// @Success 200 {array} pivot.Category "Catalog categories"
// @Router /catalog [get]
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.catalog.Categories())
}

// Pivot builds an ad-hoc pivot from posted records
// @Summary Ad-hoc pivot
// @Description Group the posted records by the view spec and return the flattened rows
// @Tags pivot
// @Accept json
// @Produce json
// @Param request body model.AdHocRequest true "Records and view spec"
// @Success 200 {object} RowsResponse "Flattened pivot"
// @Failure 400 {string} string "Invalid request payload"
// @Failure 422 {string} string "Node limit exceeded"
// @Router /pivot [post]
func (h *Handler) Pivot(w http.ResponseWriter, r *http.Request) {
	var req model.AdHocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	v, err := h.newView(req.View)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v.SetRecords(req.Records)
	if err := h.rebuild(r.Context(), v); err != nil {
		h.fail(w, err)
		return
	}
	if req.Expand == "all" {
		v.ExpandAll()
	}
	h.writeJSON(w, http.StatusOK, rowsOf("", v))
}

// CreateView saves a view spec
// @Summary Save a view
// @Description Validate and persist a pivot view spec
// @Tags views
// @Accept json
// @Produce json
// @Param view body model.ViewSpec true "View spec"
// @Success 201 {object} model.SavedView "Saved view"
// @Failure 400 {string} string "Invalid view spec"
// @Failure 500 {string} string "Internal server error"
// @Router /views [post]
func (h *Handler) CreateView(w http.ResponseWriter, r *http.Request) {
	var spec model.ViewSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if _, err := h.newView(spec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := h.store.SaveView(r.Context(), spec)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.log.WithFields(logrus.Fields{"view_id": saved.ID, "name": spec.Name}).Info("💾 View saved")
	h.writeJSON(w, http.StatusCreated, saved)
}

// ListViews lists saved views
// @Summary List views
// @Description Get every saved view, newest first
// @Tags views
// @Produce json
// @Success 200 {array} model.SavedView "Saved views"
// @Failure 500 {string} string "Internal server error"
// @Router /views [get]
func (h *Handler) ListViews(w http.ResponseWriter, r *http.Request) {
	views, err := h.store.ListViews(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// GetView fetches one saved view
// @Summary Get view
// @Description Retrieve a saved view spec
// @Tags views
// @Produce json
// @Param id path string true "View ID"
// @Success 200 {object} model.SavedView "Saved view"
// @Failure 404 {string} string "View not found"
// @Router /views/{id} [get]
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.GetView(r.Context(), router.Param(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// UpdateView replaces a saved view spec
// @Summary Update view
// @Description Replace the spec of a saved view; its session is rebuilt on next use
// @Tags views
// @Accept json
// @Produce json
// @Param id path string true "View ID"
// @Param view body model.ViewSpec true "View spec"
// @Success 200 {object} model.SavedView "Updated view"
// @Failure 400 {string} string "Invalid view spec"
// @Failure 404 {string} string "View not found"
// @Router /views/{id} [put]
func (h *Handler) UpdateView(w http.ResponseWriter, r *http.Request) {
	id := router.Param(r, "id")
	var spec model.ViewSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if _, err := h.newView(spec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.UpdateView(r.Context(), id, spec); err != nil {
		h.fail(w, err)
		return
	}
	h.drop(id)

	view, err := h.store.GetView(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// DeleteView removes a saved view
// @Summary Delete view
// @Description Delete a saved view and its session
// @Tags views
// @Param id path string true "View ID"
// @Success 204 "Deleted"
// @Failure 404 {string} string "View not found"
// @Router /views/{id} [delete]
func (h *Handler) DeleteView(w http.ResponseWriter, r *http.Request) {
	id := router.Param(r, "id")
	if err := h.store.DeleteView(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	h.drop(id)
	w.WriteHeader(http.StatusNoContent)
}

// session returns the built session of a saved view, loading its records
// and building it on first use or when refresh is set. The session is
// returned locked.
func (h *Handler) session(ctx context.Context, id string, refresh bool) (*session, error) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	if !ok {
		s = &session{}
		h.sessions[id] = s
	}
	h.mu.Unlock()

	s.mu.Lock()
	if s.view != nil && !refresh {
		return s, nil
	}
	if err := h.load(ctx, id, s); err != nil {
		s.mu.Unlock()
		h.mu.Lock()
		if h.sessions[id] == s && s.view == nil {
			delete(h.sessions, id)
		}
		h.mu.Unlock()
		return nil, err
	}
	return s, nil
}

func (h *Handler) load(ctx context.Context, id string, s *session) error {
	saved, err := h.store.GetView(ctx, id)
	if err != nil {
		return err
	}
	records, err := h.store.LoadRecords(ctx, saved.Spec.Source)
	if err != nil {
		return err
	}

	v := s.view
	if v == nil || refreshSpec(s.spec, saved.Spec) {
		if v, err = h.newView(saved.Spec); err != nil {
			return err
		}
	}
	v.SetRecords(records)
	if err := h.rebuild(ctx, v); err != nil {
		return err
	}
	s.spec = saved.Spec
	s.view = v
	return nil
}

// refreshSpec reports whether a reload must rebuild the view from scratch.
func refreshSpec(old, cur model.ViewSpec) bool {
	a, _ := json.Marshal(old)
	b, _ := json.Marshal(cur)
	return string(a) != string(b)
}

func (h *Handler) drop(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// withSession runs fn on a locked, built session and replies with its rows.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, refresh bool, fn func(*pivot.View) error) {
	id := router.Param(r, "id")
	s, err := h.session(r.Context(), id, refresh)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer s.mu.Unlock()

	if fn != nil {
		if err := fn(s.view); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, rowsOf(id, s.view))
}

// GetViewRows builds a saved view and returns its rows
// @Summary Get view rows
// @Description Load the view's records from the store, build the pivot and flatten it with the session's expansion state
// @Tags views
// @Produce json
// @Param id path string true "View ID"
// @Param refresh query bool false "Reload records and rebuild"
// @Success 200 {object} RowsResponse "Flattened pivot"
// @Failure 404 {string} string "View not found"
// @Failure 422 {string} string "Node limit exceeded"
// @Router /views/{id}/rows [get]
func (h *Handler) GetViewRows(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, r.URL.Query().Get("refresh") == "true", nil)
}

func decodeNode(r *http.Request) (string, error) {
	var req NodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", fmt.Errorf("invalid JSON payload")
	}
	if req.NodeID == "" {
		return "", fmt.Errorf("nodeId is required")
	}
	return req.NodeID, nil
}

// ExpandNode opens one group
// @Summary Expand node
// @Description Expand a group row of the view's current tree
// @Tags views
// @Accept json
// @Produce json
// @Param id path string true "View ID"
// @Param node body NodeRequest true "Node to expand"
// @Success 200 {object} RowsResponse "Flattened pivot"
// @Failure 400 {string} string "Unknown node"
// @Router /views/{id}/expand [post]
func (h *Handler) ExpandNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := decodeNode(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.withSession(w, r, false, func(v *pivot.View) error {
		return v.Expand(nodeID)
	})
}

// CollapseNode closes one group
// @Summary Collapse node
// @Description Collapse a group row of the view's current tree
// @Tags views
// @Accept json
// @Produce json
// @Param id path string true "View ID"
// @Param node body NodeRequest true "Node to collapse"
// @Success 200 {object} RowsResponse "Flattened pivot"
// @Failure 400 {string} string "Invalid request payload"
// @Router /views/{id}/collapse [post]
func (h *Handler) CollapseNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := decodeNode(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.withSession(w, r, false, func(v *pivot.View) error {
		v.Collapse(nodeID)
		return nil
	})
}

// ExpandAll opens every group
// @Summary Expand all
// @Description Expand every group of the view's current tree
// @Tags views
// @Produce json
// @Param id path string true "View ID"
// @Success 200 {object} RowsResponse "Flattened pivot"
// @Router /views/{id}/expand-all [post]
func (h *Handler) ExpandAll(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, false, func(v *pivot.View) error {
		v.ExpandAll()
		return nil
	})
}

// CollapseAll closes every group
// @Summary Collapse all
// @Description Collapse every group of the view's current tree
// @Tags views
// @Produce json
// @Param id path string true "View ID"
// @Success 200 {object} RowsResponse "Flattened pivot"
// @Router /views/{id}/collapse-all [post]
func (h *Handler) CollapseAll(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, false, func(v *pivot.View) error {
		v.CollapseAll()
		return nil
	})
}

// ExportView streams the view as CSV
// @Summary Export view
// @Description Download the view's current rows as CSV, honoring the session's expansion state
// @Tags export
// @Produce text/csv
// @Param id path string true "View ID"
// @Success 200 {string} string "CSV file"
// @Failure 404 {string} string "View not found"
// @Router /views/{id}/export [get]
func (h *Handler) ExportView(w http.ResponseWriter, r *http.Request) {
	id := router.Param(r, "id")
	s, err := h.session(r.Context(), id, false)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer s.mu.Unlock()

	name := utils.ExportFileName(s.spec.Name, "csv", time.Now())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := s.view.ExportCSV(w); err != nil {
		// headers are gone; the log carries the failure
		h.log.WithError(err).WithField("view_id", id).Error("❌ CSV stream failed")
	}
}

// SaveExport writes the view's CSV under the export directory
// @Summary Save export
// @Description Write the view's current rows to a CSV file and return its download URL
// @Tags export
// @Produce json
// @Param id path string true "View ID"
// @Success 201 {object} model.ExportResult "Export written"
// @Failure 404 {string} string "View not found"
// @Failure 500 {object} model.ExportResult "Export failed"
// @Router /views/{id}/export [post]
func (h *Handler) SaveExport(w http.ResponseWriter, r *http.Request) {
	id := router.Param(r, "id")
	s, err := h.session(r.Context(), id, false)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer s.mu.Unlock()

	result := s.view.ExportFile(h.outputs, id, s.spec.Name)
	if !result.Success {
		h.writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	h.log.WithFields(logrus.Fields{"view_id": id, "path": result.Path, "rows": result.RowCount}).Info("📄 Export saved")
	h.writeJSON(w, http.StatusCreated, result)
}

// Download serves a saved export file
// @Summary Download export
// @Description Download a CSV written by a previous export
// @Tags export
// @Produce text/csv
// @Param id path string true "View ID"
// @Param file path string true "File name"
// @Success 200 {string} string "CSV file"
// @Failure 404 {string} string "File not found"
// @Router /download/{id}/{file} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	path, err := h.outputs.ResolveDownload(router.Param(r, "id"), router.Param(r, "file"))
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, path)
}
