package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/sld-insights/internal/aggregate"
	"github.com/sells-group/sld-insights/internal/dashboard"
	"github.com/sells-group/sld-insights/internal/loader"
	"github.com/sells-group/sld-insights/internal/model"
	"github.com/sells-group/sld-insights/internal/render"
	"github.com/sells-group/sld-insights/internal/store"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"records": len(s.ds.Records),
		"store":   "disabled",
	}
	code := http.StatusOK
	if s.store != nil {
		body["store"] = "ok"
		if err := s.store.Ping(r.Context()); err != nil {
			s.log.Warn("store ping failed", zap.Error(err))
			body["status"], body["store"] = "degraded", "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, body)
}

func (s *Server) metros(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"metros":   dashboard.Metros(s.ds),
		"defaults": loader.NewSelection(s.cfg.DefaultMetros...).Metros,
	})
}

func (s *Server) topMetros(w http.ResponseWriter, r *http.Request) {
	n := aggregate.DefaultTopMetros
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		n = v
	}
	writeJSON(w, http.StatusOK, dashboard.TopMetros(s.ds, n))
}

func (s *Server) correlation(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Correlate(sel.Apply(s.ds.Records), nil))
}

func (s *Server) flow(w http.ResponseWriter, r *http.Request) {
	opts := s.cfg.Options.Flow
	q := r.URL.Query()
	if raw := q.Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "threshold must be a non-negative number")
			return
		}
		opts.Threshold = v
	}
	if raw := q.Get("tie_break"); raw != "" {
		policy, err := aggregate.ParseTieBreak(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.TieBreak = policy
	}

	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Flow(sel.Apply(s.ds.Records), opts))
}

// statesResponse is the choropleth payload.
type statesResponse struct {
	Metric   model.Metric            `json:"metric"`
	Averages aggregate.StateAverages `json:"averages"`
	Domain   [2]float64              `json:"domain"`
	Palette  []string                `json:"palette"`
	Colors   map[string]string       `json:"colors"`
	Rows     []model.StateRow        `json:"rows"`
}

func (s *Server) states(w http.ResponseWriter, r *http.Request) {
	metric := model.Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = s.cfg.Options.StateMetric
	}
	if metric == "" {
		metric = model.Walkability
	}

	avgs := aggregate.AverageByState(s.ds.Records, metric)
	lo, hi := avgs.Domain()
	colors := make(map[string]string, len(avgs))
	for code := range avgs {
		colors[code] = avgs.Color(code)
	}
	writeJSON(w, http.StatusOK, statesResponse{
		Metric:   metric,
		Averages: avgs,
		Domain:   [2]float64{lo, hi},
		Palette:  aggregate.ChoroplethPalette,
		Colors:   colors,
		Rows:     avgs.Rows(metric),
	})
}

func (s *Server) sustainability(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dashboard.Sustainability(s.ds))
}

func (s *Server) scatter(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	records := sel.Apply(s.ds.Records)
	writeJSON(w, http.StatusOK, aggregate.Scatter(records, model.Metric(q.Get("x")), model.Metric(q.Get("y"))))
}

func (s *Server) bundle(w http.ResponseWriter, r *http.Request) (dashboard.Bundle, bool) {
	sel, ok := s.selection(w, r)
	if !ok {
		return dashboard.Bundle{}, false
	}
	return dashboard.Build(s.ds, sel, s.cfg.Options), true
}

func (s *Server) fullDashboard(w http.ResponseWriter, r *http.Request) {
	b, ok := s.bundle(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	theme := render.ParseTheme(r.URL.Query().Get("theme"))
	b, ok := s.bundle(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := dashboard.RenderChart(&buf, b, chi.URLParam(r, "chart"), theme, s.cfg.RenderSize)
	if errors.Is(err, dashboard.ErrUnknownChart) {
		writeError(w, http.StatusNotFound, "unknown chart")
		return
	}
	if err != nil {
		s.log.Error("render chart failed", zap.String("chart", chi.URLParam(r, "chart")), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type createSnapshotRequest struct {
	Metros []string `json:"metros"`
	All    bool     `json:"all"`
}

// snapshotResponse is a stored snapshot with its state rows and top metros.
type snapshotResponse struct {
	*model.Snapshot
	States    []model.StateRow  `json:"states"`
	TopMetros []model.MetroStat `json:"top_metros,omitempty"`
}

func (s *Server) createSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	var req createSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sel := loader.NewSelection(req.Metros...)
	switch {
	case req.All:
		sel = loader.NewSelection()
	case req.Metros == nil:
		sel = loader.NewSelection(s.cfg.DefaultMetros...)
	}

	snap, rows, err := dashboard.SaveSnapshot(r.Context(), s.store, s.ds, sel, s.cfg.Options)
	if err != nil {
		s.log.Error("create snapshot failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create snapshot")
		return
	}
	writeJSON(w, http.StatusCreated, snapshotResponse{Snapshot: snap, States: rows})
}

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	snaps, err := s.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.log.Error("list snapshots failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	id := chi.URLParam(r, "id")
	snap, err := s.store.GetSnapshot(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	if err != nil {
		s.log.Error("get snapshot failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get snapshot")
		return
	}

	rows, err := s.store.ListStateAverages(r.Context(), id)
	if err != nil {
		s.log.Error("list snapshot states failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get snapshot")
		return
	}
	top, err := s.store.ListMetroStats(r.Context(), id)
	if err != nil {
		s.log.Error("list snapshot metros failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get snapshot")
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Snapshot: snap, States: rows, TopMetros: top})
}
