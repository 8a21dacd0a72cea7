package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/vango-go/asana-coach/pkg/coach/apierror"
	"github.com/vango-go/asana-coach/pkg/coach/catalog"
	"github.com/vango-go/asana-coach/pkg/coach/mw"
)

// PosesHandler lists the routines a client can start.
type PosesHandler struct{}

func (h PosesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		reqID, _ := mw.RequestIDFrom(r.Context())
		apierror.Write(w, http.StatusMethodNotAllowed, reqID, &apierror.Error{Type: apierror.ErrInvalidRequest, Message: "method not allowed", Code: "method_not_allowed"})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Routines []catalog.Routine `json:"routines"`
	}{Routines: catalog.Routines()})
}

type resolvedPose struct {
	Pose  catalog.PoseID `json:"pose"`
	Name  string         `json:"name"`
	Title string         `json:"title"`
}

// ResolveHandler previews the sequence an init message would start:
// GET /v1/poses/resolve?mode=single&asana_ids=7.
type ResolveHandler struct{}

func (h ResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodGet {
		apierror.Write(w, http.StatusMethodNotAllowed, reqID, &apierror.Error{Type: apierror.ErrInvalidRequest, Message: "method not allowed", Code: "method_not_allowed"})
		return
	}

	q := r.URL.Query()
	mode := strings.TrimSpace(q.Get("mode"))
	if mode == "" {
		apierror.Write(w, http.StatusBadRequest, reqID, &apierror.Error{Type: apierror.ErrInvalidRequest, Message: "mode is required", Param: "mode"})
		return
	}
	ids, err := parseIDList(q.Get("asana_ids"))
	if err != nil {
		apierror.Write(w, http.StatusBadRequest, reqID, &apierror.Error{Type: apierror.ErrInvalidRequest, Message: "asana_ids must be a comma-separated list of integers", Param: "asana_ids"})
		return
	}

	seq, err := catalog.ResolveSequence(mode, ids)
	if err != nil {
		apierror.WriteFromError(w, reqID, err)
		return
	}

	out := make([]resolvedPose, 0, len(seq))
	for _, p := range seq {
		out = append(out, resolvedPose{Pose: p, Name: p.DisplayName(), Title: p.Title()})
	}
	writeJSON(w, http.StatusOK, struct {
		Mode        string         `json:"mode"`
		RoutineName string         `json:"routine_name,omitempty"`
		Poses       []resolvedPose `json:"poses"`
	}{
		Mode:        strings.ToLower(mode),
		RoutineName: routineNameFor(mode, q.Get("routine_name")),
		Poses:       out,
	})
}

func routineNameFor(mode, name string) string {
	m, err := catalog.ParseMode(mode)
	if err != nil || m != catalog.ModeRoutine {
		return ""
	}
	return catalog.RoutineName(name)
}

func parseIDList(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
