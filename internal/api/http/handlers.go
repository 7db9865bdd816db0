package apihttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"seedvault/internal/domain"
	"seedvault/internal/metrics"
	"seedvault/internal/policy"
	"seedvault/internal/selector"
	"seedvault/internal/usecase"
)

// handlePlan computes the eviction plan from a fresh snapshot. The plan is
// advisory: the reclaimer re-checks pin status before acting on any item.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	snap, err := usecase.TakeSnapshot(r.Context(), s.feed, s.meta)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	plan, err := usecase.BuildPlan{Policy: s.policy, Logger: s.logger}.Execute(s.now(), snap)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	if plan.Items == nil {
		plan.Items = []domain.PlanItem{}
	}
	writeJSON(w, http.StatusOK, plan)
}

type evaluateResponse struct {
	InfoHash domain.InfoHash `json:"infoHash"`
	Pinned   bool            `json:"pinned"`
	Priority float64         `json:"priority"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	hash, ok := pathTail(r.URL.Path, "/api/v1/evaluate/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing infohash")
		return
	}
	ih := domain.InfoHash(hash)
	status, err := s.feed.Get(r.Context(), ih)
	if err != nil {
		writeFeedError(w, err)
		return
	}
	meta, err := s.meta.Get(r.Context(), ih)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// No metadata record means no management authority: pinned.
			writeJSON(w, http.StatusOK, evaluateResponse{InfoHash: ih, Pinned: true})
			return
		}
		writeStoreError(w, err)
		return
	}
	ev, err := policy.Evaluate(s.now(), s.policy, status, meta)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{InfoHash: ih, Pinned: ev.Pinned, Priority: ev.Priority})
}

type selectRequest struct {
	Entries []domain.TorrentEntry `json:"entries"`
	// SeedersCap overrides the configured cap for this request when positive.
	SeedersCap int `json:"seedersCap,omitempty"`
}

type selectResponse struct {
	Chosen domain.TorrentEntry `json:"chosen"`
}

func (s *Server) handleSelectBest(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelectRequest(w, r)
	if !ok {
		return
	}
	keyer := s.keyer
	if req.SeedersCap > 0 {
		override, err := selector.NewHeuristicKeyer(selector.TableKeyer{
			Container:  s.policy.Selection.Container,
			Resolution: s.policy.Selection.Resolution,
			Source:     s.policy.Selection.Source,
		}, req.SeedersCap)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		keyer = override
	}
	chosen, err := selector.BestWithHeuristics(keyer, req.Entries)
	if err != nil {
		writeSelectError(w, err)
		return
	}
	metrics.SelectionsTotal.WithLabelValues("best").Inc()
	writeJSON(w, http.StatusOK, selectResponse{Chosen: chosen})
}

func (s *Server) handleSelectMostSeeds(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelectRequest(w, r)
	if !ok {
		return
	}
	chosen, err := selector.MostSeeds(req.Entries)
	if err != nil {
		writeSelectError(w, err)
		return
	}
	metrics.SelectionsTotal.WithLabelValues("most_seeds").Inc()
	writeJSON(w, http.StatusOK, selectResponse{Chosen: chosen})
}

func decodeSelectRequest(w http.ResponseWriter, r *http.Request) (selectRequest, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return selectRequest{}, false
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return selectRequest{}, false
	}
	return req, true
}

type metaRequest struct {
	Managed    bool       `json:"managed"`
	AccessedAt *time.Time `json:"accessedAt,omitempty"`
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/api/v1/meta/")
	if tail == "" || tail == r.URL.Path {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing infohash")
		return
	}
	segments := strings.Split(tail, "/")
	ih := domain.InfoHash(segments[0])

	switch {
	case len(segments) == 1 && r.Method == http.MethodGet:
		s.getMeta(w, r, ih)
	case len(segments) == 1 && r.Method == http.MethodPut:
		s.putMeta(w, r, ih)
	case len(segments) == 2 && segments[1] == "touch" && r.Method == http.MethodPost:
		s.touchMeta(w, r, ih)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (s *Server) getMeta(w http.ResponseWriter, r *http.Request, ih domain.InfoHash) {
	meta, err := s.meta.Get(r.Context(), ih)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) putMeta(w http.ResponseWriter, r *http.Request, ih domain.InfoHash) {
	var req metaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	meta := domain.Meta{InfoHash: ih, Managed: req.Managed}
	if req.AccessedAt != nil {
		meta.AccessedAt = req.AccessedAt.UTC()
	} else {
		meta.AccessedAt = s.now().UTC()
	}
	if err := s.meta.Upsert(r.Context(), meta); err != nil {
		writeStoreError(w, err)
		return
	}
	s.logger.Info("meta updated",
		slog.String("infoHash", string(ih)),
		slog.Bool("managed", meta.Managed),
	)
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) touchMeta(w http.ResponseWriter, r *http.Request, ih domain.InfoHash) {
	at := s.now().UTC()
	if err := s.meta.Touch(r.Context(), ih, at); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"infoHash": ih, "accessedAt": at})
}
