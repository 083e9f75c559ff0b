package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

type recomputeRequest struct {
	Year   int    `json:"year"`
	Reason string `json:"reason"`
}

type snapshotView struct {
	ID         string          `json:"id"`
	FiscalYear int             `json:"fiscal_year"`
	ComputedAt time.Time       `json:"computed_at"`
	Results    json.RawMessage `json:"results"`
}

type exportView struct {
	FiscalYear int    `json:"fiscal_year"`
	Ref        string `json:"ref"`
}

func (s *Server) handleGetDistribution(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if year == 0 {
		badRequest(w, "year query parameter is required")
		return
	}

	results, err := s.dist.GetDistribution(r.Context(), year)
	if err != nil {
		internalError(w, "failed to compute distribution")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	var req recomputeRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Year < 1900 || req.Year > 9999 {
		badRequest(w, "invalid year")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "manual"
	}

	if err := s.dist.RequestRecompute(r.Context(), req.Year, reason); err != nil {
		internalError(w, "failed to schedule recompute")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"fiscal_year": req.Year, "status": "scheduled"})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if year == 0 {
		badRequest(w, "year query parameter is required")
		return
	}

	snap, err := s.dist.LatestSnapshot(r.Context(), year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "no snapshot for the requested year")
			return
		}
		internalError(w, "failed to load snapshot")
		return
	}
	writeJSON(w, http.StatusOK, snapshotView{
		ID:         snap.ID,
		FiscalYear: snap.FiscalYear,
		ComputedAt: snap.ComputedAt,
		Results:    json.RawMessage(snap.Payload),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if year == 0 {
		badRequest(w, "year query parameter is required")
		return
	}

	ref, err := s.dist.ExportYear(r.Context(), year)
	if err != nil {
		internalError(w, "failed to export distribution")
		return
	}
	writeJSON(w, http.StatusOK, exportView{FiscalYear: year, Ref: ref})
}

func (s *Server) handleListYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.dist.AllYears(r.Context())
	if err != nil {
		internalError(w, "failed to list fiscal years")
		return
	}
	if years == nil {
		years = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"years": years})
}
