package http

import (
	"database/sql"
	"errors"
	"net/http"
)

func (s *Server) handleListWaterMeters(w http.ResponseWriter, r *http.Request) {
	meters, err := s.repo.ListWaterMeters(r.Context())
	if err != nil {
		internalError(w, "failed to list water meters")
		return
	}
	views := make([]waterMeterView, 0, len(meters))
	for _, m := range meters {
		views = append(views, waterMeterView{ID: m.ID, UnitID: m.UnitID, Baseline: m.Baseline})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateWaterMeter(w http.ResponseWriter, r *http.Request) {
	var req waterMeterRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	m, err := req.toCore("")
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	id, err := s.repo.CreateWaterMeter(r.Context(), m)
	if err != nil {
		internalError(w, "failed to save water meter")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusCreated, apiCreated{ID: id})
}

func (s *Server) handleDeleteWaterMeter(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteWaterMeter(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "water meter not found")
			return
		}
		internalError(w, "failed to delete water meter")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListWaterReadings(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if year == 0 {
		badRequest(w, "year query parameter is required")
		return
	}

	readings, err := s.repo.ListWaterReadingsByYear(r.Context(), year)
	if err != nil {
		internalError(w, "failed to list water readings")
		return
	}
	views := make([]waterReadingView, 0, len(readings))
	for _, wr := range readings {
		views = append(views, newWaterReadingView(wr))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateWaterReading(w http.ResponseWriter, r *http.Request) {
	var req waterReadingRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	wr, err := req.toCore("")
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	id, err := s.repo.CreateWaterReading(r.Context(), wr)
	if err != nil {
		internalError(w, "failed to save water reading")
		return
	}

	s.requestRecompute(r, wr.Date.Year(), "water reading created")
	writeJSON(w, http.StatusCreated, apiCreated{ID: id})
}

func (s *Server) handleDeleteWaterReading(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteWaterReading(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "water reading not found")
			return
		}
		internalError(w, "failed to delete water reading")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusNoContent, nil)
}
