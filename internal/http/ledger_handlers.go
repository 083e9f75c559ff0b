package http

import (
	"database/sql"
	"errors"
	"net/http"

	applog "riparto/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if year == 0 {
		badRequest(w, "year query parameter is required")
		return
	}

	txs, err := s.repo.ListTransactionsByYear(r.Context(), year)
	if err != nil {
		internalError(w, "failed to list transactions")
		return
	}
	views := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		views = append(views, newTransactionView(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.repo.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "transaction not found")
			return
		}
		internalError(w, "failed to load transaction")
		return
	}
	writeJSON(w, http.StatusOK, newTransactionView(*tx))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	tx, err := req.toCore("")
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	id, err := s.repo.CreateTransaction(r.Context(), tx)
	if err != nil {
		internalError(w, "failed to save transaction")
		return
	}

	s.requestRecompute(r, tx.Date.Year(), "transaction created")
	writeJSON(w, http.StatusCreated, apiCreated{ID: id})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	previous, err := s.repo.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "transaction not found")
			return
		}
		internalError(w, "failed to load transaction")
		return
	}

	var req transactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	tx, err := req.toCore(id)
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	if err := s.repo.UpdateTransaction(r.Context(), tx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "transaction not found")
			return
		}
		internalError(w, "failed to update transaction")
		return
	}

	// A moved date may shift the fiscal year; both years go stale.
	s.requestRecompute(r, tx.Date.Year(), "transaction updated")
	if previous.Date.Year() != tx.Date.Year() {
		s.requestRecompute(r, previous.Date.Year(), "transaction moved across years")
	}
	writeJSON(w, http.StatusOK, newTransactionView(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	previous, err := s.repo.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "transaction not found")
			return
		}
		internalError(w, "failed to load transaction")
		return
	}

	if err := s.repo.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "transaction not found")
			return
		}
		internalError(w, "failed to delete transaction")
		return
	}

	s.requestRecompute(r, previous.Date.Year(), "transaction deleted")
	writeJSON(w, http.StatusNoContent, nil)
}

// requestRecompute schedules a recompute for a year after a ledger mutation.
// The mutation itself already succeeded, so a failed request is only logged.
func (s *Server) requestRecompute(r *http.Request, year int, reason string) {
	if err := s.dist.RequestRecompute(r.Context(), year, reason); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Recompute request failed after mutation",
			applog.FieldYear, year, "reason", reason, applog.FieldError, err)
	}
}
