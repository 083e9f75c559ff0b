package http

import (
	"database/sql"
	"errors"
	"net/http"
)

// Registry mutations (units, categories, tables) affect every fiscal year,
// so they flush the whole result cache instead of a single year.

func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.repo.ListUnits(r.Context())
	if err != nil {
		internalError(w, "failed to list units")
		return
	}
	views := make([]unitView, 0, len(units))
	for _, u := range units {
		views = append(views, newUnitView(u))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	u, err := req.toCore("")
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	id, err := s.repo.CreateUnit(r.Context(), u)
	if err != nil {
		internalError(w, "failed to save unit")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusCreated, apiCreated{ID: id})
}

func (s *Server) handleUpdateUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	u, err := req.toCore(r.PathValue("id"))
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	if err := s.repo.UpdateUnit(r.Context(), u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "unit not found")
			return
		}
		internalError(w, "failed to update unit")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusOK, newUnitView(u))
}

func (s *Server) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteUnit(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "unit not found")
			return
		}
		internalError(w, "failed to delete unit")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.repo.ListCategories(r.Context())
	if err != nil {
		internalError(w, "failed to list categories")
		return
	}
	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, newCategoryView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	c, err := req.toCore("")
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	id, err := s.repo.CreateCategory(r.Context(), c)
	if err != nil {
		internalError(w, "failed to save category")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusCreated, apiCreated{ID: id})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	c, err := req.toCore(r.PathValue("id"))
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	if err := s.repo.UpdateCategory(r.Context(), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "category not found")
			return
		}
		internalError(w, "failed to update category")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusOK, newCategoryView(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "category not found")
			return
		}
		internalError(w, "failed to delete category")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.repo.ListTables(r.Context())
	if err != nil {
		internalError(w, "failed to list millesimal tables")
		return
	}
	views := make([]tableView, 0, len(tables))
	for _, t := range tables {
		views = append(views, newTableView(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	t, err := req.toCore("")
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	id, err := s.repo.CreateTable(r.Context(), t)
	if err != nil {
		internalError(w, "failed to save millesimal table")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusCreated, apiCreated{ID: id})
}

func (s *Server) handleUpdateTable(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	t, err := req.toCore(r.PathValue("id"))
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	if err := s.repo.UpdateTable(r.Context(), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "millesimal table not found")
			return
		}
		internalError(w, "failed to update millesimal table")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusOK, newTableView(t))
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteTable(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(w, "millesimal table not found")
			return
		}
		internalError(w, "failed to delete millesimal table")
		return
	}
	s.dist.InvalidateAll()
	writeJSON(w, http.StatusNoContent, nil)
}
