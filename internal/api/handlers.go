package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/reachgate/internal/client"
	"github.com/foxzi/reachgate/internal/segment"
	"github.com/foxzi/reachgate/internal/store"
)

const maxContactsPage = 1000

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, client.HealthResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleCountSegment handles POST /segments/count
func (s *Server) handleCountSegment(w http.ResponseWriter, r *http.Request) {
	var rules []segment.Rule
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Rules under construction may still have empty values; only the shape
	// has to be right
	for _, rule := range rules {
		if err := rule.CheckShape(); err != nil {
			s.sendError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	count, err := s.store.CountSegment(r.Context(), rules)
	if err != nil {
		s.logger.Error("failed to count segment", "rules", len(rules), "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to count segment")
		return
	}

	s.sendJSON(w, http.StatusOK, client.CountResponse{Count: count})
}

// handleListSegments handles GET /segments/
func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := s.store.ListSegments(r.Context())
	if err != nil {
		s.logger.Error("failed to list segments", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list segments")
		return
	}

	s.sendJSON(w, http.StatusOK, client.SegmentsResponse{Segments: segments})
}

// handleCreateSegment handles POST /segments/
func (s *Server) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	var p segment.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	seg, err := s.store.CreateSegment(r.Context(), &p)
	if err != nil {
		s.sendStoreError(w, err, "Failed to create segment")
		return
	}

	s.logger.Info("segment created", "id", seg.ID, "name", seg.Name, "type", seg.Type)
	s.sendJSON(w, http.StatusCreated, seg)
}

// handleGetSegment handles GET /segments/{id}
func (s *Server) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	seg, err := s.store.GetSegment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendStoreError(w, err, "Failed to get segment")
		return
	}

	s.sendJSON(w, http.StatusOK, seg)
}

// handleUpdateSegment handles PUT /segments/{id}
func (s *Server) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var p segment.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	seg, err := s.store.UpdateSegment(r.Context(), id, &p)
	if err != nil {
		s.sendStoreError(w, err, "Failed to update segment")
		return
	}

	s.logger.Info("segment updated", "id", id, "name", seg.Name, "type", seg.Type)
	s.sendJSON(w, http.StatusOK, seg)
}

// handleDeleteSegment handles DELETE /segments/{id}
func (s *Server) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteSegment(r.Context(), id); err != nil {
		s.sendStoreError(w, err, "Failed to delete segment")
		return
	}

	s.logger.Info("segment deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleImportContacts handles POST /contacts
func (s *Server) handleImportContacts(w http.ResponseWriter, r *http.Request) {
	var req client.ImportContactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Contacts) == 0 {
		s.sendError(w, http.StatusBadRequest, "contacts is required")
		return
	}

	res, err := s.store.UpsertContacts(r.Context(), req.Contacts)
	if err != nil {
		s.sendStoreError(w, err, "Failed to import contacts")
		return
	}

	s.logger.Info("contacts imported", "created", res.Created, "updated", res.Updated)
	s.sendJSON(w, http.StatusOK, client.ImportContactsResponse{Created: res.Created, Updated: res.Updated})
}

// handleListContacts handles GET /contacts
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{Limit: 100}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxContactsPage {
			s.sendError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.sendError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	contacts, err := s.store.ListContacts(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list contacts", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list contacts")
		return
	}
	if contacts == nil {
		contacts = []*segment.Contact{}
	}

	s.sendJSON(w, http.StatusOK, client.ContactsResponse{
		Contacts: contacts,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, client.ErrorResponse{Error: message})
}

// sendStoreError maps store and validation errors to HTTP statuses
func (s *Server) sendStoreError(w http.ResponseWriter, err error, fallback string) {
	var verr *segment.ValidationError
	switch {
	case errors.As(err, &verr):
		s.sendError(w, http.StatusUnprocessableEntity, verr.Message)
	case errors.Is(err, store.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrInvalidContact), errors.Is(err, store.ErrInvalidAmount),
		errors.Is(err, store.ErrWalletOverflow):
		s.sendError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(fallback, "error", err)
		s.sendError(w, http.StatusInternalServerError, fallback)
	}
}
