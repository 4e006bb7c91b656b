package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"festivalhub/internal/access"
	"festivalhub/internal/app/festivals"
	"festivalhub/internal/apperr"
	"festivalhub/internal/models"
)

// festivalStep is a single-phase festival transition.
type festivalStep func(ctx context.Context, caller access.Caller, id string) (*models.Festival, error)

func (s *Server) handleListFestivals(w http.ResponseWriter, r *http.Request) {
	list, err := s.festivals.ListAnnounced(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Festivals []*models.Festival `json:"festivals"`
	}{Festivals: list})
}

func (s *Server) handleSearchFestivals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := festivals.SearchQuery{
		Name:        q.Get("name"),
		Description: q.Get("description"),
		Venue:       q.Get("venue"),
	}

	var invalid []string
	if raw := q.Get("startFrom"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			invalid = append(invalid, "startFrom")
		}
		query.StartFrom = &t
	}
	if raw := q.Get("startTo"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			invalid = append(invalid, "startTo")
		} else if len(raw) == len("2006-01-02") {
			// A bare date includes the whole day.
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		query.StartTo = &t
	}
	if len(invalid) > 0 {
		writeError(w, r, apperr.Validation("dates must be YYYY-MM-DD or RFC 3339", invalid...))
		return
	}

	list, err := s.festivals.Search(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Festivals []*models.Festival `json:"festivals"`
	}{Festivals: list})
}

func (s *Server) handleMyFestivals(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	list, err := s.festivals.ListResponsible(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Festivals []*festivals.Responsible `json:"festivals"`
	}{Festivals: list})
}

func (s *Server) handleGetFestival(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	festival, err := s.festivals.Get(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, festival)
}

func (s *Server) handleCreateFestival(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var input festivals.Input
	if !decodeJSON(w, r, &input) {
		return
	}

	created, err := s.festivals.Create(r.Context(), caller, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateFestival(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var patch festivals.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := s.festivals.Update(r.Context(), caller, mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteFestival(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	if err := s.festivals.Delete(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddOrganizers(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var req struct {
		Organizers []string `json:"organizers"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := s.festivals.AddOrganizers(r.Context(), caller, mux.Vars(r)["id"], req.Organizers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAddStaff(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var req struct {
		Staff []string `json:"staff"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := s.festivals.AddStaff(r.Context(), caller, mux.Vars(r)["id"], req.Staff)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleFestivalStep(step festivalStep) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, caller access.Caller) {
		updated, err := step(r.Context(), caller, mux.Vars(r)["id"])
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	decision, err := s.festivals.Decide(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
