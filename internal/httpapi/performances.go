package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"festivalhub/internal/access"
	"festivalhub/internal/app/performances"
	"festivalhub/internal/models"
)

type performancesResponse struct {
	Performances []*models.Performance `json:"performances"`
}

func (s *Server) handleListScheduled(w http.ResponseWriter, r *http.Request) {
	list, err := s.performances.ListScheduled(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, performancesResponse{Performances: list})
}

func (s *Server) handleSearchPerformances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := performances.SearchQuery{
		Name:  q.Get("name"),
		Genre: q.Get("genre"),
	}
	for _, raw := range q["artists"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				query.ArtistIDs = append(query.ArtistIDs, id)
			}
		}
	}

	list, err := s.performances.Search(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, performancesResponse{Performances: list})
}

func (s *Server) handleMyPerformances(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	list, err := s.performances.ListMine(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, performancesResponse{Performances: list})
}

func (s *Server) handleManagedPerformances(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	list, err := s.performances.ListManaged(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, performancesResponse{Performances: list})
}

func (s *Server) handleGetPerformance(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	p, err := s.performances.Get(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreatePerformance(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var input performances.Input
	if !decodeJSON(w, r, &input) {
		return
	}

	created, err := s.performances.Create(r.Context(), caller, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdatePerformance(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var patch performances.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := s.performances.Update(r.Context(), caller, mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	if err := s.performances.Withdraw(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	p, err := s.performances.Submit(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var review performances.Review
	if !decodeJSON(w, r, &review) {
		return
	}

	p, err := s.performances.Review(r.Context(), caller, mux.Vars(r)["id"], review)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAddBandMember(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var req struct {
		UserID string `json:"userId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	added, err := s.performances.AddBandMember(r.Context(), caller, vars["festivalId"], vars["performanceId"], req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, added)
}

func (s *Server) handleAssignStageManager(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var req struct {
		StaffID string `json:"staffId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	p, err := s.performances.AssignStageManager(r.Context(), caller, vars["festivalId"], vars["performanceId"], req.StaffID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	vars := mux.Vars(r)
	p, err := s.performances.Approve(r.Context(), caller, vars["festivalId"], vars["performanceId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleReject(
	reject func(ctx context.Context, caller access.Caller, festivalID, performanceID, reason string) (*models.Performance, error),
) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, caller access.Caller) {
		var req struct {
			RejectionReason string `json:"rejectionReason"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		vars := mux.Vars(r)
		p, err := reject(r.Context(), caller, vars["festivalId"], vars["performanceId"], req.RejectionReason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleFinalSubmission(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	var details performances.FinalDetails
	if !decodeJSON(w, r, &details) {
		return
	}

	vars := mux.Vars(r)
	p, err := s.performances.FinalSubmission(r.Context(), caller, vars["festivalId"], vars["performanceId"], details)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request, caller access.Caller) {
	vars := mux.Vars(r)
	p, err := s.performances.Accept(r.Context(), caller, vars["festivalId"], vars["performanceId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
