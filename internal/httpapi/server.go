package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"festivalhub/internal/access"
	"festivalhub/internal/app/festivals"
	"festivalhub/internal/app/performances"
	"festivalhub/internal/http/middleware"
	"festivalhub/internal/identity"
	"festivalhub/internal/logging"
	"festivalhub/internal/metrics"
	"festivalhub/internal/models"
)

// IdentityService captures the account operations needed by the HTTP handlers.
type IdentityService interface {
	Signup(ctx context.Context, input identity.SignupInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (*identity.Session, error)
	Authenticate(ctx context.Context, token string) (access.Caller, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Database       Pinger
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	identity     IdentityService
	festivals    festivals.Service
	performances performances.Service
	opts         Options
}

// New configures a Server.
func New(identity IdentityService, festivals festivals.Service, performances performances.Service, opts Options) *Server {
	return &Server{
		identity:     identity,
		festivals:    festivals,
		performances: performances,
		opts:         opts,
	}
}

// Routes exposes the HTTP handlers for accounts, festivals, and performances.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found", Kind: "NOT_FOUND"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.Middleware)
		r.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/users/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/users/login", s.handleLogin).Methods(http.MethodPost)

	// Festivals. Static segments are registered before {id}.
	api.HandleFunc("/festivals", s.handleListFestivals).Methods(http.MethodGet)
	api.Handle("/festivals", s.authed(s.handleCreateFestival)).Methods(http.MethodPost)
	api.HandleFunc("/festivals/search", s.handleSearchFestivals).Methods(http.MethodGet)
	api.Handle("/festivals/mine", s.authed(s.handleMyFestivals)).Methods(http.MethodGet)
	api.Handle("/festivals/{id}", s.optionalAuth(s.handleGetFestival)).Methods(http.MethodGet)
	api.Handle("/festivals/{id}", s.authed(s.handleUpdateFestival)).Methods(http.MethodPut)
	api.Handle("/festivals/{id}", s.authed(s.handleDeleteFestival)).Methods(http.MethodDelete)
	api.Handle("/festivals/{id}/organizers", s.authed(s.handleAddOrganizers)).Methods(http.MethodPost)
	api.Handle("/festivals/{id}/staff", s.authed(s.handleAddStaff)).Methods(http.MethodPost)
	for path, step := range map[string]festivalStep{
		"start-submission": s.festivals.StartSubmission,
		"start-assignment": s.festivals.StartAssignment,
		"start-review":     s.festivals.StartReview,
		"schedule":         s.festivals.Schedule,
		"final-submission": s.festivals.FinalSubmission,
		"announce":         s.festivals.Announce,
	} {
		api.Handle("/festivals/{id}/"+path, s.authed(s.handleFestivalStep(step))).Methods(http.MethodPost)
	}
	api.Handle("/festivals/{id}/decision-making", s.authed(s.handleDecision)).Methods(http.MethodPost)

	// Performance operations that need the festival context.
	nested := "/festivals/{festivalId}/performances/{performanceId}"
	api.Handle(nested+"/band-members", s.authed(s.handleAddBandMember)).Methods(http.MethodPost)
	api.Handle(nested+"/stage-manager", s.authed(s.handleAssignStageManager)).Methods(http.MethodPost)
	api.Handle(nested+"/approve", s.authed(s.handleApprove)).Methods(http.MethodPost)
	api.Handle(nested+"/reject", s.authed(s.handleReject(s.performances.Reject))).Methods(http.MethodPost)
	api.Handle(nested+"/final-submission", s.authed(s.handleFinalSubmission)).Methods(http.MethodPost)
	api.Handle(nested+"/manual-reject", s.authed(s.handleReject(s.performances.ManualReject))).Methods(http.MethodPost)
	api.Handle(nested+"/accept", s.authed(s.handleAccept)).Methods(http.MethodPost)

	api.HandleFunc("/performances", s.handleListScheduled).Methods(http.MethodGet)
	api.Handle("/performances", s.authed(s.handleCreatePerformance)).Methods(http.MethodPost)
	api.HandleFunc("/performances/search", s.handleSearchPerformances).Methods(http.MethodGet)
	api.Handle("/performances/mine", s.authed(s.handleMyPerformances)).Methods(http.MethodGet)
	api.Handle("/performances/managed", s.authed(s.handleManagedPerformances)).Methods(http.MethodGet)
	api.Handle("/performances/{id}", s.optionalAuth(s.handleGetPerformance)).Methods(http.MethodGet)
	api.Handle("/performances/{id}", s.authed(s.handleUpdatePerformance)).Methods(http.MethodPut)
	api.Handle("/performances/{id}", s.authed(s.handleWithdraw)).Methods(http.MethodDelete)
	api.Handle("/performances/{id}/submit", s.authed(s.handleSubmit)).Methods(http.MethodPost)
	api.Handle("/performances/{id}/review", s.authed(s.handleReview)).Methods(http.MethodPost)

	var h http.Handler = r
	h = middleware.CORS(s.opts.AllowedOrigins)(h)
	h = logging.Middleware()(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Database.PingContext(ctx); err != nil {
			logging.FromContext(r.Context()).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var input identity.SignupInput
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := s.identity.Signup(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := s.identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into v and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload", Kind: "VALIDATION"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
