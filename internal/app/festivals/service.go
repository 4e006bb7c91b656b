package festivals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"festivalhub/internal/access"
	"festivalhub/internal/app/coordinator"
	"festivalhub/internal/apperr"
	"festivalhub/internal/identity"
	"festivalhub/internal/logging"
	"festivalhub/internal/metrics"
	"festivalhub/internal/models"
	"festivalhub/internal/store"
)

// Store defines persistence operations for festivals
type Store interface {
	CreateFestival(ctx context.Context, festival *models.Festival) (*models.Festival, error)
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	MutateFestival(ctx context.Context, id string, fn func(*models.Festival) error) (*models.Festival, error)
	DeleteFestival(ctx context.Context, id string, check func(*models.Festival) error) error
	ListFestivals(ctx context.Context, filter store.FestivalFilter) ([]*models.Festival, error)
}

// Input carries the fields of a new festival.
type Input struct {
	Name             string                   `json:"name"`
	Description      string                   `json:"description"`
	Dates            []time.Time              `json:"dates"`
	Venue            string                   `json:"venue"`
	Organizers       []string                 `json:"organizers"`
	Staff            []string                 `json:"staff"`
	VenueLayout      *models.VenueLayout      `json:"venueLayout"`
	Budget           *models.Budget           `json:"budget"`
	VendorManagement *models.VendorManagement `json:"vendorManagement"`
}

// Patch carries a partial festival update. Nil fields are left unchanged.
type Patch struct {
	Name             *string                  `json:"name"`
	Description      *string                  `json:"description"`
	Dates            []time.Time              `json:"dates"`
	Venue            *string                  `json:"venue"`
	Organizers       []string                 `json:"organizers"`
	Staff            []string                 `json:"staff"`
	VenueLayout      *models.VenueLayout      `json:"venueLayout"`
	Budget           *models.Budget           `json:"budget"`
	VendorManagement *models.VendorManagement `json:"vendorManagement"`
}

// SearchQuery filters announced festivals.
type SearchQuery struct {
	Name        string
	Description string
	Venue       string
	StartFrom   *time.Time
	StartTo     *time.Time
}

// Responsible pairs a festival with its performances for the organizer view.
type Responsible struct {
	*models.Festival
	PerformanceDetails []*models.Performance `json:"performanceDetails"`
}

// Service coordinates the festival lifecycle.
type Service interface {
	Create(ctx context.Context, caller access.Caller, input Input) (*models.Festival, error)
	Update(ctx context.Context, caller access.Caller, id string, patch Patch) (*models.Festival, error)
	Delete(ctx context.Context, caller access.Caller, id string) error
	AddOrganizers(ctx context.Context, caller access.Caller, id string, organizerIDs []string) (*models.Festival, error)
	AddStaff(ctx context.Context, caller access.Caller, id string, staffIDs []string) (*models.Festival, error)

	StartSubmission(ctx context.Context, caller access.Caller, id string) (*models.Festival, error)
	StartAssignment(ctx context.Context, caller access.Caller, id string) (*models.Festival, error)
	StartReview(ctx context.Context, caller access.Caller, id string) (*models.Festival, error)
	Schedule(ctx context.Context, caller access.Caller, id string) (*models.Festival, error)
	FinalSubmission(ctx context.Context, caller access.Caller, id string) (*models.Festival, error)
	Decide(ctx context.Context, caller access.Caller, id string) (*coordinator.Decision, error)
	Announce(ctx context.Context, caller access.Caller, id string) (*models.Festival, error)

	Get(ctx context.Context, caller access.Caller, id string) (*models.Festival, error)
	ListAnnounced(ctx context.Context) ([]*models.Festival, error)
	Search(ctx context.Context, query SearchQuery) ([]*models.Festival, error)
	ListResponsible(ctx context.Context, caller access.Caller) ([]*Responsible, error)
}

type service struct {
	store       Store
	directory   identity.Directory
	coordinator *coordinator.Coordinator
	policy      *access.Policy
	recorder    metrics.Recorder
}

// New constructs a festivals Service. A nil recorder discards metrics.
func New(s Store, directory identity.Directory, coord *coordinator.Coordinator, policy *access.Policy, recorder metrics.Recorder) Service {
	if recorder == nil {
		recorder = metrics.Nop
	}
	return &service{
		store:       s,
		directory:   directory,
		coordinator: coord,
		policy:      policy,
		recorder:    recorder,
	}
}

func (s *service) Create(ctx context.Context, caller access.Caller, input Input) (*models.Festival, error) {
	const op = "create"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, access.CreateFestival); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	var missing []string
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if len(input.Dates) == 0 {
		missing = append(missing, "dates")
	}
	if strings.TrimSpace(input.Venue) == "" {
		missing = append(missing, "venue")
	}
	if len(input.Organizers) == 0 {
		missing = append(missing, "organizers")
	}
	if len(missing) > 0 {
		return nil, s.refuse(ctx, op, apperr.Validation("missing required fields", missing...))
	}
	if input.Budget.Negative() {
		return nil, s.refuse(ctx, op, apperr.Validation("budget figures must not be negative", "budget"))
	}

	if err := s.validateRoster(ctx, input.Organizers, input.Staff); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	festival, err := s.store.CreateFestival(ctx, &models.Festival{
		Name:             strings.TrimSpace(input.Name),
		Description:      input.Description,
		Dates:            input.Dates,
		Venue:            input.Venue,
		VenueLayout:      input.VenueLayout,
		Budget:           input.Budget,
		VendorManagement: input.VendorManagement,
		Organizers:       dedupe(input.Organizers),
		Staff:            dedupe(input.Staff),
		State:            models.FestivalCreated,
	})
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	s.transitioned(ctx, op, festival)
	return festival, nil
}

func (s *service) Update(ctx context.Context, caller access.Caller, id string, patch Patch) (*models.Festival, error) {
	const op = "update"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, access.UpdateFestival); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	if patch.Organizers != nil && len(patch.Organizers) == 0 {
		return nil, s.refuse(ctx, op, apperr.Validation("a festival needs at least one organizer", "organizers"))
	}
	var empty []string
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		empty = append(empty, "name")
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		empty = append(empty, "description")
	}
	if patch.Dates != nil && len(patch.Dates) == 0 {
		empty = append(empty, "dates")
	}
	if patch.Venue != nil && strings.TrimSpace(*patch.Venue) == "" {
		empty = append(empty, "venue")
	}
	if len(empty) > 0 {
		return nil, s.refuse(ctx, op, apperr.Validation("fields must not be empty", empty...))
	}
	if patch.Budget.Negative() {
		return nil, s.refuse(ctx, op, apperr.Validation("budget figures must not be negative", "budget"))
	}
	if err := s.validateRoster(ctx, patch.Organizers, patch.Staff); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	festival, err := s.store.MutateFestival(ctx, id, func(f *models.Festival) error {
		if f.State == models.FestivalAnnounced {
			return apperr.StateGuard("festival cannot be updated once it is announced", "any state before ANNOUNCED")
		}
		if f.State == models.FestivalAssignment {
			if missing := f.MissingAnnouncementFields(); len(missing) > 0 {
				return apperr.Validation("venue layout, budget, and vendor management must be completed first", missing...)
			}
		}

		if patch.Name != nil {
			f.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			f.Description = *patch.Description
		}
		if patch.Dates != nil {
			f.Dates = patch.Dates
		}
		if patch.Venue != nil {
			f.Venue = *patch.Venue
		}
		if patch.VenueLayout != nil {
			f.VenueLayout = patch.VenueLayout
		}
		if patch.Budget != nil {
			f.Budget = patch.Budget
		}
		if patch.VendorManagement != nil {
			f.VendorManagement = patch.VendorManagement
		}
		if patch.Organizers != nil {
			f.Organizers = dedupe(patch.Organizers)
		}
		if patch.Staff != nil {
			f.Staff = dedupe(patch.Staff)
		}
		return nil
	})
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	logging.FromContext(ctx).Info().Str("festival_id", festival.ID).Msg("festival updated")
	return festival, nil
}

func (s *service) Delete(ctx context.Context, caller access.Caller, id string) error {
	const op = "delete"
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.policy.Require(caller, access.DeleteFestival); err != nil {
		return s.refuse(ctx, op, err)
	}

	err := s.store.DeleteFestival(ctx, id, func(f *models.Festival) error {
		if f.State != models.FestivalCreated {
			return coordinator.PhaseError(models.FestivalCreated)
		}
		return nil
	})
	if err != nil {
		return s.refuse(ctx, op, err)
	}

	logging.FromContext(ctx).Info().Str("festival_id", id).Msg("festival deleted")
	return nil
}

func (s *service) AddOrganizers(ctx context.Context, caller access.Caller, id string, organizerIDs []string) (*models.Festival, error) {
	return s.extendRoster(ctx, caller, "add_organizers", access.AddOrganizers, id, organizerIDs, models.RoleOrganizer,
		func(f *models.Festival) *[]string { return &f.Organizers })
}

func (s *service) AddStaff(ctx context.Context, caller access.Caller, id string, staffIDs []string) (*models.Festival, error) {
	return s.extendRoster(ctx, caller, "add_staff", access.AddStaff, id, staffIDs, models.RoleStaff,
		func(f *models.Festival) *[]string { return &f.Staff })
}

func (s *service) StartSubmission(ctx context.Context, caller access.Caller, id string) (*models.Festival, error) {
	return s.advance(ctx, caller, "start_submission", id, models.FestivalCreated, nil)
}

func (s *service) StartAssignment(ctx context.Context, caller access.Caller, id string) (*models.Festival, error) {
	return s.advance(ctx, caller, "start_assignment", id, models.FestivalSubmission, nil)
}

func (s *service) StartReview(ctx context.Context, caller access.Caller, id string) (*models.Festival, error) {
	return s.advance(ctx, caller, "start_review", id, models.FestivalAssignment, nil)
}

func (s *service) Schedule(ctx context.Context, caller access.Caller, id string) (*models.Festival, error) {
	return s.advance(ctx, caller, "schedule", id, models.FestivalReview, nil)
}

func (s *service) FinalSubmission(ctx context.Context, caller access.Caller, id string) (*models.Festival, error) {
	return s.advance(ctx, caller, "final_submission", id, models.FestivalScheduling, nil)
}

func (s *service) Decide(ctx context.Context, caller access.Caller, id string) (*coordinator.Decision, error) {
	return s.coordinator.DecideFestival(ctx, caller, id)
}

func (s *service) Announce(ctx context.Context, caller access.Caller, id string) (*models.Festival, error) {
	return s.advance(ctx, caller, "announce", id, models.FestivalDecision, func(f *models.Festival) error {
		if missing := f.MissingAnnouncementFields(); len(missing) > 0 {
			return apperr.Validation("announcement cannot proceed, the following fields are missing or incomplete", missing...)
		}
		return nil
	})
}

// Get returns an announced festival to anyone. Earlier states are visible
// only to the festival's organizers and staff; everyone else gets not-found.
func (s *service) Get(ctx context.Context, caller access.Caller, id string) (*models.Festival, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	festival, err := s.store.GetFestival(ctx, id)
	if err != nil {
		return nil, err
	}
	if festival.State == models.FestivalAnnounced {
		return festival, nil
	}
	if caller.Authenticated() && (festival.HasOrganizer(caller.ID) || festival.HasStaff(caller.ID)) {
		return festival, nil
	}
	return nil, errFestivalHidden
}

func (s *service) ListAnnounced(ctx context.Context) ([]*models.Festival, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListFestivals(ctx, store.FestivalFilter{States: []models.FestivalState{models.FestivalAnnounced}})
}

func (s *service) Search(ctx context.Context, query SearchQuery) ([]*models.Festival, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListFestivals(ctx, store.FestivalFilter{
		States:      []models.FestivalState{models.FestivalAnnounced},
		Name:        query.Name,
		Description: query.Description,
		Venue:       query.Venue,
		StartFrom:   query.StartFrom,
		StartTo:     query.StartTo,
	})
}

func (s *service) ListResponsible(ctx context.Context, caller access.Caller) ([]*Responsible, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, access.ListOwnFestivals); err != nil {
		return nil, err
	}

	festivals, err := s.store.ListFestivals(ctx, store.FestivalFilter{OrganizerID: caller.ID})
	if err != nil {
		return nil, err
	}

	result := make([]*Responsible, 0, len(festivals))
	for _, f := range festivals {
		perfs, err := s.coordinator.PerformancesOf(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, &Responsible{Festival: f, PerformanceDetails: perfs})
	}
	return result, nil
}

// advance moves a festival one phase forward from the given source state.
// check, when set, runs against the loaded festival before the state changes.
func (s *service) advance(
	ctx context.Context,
	caller access.Caller,
	op string,
	id string,
	from models.FestivalState,
	check func(*models.Festival) error,
) (*models.Festival, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	guard := access.AdvanceFestival
	if from == models.FestivalDecision {
		guard = access.AnnounceFestival
	}
	if err := s.policy.Require(caller, guard); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	to, ok := from.Next()
	if !ok {
		return nil, apperr.Internal(errNoSuccessor(from))
	}

	festival, err := s.store.MutateFestival(ctx, id, func(f *models.Festival) error {
		if f.State != from {
			return coordinator.PhaseError(from)
		}
		if check != nil {
			if err := check(f); err != nil {
				return err
			}
		}
		f.State = to
		return nil
	})
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	s.transitioned(ctx, op, festival)
	return festival, nil
}

func (s *service) extendRoster(
	ctx context.Context,
	caller access.Caller,
	op string,
	guard access.Operation,
	id string,
	ids []string,
	role models.Role,
	roster func(*models.Festival) *[]string,
) (*models.Festival, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, guard); err != nil {
		return nil, s.refuse(ctx, op, err)
	}
	if len(ids) == 0 {
		return nil, s.refuse(ctx, op, apperr.Validation("a non-empty list of user ids is required", rosterLabel(role)))
	}

	current, err := s.store.GetFestival(ctx, id)
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}
	var fresh []string
	for _, uid := range dedupe(ids) {
		if !containsID(*roster(current), uid) {
			fresh = append(fresh, uid)
		}
	}
	if err := s.directory.RequireRole(ctx, fresh, role, rosterLabel(role)); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	festival, err := s.store.MutateFestival(ctx, id, func(f *models.Festival) error {
		if f.State == models.FestivalAnnounced {
			return apperr.StateGuard("festival cannot be updated once it is announced", "any state before ANNOUNCED")
		}
		list := roster(f)
		for _, uid := range fresh {
			if !containsID(*list, uid) {
				*list = append(*list, uid)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	logging.FromContext(ctx).Info().
		Str("festival_id", festival.ID).
		Str("operation", op).
		Int("added", len(fresh)).
		Msg("festival roster extended")
	return festival, nil
}

func (s *service) validateRoster(ctx context.Context, organizers, staff []string) error {
	if len(organizers) > 0 {
		if err := s.directory.RequireRole(ctx, organizers, models.RoleOrganizer, rosterLabel(models.RoleOrganizer)); err != nil {
			return err
		}
	}
	if len(staff) > 0 {
		if err := s.directory.RequireRole(ctx, staff, models.RoleStaff, rosterLabel(models.RoleStaff)); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) transitioned(ctx context.Context, op string, f *models.Festival) {
	s.recorder.Transition("festival", op, string(f.State))
	logging.FromContext(ctx).Info().
		Str("festival_id", f.ID).
		Str("operation", op).
		Str("state", string(f.State)).
		Msg("festival transition")
}

func (s *service) refuse(ctx context.Context, op string, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logging.FromContext(ctx).Error().Err(err).Str("operation", op).Msg("festival operation failed")
		return err
	}
	s.recorder.Refused("festival", op, kind)
	logging.FromContext(ctx).Debug().Err(err).Str("operation", op).Msg("festival operation refused")
	return err
}

var errFestivalHidden = apperr.NotFound("festival not found")

func errNoSuccessor(state models.FestivalState) error {
	return fmt.Errorf("festival state %s has no successor", state)
}

func rosterLabel(role models.Role) string {
	if role == models.RoleStaff {
		return "staff"
	}
	return "organizers"
}

func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !containsID(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func containsID(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
