package performances

import (
	"context"
	"fmt"
	"strings"

	"festivalhub/internal/access"
	"festivalhub/internal/app/coordinator"
	"festivalhub/internal/apperr"
	"festivalhub/internal/identity"
	"festivalhub/internal/logging"
	"festivalhub/internal/metrics"
	"festivalhub/internal/models"
	"festivalhub/internal/store"
)

// Store defines persistence operations for performances
type Store interface {
	CreatePerformance(ctx context.Context, performance *models.Performance) (*models.Performance, error)
	GetPerformance(ctx context.Context, id string) (*models.Performance, error)
	MutatePerformance(ctx context.Context, id string, fn func(*models.Performance) error) (*models.Performance, error)
	DeletePerformance(ctx context.Context, id string, check func(*models.Performance) error) error
	ListPerformances(ctx context.Context, filter store.PerformanceFilter) ([]*models.Performance, error)
}

// Input carries the fields of a new performance.
type Input struct {
	FestivalID                string                        `json:"festivalId"`
	Name                      string                        `json:"name"`
	Description               string                        `json:"description"`
	Genre                     string                        `json:"genre"`
	Duration                  int                           `json:"duration"`
	BandMembers               []string                      `json:"bandMembers"`
	Artists                   []string                      `json:"artists"`
	TechnicalRequirements     *models.TechnicalRequirements `json:"technicalRequirements"`
	Setlist                   []string                      `json:"setlist"`
	MerchandiseItems          []models.MerchandiseItem      `json:"merchandiseItems"`
	PreferredRehearsalTimes   []string                      `json:"preferredRehearsalTimes"`
	PreferredPerformanceSlots []string                      `json:"preferredPerformanceSlots"`
}

// Patch carries a partial performance update. Nil fields are left unchanged.
type Patch struct {
	Name                      *string                       `json:"name"`
	Description               *string                       `json:"description"`
	Genre                     *string                       `json:"genre"`
	Duration                  *int                          `json:"duration"`
	BandMembers               []string                      `json:"bandMembers"`
	Artists                   []string                      `json:"artists"`
	TechnicalRequirements     *models.TechnicalRequirements `json:"technicalRequirements"`
	Setlist                   []string                      `json:"setlist"`
	MerchandiseItems          []models.MerchandiseItem      `json:"merchandiseItems"`
	PreferredRehearsalTimes   []string                      `json:"preferredRehearsalTimes"`
	PreferredPerformanceSlots []string                      `json:"preferredPerformanceSlots"`
}

// Review is a stage manager's assessment.
type Review struct {
	Score    int    `json:"score"`
	Comments string `json:"comments"`
}

// FinalDetails completes an approved performance for scheduling.
type FinalDetails struct {
	Setlist       []string `json:"setlist"`
	TimeSlot      string   `json:"timeSlot"`
	RehearsalTime string   `json:"rehearsalTime"`
}

// SearchQuery filters scheduled performances.
type SearchQuery struct {
	Name      string
	Genre     string
	ArtistIDs []string
}

// BandMemberAdded reports the performance and the possibly promoted user.
type BandMemberAdded struct {
	Performance *models.Performance `json:"updatedPerformance"`
	User        *models.User        `json:"updatedUser"`
}

// Service coordinates the performance lifecycle.
type Service interface {
	Create(ctx context.Context, caller access.Caller, input Input) (*models.Performance, error)
	Update(ctx context.Context, caller access.Caller, id string, patch Patch) (*models.Performance, error)
	AddBandMember(ctx context.Context, caller access.Caller, festivalID, performanceID, userID string) (*BandMemberAdded, error)
	Submit(ctx context.Context, caller access.Caller, id string) (*models.Performance, error)
	Withdraw(ctx context.Context, caller access.Caller, id string) error
	AssignStageManager(ctx context.Context, caller access.Caller, festivalID, performanceID, staffID string) (*models.Performance, error)
	Review(ctx context.Context, caller access.Caller, id string, review Review) (*models.Performance, error)
	Approve(ctx context.Context, caller access.Caller, festivalID, performanceID string) (*models.Performance, error)
	Reject(ctx context.Context, caller access.Caller, festivalID, performanceID, reason string) (*models.Performance, error)
	FinalSubmission(ctx context.Context, caller access.Caller, festivalID, performanceID string, details FinalDetails) (*models.Performance, error)
	ManualReject(ctx context.Context, caller access.Caller, festivalID, performanceID, reason string) (*models.Performance, error)
	Accept(ctx context.Context, caller access.Caller, festivalID, performanceID string) (*models.Performance, error)

	Get(ctx context.Context, caller access.Caller, id string) (*models.Performance, error)
	Search(ctx context.Context, query SearchQuery) ([]*models.Performance, error)
	ListScheduled(ctx context.Context) ([]*models.Performance, error)
	ListMine(ctx context.Context, caller access.Caller) ([]*models.Performance, error)
	ListManaged(ctx context.Context, caller access.Caller) ([]*models.Performance, error)
}

type service struct {
	store       Store
	directory   identity.Directory
	coordinator *coordinator.Coordinator
	policy      *access.Policy
	recorder    metrics.Recorder
}

// New constructs a performances Service. A nil recorder discards metrics.
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

func (s *service) Create(ctx context.Context, caller access.Caller, input Input) (*models.Performance, error) {
	const op = "create"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, access.CreatePerformance); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	p := &models.Performance{
		FestivalID:                input.FestivalID,
		Name:                      strings.TrimSpace(input.Name),
		Description:               input.Description,
		Genre:                     input.Genre,
		Duration:                  input.Duration,
		BandMembers:               dedupe(input.BandMembers),
		Artists:                   dedupe(input.Artists),
		TechnicalRequirements:     input.TechnicalRequirements,
		Setlist:                   input.Setlist,
		MerchandiseItems:          input.MerchandiseItems,
		PreferredRehearsalTimes:   input.PreferredRehearsalTimes,
		PreferredPerformanceSlots: input.PreferredPerformanceSlots,
		State:                     models.PerformanceCreated,
		CreatedBy:                 caller.ID,
	}

	missing := p.MissingRequiredFields()
	if strings.TrimSpace(input.FestivalID) == "" {
		missing = append([]string{"festivalId"}, missing...)
	}
	if len(missing) > 0 {
		return nil, s.refuse(ctx, op, apperr.Validation("missing required fields", missing...))
	}

	if _, err := s.coordinator.RequireFestival(ctx, input.FestivalID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			err = apperr.Reference("festival not found", input.FestivalID)
		}
		return nil, s.refuse(ctx, op, err)
	}
	if err := s.requireArtists(ctx, p.BandMembers, p.Artists); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	created, err := s.store.CreatePerformance(ctx, p)
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	s.transitioned(ctx, op, created)
	return created, nil
}

func (s *service) Update(ctx context.Context, caller access.Caller, id string, patch Patch) (*models.Performance, error) {
	const op = "update"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, access.UpdatePerformance); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	var empty []string
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		empty = append(empty, "name")
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		empty = append(empty, "description")
	}
	if patch.Genre != nil && strings.TrimSpace(*patch.Genre) == "" {
		empty = append(empty, "genre")
	}
	if patch.Duration != nil && *patch.Duration <= 0 {
		empty = append(empty, "duration")
	}
	if patch.BandMembers != nil && len(patch.BandMembers) == 0 {
		empty = append(empty, "bandMembers")
	}
	if len(empty) > 0 {
		return nil, s.refuse(ctx, op, apperr.Validation("fields must not be empty", empty...))
	}
	if err := s.requireArtists(ctx, patch.BandMembers, patch.Artists); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	updated, err := s.store.MutatePerformance(ctx, id, func(p *models.Performance) error {
		if err := requireOwner(caller, p); err != nil {
			return err
		}
		if p.State.Locked() {
			return apperr.StateGuard("performance cannot be updated in its current state", "not REVIEWED, APPROVED, or SCHEDULED")
		}

		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Genre != nil {
			p.Genre = *patch.Genre
		}
		if patch.Duration != nil {
			p.Duration = *patch.Duration
		}
		if patch.BandMembers != nil {
			p.BandMembers = dedupe(patch.BandMembers)
		}
		if patch.Artists != nil {
			p.Artists = dedupe(patch.Artists)
		}
		if patch.TechnicalRequirements != nil {
			p.TechnicalRequirements = patch.TechnicalRequirements
		}
		if patch.Setlist != nil {
			p.Setlist = patch.Setlist
		}
		if patch.MerchandiseItems != nil {
			p.MerchandiseItems = patch.MerchandiseItems
		}
		if patch.PreferredRehearsalTimes != nil {
			p.PreferredRehearsalTimes = patch.PreferredRehearsalTimes
		}
		if patch.PreferredPerformanceSlots != nil {
			p.PreferredPerformanceSlots = patch.PreferredPerformanceSlots
		}
		return nil
	})
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	logging.FromContext(ctx).Info().Str("performance_id", updated.ID).Msg("performance updated")
	return updated, nil
}

func (s *service) AddBandMember(ctx context.Context, caller access.Caller, festivalID, performanceID, userID string) (*BandMemberAdded, error) {
	const op = "add_band_member"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, access.AddBandMember); err != nil {
		return nil, s.refuse(ctx, op, err)
	}
	if strings.TrimSpace(userID) == "" {
		return nil, s.refuse(ctx, op, apperr.Validation("user id must be provided", "userId"))
	}

	if _, err := s.coordinator.RequireFestival(ctx, festivalID); err != nil {
		return nil, s.refuse(ctx, op, err)
	}
	if _, err := s.directory.Roles(ctx, userID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			err = apperr.Reference("user not found", userID)
		}
		return nil, s.refuse(ctx, op, err)
	}

	check := func(p *models.Performance) error {
		if err := coordinator.RequireMembership(p, festivalID); err != nil {
			return err
		}
		if err := requireOwner(caller, p); err != nil {
			return err
		}
		if p.HasBandMember(userID) {
			return apperr.Conflict("user is already a band member for this performance")
		}
		return nil
	}
	current, err := s.store.GetPerformance(ctx, performanceID)
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}
	if err := check(current); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	// The grant is idempotent, so it runs before the write: a failed grant
	// leaves no member without the artist role.
	user, err := s.directory.GrantRole(ctx, userID, models.RoleArtist)
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	updated, err := s.store.MutatePerformance(ctx, performanceID, func(p *models.Performance) error {
		if err := check(p); err != nil {
			return err
		}
		p.BandMembers = append(p.BandMembers, userID)
		return nil
	})
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	logging.FromContext(ctx).Info().
		Str("performance_id", updated.ID).
		Str("user_id", userID).
		Msg("band member added")
	return &BandMemberAdded{Performance: updated, User: user}, nil
}

func (s *service) Submit(ctx context.Context, caller access.Caller, id string) (*models.Performance, error) {
	const op = "submit"
	return s.transition(ctx, caller, op, access.SubmitPerformance, "", id,
		[]models.FestivalState{models.FestivalSubmission},
		func(p *models.Performance) error {
			if err := requireOwner(caller, p); err != nil {
				return err
			}
			if p.State != models.PerformanceCreated {
				return stateError(models.PerformanceCreated)
			}
			if missing := p.MissingRequiredFields(); len(missing) > 0 {
				return apperr.Validation("performance submission failed, the following required fields are missing", missing...)
			}
			if missing := p.MissingOptionalFields(); len(missing) > 0 {
				return apperr.Validation("performance submission failed, the following optional fields must be completed before submission", missing...)
			}
			p.State = models.PerformanceSubmitted
			return nil
		})
}

func (s *service) Withdraw(ctx context.Context, caller access.Caller, id string) error {
	const op = "withdraw"
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.policy.Require(caller, access.WithdrawPerformance); err != nil {
		return s.refuse(ctx, op, err)
	}

	err := s.store.DeletePerformance(ctx, id, func(p *models.Performance) error {
		if err := requireOwner(caller, p); err != nil {
			return err
		}
		if p.State != models.PerformanceCreated {
			return apperr.StateGuard("performance cannot be withdrawn once it has been submitted", string(models.PerformanceCreated))
		}
		return nil
	})
	if err != nil {
		return s.refuse(ctx, op, err)
	}

	logging.FromContext(ctx).Info().Str("performance_id", id).Msg("performance withdrawn")
	return nil
}

func (s *service) AssignStageManager(ctx context.Context, caller access.Caller, festivalID, performanceID, staffID string) (*models.Performance, error) {
	const op = "assign_stage_manager"
	if strings.TrimSpace(staffID) == "" {
		return nil, s.refuse(ctx, op, apperr.Validation("staff id is required to assign a stage manager", "staffId"))
	}
	return s.transition(ctx, caller, op, access.AssignStageManager, festivalID, performanceID,
		[]models.FestivalState{models.FestivalAssignment},
		func(p *models.Performance) error {
			if p.StageManager != "" {
				return apperr.Conflict("this performance already has a stage manager assigned")
			}
			p.StageManager = staffID
			return nil
		},
		func(ctx context.Context) error {
			return s.directory.RequireRole(ctx, []string{staffID}, models.RoleStaff, "stage managers")
		})
}

func (s *service) Review(ctx context.Context, caller access.Caller, id string, review Review) (*models.Performance, error) {
	const op = "review"
	var invalid []string
	if review.Score < 1 || review.Score > 10 {
		invalid = append(invalid, "score")
	}
	if strings.TrimSpace(review.Comments) == "" {
		invalid = append(invalid, "comments")
	}
	if len(invalid) > 0 {
		return nil, s.refuse(ctx, op, apperr.Validation("score must be between 1 and 10 and comments are required", invalid...))
	}

	return s.transition(ctx, caller, op, access.ReviewPerformance, "", id,
		[]models.FestivalState{models.FestivalReview},
		func(p *models.Performance) error {
			if p.StageManager == "" || p.StageManager != caller.ID {
				return apperr.Authorization("only the assigned stage manager can review this performance")
			}
			if p.State != models.PerformanceSubmitted {
				return stateError(models.PerformanceSubmitted)
			}
			p.Score = review.Score
			p.ReviewerComments = strings.TrimSpace(review.Comments)
			p.State = models.PerformanceReviewed
			return nil
		})
}

func (s *service) Approve(ctx context.Context, caller access.Caller, festivalID, performanceID string) (*models.Performance, error) {
	return s.transition(ctx, caller, "approve", access.ApprovePerformance, festivalID, performanceID,
		[]models.FestivalState{models.FestivalScheduling},
		func(p *models.Performance) error {
			switch p.State {
			case models.PerformanceApproved:
				return apperr.StateGuard("performance is already approved", "not APPROVED")
			case models.PerformanceRejected:
				return apperr.StateGuard("performance has been rejected", "not REJECTED")
			}
			p.State = models.PerformanceApproved
			return nil
		})
}

func (s *service) Reject(ctx context.Context, caller access.Caller, festivalID, performanceID, reason string) (*models.Performance, error) {
	return s.reject(ctx, caller, "reject", access.RejectPerformance, festivalID, performanceID, reason, models.FestivalScheduling)
}

func (s *service) ManualReject(ctx context.Context, caller access.Caller, festivalID, performanceID, reason string) (*models.Performance, error) {
	return s.reject(ctx, caller, "manual_reject", access.ManualReject, festivalID, performanceID, reason, models.FestivalDecision)
}

func (s *service) FinalSubmission(ctx context.Context, caller access.Caller, festivalID, performanceID string, details FinalDetails) (*models.Performance, error) {
	const op = "final_submission"
	var missing []string
	if len(details.Setlist) == 0 {
		missing = append(missing, "setlist")
	}
	if strings.TrimSpace(details.TimeSlot) == "" {
		missing = append(missing, "timeSlot")
	}
	if strings.TrimSpace(details.RehearsalTime) == "" {
		missing = append(missing, "rehearsalTime")
	}
	if len(missing) > 0 {
		return nil, s.refuse(ctx, op, apperr.Validation("setlist, time slot, and rehearsal time are required", missing...))
	}

	return s.transition(ctx, caller, op, access.FinalizePerformance, festivalID, performanceID,
		[]models.FestivalState{models.FestivalFinalSubmission},
		func(p *models.Performance) error {
			if err := requireOwner(caller, p); err != nil {
				return err
			}
			if p.State != models.PerformanceApproved {
				return stateError(models.PerformanceApproved)
			}
			p.Setlist = append([]string(nil), details.Setlist...)
			p.TimeSlot = strings.TrimSpace(details.TimeSlot)
			p.RehearsalTime = strings.TrimSpace(details.RehearsalTime)
			p.State = models.PerformanceScheduled
			return nil
		})
}

func (s *service) Accept(ctx context.Context, caller access.Caller, festivalID, performanceID string) (*models.Performance, error) {
	return s.transition(ctx, caller, "accept", access.AcceptPerformance, festivalID, performanceID,
		[]models.FestivalState{models.FestivalDecision},
		func(p *models.Performance) error {
			if p.State != models.PerformanceApproved && p.State != models.PerformanceScheduled {
				return stateError(models.PerformanceApproved, models.PerformanceScheduled)
			}
			p.State = models.PerformanceAccepted
			return nil
		})
}

// Get returns a scheduled or accepted performance to anyone. In other states
// only its artists, its stage manager, and the festival's organizers see it;
// everyone else gets not-found.
func (s *service) Get(ctx context.Context, caller access.Caller, id string) (*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.store.GetPerformance(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.State == models.PerformanceScheduled || p.State == models.PerformanceAccepted {
		return p, nil
	}
	if !caller.Authenticated() {
		return nil, errPerformanceHidden
	}
	if requireOwner(caller, p) == nil || p.StageManager == caller.ID {
		return p, nil
	}
	festival, err := s.coordinator.RequireFestival(ctx, p.FestivalID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, errPerformanceHidden
		}
		return nil, err
	}
	if festival.HasOrganizer(caller.ID) {
		return p, nil
	}
	return nil, errPerformanceHidden
}

func (s *service) Search(ctx context.Context, query SearchQuery) ([]*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPerformances(ctx, store.PerformanceFilter{
		States:    []models.PerformanceState{models.PerformanceScheduled},
		Name:      query.Name,
		Genre:     query.Genre,
		ArtistIDs: query.ArtistIDs,
	})
}

func (s *service) ListScheduled(ctx context.Context) ([]*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPerformances(ctx, store.PerformanceFilter{
		States: []models.PerformanceState{models.PerformanceScheduled},
	})
}

func (s *service) ListMine(ctx context.Context, caller access.Caller) ([]*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, access.ListOwnPerformances); err != nil {
		return nil, err
	}
	return s.store.ListPerformances(ctx, store.PerformanceFilter{MemberID: caller.ID})
}

func (s *service) ListManaged(ctx context.Context, caller access.Caller) ([]*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, access.ListManagedPerformance); err != nil {
		return nil, err
	}
	return s.store.ListPerformances(ctx, store.PerformanceFilter{StageManagerID: caller.ID})
}

func (s *service) reject(
	ctx context.Context,
	caller access.Caller,
	op string,
	guard access.Operation,
	festivalID, performanceID, reason string,
	phase models.FestivalState,
) (*models.Performance, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, s.refuse(ctx, op, apperr.Validation("rejection reason is required", "rejectionReason"))
	}
	return s.transition(ctx, caller, op, guard, festivalID, performanceID,
		[]models.FestivalState{phase},
		func(p *models.Performance) error {
			if p.State == models.PerformanceRejected {
				return apperr.StateGuard("performance is already rejected", "not REJECTED")
			}
			p.State = models.PerformanceRejected
			p.RejectionReason = strings.TrimSpace(reason)
			return nil
		})
}

// transition runs one dual-gated performance state change. When festivalID is
// empty it is taken from the performance. prechecks run after the phase gate
// and before the write.
func (s *service) transition(
	ctx context.Context,
	caller access.Caller,
	op string,
	guard access.Operation,
	festivalID, performanceID string,
	phases []models.FestivalState,
	apply func(*models.Performance) error,
	prechecks ...func(context.Context) error,
) (*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Require(caller, guard); err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	if festivalID == "" {
		current, err := s.store.GetPerformance(ctx, performanceID)
		if err != nil {
			return nil, s.refuse(ctx, op, err)
		}
		festivalID = current.FestivalID
	}
	if _, err := s.coordinator.RequireFestival(ctx, festivalID, phases...); err != nil {
		return nil, s.refuse(ctx, op, err)
	}
	for _, check := range prechecks {
		if err := check(ctx); err != nil {
			return nil, s.refuse(ctx, op, err)
		}
	}

	updated, err := s.store.MutatePerformance(ctx, performanceID, func(p *models.Performance) error {
		if err := coordinator.RequireMembership(p, festivalID); err != nil {
			return err
		}
		return apply(p)
	})
	if err != nil {
		return nil, s.refuse(ctx, op, err)
	}

	s.transitioned(ctx, op, updated)
	return updated, nil
}

// requireArtists checks band members and artists together so one error lists every offender.
func (s *service) requireArtists(ctx context.Context, bandMembers, artists []string) error {
	var (
		labels    []string
		offending []string
	)
	groups := []struct {
		label string
		ids   []string
	}{
		{label: "band members", ids: bandMembers},
		{label: "artists", ids: artists},
	}
	for _, g := range groups {
		if len(g.ids) == 0 {
			continue
		}
		err := s.directory.RequireRole(ctx, g.ids, models.RoleArtist, g.label)
		if e, ok := apperr.As(err); ok && e.Kind == apperr.KindReference {
			labels = append(labels, g.label)
			offending = append(offending, e.Details...)
			continue
		}
		if err != nil {
			return err
		}
	}
	if len(offending) > 0 {
		msg := fmt.Sprintf("%s are invalid or lack the %s role", strings.Join(labels, " and "), models.RoleArtist)
		return apperr.Reference(msg, offending...)
	}
	return nil
}

func (s *service) transitioned(ctx context.Context, op string, p *models.Performance) {
	s.recorder.Transition("performance", op, string(p.State))
	logging.FromContext(ctx).Info().
		Str("performance_id", p.ID).
		Str("festival_id", p.FestivalID).
		Str("operation", op).
		Str("state", string(p.State)).
		Msg("performance transition")
}

func (s *service) refuse(ctx context.Context, op string, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logging.FromContext(ctx).Error().Err(err).Str("operation", op).Msg("performance operation failed")
		return err
	}
	s.recorder.Refused("performance", op, kind)
	logging.FromContext(ctx).Debug().Err(err).Str("operation", op).Msg("performance operation refused")
	return err
}

var errPerformanceHidden = apperr.NotFound("performance not found")

// requireOwner allows the submitting artist and anyone listed on the performance.
func requireOwner(caller access.Caller, p *models.Performance) error {
	if caller.ID == p.CreatedBy || p.HasMember(caller.ID) {
		return nil
	}
	return apperr.Authorization("only the performance's artists may change it")
}

func stateError(required ...models.PerformanceState) error {
	names := make([]string, len(required))
	for i, st := range required {
		names[i] = string(st)
	}
	joined := strings.Join(names, " or ")
	return apperr.StateGuard(fmt.Sprintf("performance must be in %s state", joined), joined)
}

func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
