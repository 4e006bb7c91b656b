// Package coordinator keeps festivals and their performances consistent.
// It gates performance transitions on the parent festival's phase and runs
// decision-making, which moves a festival and its scheduled performances in
// one write.
package coordinator

import (
	"context"
	"fmt"
	"strings"

	"festivalhub/internal/access"
	"festivalhub/internal/apperr"
	"festivalhub/internal/logging"
	"festivalhub/internal/metrics"
	"festivalhub/internal/models"
	"festivalhub/internal/store"
)

// Store describes the persistence operations required by the coordinator.
type Store interface {
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	ListPerformances(ctx context.Context, filter store.PerformanceFilter) ([]*models.Performance, error)
	MutateFestivalCascade(
		ctx context.Context,
		festivalID string,
		state models.PerformanceState,
		fn func(*models.Festival, []*models.Performance) error,
	) (*models.Festival, []*models.Performance, error)
}

// Decision is the outcome of decision-making.
type Decision struct {
	Festival *models.Festival      `json:"festival"`
	Accepted []*models.Performance `json:"decisions"`
}

// Coordinator enforces the cross-entity rules.
type Coordinator struct {
	store    Store
	policy   *access.Policy
	recorder metrics.Recorder
}

// New constructs a Coordinator. A nil recorder discards metrics.
func New(s Store, policy *access.Policy, recorder metrics.Recorder) *Coordinator {
	if recorder == nil {
		recorder = metrics.Nop
	}
	return &Coordinator{store: s, policy: policy, recorder: recorder}
}

// RequireFestival loads the festival and, when phases are given, checks that it
// is in one of them.
func (c *Coordinator) RequireFestival(ctx context.Context, festivalID string, phases ...models.FestivalState) (*models.Festival, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	festival, err := c.store.GetFestival(ctx, festivalID)
	if err != nil {
		return nil, err
	}
	if len(phases) == 0 {
		return festival, nil
	}
	for _, phase := range phases {
		if festival.State == phase {
			return festival, nil
		}
	}
	return nil, PhaseError(phases...)
}

// PhaseError reports a festival outside the phases an operation needs.
func PhaseError(phases ...models.FestivalState) error {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = string(p)
	}
	required := strings.Join(names, " or ")
	return apperr.StateGuard(fmt.Sprintf("festival must be in %s state", required), required)
}

// RequireMembership fails with not-found when the performance belongs to another festival.
func RequireMembership(performance *models.Performance, festivalID string) error {
	if performance.FestivalID != festivalID {
		return apperr.NotFound("performance not found in this festival")
	}
	return nil
}

// PerformancesOf lists the festival's performances sorted by genre, then name.
func (c *Coordinator) PerformancesOf(ctx context.Context, festivalID string) ([]*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.ListPerformances(ctx, store.PerformanceFilter{FestivalID: festivalID})
}

// DecideFestival moves a FINAL_SUBMISSION festival to DECISION and accepts every
// SCHEDULED performance of it. Nothing is written unless at least one
// performance is SCHEDULED.
func (c *Coordinator) DecideFestival(ctx context.Context, caller access.Caller, festivalID string) (*Decision, error) {
	const op = "decision_making"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.policy.Require(caller, access.DecideFestival); err != nil {
		return nil, c.refuse(ctx, op, err)
	}

	festival, accepted, err := c.store.MutateFestivalCascade(ctx, festivalID, models.PerformanceScheduled,
		func(f *models.Festival, scheduled []*models.Performance) error {
			if f.State != models.FestivalFinalSubmission {
				return PhaseError(models.FestivalFinalSubmission)
			}
			if len(scheduled) == 0 {
				return apperr.NotFound("no performances found in SCHEDULED state")
			}
			f.State = models.FestivalDecision
			for _, p := range scheduled {
				p.State = models.PerformanceAccepted
			}
			return nil
		})
	if err != nil {
		return nil, c.refuse(ctx, op, err)
	}

	c.recorder.Transition("festival", op, string(festival.State))
	ids := make([]string, len(accepted))
	for i, p := range accepted {
		ids[i] = p.ID
		c.recorder.Transition("performance", op, string(p.State))
	}
	logging.FromContext(ctx).Info().
		Str("festival_id", festival.ID).
		Strs("accepted", ids).
		Msg("festival decided")

	return &Decision{Festival: festival, Accepted: accepted}, nil
}

func (c *Coordinator) refuse(ctx context.Context, op string, err error) error {
	kind := apperr.KindOf(err)
	if kind != apperr.KindInternal {
		c.recorder.Refused("festival", op, kind)
		logging.FromContext(ctx).Debug().Err(err).Str("operation", op).Msg("operation refused")
	}
	return err
}
