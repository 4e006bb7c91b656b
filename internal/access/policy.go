// Package access decides which callers may run which lifecycle operations.
//
// Every guarded operation names the set of roles it accepts. In strict mode the
// set is exactly the role the operation belongs to. Broad mode reproduces the
// older routing, where the organizer, artist, and staff guards each let any of
// those three roles through. Visitors are never accepted.
package access

import (
	"fmt"
	"strings"

	"festivalhub/internal/apperr"
	"festivalhub/internal/models"
)

// Caller is the authenticated identity attached to a request.
type Caller struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	Roles    models.RoleSet `json:"roles"`
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool {
	return c.ID != ""
}

// Operation names a guarded lifecycle operation.
type Operation string

const (
	CreateFestival         Operation = "festival.create"
	UpdateFestival         Operation = "festival.update"
	DeleteFestival         Operation = "festival.delete"
	AddOrganizers          Operation = "festival.add_organizers"
	AddStaff               Operation = "festival.add_staff"
	AdvanceFestival        Operation = "festival.advance"
	DecideFestival         Operation = "festival.decide"
	AnnounceFestival       Operation = "festival.announce"
	ListOwnFestivals       Operation = "festival.list_own"
	CreatePerformance      Operation = "performance.create"
	UpdatePerformance      Operation = "performance.update"
	AddBandMember          Operation = "performance.add_band_member"
	SubmitPerformance      Operation = "performance.submit"
	WithdrawPerformance    Operation = "performance.withdraw"
	FinalizePerformance    Operation = "performance.final_submission"
	ListOwnPerformances    Operation = "performance.list_own"
	AssignStageManager     Operation = "performance.assign_stage_manager"
	ApprovePerformance     Operation = "performance.approve"
	RejectPerformance      Operation = "performance.reject"
	ManualReject           Operation = "performance.manual_reject"
	AcceptPerformance      Operation = "performance.accept"
	ReviewPerformance      Operation = "performance.review"
	ListManagedPerformance Operation = "performance.list_managed"
)

var strictRoles = map[Operation]models.Role{
	CreateFestival:         models.RoleOrganizer,
	UpdateFestival:         models.RoleOrganizer,
	DeleteFestival:         models.RoleOrganizer,
	AddOrganizers:          models.RoleOrganizer,
	AddStaff:               models.RoleOrganizer,
	AdvanceFestival:        models.RoleOrganizer,
	DecideFestival:         models.RoleOrganizer,
	AnnounceFestival:       models.RoleOrganizer,
	ListOwnFestivals:       models.RoleOrganizer,
	CreatePerformance:      models.RoleArtist,
	UpdatePerformance:      models.RoleArtist,
	AddBandMember:          models.RoleArtist,
	SubmitPerformance:      models.RoleArtist,
	WithdrawPerformance:    models.RoleArtist,
	FinalizePerformance:    models.RoleArtist,
	ListOwnPerformances:    models.RoleArtist,
	AssignStageManager:     models.RoleOrganizer,
	ApprovePerformance:     models.RoleOrganizer,
	RejectPerformance:      models.RoleOrganizer,
	ManualReject:           models.RoleOrganizer,
	AcceptPerformance:      models.RoleOrganizer,
	ReviewPerformance:      models.RoleStaff,
	ListManagedPerformance: models.RoleStaff,
}

var broadRoles = []models.Role{models.RoleArtist, models.RoleOrganizer, models.RoleStaff}

// Policy maps operations to accepted role sets.
type Policy struct {
	accepted map[Operation][]models.Role
	broad    bool
}

// NewPolicy builds the policy. broad enables legacy interchangeable guards.
func NewPolicy(broad bool) *Policy {
	accepted := make(map[Operation][]models.Role, len(strictRoles))
	for op, role := range strictRoles {
		if broad {
			accepted[op] = broadRoles
		} else {
			accepted[op] = []models.Role{role}
		}
	}
	return &Policy{accepted: accepted, broad: broad}
}

// Broad reports whether the policy runs in legacy broad mode.
func (p *Policy) Broad() bool {
	return p.broad
}

// Accepted returns the roles op accepts.
func (p *Policy) Accepted(op Operation) []models.Role {
	return append([]models.Role(nil), p.accepted[op]...)
}

// Require fails with an authorization error unless caller holds one of the roles op accepts.
func (p *Policy) Require(caller Caller, op Operation) error {
	if !caller.Authenticated() {
		return apperr.Authorization("authentication required")
	}
	roles, ok := p.accepted[op]
	if !ok {
		return apperr.Authorization(fmt.Sprintf("operation %s is not permitted", op))
	}
	if caller.Roles.HasAny(roles...) {
		return nil
	}

	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return apperr.Authorization(fmt.Sprintf("%s requires role %s", op, strings.Join(names, " or ")))
}
