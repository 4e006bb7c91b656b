package access

import (
	"testing"

	"festivalhub/internal/apperr"
	"festivalhub/internal/models"
)

func caller(roles ...models.Role) Caller {
	return Caller{ID: "u1", Username: "someone", Roles: models.NewRoleSet(roles...)}
}

func TestStrictPolicy(t *testing.T) {
	policy := NewPolicy(false)

	tests := []struct {
		name    string
		caller  Caller
		op      Operation
		allowed bool
	}{
		{name: "organizer creates festival", caller: caller(models.RoleOrganizer), op: CreateFestival, allowed: true},
		{name: "artist cannot create festival", caller: caller(models.RoleArtist), op: CreateFestival},
		{name: "artist submits", caller: caller(models.RoleArtist), op: SubmitPerformance, allowed: true},
		{name: "staff cannot submit", caller: caller(models.RoleStaff), op: SubmitPerformance},
		{name: "staff reviews", caller: caller(models.RoleStaff), op: ReviewPerformance, allowed: true},
		{name: "organizer cannot review", caller: caller(models.RoleOrganizer), op: ReviewPerformance},
		{name: "multi-role caller", caller: caller(models.RoleArtist, models.RoleStaff), op: ReviewPerformance, allowed: true},
		{name: "visitor refused", caller: caller(models.RoleVisitor), op: ApprovePerformance},
		{name: "anonymous refused", caller: Caller{}, op: CreatePerformance},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Require(tc.caller, tc.op)
			if tc.allowed && err != nil {
				t.Fatalf("expected access, got %v", err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatalf("expected refusal")
				}
				if kind := apperr.KindOf(err); kind != apperr.KindAuthorization {
					t.Fatalf("kind = %s, want AUTHORIZATION", kind)
				}
			}
		})
	}
}

func TestBroadPolicyAcceptsAnyWorkingRole(t *testing.T) {
	policy := NewPolicy(true)

	for _, role := range []models.Role{models.RoleArtist, models.RoleOrganizer, models.RoleStaff} {
		for _, op := range []Operation{CreateFestival, SubmitPerformance, ReviewPerformance, AssignStageManager} {
			if err := policy.Require(caller(role), op); err != nil {
				t.Fatalf("%s should pass %s in broad mode: %v", role, op, err)
			}
		}
	}
	if err := policy.Require(caller(models.RoleVisitor), CreateFestival); err == nil {
		t.Fatalf("visitors must be refused in broad mode")
	}
	if !policy.Broad() {
		t.Fatalf("expected broad mode")
	}
}

func TestAcceptedReturnsCopy(t *testing.T) {
	policy := NewPolicy(false)
	roles := policy.Accepted(ReviewPerformance)
	if len(roles) != 1 || roles[0] != models.RoleStaff {
		t.Fatalf("Accepted(review) = %v", roles)
	}
	roles[0] = models.RoleVisitor
	if policy.Accepted(ReviewPerformance)[0] != models.RoleStaff {
		t.Fatalf("Accepted must not expose internal state")
	}
}
