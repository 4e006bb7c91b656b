package festivals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festivalhub/internal/access"
	"festivalhub/internal/app/coordinator"
	"festivalhub/internal/apperr"
	"festivalhub/internal/identity"
	"festivalhub/internal/models"
	"festivalhub/internal/store"
)

type fixture struct {
	mem       *store.Memory
	svc       Service
	organizer access.Caller
	artist    access.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	dir := identity.New(mem, identity.Config{Secret: []byte("test-secret")})
	policy := access.NewPolicy(false)
	coord := coordinator.New(mem, policy, nil)

	f := &fixture{
		mem:       mem,
		svc:       New(mem, dir, coord, policy, nil),
		organizer: addUser(t, mem, "org-1", models.RoleOrganizer),
		artist:    addUser(t, mem, "artist-1", models.RoleArtist),
	}
	addUser(t, mem, "org-2", models.RoleOrganizer)
	addUser(t, mem, "staff-1", models.RoleStaff)
	return f
}

func addUser(t *testing.T, mem *store.Memory, id string, roles ...models.Role) access.Caller {
	t.Helper()
	u, err := mem.CreateUser(context.Background(), &models.User{
		ID:       id,
		Username: id,
		FullName: id,
		Roles:    models.NewRoleSet(roles...),
	})
	require.NoError(t, err)
	return access.Caller{ID: u.ID, Username: u.Username, Roles: u.Roles}
}

func validInput(name string) Input {
	return Input{
		Name:        name,
		Description: "three days of noise",
		Dates:       []time.Time{time.Date(2027, 7, 1, 0, 0, 0, 0, time.UTC)},
		Venue:       "Riverside Park",
		Organizers:  []string{"org-1"},
	}
}

func completePlanning() Patch {
	return Patch{
		VenueLayout:      &models.VenueLayout{Stages: []string{"Main"}, VendorAreas: []string{"North"}},
		Budget:           &models.Budget{Tracking: 1, Costs: 2, Logistics: 3, ExpectedRevenue: 4},
		VendorManagement: &models.VendorManagement{FoodStalls: []string{"Tacos"}, MerchandiseBooths: []string{"Shirts"}},
	}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

func TestCreateFestival(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.organizer, validInput("Summer Sound"))
	require.NoError(t, err)
	assert.Equal(t, models.FestivalCreated, created.State)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.Performances)

	_, err = f.svc.Create(ctx, f.organizer, validInput("Summer Sound"))
	requireKind(t, err, apperr.KindConflict)
}

func TestCreateFestivalValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input func() Input
		kind  apperr.Kind
	}{
		{
			name:  "no organizers",
			input: func() Input { in := validInput("A"); in.Organizers = nil; return in },
			kind:  apperr.KindValidation,
		},
		{
			name:  "missing name",
			input: func() Input { in := validInput(" "); return in },
			kind:  apperr.KindValidation,
		},
		{
			name: "negative budget",
			input: func() Input {
				in := validInput("B")
				in.Budget = &models.Budget{Tracking: -1}
				return in
			},
			kind: apperr.KindValidation,
		},
		{
			name:  "organizer without role",
			input: func() Input { in := validInput("C"); in.Organizers = []string{"artist-1"}; return in },
			kind:  apperr.KindReference,
		},
		{
			name:  "unknown staff",
			input: func() Input { in := validInput("D"); in.Staff = []string{"ghost"}; return in },
			kind:  apperr.KindReference,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.organizer, tc.input())
			requireKind(t, err, tc.kind)
		})
	}
}

func TestCreateFestivalListsEveryInvalidOrganizer(t *testing.T) {
	f := newFixture(t)

	in := validInput("Roster")
	in.Organizers = []string{"ghost", "org-1", "artist-1"}
	_, err := f.svc.Create(context.Background(), f.organizer, in)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindReference, e.Kind)
	assert.Equal(t, []string{"ghost", "artist-1"}, e.Details)
}

func TestCreateFestivalRequiresOrganizerRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.artist, validInput("Nope"))
	requireKind(t, err, apperr.KindAuthorization)
}

func TestFestivalMovesStrictlyForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fest, err := f.svc.Create(ctx, f.organizer, validInput("Forward"))
	require.NoError(t, err)

	_, err = f.svc.StartReview(ctx, f.organizer, fest.ID)
	requireKind(t, err, apperr.KindStateGuard)

	steps := []struct {
		run  func(context.Context, access.Caller, string) (*models.Festival, error)
		want models.FestivalState
	}{
		{f.svc.StartSubmission, models.FestivalSubmission},
		{f.svc.StartAssignment, models.FestivalAssignment},
		{f.svc.StartReview, models.FestivalReview},
		{f.svc.Schedule, models.FestivalScheduling},
		{f.svc.FinalSubmission, models.FestivalFinalSubmission},
	}
	for _, step := range steps {
		got, err := step.run(ctx, f.organizer, fest.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, got.State)
	}

	_, err = f.svc.StartSubmission(ctx, f.organizer, fest.ID)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindStateGuard, e.Kind)
	assert.Equal(t, string(models.FestivalCreated), e.Required)

	stored, err := f.svc.Get(ctx, f.organizer, fest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FestivalFinalSubmission, stored.State)
}

func TestUpdateFestival(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fest, err := f.svc.Create(ctx, f.organizer, validInput("Editable"))
	require.NoError(t, err)

	venue := "Harbour"
	updated, err := f.svc.Update(ctx, f.organizer, fest.ID, Patch{Venue: &venue, Organizers: []string{"org-1", "org-2"}})
	require.NoError(t, err)
	assert.Equal(t, "Harbour", updated.Venue)
	assert.Equal(t, []string{"org-1", "org-2"}, updated.Organizers)

	_, err = f.svc.Update(ctx, f.organizer, fest.ID, Patch{Organizers: []string{}})
	requireKind(t, err, apperr.KindValidation)

	blank := "  "
	_, err = f.svc.Update(ctx, f.organizer, fest.ID, Patch{Description: &blank, Venue: &blank, Dates: []time.Time{}})
	requireKind(t, err, apperr.KindValidation)
	e, _ := apperr.As(err)
	assert.Equal(t, []string{"description", "dates", "venue"}, e.Details)

	stored, err := f.svc.Get(ctx, f.organizer, fest.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harbour", stored.Venue)
	assert.NotEmpty(t, stored.Description)
	assert.NotEmpty(t, stored.Dates)

	_, err = f.svc.Update(ctx, f.organizer, "missing", Patch{Venue: &venue})
	requireKind(t, err, apperr.KindNotFound)
}

func TestGetHidesUnannouncedFestivals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput("Secret")
	in.Staff = []string{"staff-1"}
	fest, err := f.svc.Create(ctx, f.organizer, in)
	require.NoError(t, err)

	staff := access.Caller{ID: "staff-1", Username: "staff-1", Roles: models.NewRoleSet(models.RoleStaff)}
	for _, caller := range []access.Caller{f.organizer, staff} {
		_, err := f.svc.Get(ctx, caller, fest.ID)
		require.NoError(t, err, "caller %s", caller.ID)
	}
	for _, caller := range []access.Caller{{}, f.artist} {
		_, err := f.svc.Get(ctx, caller, fest.ID)
		requireKind(t, err, apperr.KindNotFound)
	}

	_, err = f.mem.MutateFestival(ctx, fest.ID, func(fs *models.Festival) error {
		fs.State = models.FestivalAnnounced
		return nil
	})
	require.NoError(t, err)
	got, err := f.svc.Get(ctx, access.Caller{}, fest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FestivalAnnounced, got.State)
}

func TestUpdateDuringAssignmentNeedsPlanning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fest, err := f.svc.Create(ctx, f.organizer, validInput("Planned"))
	require.NoError(t, err)
	_, err = f.svc.StartSubmission(ctx, f.organizer, fest.ID)
	require.NoError(t, err)
	_, err = f.svc.StartAssignment(ctx, f.organizer, fest.ID)
	require.NoError(t, err)

	venue := "Elsewhere"
	_, err = f.svc.Update(ctx, f.organizer, fest.ID, Patch{Venue: &venue})
	requireKind(t, err, apperr.KindValidation)

	// Planning completed before assignment unlocks further edits.
	f2, err := f.svc.Create(ctx, f.organizer, validInput("Planned Early"))
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, f.organizer, f2.ID, completePlanning())
	require.NoError(t, err)
	_, err = f.svc.StartSubmission(ctx, f.organizer, f2.ID)
	require.NoError(t, err)
	_, err = f.svc.StartAssignment(ctx, f.organizer, f2.ID)
	require.NoError(t, err)
	updated, err := f.svc.Update(ctx, f.organizer, f2.ID, Patch{Venue: &venue})
	require.NoError(t, err)
	assert.Equal(t, "Elsewhere", updated.Venue)
}

func TestDeleteOnlyWhileCreated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fest, err := f.svc.Create(ctx, f.organizer, validInput("Short Lived"))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.organizer, fest.ID))
	_, err = f.svc.Get(ctx, f.organizer, fest.ID)
	requireKind(t, err, apperr.KindNotFound)

	fest, err = f.svc.Create(ctx, f.organizer, validInput("Sticky"))
	require.NoError(t, err)
	_, err = f.svc.StartSubmission(ctx, f.organizer, fest.ID)
	require.NoError(t, err)
	requireKind(t, f.svc.Delete(ctx, f.organizer, fest.ID), apperr.KindStateGuard)
}

func TestAddOrganizersAndStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fest, err := f.svc.Create(ctx, f.organizer, validInput("Growing"))
	require.NoError(t, err)

	updated, err := f.svc.AddOrganizers(ctx, f.organizer, fest.ID, []string{"org-1", "org-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"org-1", "org-2"}, updated.Organizers)

	again, err := f.svc.AddOrganizers(ctx, f.organizer, fest.ID, []string{"org-2"})
	require.NoError(t, err)
	assert.Equal(t, updated.Organizers, again.Organizers)

	_, err = f.svc.AddOrganizers(ctx, f.organizer, fest.ID, nil)
	requireKind(t, err, apperr.KindValidation)

	_, err = f.svc.AddStaff(ctx, f.organizer, fest.ID, []string{"staff-1", "org-2", "ghost"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindReference, e.Kind)
	assert.Equal(t, []string{"org-2", "ghost"}, e.Details)

	withStaff, err := f.svc.AddStaff(ctx, f.organizer, fest.ID, []string{"staff-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"staff-1"}, withStaff.Staff)
}

func TestAnnounceRequiresPlanning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fest, err := f.svc.Create(ctx, f.organizer, validInput("Announced"))
	require.NoError(t, err)
	stored, err := f.mem.MutateFestival(ctx, fest.ID, func(fs *models.Festival) error {
		fs.State = models.FestivalDecision
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, models.FestivalDecision, stored.State)

	_, err = f.svc.Announce(ctx, f.organizer, fest.ID)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Len(t, e.Details, 3)

	planning := completePlanning()
	planning.Budget.Logistics = 0
	_, err = f.svc.Update(ctx, f.organizer, fest.ID, planning)
	require.NoError(t, err)
	_, err = f.svc.Announce(ctx, f.organizer, fest.ID)
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Len(t, e.Details, 1)

	_, err = f.svc.Update(ctx, f.organizer, fest.ID, completePlanning())
	require.NoError(t, err)
	announced, err := f.svc.Announce(ctx, f.organizer, fest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FestivalAnnounced, announced.State)

	venue := "Too Late"
	_, err = f.svc.Update(ctx, f.organizer, fest.ID, Patch{Venue: &venue})
	requireKind(t, err, apperr.KindStateGuard)
	_, err = f.svc.AddStaff(ctx, f.organizer, fest.ID, []string{"staff-1"})
	requireKind(t, err, apperr.KindStateGuard)

	listed, err := f.svc.ListAnnounced(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, fest.ID, listed[0].ID)
}

func TestSearchOnlyAnnounced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"Jazz Nights", "Jazz Mornings"} {
		fest, err := f.svc.Create(ctx, f.organizer, validInput(name))
		require.NoError(t, err)
		if name == "Jazz Nights" {
			_, err = f.mem.MutateFestival(ctx, fest.ID, func(fs *models.Festival) error {
				fs.State = models.FestivalAnnounced
				return nil
			})
			require.NoError(t, err)
		}
	}

	found, err := f.svc.Search(ctx, SearchQuery{Name: "jazz"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Jazz Nights", found[0].Name)

	found, err = f.svc.Search(ctx, SearchQuery{Name: "nights jazz"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestListResponsible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine, err := f.svc.Create(ctx, f.organizer, validInput("Mine"))
	require.NoError(t, err)
	other := validInput("Theirs")
	other.Organizers = []string{"org-2"}
	_, err = f.svc.Create(ctx, f.organizer, other)
	require.NoError(t, err)

	_, err = f.mem.CreatePerformance(ctx, &models.Performance{FestivalID: mine.ID, Name: "Act", Genre: "rock"})
	require.NoError(t, err)

	list, err := f.svc.ListResponsible(ctx, f.organizer)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
	assert.Len(t, list[0].PerformanceDetails, 1)
	assert.Len(t, list[0].Performances, 1)

	_, err = f.svc.ListResponsible(ctx, f.artist)
	requireKind(t, err, apperr.KindAuthorization)
}
