package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"festivalhub/internal/apperr"
	"festivalhub/internal/models"
)

func day(d int) time.Time {
	return time.Date(2027, 7, d, 0, 0, 0, 0, time.UTC)
}

func TestMemoryFestivalNamesAreUnique(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.CreateFestival(ctx, &models.Festival{Name: "Dup"}); err != nil {
		t.Fatalf("CreateFestival: %v", err)
	}
	other, err := m.CreateFestival(ctx, &models.Festival{Name: "Other"})
	if err != nil {
		t.Fatalf("CreateFestival: %v", err)
	}

	if _, err := m.CreateFestival(ctx, &models.Festival{Name: "Dup"}); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	_, err = m.MutateFestival(ctx, other.ID, func(f *models.Festival) error {
		f.Name = "Dup"
		return nil
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict on rename, got %v", err)
	}

	stored, err := m.GetFestival(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetFestival: %v", err)
	}
	if stored.Name != "Other" {
		t.Fatalf("failed rename must not persist, got %q", stored.Name)
	}
}

func TestMemoryMutateLeavesRecordOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	f, _ := m.CreateFestival(ctx, &models.Festival{Name: "Stable", State: models.FestivalCreated})
	boom := errors.New("boom")
	_, err := m.MutateFestival(ctx, f.ID, func(fs *models.Festival) error {
		fs.State = models.FestivalSubmission
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	stored, _ := m.GetFestival(ctx, f.ID)
	if stored.State != models.FestivalCreated {
		t.Fatalf("state changed despite error: %s", stored.State)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	f, _ := m.CreateFestival(ctx, &models.Festival{Name: "Copy", Organizers: []string{"o1"}})
	f.Organizers[0] = "changed"

	stored, _ := m.GetFestival(ctx, f.ID)
	if stored.Organizers[0] != "o1" {
		t.Fatalf("caller mutation leaked into store: %v", stored.Organizers)
	}
}

func TestMemoryPerformancesDeriveFestivalList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	f, _ := m.CreateFestival(ctx, &models.Festival{Name: "Parent"})
	if _, err := m.CreatePerformance(ctx, &models.Performance{FestivalID: "missing", Name: "Orphan"}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for unknown festival, got %v", err)
	}

	b, _ := m.CreatePerformance(ctx, &models.Performance{FestivalID: f.ID, Name: "B", Genre: "rock"})
	a, _ := m.CreatePerformance(ctx, &models.Performance{FestivalID: f.ID, Name: "A", Genre: "rock"})
	j, _ := m.CreatePerformance(ctx, &models.Performance{FestivalID: f.ID, Name: "Z", Genre: "jazz"})

	if _, err := m.CreatePerformance(ctx, &models.Performance{FestivalID: f.ID, Name: "A"}); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for duplicate name, got %v", err)
	}

	stored, _ := m.GetFestival(ctx, f.ID)
	want := []string{j.ID, a.ID, b.ID}
	if len(stored.Performances) != len(want) {
		t.Fatalf("expected %d performances, got %v", len(want), stored.Performances)
	}
	for i := range want {
		if stored.Performances[i] != want[i] {
			t.Fatalf("performance %d: want %s got %s", i, want[i], stored.Performances[i])
		}
	}

	if err := m.DeleteFestival(ctx, f.ID, nil); err != nil {
		t.Fatalf("DeleteFestival: %v", err)
	}
	if _, err := m.GetPerformance(ctx, a.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected performances removed with festival, got %v", err)
	}
}

func TestMemoryCascadeIsAllOrNothing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	f, _ := m.CreateFestival(ctx, &models.Festival{Name: "Cascade", State: models.FestivalFinalSubmission})
	p1, _ := m.CreatePerformance(ctx, &models.Performance{FestivalID: f.ID, Name: "One", State: models.PerformanceScheduled})
	p2, _ := m.CreatePerformance(ctx, &models.Performance{FestivalID: f.ID, Name: "Two", State: models.PerformanceApproved})

	_, _, err := m.MutateFestivalCascade(ctx, f.ID, models.PerformanceScheduled, func(fs *models.Festival, perfs []*models.Performance) error {
		fs.State = models.FestivalDecision
		for _, p := range perfs {
			p.State = models.PerformanceAccepted
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got, _ := m.GetPerformance(ctx, p1.ID); got.State != models.PerformanceScheduled {
		t.Fatalf("aborted cascade changed performance to %s", got.State)
	}

	festival, perfs, err := m.MutateFestivalCascade(ctx, f.ID, models.PerformanceScheduled, func(fs *models.Festival, perfs []*models.Performance) error {
		fs.State = models.FestivalDecision
		for _, p := range perfs {
			p.State = models.PerformanceAccepted
		}
		return nil
	})
	if err != nil {
		t.Fatalf("MutateFestivalCascade: %v", err)
	}
	if festival.State != models.FestivalDecision || len(perfs) != 1 || perfs[0].ID != p1.ID {
		t.Fatalf("unexpected cascade result: %s %v", festival.State, perfs)
	}
	if got, _ := m.GetPerformance(ctx, p2.ID); got.State != models.PerformanceApproved {
		t.Fatalf("performance outside the cascade changed to %s", got.State)
	}
}

func TestMemoryListFestivalsOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.CreateFestival(ctx, &models.Festival{Name: "Undated"})
	m.CreateFestival(ctx, &models.Festival{Name: "Later", Dates: []time.Time{day(20)}})
	m.CreateFestival(ctx, &models.Festival{Name: "Beta", Dates: []time.Time{day(5), day(3)}})
	m.CreateFestival(ctx, &models.Festival{Name: "Alpha", Dates: []time.Time{day(3)}})

	got, err := m.ListFestivals(ctx, FestivalFilter{})
	if err != nil {
		t.Fatalf("ListFestivals: %v", err)
	}
	want := []string{"Alpha", "Beta", "Later", "Undated"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: want %s got %s", i, name, got[i].Name)
		}
	}

	from, to := day(4), day(30)
	got, _ = m.ListFestivals(ctx, FestivalFilter{StartFrom: &from, StartTo: &to})
	if len(got) != 1 || got[0].Name != "Later" {
		t.Fatalf("date range filter returned %v", got)
	}
}

func TestMemoryUsers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u, err := m.CreateUser(ctx, &models.User{Username: "Ana", Roles: models.NewRoleSet(models.RoleVisitor)})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := m.CreateUser(ctx, &models.User{Username: "ana"}); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected case-insensitive conflict, got %v", err)
	}

	found, err := m.GetUserByUsername(ctx, "ANA")
	if err != nil || found.ID != u.ID {
		t.Fatalf("GetUserByUsername: %v %v", found, err)
	}

	promoted, err := m.AddUserRole(ctx, u.ID, models.RoleArtist)
	if err != nil {
		t.Fatalf("AddUserRole: %v", err)
	}
	if !promoted.Roles.Has(models.RoleArtist) || !promoted.Roles.Has(models.RoleVisitor) {
		t.Fatalf("unexpected roles %v", promoted.Roles.Strings())
	}
	if _, err := m.AddUserRole(ctx, "ghost", models.RoleArtist); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWordMatching(t *testing.T) {
	tests := []struct {
		value, query   string
		inOrder, every bool
	}{
		{value: "Summer Jazz Nights", query: "jazz", inOrder: true, every: true},
		{value: "Summer Jazz Nights", query: "summer nights", inOrder: true, every: true},
		{value: "Summer Jazz Nights", query: "nights summer", inOrder: false, every: true},
		{value: "Summer Jazz Nights", query: "winter", inOrder: false, every: false},
		{value: "anything", query: "  ", inOrder: true, every: true},
	}
	for _, tc := range tests {
		if got := matchWords(tc.value, tc.query); got != tc.inOrder {
			t.Errorf("matchWords(%q, %q) = %v", tc.value, tc.query, got)
		}
		if got := matchEveryWord(tc.value, tc.query); got != tc.every {
			t.Errorf("matchEveryWord(%q, %q) = %v", tc.value, tc.query, got)
		}
	}

	if got := likePattern("100% fun_time"); got != `%100\%%fun\_time%` {
		t.Fatalf("likePattern escaped to %q", got)
	}
}

func TestMemoryDeleteRunsCheckUnderLock(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	f, _ := m.CreateFestival(ctx, &models.Festival{Name: "Guarded", State: models.FestivalSubmission})
	p, _ := m.CreatePerformance(ctx, &models.Performance{FestivalID: f.ID, Name: "Kept", State: models.PerformanceSubmitted})

	refused := apperr.StateGuard("not deletable", "CREATED")
	if err := m.DeleteFestival(ctx, f.ID, func(*models.Festival) error { return refused }); !errors.Is(err, refused) {
		t.Fatalf("expected check error, got %v", err)
	}
	if err := m.DeletePerformance(ctx, p.ID, func(got *models.Performance) error {
		if got.State != models.PerformanceSubmitted {
			t.Fatalf("check saw state %s", got.State)
		}
		return refused
	}); !errors.Is(err, refused) {
		t.Fatalf("expected check error, got %v", err)
	}

	if _, err := m.GetFestival(ctx, f.ID); err != nil {
		t.Fatalf("festival should survive a refused delete: %v", err)
	}
	if _, err := m.GetPerformance(ctx, p.ID); err != nil {
		t.Fatalf("performance should survive a refused delete: %v", err)
	}

	if err := m.DeletePerformance(ctx, "missing", nil); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
