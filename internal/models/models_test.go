package models

import (
	"testing"
	"time"
)

func TestFestivalStateNext(t *testing.T) {
	want := []FestivalState{
		FestivalCreated,
		FestivalSubmission,
		FestivalAssignment,
		FestivalReview,
		FestivalScheduling,
		FestivalFinalSubmission,
		FestivalDecision,
		FestivalAnnounced,
	}
	for i := 0; i < len(want)-1; i++ {
		next, ok := want[i].Next()
		if !ok || next != want[i+1] {
			t.Fatalf("%s.Next() = %s, %v; want %s", want[i], next, ok, want[i+1])
		}
		if !want[i].Before(want[i+1]) {
			t.Fatalf("%s should come before %s", want[i], want[i+1])
		}
	}
	if _, ok := FestivalAnnounced.Next(); ok {
		t.Fatalf("ANNOUNCED must be terminal")
	}
	if _, ok := FestivalState("BOGUS").Next(); ok {
		t.Fatalf("unknown state must have no successor")
	}
}

func TestMissingAnnouncementFields(t *testing.T) {
	tests := []struct {
		name     string
		festival Festival
		want     int
	}{
		{name: "nothing planned", festival: Festival{}, want: 3},
		{
			name: "zero budget figure",
			festival: Festival{
				VenueLayout:      &VenueLayout{Stages: []string{"Main"}, VendorAreas: []string{"North"}},
				Budget:           &Budget{Tracking: 1, Costs: 1, Logistics: 0, ExpectedRevenue: 1},
				VendorManagement: &VendorManagement{FoodStalls: []string{"Tacos"}, MerchandiseBooths: []string{"Shirts"}},
			},
			want: 1,
		},
		{
			name: "empty merchandise booths",
			festival: Festival{
				VenueLayout:      &VenueLayout{Stages: []string{"Main"}, VendorAreas: []string{"North"}},
				Budget:           &Budget{Tracking: 1, Costs: 1, Logistics: 1, ExpectedRevenue: 1},
				VendorManagement: &VendorManagement{FoodStalls: []string{"Tacos"}},
			},
			want: 1,
		},
		{
			name: "complete",
			festival: Festival{
				VenueLayout:      &VenueLayout{Stages: []string{"Main"}, VendorAreas: []string{"North"}},
				Budget:           &Budget{Tracking: 1, Costs: 1, Logistics: 1, ExpectedRevenue: 1},
				VendorManagement: &VendorManagement{FoodStalls: []string{"Tacos"}, MerchandiseBooths: []string{"Shirts"}},
			},
			want: 0,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.festival.MissingAnnouncementFields(); len(got) != tc.want {
				t.Fatalf("MissingAnnouncementFields() = %v, want %d entries", got, tc.want)
			}
		})
	}
}

func TestFestivalStartDate(t *testing.T) {
	d1 := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	f := Festival{Dates: []time.Time{d1, d2}}
	if !f.StartDate().Equal(d2) {
		t.Fatalf("StartDate() = %v, want %v", f.StartDate(), d2)
	}
	if !f.EndDate().Equal(d1) {
		t.Fatalf("EndDate() = %v, want %v", f.EndDate(), d1)
	}
}

func TestPerformanceMissingFields(t *testing.T) {
	p := Performance{Name: "Set", Description: "Late set", Genre: "Jazz", Duration: 45}
	if got := p.MissingRequiredFields(); len(got) != 1 || got[0] != "bandMembers" {
		t.Fatalf("MissingRequiredFields() = %v", got)
	}
	if got := p.MissingOptionalFields(); len(got) != 5 {
		t.Fatalf("MissingOptionalFields() = %v, want all five", got)
	}

	p.TechnicalRequirements = &TechnicalRequirements{Equipment: []string{"Amp"}, StageSetup: "Trio"}
	if got := p.MissingOptionalFields(); got[0] != "technicalRequirements" {
		t.Fatalf("partial technical requirements should be reported, got %v", got)
	}
}

func TestParseRoleSet(t *testing.T) {
	set, err := ParseRoleSet([]string{"artist", "STAFF"})
	if err != nil {
		t.Fatalf("ParseRoleSet error: %v", err)
	}
	if !set.Has(RoleArtist) || !set.Has(RoleStaff) || set.Has(RoleOrganizer) {
		t.Fatalf("unexpected set %v", set.Strings())
	}
	if _, err := ParseRoleSet(nil); err == nil {
		t.Fatalf("empty role list must be rejected")
	}
	if _, err := ParseRoleSet([]string{"ARTIST", "DJ"}); err == nil {
		t.Fatalf("unknown role must be rejected")
	}
}
