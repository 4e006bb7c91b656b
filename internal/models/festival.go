package models

import (
	"fmt"
	"time"
)

// FestivalState is a phase in the festival administration lifecycle.
type FestivalState string

const (
	FestivalCreated         FestivalState = "CREATED"
	FestivalSubmission      FestivalState = "SUBMISSION"
	FestivalAssignment      FestivalState = "ASSIGNMENT"
	FestivalReview          FestivalState = "REVIEW"
	FestivalScheduling      FestivalState = "SCHEDULING"
	FestivalFinalSubmission FestivalState = "FINAL_SUBMISSION"
	FestivalDecision        FestivalState = "DECISION"
	FestivalAnnounced       FestivalState = "ANNOUNCED"
)

// festivalPhases lists the festival states in lifecycle order.
var festivalPhases = []FestivalState{
	FestivalCreated,
	FestivalSubmission,
	FestivalAssignment,
	FestivalReview,
	FestivalScheduling,
	FestivalFinalSubmission,
	FestivalDecision,
	FestivalAnnounced,
}

// Valid reports whether s is a known festival state.
func (s FestivalState) Valid() bool {
	return s.position() >= 0
}

// Next returns the only state a festival in s may move to.
// ok is false for ANNOUNCED and unknown states.
func (s FestivalState) Next() (FestivalState, bool) {
	pos := s.position()
	if pos < 0 || pos == len(festivalPhases)-1 {
		return "", false
	}
	return festivalPhases[pos+1], true
}

// Before reports whether s comes strictly earlier in the lifecycle than other.
func (s FestivalState) Before(other FestivalState) bool {
	return s.position() < other.position()
}

func (s FestivalState) position() int {
	for i, phase := range festivalPhases {
		if phase == s {
			return i
		}
	}
	return -1
}

// ParseFestivalState validates a raw state name.
func ParseFestivalState(raw string) (FestivalState, error) {
	s := FestivalState(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown festival state %q", raw)
	}
	return s, nil
}

// VenueLayout names the stages and vendor areas of the venue.
type VenueLayout struct {
	Stages      []string `json:"stages"`
	VendorAreas []string `json:"vendorAreas"`
}

// Complete reports whether both stages and vendor areas are listed.
func (v *VenueLayout) Complete() bool {
	return v != nil && len(v.Stages) > 0 && len(v.VendorAreas) > 0
}

// Budget holds the four tracked budget figures.
type Budget struct {
	Tracking        float64 `json:"tracking"`
	Costs           float64 `json:"costs"`
	Logistics       float64 `json:"logistics"`
	ExpectedRevenue float64 `json:"expectedRevenue"`
}

// Complete reports whether every budget figure is strictly positive.
func (b *Budget) Complete() bool {
	return b != nil && b.Tracking > 0 && b.Costs > 0 && b.Logistics > 0 && b.ExpectedRevenue > 0
}

// Negative reports whether any figure is below zero.
func (b *Budget) Negative() bool {
	return b != nil && (b.Tracking < 0 || b.Costs < 0 || b.Logistics < 0 || b.ExpectedRevenue < 0)
}

// VendorManagement lists the food stalls and merchandise booths.
type VendorManagement struct {
	FoodStalls        []string `json:"foodStalls"`
	MerchandiseBooths []string `json:"merchandiseBooths"`
}

// Complete reports whether both vendor lists are non-empty.
func (v *VendorManagement) Complete() bool {
	return v != nil && len(v.FoodStalls) > 0 && len(v.MerchandiseBooths) > 0
}

// Festival is the top-level event entity.
type Festival struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Dates            []time.Time       `json:"dates"`
	Venue            string            `json:"venue"`
	VenueLayout      *VenueLayout      `json:"venueLayout,omitempty"`
	Budget           *Budget           `json:"budget,omitempty"`
	VendorManagement *VendorManagement `json:"vendorManagement,omitempty"`
	Organizers       []string          `json:"organizers"`
	Staff            []string          `json:"staff"`
	State            FestivalState     `json:"state"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`

	// Derived from the performances referencing this festival; never stored.
	Performances []string `json:"performances"`
}

// StartDate returns the earliest festival date, or the zero time.
func (f *Festival) StartDate() time.Time {
	var start time.Time
	for _, d := range f.Dates {
		if start.IsZero() || d.Before(start) {
			start = d
		}
	}
	return start
}

// EndDate returns the latest festival date, or the zero time.
func (f *Festival) EndDate() time.Time {
	var end time.Time
	for _, d := range f.Dates {
		if d.After(end) {
			end = d
		}
	}
	return end
}

// HasOrganizer reports whether userID is one of the festival organizers.
func (f *Festival) HasOrganizer(userID string) bool {
	return containsString(f.Organizers, userID)
}

// HasStaff reports whether userID is on the festival staff roster.
func (f *Festival) HasStaff(userID string) bool {
	return containsString(f.Staff, userID)
}

// MissingAnnouncementFields lists the planning sections that still block announcement.
func (f *Festival) MissingAnnouncementFields() []string {
	var missing []string
	if !f.VenueLayout.Complete() {
		missing = append(missing, "venueLayout (stages and vendor areas)")
	}
	if !f.Budget.Complete() {
		missing = append(missing, "budget (tracking, costs, logistics, and expected revenue)")
	}
	if !f.VendorManagement.Complete() {
		missing = append(missing, "vendorManagement (food stalls and merchandise booths)")
	}
	return missing
}

// Clone returns a deep copy of f.
func (f *Festival) Clone() *Festival {
	if f == nil {
		return nil
	}
	c := *f
	c.Dates = append([]time.Time(nil), f.Dates...)
	c.Organizers = append([]string(nil), f.Organizers...)
	c.Staff = append([]string(nil), f.Staff...)
	c.Performances = append([]string(nil), f.Performances...)
	if f.VenueLayout != nil {
		c.VenueLayout = &VenueLayout{
			Stages:      append([]string(nil), f.VenueLayout.Stages...),
			VendorAreas: append([]string(nil), f.VenueLayout.VendorAreas...),
		}
	}
	if f.Budget != nil {
		b := *f.Budget
		c.Budget = &b
	}
	if f.VendorManagement != nil {
		c.VendorManagement = &VendorManagement{
			FoodStalls:        append([]string(nil), f.VendorManagement.FoodStalls...),
			MerchandiseBooths: append([]string(nil), f.VendorManagement.MerchandiseBooths...),
		}
	}
	return &c
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
