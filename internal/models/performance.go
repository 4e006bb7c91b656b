package models

import (
	"fmt"
	"strings"
	"time"
)

// PerformanceState is a phase in a performance's own lifecycle.
type PerformanceState string

const (
	PerformanceCreated   PerformanceState = "CREATED"
	PerformanceSubmitted PerformanceState = "SUBMITTED"
	PerformanceReviewed  PerformanceState = "REVIEWED"
	PerformanceApproved  PerformanceState = "APPROVED"
	PerformanceRejected  PerformanceState = "REJECTED"
	PerformanceScheduled PerformanceState = "SCHEDULED"
	PerformanceAccepted  PerformanceState = "ACCEPTED"
)

// Valid reports whether s is a known performance state.
func (s PerformanceState) Valid() bool {
	switch s {
	case PerformanceCreated, PerformanceSubmitted, PerformanceReviewed, PerformanceApproved,
		PerformanceRejected, PerformanceScheduled, PerformanceAccepted:
		return true
	}
	return false
}

// Locked reports whether the artist may no longer edit performance fields.
func (s PerformanceState) Locked() bool {
	return s == PerformanceReviewed || s == PerformanceApproved || s == PerformanceScheduled
}

// ParsePerformanceState validates a raw state name.
func ParsePerformanceState(raw string) (PerformanceState, error) {
	s := PerformanceState(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown performance state %q", raw)
	}
	return s, nil
}

// TechnicalRequirements describes what the act needs on stage.
type TechnicalRequirements struct {
	Equipment     []string `json:"equipment"`
	StageSetup    string   `json:"stageSetup"`
	SoundLighting string   `json:"soundLighting"`
}

// Complete reports whether every technical requirement is filled in.
func (t *TechnicalRequirements) Complete() bool {
	return t != nil &&
		len(t.Equipment) > 0 &&
		strings.TrimSpace(t.StageSetup) != "" &&
		strings.TrimSpace(t.SoundLighting) != ""
}

// MerchandiseItem is something the act sells at the festival.
type MerchandiseItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Price       float64 `json:"price"`
}

// Performance is an act's submission to a festival.
type Performance struct {
	ID                        string                 `json:"id"`
	FestivalID                string                 `json:"festivalId"`
	Name                      string                 `json:"name"`
	Description               string                 `json:"description"`
	Genre                     string                 `json:"genre"`
	Duration                  int                    `json:"duration"`
	BandMembers               []string               `json:"bandMembers"`
	Artists                   []string               `json:"artists"`
	TechnicalRequirements     *TechnicalRequirements `json:"technicalRequirements,omitempty"`
	Setlist                   []string               `json:"setlist"`
	MerchandiseItems          []MerchandiseItem      `json:"merchandiseItems"`
	PreferredRehearsalTimes   []string               `json:"preferredRehearsalTimes"`
	PreferredPerformanceSlots []string               `json:"preferredPerformanceSlots"`
	StageManager              string                 `json:"stageManager,omitempty"`
	ReviewerComments          string                 `json:"reviewerComments,omitempty"`
	Score                     int                    `json:"score,omitempty"`
	RejectionReason           string                 `json:"rejectionReason,omitempty"`
	TimeSlot                  string                 `json:"timeSlot,omitempty"`
	RehearsalTime             string                 `json:"rehearsalTime,omitempty"`
	State                     PerformanceState       `json:"state"`
	CreatedBy                 string                 `json:"createdBy"`
	CreatedAt                 time.Time              `json:"createdAt"`
	UpdatedAt                 time.Time              `json:"updatedAt"`
}

// MissingRequiredFields lists the required fields that are empty.
func (p *Performance) MissingRequiredFields() []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(p.Genre) == "" {
		missing = append(missing, "genre")
	}
	if p.Duration <= 0 {
		missing = append(missing, "duration")
	}
	if len(p.BandMembers) == 0 {
		missing = append(missing, "bandMembers")
	}
	return missing
}

// MissingOptionalFields lists the optional fields that must be filled before submission.
func (p *Performance) MissingOptionalFields() []string {
	var missing []string
	if !p.TechnicalRequirements.Complete() {
		missing = append(missing, "technicalRequirements")
	}
	if len(p.Setlist) == 0 {
		missing = append(missing, "setlist")
	}
	if len(p.MerchandiseItems) == 0 {
		missing = append(missing, "merchandiseItems")
	}
	if len(p.PreferredRehearsalTimes) == 0 {
		missing = append(missing, "preferredRehearsalTimes")
	}
	if len(p.PreferredPerformanceSlots) == 0 {
		missing = append(missing, "preferredPerformanceSlots")
	}
	return missing
}

// HasMember reports whether userID is listed as an artist or band member.
func (p *Performance) HasMember(userID string) bool {
	return containsString(p.Artists, userID) || containsString(p.BandMembers, userID)
}

// HasBandMember reports whether userID is already in the band.
func (p *Performance) HasBandMember(userID string) bool {
	return containsString(p.BandMembers, userID)
}

// Clone returns a deep copy of p.
func (p *Performance) Clone() *Performance {
	if p == nil {
		return nil
	}
	c := *p
	c.BandMembers = append([]string(nil), p.BandMembers...)
	c.Artists = append([]string(nil), p.Artists...)
	c.Setlist = append([]string(nil), p.Setlist...)
	c.MerchandiseItems = append([]MerchandiseItem(nil), p.MerchandiseItems...)
	c.PreferredRehearsalTimes = append([]string(nil), p.PreferredRehearsalTimes...)
	c.PreferredPerformanceSlots = append([]string(nil), p.PreferredPerformanceSlots...)
	if p.TechnicalRequirements != nil {
		c.TechnicalRequirements = &TechnicalRequirements{
			Equipment:     append([]string(nil), p.TechnicalRequirements.Equipment...),
			StageSetup:    p.TechnicalRequirements.StageSetup,
			SoundLighting: p.TechnicalRequirements.SoundLighting,
		}
	}
	return &c
}
