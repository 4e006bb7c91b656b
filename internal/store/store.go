package store

import (
	"context"
	"strings"
	"time"

	"festivalhub/internal/models"
)

// FestivalStore persists festivals. Mutations run fn against the current
// record and save the result atomically; an error from fn aborts the write.
// Deletes run check the same way before removing the record.
type FestivalStore interface {
	CreateFestival(ctx context.Context, festival *models.Festival) (*models.Festival, error)
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	MutateFestival(ctx context.Context, id string, fn func(*models.Festival) error) (*models.Festival, error)
	DeleteFestival(ctx context.Context, id string, check func(*models.Festival) error) error
	ListFestivals(ctx context.Context, filter FestivalFilter) ([]*models.Festival, error)
}

// PerformanceStore persists performances.
type PerformanceStore interface {
	CreatePerformance(ctx context.Context, performance *models.Performance) (*models.Performance, error)
	GetPerformance(ctx context.Context, id string) (*models.Performance, error)
	MutatePerformance(ctx context.Context, id string, fn func(*models.Performance) error) (*models.Performance, error)
	DeletePerformance(ctx context.Context, id string, check func(*models.Performance) error) error
	ListPerformances(ctx context.Context, filter PerformanceFilter) ([]*models.Performance, error)
}

// CascadeStore writes a festival together with a set of its performances.
type CascadeStore interface {
	// MutateFestivalCascade loads the festival and every performance of it in
	// state, lets fn change them, and persists all of them in one write.
	MutateFestivalCascade(
		ctx context.Context,
		festivalID string,
		state models.PerformanceState,
		fn func(*models.Festival, []*models.Performance) error,
	) (*models.Festival, []*models.Performance, error)
}

// UserStore persists accounts for the identity directory.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	AddUserRole(ctx context.Context, id string, role models.Role) (*models.User, error)
}

// Store is the full record store used by the service.
type Store interface {
	FestivalStore
	PerformanceStore
	CascadeStore
	UserStore
}

// FestivalFilter narrows festival listings. Text fields match word by word,
// case-insensitively, in order. Results are sorted by start date, then name.
type FestivalFilter struct {
	States      []models.FestivalState
	Name        string
	Description string
	Venue       string
	StartFrom   *time.Time
	StartTo     *time.Time
	OrganizerID string
}

// PerformanceFilter narrows performance listings. Name matches when every
// word appears, in any order. Results are sorted by genre, then name.
type PerformanceFilter struct {
	FestivalID     string
	States         []models.PerformanceState
	Name           string
	Genre          string
	ArtistIDs      []string
	MemberID       string
	StageManagerID string
}

// matchWords reports whether every word of query appears in value, in order,
// ignoring case.
func matchWords(value, query string) bool {
	words := strings.Fields(strings.ToLower(query))
	rest := strings.ToLower(value)
	for _, w := range words {
		idx := strings.Index(rest, w)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(w):]
	}
	return true
}

// matchEveryWord reports whether every word of query appears somewhere in value, ignoring case.
func matchEveryWord(value, query string) bool {
	lower := strings.ToLower(value)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(lower, w) {
			return false
		}
	}
	return true
}

// likePattern turns a word query into an ILIKE pattern matching the same rows as matchWords.
func likePattern(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = escapeLike(w)
	}
	return "%" + strings.Join(words, "%") + "%"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (f FestivalFilter) matches(festival *models.Festival) bool {
	if len(f.States) > 0 && !containsFestivalState(f.States, festival.State) {
		return false
	}
	if f.Name != "" && !matchWords(festival.Name, f.Name) {
		return false
	}
	if f.Description != "" && !matchWords(festival.Description, f.Description) {
		return false
	}
	if f.Venue != "" && !matchWords(festival.Venue, f.Venue) {
		return false
	}
	if f.StartFrom != nil || f.StartTo != nil {
		start := festival.StartDate()
		if start.IsZero() {
			return false
		}
		if f.StartFrom != nil && start.Before(*f.StartFrom) {
			return false
		}
		if f.StartTo != nil && start.After(*f.StartTo) {
			return false
		}
	}
	if f.OrganizerID != "" && !festival.HasOrganizer(f.OrganizerID) {
		return false
	}
	return true
}

func (f PerformanceFilter) matches(p *models.Performance) bool {
	if f.FestivalID != "" && p.FestivalID != f.FestivalID {
		return false
	}
	if len(f.States) > 0 && !containsPerformanceState(f.States, p.State) {
		return false
	}
	if f.Name != "" && !matchEveryWord(p.Name, f.Name) {
		return false
	}
	if f.Genre != "" && !matchWords(p.Genre, f.Genre) {
		return false
	}
	for _, id := range f.ArtistIDs {
		found := false
		for _, a := range p.Artists {
			if a == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MemberID != "" && !p.HasMember(f.MemberID) {
		return false
	}
	if f.StageManagerID != "" && p.StageManager != f.StageManagerID {
		return false
	}
	return true
}

func containsFestivalState(states []models.FestivalState, s models.FestivalState) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

func containsPerformanceState(states []models.PerformanceState, s models.PerformanceState) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}
