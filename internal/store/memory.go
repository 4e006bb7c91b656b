package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"festivalhub/internal/apperr"
	"festivalhub/internal/models"
)

// Memory keeps every record in process memory. It is used for local runs and tests.
type Memory struct {
	mu           sync.RWMutex
	festivals    map[string]*models.Festival
	performances map[string]*models.Performance
	users        map[string]*models.User
	now          func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		festivals:    make(map[string]*models.Festival),
		performances: make(map[string]*models.Performance),
		users:        make(map[string]*models.User),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateFestival stores a new festival, assigning its identifier and timestamps.
func (m *Memory) CreateFestival(_ context.Context, festival *models.Festival) (*models.Festival, error) {
	if festival == nil {
		return nil, errors.New("festival is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.festivalNameTaken(festival.Name, "") {
		return nil, errFestivalNameTaken
	}

	f := festival.Clone()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = m.now()
	f.UpdatedAt = f.CreatedAt
	f.Performances = nil
	m.festivals[f.ID] = f

	return m.hydrate(f), nil
}

// GetFestival returns a festival by id.
func (m *Memory) GetFestival(_ context.Context, id string) (*models.Festival, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.festivals[id]
	if !ok {
		return nil, errFestivalNotFound
	}
	return m.hydrate(f), nil
}

// MutateFestival applies fn to the stored festival under the write lock.
func (m *Memory) MutateFestival(_ context.Context, id string, fn func(*models.Festival) error) (*models.Festival, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.festivals[id]
	if !ok {
		return nil, errFestivalNotFound
	}

	f := m.hydrate(existing)
	if err := fn(f); err != nil {
		return nil, err
	}
	if m.festivalNameTaken(f.Name, id) {
		return nil, errFestivalNameTaken
	}

	f.ID = id
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = m.now()
	stored := f.Clone()
	stored.Performances = nil
	m.festivals[id] = stored

	return m.hydrate(stored), nil
}

// DeleteFestival removes a festival together with its performances.
func (m *Memory) DeleteFestival(_ context.Context, id string, check func(*models.Festival) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.festivals[id]
	if !ok {
		return errFestivalNotFound
	}
	if check != nil {
		if err := check(m.hydrate(f)); err != nil {
			return err
		}
	}
	delete(m.festivals, id)
	for pid, p := range m.performances {
		if p.FestivalID == id {
			delete(m.performances, pid)
		}
	}
	return nil
}

// ListFestivals returns festivals matching filter, sorted by start date then name.
func (m *Memory) ListFestivals(_ context.Context, filter FestivalFilter) ([]*models.Festival, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Festival, 0)
	for _, f := range m.festivals {
		if filter.matches(f) {
			result = append(result, m.hydrate(f))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		si, sj := result[i].StartDate(), result[j].StartDate()
		if !si.Equal(sj) {
			// Festivals without dates sort last.
			if si.IsZero() {
				return false
			}
			if sj.IsZero() {
				return true
			}
			return si.Before(sj)
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// CreatePerformance stores a new performance.
func (m *Memory) CreatePerformance(_ context.Context, performance *models.Performance) (*models.Performance, error) {
	if performance == nil {
		return nil, errors.New("performance is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.festivals[performance.FestivalID]; !ok {
		return nil, errFestivalNotFound
	}
	if m.performanceNameTaken(performance.FestivalID, performance.Name, "") {
		return nil, errPerformanceNameTaken
	}

	p := performance.Clone()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.performances[p.ID] = p

	return p.Clone(), nil
}

// GetPerformance returns a performance by id.
func (m *Memory) GetPerformance(_ context.Context, id string) (*models.Performance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.performances[id]
	if !ok {
		return nil, errPerformanceNotFound
	}
	return p.Clone(), nil
}

// MutatePerformance applies fn to the stored performance under the write lock.
func (m *Memory) MutatePerformance(_ context.Context, id string, fn func(*models.Performance) error) (*models.Performance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.performances[id]
	if !ok {
		return nil, errPerformanceNotFound
	}

	p := existing.Clone()
	if err := fn(p); err != nil {
		return nil, err
	}
	if m.performanceNameTaken(existing.FestivalID, p.Name, id) {
		return nil, errPerformanceNameTaken
	}

	p.ID = id
	p.FestivalID = existing.FestivalID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = m.now()
	m.performances[id] = p.Clone()

	return p, nil
}

// DeletePerformance removes a performance.
func (m *Memory) DeletePerformance(_ context.Context, id string, check func(*models.Performance) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.performances[id]
	if !ok {
		return errPerformanceNotFound
	}
	if check != nil {
		if err := check(p.Clone()); err != nil {
			return err
		}
	}
	delete(m.performances, id)
	return nil
}

// ListPerformances returns performances matching filter, sorted by genre then name.
func (m *Memory) ListPerformances(_ context.Context, filter PerformanceFilter) ([]*models.Performance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.listPerformances(filter), nil
}

// MutateFestivalCascade changes a festival and its performances in state under one lock.
func (m *Memory) MutateFestivalCascade(
	_ context.Context,
	festivalID string,
	state models.PerformanceState,
	fn func(*models.Festival, []*models.Performance) error,
) (*models.Festival, []*models.Performance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.festivals[festivalID]
	if !ok {
		return nil, nil, errFestivalNotFound
	}

	f := m.hydrate(existing)
	perfs := m.listPerformances(PerformanceFilter{FestivalID: festivalID, States: []models.PerformanceState{state}})
	if err := fn(f, perfs); err != nil {
		return nil, nil, err
	}

	now := m.now()
	for _, p := range perfs {
		old := m.performances[p.ID]
		p.FestivalID = old.FestivalID
		p.CreatedAt = old.CreatedAt
		p.UpdatedAt = now
		m.performances[p.ID] = p.Clone()
	}
	f.ID = festivalID
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = now
	stored := f.Clone()
	stored.Performances = nil
	m.festivals[festivalID] = stored

	return m.hydrate(stored), perfs, nil
}

// CreateUser stores a new account. Usernames are unique.
func (m *Memory) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return nil, errUsernameTaken
		}
	}

	u := user.Clone()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = m.now()
	m.users[u.ID] = u

	return u.Clone(), nil
}

// GetUser returns an account by id.
func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	return u.Clone(), nil
}

// GetUserByUsername returns an account by username.
func (m *Memory) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u.Clone(), nil
		}
	}
	return nil, errUserNotFound
}

// AddUserRole grants role to the account if it does not hold it yet.
func (m *Memory) AddUserRole(_ context.Context, id string, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	u.Roles = u.Roles.With(role)
	return u.Clone(), nil
}

func (m *Memory) listPerformances(filter PerformanceFilter) []*models.Performance {
	result := make([]*models.Performance, 0)
	for _, p := range m.performances {
		if filter.matches(p) {
			result = append(result, p.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Genre != result[j].Genre {
			return result[i].Genre < result[j].Genre
		}
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// hydrate clones f and fills in its derived performance list. Callers hold the lock.
func (m *Memory) hydrate(f *models.Festival) *models.Festival {
	c := f.Clone()
	c.Performances = nil
	for _, p := range m.listPerformances(PerformanceFilter{FestivalID: f.ID}) {
		c.Performances = append(c.Performances, p.ID)
	}
	return c
}

func (m *Memory) festivalNameTaken(name, exceptID string) bool {
	for id, f := range m.festivals {
		if id != exceptID && f.Name == name {
			return true
		}
	}
	return false
}

func (m *Memory) performanceNameTaken(festivalID, name, exceptID string) bool {
	for id, p := range m.performances {
		if id != exceptID && p.FestivalID == festivalID && p.Name == name {
			return true
		}
	}
	return false
}

var (
	errFestivalNotFound     = apperr.NotFound("festival not found")
	errPerformanceNotFound  = apperr.NotFound("performance not found")
	errUserNotFound         = apperr.NotFound("user not found")
	errFestivalNameTaken    = apperr.Conflict("festival name must be unique")
	errPerformanceNameTaken = apperr.Conflict("performance name must be unique within the festival")
	errUsernameTaken        = apperr.Conflict("username already exists")
)
