package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"festivalhub/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Postgres persists records in PostgreSQL. Each row keeps the searchable
// columns next to a jsonb document holding the full entity.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const festivalColumns = `
	f.id, f.document, f.created_at, f.updated_at,
	COALESCE((SELECT array_agg(p.id ORDER BY p.genre, p.name, p.id)
	          FROM performances p WHERE p.festival_id = f.id), '{}')`

const performanceColumns = `p.id, p.festival_id, p.document, p.created_at, p.updated_at`

const userColumns = `id, username, password_hash, full_name, roles, created_at`

// CreateFestival inserts a festival row.
func (s *Postgres) CreateFestival(ctx context.Context, festival *models.Festival) (*models.Festival, error) {
	if festival == nil {
		return nil, errors.New("festival is required")
	}

	f := festival.Clone()
	f.ID = uuid.NewString()
	f.CreatedAt = s.now()
	f.UpdatedAt = f.CreatedAt
	f.Performances = nil

	doc, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode festival: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO festivals (id, name, description, venue, state, start_date,
		                       organizers, staff, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, f.ID, f.Name, f.Description, f.Venue, string(f.State), nullTime(f.StartDate()),
		pq.Array(f.Organizers), pq.Array(f.Staff), doc, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return nil, errFestivalNameTaken
		}
		return nil, fmt.Errorf("insert festival: %w", err)
	}

	return f, nil
}

// GetFestival loads a festival with its derived performance ids.
func (s *Postgres) GetFestival(ctx context.Context, id string) (*models.Festival, error) {
	return getFestival(ctx, s.db, id)
}

// MutateFestival locks the festival row, applies fn and writes the result back.
func (s *Postgres) MutateFestival(ctx context.Context, id string, fn func(*models.Festival) error) (*models.Festival, error) {
	var updated *models.Festival
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "festivals", id, errFestivalNotFound); err != nil {
			return err
		}
		f, err := getFestival(ctx, tx, id)
		if err != nil {
			return err
		}
		createdAt := f.CreatedAt
		if err := fn(f); err != nil {
			return err
		}
		f.ID = id
		f.CreatedAt = createdAt
		f.UpdatedAt = s.now()
		if err := saveFestival(ctx, tx, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteFestival locks the festival row, runs check against it when set, and
// removes it. Performances go with it through the foreign key.
func (s *Postgres) DeleteFestival(ctx context.Context, id string, check func(*models.Festival) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "festivals", id, errFestivalNotFound); err != nil {
			return err
		}
		if check != nil {
			f, err := getFestival(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := check(f); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM festivals WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete festival: %w", err)
		}
		return nil
	})
}

// ListFestivals runs a filtered festival query.
func (s *Postgres) ListFestivals(ctx context.Context, filter FestivalFilter) ([]*models.Festival, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, st := range filter.States {
			states[i] = string(st)
		}
		add("f.state = ANY(?)", pq.Array(states))
	}
	if strings.TrimSpace(filter.Name) != "" {
		add("f.name ILIKE ?", likePattern(filter.Name))
	}
	if strings.TrimSpace(filter.Description) != "" {
		add("f.description ILIKE ?", likePattern(filter.Description))
	}
	if strings.TrimSpace(filter.Venue) != "" {
		add("f.venue ILIKE ?", likePattern(filter.Venue))
	}
	if filter.StartFrom != nil {
		add("f.start_date >= ?", *filter.StartFrom)
	}
	if filter.StartTo != nil {
		add("f.start_date <= ?", *filter.StartTo)
	}
	if filter.OrganizerID != "" {
		add("? = ANY(f.organizers)", filter.OrganizerID)
	}

	query := "SELECT " + festivalColumns + " FROM festivals f"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.start_date ASC NULLS LAST, f.name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list festivals: %w", err)
	}
	defer rows.Close()

	festivals := make([]*models.Festival, 0)
	for rows.Next() {
		f, err := scanFestival(rows)
		if err != nil {
			return nil, err
		}
		festivals = append(festivals, f)
	}
	return festivals, rows.Err()
}

// CreatePerformance inserts a performance row.
func (s *Postgres) CreatePerformance(ctx context.Context, performance *models.Performance) (*models.Performance, error) {
	if performance == nil {
		return nil, errors.New("performance is required")
	}

	p := performance.Clone()
	p.ID = uuid.NewString()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt

	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode performance: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO performances (id, festival_id, name, genre, state, stage_manager,
		                          artists, members, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.FestivalID, p.Name, p.Genre, string(p.State), p.StageManager,
		pq.Array(p.Artists), pq.Array(memberIDs(p)), doc, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		switch {
		case isPgCode(err, pgUniqueViolation):
			return nil, errPerformanceNameTaken
		case isPgCode(err, pgForeignKeyViolation):
			return nil, errFestivalNotFound
		}
		return nil, fmt.Errorf("insert performance: %w", err)
	}

	return p, nil
}

// GetPerformance loads a performance by id.
func (s *Postgres) GetPerformance(ctx context.Context, id string) (*models.Performance, error) {
	return getPerformance(ctx, s.db, id)
}

// MutatePerformance locks the performance row, applies fn and writes the result back.
func (s *Postgres) MutatePerformance(ctx context.Context, id string, fn func(*models.Performance) error) (*models.Performance, error) {
	var updated *models.Performance
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "performances", id, errPerformanceNotFound); err != nil {
			return err
		}
		p, err := getPerformance(ctx, tx, id)
		if err != nil {
			return err
		}
		festivalID, createdAt := p.FestivalID, p.CreatedAt
		if err := fn(p); err != nil {
			return err
		}
		p.ID = id
		p.FestivalID = festivalID
		p.CreatedAt = createdAt
		p.UpdatedAt = s.now()
		if err := savePerformance(ctx, tx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePerformance locks the performance row, runs check against it when
// set, and removes it.
func (s *Postgres) DeletePerformance(ctx context.Context, id string, check func(*models.Performance) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "performances", id, errPerformanceNotFound); err != nil {
			return err
		}
		if check != nil {
			p, err := getPerformance(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := check(p); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM performances WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete performance: %w", err)
		}
		return nil
	})
}

// ListPerformances runs a filtered performance query.
func (s *Postgres) ListPerformances(ctx context.Context, filter PerformanceFilter) ([]*models.Performance, error) {
	return listPerformances(ctx, s.db, filter, false)
}

// MutateFestivalCascade updates a festival and its performances in state inside one transaction.
func (s *Postgres) MutateFestivalCascade(
	ctx context.Context,
	festivalID string,
	state models.PerformanceState,
	fn func(*models.Festival, []*models.Performance) error,
) (*models.Festival, []*models.Performance, error) {
	var (
		festival *models.Festival
		perfs    []*models.Performance
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "festivals", festivalID, errFestivalNotFound); err != nil {
			return err
		}
		f, err := getFestival(ctx, tx, festivalID)
		if err != nil {
			return err
		}
		affected, err := listPerformances(ctx, tx, PerformanceFilter{
			FestivalID: festivalID,
			States:     []models.PerformanceState{state},
		}, true)
		if err != nil {
			return err
		}

		createdAt := f.CreatedAt
		if err := fn(f, affected); err != nil {
			return err
		}

		now := s.now()
		for _, p := range affected {
			p.FestivalID = festivalID
			p.UpdatedAt = now
			if err := savePerformance(ctx, tx, p); err != nil {
				return err
			}
		}
		f.ID = festivalID
		f.CreatedAt = createdAt
		f.UpdatedAt = now
		if err := saveFestival(ctx, tx, f); err != nil {
			return err
		}

		festival, perfs = f, affected
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return festival, perfs, nil
}

// CreateUser inserts an account.
func (s *Postgres) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}

	u := user.Clone()
	u.ID = uuid.NewString()
	u.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, full_name, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.PasswordHash, u.FullName, pq.Array(u.Roles.Strings()), u.CreatedAt)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return nil, errUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

// GetUser loads an account by id.
func (s *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByUsername loads an account by case-insensitive username.
func (s *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
	return scanUser(row)
}

// AddUserRole appends role to the account's roles when it is missing.
func (s *Postgres) AddUserRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET roles = CASE WHEN $2 = ANY(roles) THEN roles ELSE array_append(roles, $2) END
		WHERE id = $1
		RETURNING `+userColumns, id, string(role))
	return scanUser(row)
}

func (s *Postgres) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func lockRow(ctx context.Context, tx *sql.Tx, table, id string, notFound error) error {
	var locked string
	err := tx.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", table, err)
	}
	return nil
}

func getFestival(ctx context.Context, q queryer, id string) (*models.Festival, error) {
	row := q.QueryRowContext(ctx, `SELECT `+festivalColumns+` FROM festivals f WHERE f.id = $1`, id)
	f, err := scanFestival(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errFestivalNotFound
	}
	return f, err
}

func scanFestival(row rowScanner) (*models.Festival, error) {
	var (
		id           string
		doc          []byte
		createdAt    time.Time
		updatedAt    time.Time
		performances pq.StringArray
	)
	if err := row.Scan(&id, &doc, &createdAt, &updatedAt, &performances); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan festival: %w", err)
	}

	var f models.Festival
	if err := json.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("decode festival %s: %w", id, err)
	}
	f.ID = id
	f.CreatedAt = createdAt
	f.UpdatedAt = updatedAt
	f.Performances = []string(performances)
	return &f, nil
}

func saveFestival(ctx context.Context, q queryer, f *models.Festival) error {
	stored := f.Clone()
	stored.Performances = nil
	doc, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode festival: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE festivals
		SET name = $1, description = $2, venue = $3, state = $4, start_date = $5,
		    organizers = $6, staff = $7, document = $8, updated_at = $9
		WHERE id = $10
	`, f.Name, f.Description, f.Venue, string(f.State), nullTime(f.StartDate()),
		pq.Array(f.Organizers), pq.Array(f.Staff), doc, f.UpdatedAt, f.ID)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return errFestivalNameTaken
		}
		return fmt.Errorf("update festival: %w", err)
	}
	return nil
}

func getPerformance(ctx context.Context, q queryer, id string) (*models.Performance, error) {
	row := q.QueryRowContext(ctx, `SELECT `+performanceColumns+` FROM performances p WHERE p.id = $1`, id)
	p, err := scanPerformance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errPerformanceNotFound
	}
	return p, err
}

func listPerformances(ctx context.Context, q queryer, filter PerformanceFilter, forUpdate bool) ([]*models.Performance, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.FestivalID != "" {
		add("p.festival_id = ?", filter.FestivalID)
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, st := range filter.States {
			states[i] = string(st)
		}
		add("p.state = ANY(?)", pq.Array(states))
	}
	for _, word := range strings.Fields(filter.Name) {
		add("p.name ILIKE ?", likePattern(word))
	}
	if strings.TrimSpace(filter.Genre) != "" {
		add("p.genre ILIKE ?", likePattern(filter.Genre))
	}
	if len(filter.ArtistIDs) > 0 {
		add("p.artists @> ?", pq.Array(filter.ArtistIDs))
	}
	if filter.MemberID != "" {
		add("? = ANY(p.members)", filter.MemberID)
	}
	if filter.StageManagerID != "" {
		add("p.stage_manager = ?", filter.StageManagerID)
	}

	query := "SELECT " + performanceColumns + " FROM performances p"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.genre ASC, p.name ASC, p.id ASC"
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list performances: %w", err)
	}
	defer rows.Close()

	performances := make([]*models.Performance, 0)
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, err
		}
		performances = append(performances, p)
	}
	return performances, rows.Err()
}

func scanPerformance(row rowScanner) (*models.Performance, error) {
	var (
		id         string
		festivalID string
		doc        []byte
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&id, &festivalID, &doc, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan performance: %w", err)
	}

	var p models.Performance
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode performance %s: %w", id, err)
	}
	p.ID = id
	p.FestivalID = festivalID
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return &p, nil
}

func savePerformance(ctx context.Context, q queryer, p *models.Performance) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode performance: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE performances
		SET name = $1, genre = $2, state = $3, stage_manager = $4,
		    artists = $5, members = $6, document = $7, updated_at = $8
		WHERE id = $9
	`, p.Name, p.Genre, string(p.State), p.StageManager,
		pq.Array(p.Artists), pq.Array(memberIDs(p)), doc, p.UpdatedAt, p.ID)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return errPerformanceNameTaken
		}
		return fmt.Errorf("update performance: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u     models.User
		roles pq.StringArray
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &roles, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Roles = models.NewRoleSet()
	for _, r := range roles {
		u.Roles[models.Role(r)] = struct{}{}
	}
	return &u, nil
}

// memberIDs lists every user bound to the performance as artist or band member.
func memberIDs(p *models.Performance) []string {
	seen := make(map[string]struct{}, len(p.Artists)+len(p.BandMembers))
	ids := make([]string, 0, len(p.Artists)+len(p.BandMembers))
	for _, list := range [][]string{p.Artists, p.BandMembers} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}
