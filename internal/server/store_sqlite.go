package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickvotes/backend/internal/quickvotes"
)

// SQLiteStore implements Store over the libSQL connection.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SQLite strftime('%Y-%m-%dT%H:%M:%fZ','now') and Go's RFC3339Nano
// formatting both parse with RFC3339Nano.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *SQLiteStore) CreateProfile(ctx context.Context, p quickvotes.Profile, passwordHash string) (quickvotes.Profile, error) {
	p.UserID = uuid.NewString()
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, username, display_name, avatar_url, email, password_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`, p.UserID, p.Username, p.DisplayName, p.AvatarURL, strings.ToLower(p.Email), passwordHash).Scan(&createdAt)
	if isUniqueViolation(err) {
		return quickvotes.Profile{}, ErrConflict
	}
	if err != nil {
		return quickvotes.Profile{}, err
	}
	p.Email = strings.ToLower(p.Email)
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func (s *SQLiteStore) ProfileByEmail(ctx context.Context, email string) (quickvotes.Profile, string, error) {
	var p quickvotes.Profile
	var hash, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, display_name, avatar_url, email, password_hash, created_at
		FROM profiles WHERE email = ?
	`, strings.ToLower(email)).Scan(&p.UserID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.Email, &hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return quickvotes.Profile{}, "", ErrNotFound
	}
	if err != nil {
		return quickvotes.Profile{}, "", err
	}
	p.CreatedAt = parseTime(createdAt)
	return p, hash, nil
}

func (s *SQLiteStore) ProfileByID(ctx context.Context, userID string) (quickvotes.Profile, error) {
	var p quickvotes.Profile
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, display_name, avatar_url, email, created_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return quickvotes.Profile{}, ErrNotFound
	}
	if err != nil {
		return quickvotes.Profile{}, err
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (quickvotes.Profile, error) {
	var p quickvotes.Profile
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		UPDATE profiles SET username = ?, display_name = ?, avatar_url = ?
		WHERE user_id = ?
		RETURNING user_id, username, display_name, avatar_url, email, created_at
	`, upd.Username, upd.DisplayName, upd.AvatarURL, userID).
		Scan(&p.UserID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return quickvotes.Profile{}, ErrNotFound
	}
	if isUniqueViolation(err) {
		return quickvotes.Profile{}, ErrConflict
	}
	if err != nil {
		return quickvotes.Profile{}, err
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

const activityColumns = `id, user_id, title, description, activity_type, is_public,
	COALESCE(access_code, ''), state, expires_at, settings, version, created_at, updated_at`

func scanActivity(row interface{ Scan(...any) error }) (quickvotes.Activity, error) {
	var a quickvotes.Activity
	var isPublic int
	var expiresAt sql.NullString
	var settings, createdAt, updatedAt string
	err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Description, &a.Type, &isPublic,
		&a.AccessCode, &a.State, &expiresAt, &settings, &a.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.IsPublic = isPublic != 0
	a.ExpiresAt = parseNullTime(expiresAt)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	if err := json.Unmarshal([]byte(settings), &a.Settings); err != nil {
		return a, err
	}
	return a, nil
}

func (s *SQLiteStore) CreateActivity(ctx context.Context, a quickvotes.Activity) (quickvotes.Activity, error) {
	a.ID = uuid.NewString()
	var accessCode any
	if a.AccessCode != "" {
		accessCode = a.AccessCode
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO activities (id, user_id, title, description, activity_type, is_public, access_code, state, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?)
		RETURNING `+activityColumns+`
	`, a.ID, a.OwnerID, a.Title, a.Description, a.Type, a.IsPublic, accessCode, formatNullTime(a.ExpiresAt))
	created, err := scanActivity(row)
	if isUniqueViolation(err) {
		return quickvotes.Activity{}, ErrConflict
	}
	return created, err
}

func (s *SQLiteStore) ActivityByID(ctx context.Context, id string) (quickvotes.Activity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	return scanActivity(row)
}

func (s *SQLiteStore) ActivityByAccessCode(ctx context.Context, code string) (ActivitySummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.user_id, a.title, a.description, a.activity_type, a.is_public,
			COALESCE(a.access_code, ''), a.state, a.expires_at, a.settings, a.version,
			a.created_at, a.updated_at,
			p.username, p.display_name, p.avatar_url
		FROM activities a
		JOIN profiles p ON p.user_id = a.user_id
		WHERE a.access_code = ?
	`, strings.ToUpper(code))
	return scanActivitySummary(row)
}

func scanActivitySummary(row interface{ Scan(...any) error }) (ActivitySummary, error) {
	var sum ActivitySummary
	var isPublic int
	var expiresAt sql.NullString
	var settings, createdAt, updatedAt string
	err := row.Scan(&sum.ID, &sum.OwnerID, &sum.Title, &sum.Description, &sum.Type, &isPublic,
		&sum.AccessCode, &sum.State, &expiresAt, &settings, &sum.Version, &createdAt, &updatedAt,
		&sum.OwnerUsername, &sum.OwnerName, &sum.OwnerAvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return sum, ErrNotFound
	}
	if err != nil {
		return sum, err
	}
	sum.IsPublic = isPublic != 0
	sum.ExpiresAt = parseNullTime(expiresAt)
	sum.CreatedAt = parseTime(createdAt)
	sum.UpdatedAt = parseTime(updatedAt)
	if err := json.Unmarshal([]byte(settings), &sum.Settings); err != nil {
		return sum, err
	}
	if sum.OwnerName == "" {
		sum.OwnerName = sum.OwnerUsername
	}
	return sum, nil
}

func (s *SQLiteStore) AccessCodeTaken(ctx context.Context, code string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM activities WHERE access_code = ?`, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) ListActivitiesByOwner(ctx context.Context, userID string) ([]quickvotes.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+activityColumns+` FROM activities
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []quickvotes.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *SQLiteStore) ListPublicActivities(ctx context.Context, limit, offset int) ([]ActivitySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.title, a.description, a.activity_type, a.is_public,
			COALESCE(a.access_code, ''), a.state, a.expires_at, a.settings, a.version,
			a.created_at, a.updated_at,
			p.username, p.display_name, p.avatar_url
		FROM activities a
		JOIN profiles p ON p.user_id = a.user_id
		WHERE a.is_public = 1
		ORDER BY a.created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []ActivitySummary{}
	for rows.Next() {
		sum, err := scanActivitySummary(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, sum)
	}
	return activities, rows.Err()
}

func (s *SQLiteStore) UpdateActivity(ctx context.Context, id string, upd ActivityUpdate) (quickvotes.Activity, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE activities
		SET title = ?, description = ?, expires_at = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?
		RETURNING `+activityColumns+`
	`, upd.Title, upd.Description, formatNullTime(upd.ExpiresAt), id)
	return scanActivity(row)
}

func (s *SQLiteStore) SetVisibility(ctx context.Context, id string, isPublic bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE activities
		SET is_public = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?
	`, isPublic, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) TransitionState(ctx context.Context, id string, from, to quickvotes.ActivityState) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE activities
		SET state = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ? AND state = ?
	`, to, id, from)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		// Distinguish a missing activity from a wrong current state.
		if _, err := s.ActivityByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (s *SQLiteStore) MarkExpired(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE activities
		SET state = 'ended', updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ? AND state != 'ended'
	`, id)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) UpdateSettings(ctx context.Context, id string, settings quickvotes.Settings, version int) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE activities
		SET settings = ?, version = version + 1,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ? AND version = ?
	`, string(data), id, version)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		if _, err := s.ActivityByID(ctx, id); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	return nil
}

func (s *SQLiteStore) DeleteActivity(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ItemsByActivity(ctx context.Context, activityID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, activity_id, content, position
		FROM activity_items
		WHERE activity_id = ?
		ORDER BY position
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		var content string
		if err := rows.Scan(&item.ID, &item.ActivityID, &content, &item.Position); err != nil {
			return nil, err
		}
		item.Content = []byte(content)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) UpsertItem(ctx context.Context, activityID string, content []byte) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE activity_items SET content = ?
		WHERE activity_id = ? AND position = 0
	`, string(content), activityID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activity_items (id, activity_id, content, position)
		VALUES (?, ?, ?, 0)
	`, uuid.NewString(), activityID, string(content))
	return err
}

func (s *SQLiteStore) ReplaceItems(ctx context.Context, activityID string, content []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_items WHERE activity_id = ?`, activityID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activity_items (id, activity_id, content, position)
		VALUES (?, ?, ?, 0)
	`, uuid.NewString(), activityID, string(content)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) JoinActivity(ctx context.Context, activityID, userID string, responses quickvotes.Responses) (bool, error) {
	data, err := json.Marshal(responses)
	if err != nil {
		return false, err
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO participations (id, activity_id, user_id, responses)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (activity_id, user_id) DO NOTHING
	`, uuid.NewString(), activityID, userID, string(data))
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) UpsertParticipation(ctx context.Context, activityID, userID string, responses quickvotes.Responses, score float64) (quickvotes.Participation, error) {
	data, err := json.Marshal(responses)
	if err != nil {
		return quickvotes.Participation{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO participations (id, activity_id, user_id, responses, score)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (activity_id, user_id) DO UPDATE SET
			responses = excluded.responses,
			score = excluded.score,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		RETURNING id, activity_id, user_id, responses, score, created_at, updated_at
	`, uuid.NewString(), activityID, userID, string(data), score)
	return scanParticipation(row)
}

func scanParticipation(row interface{ Scan(...any) error }) (quickvotes.Participation, error) {
	var p quickvotes.Participation
	var responses, createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.ActivityID, &p.UserID, &responses, &p.Score, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(responses), &p.Responses); err != nil {
		return p, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

func (s *SQLiteStore) ParticipationFor(ctx context.Context, activityID, userID string) (quickvotes.Participation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, activity_id, user_id, responses, score, created_at, updated_at
		FROM participations
		WHERE activity_id = ? AND user_id = ?
	`, activityID, userID)
	return scanParticipation(row)
}

func (s *SQLiteStore) ListParticipants(ctx context.Context, activityID string) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pa.id, pa.activity_id, pa.user_id, pa.responses, pa.score, pa.created_at, pa.updated_at,
			pr.username, pr.display_name, pr.avatar_url
		FROM participations pa
		JOIN profiles pr ON pr.user_id = pa.user_id
		WHERE pa.activity_id = ?
		ORDER BY pa.score DESC, pa.created_at
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []Participant{}
	for rows.Next() {
		var p Participant
		var responses, createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.ActivityID, &p.UserID, &responses, &p.Score, &createdAt, &updatedAt,
			&p.Username, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(responses), &p.Responses); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *SQLiteStore) CountParticipants(ctx context.Context, activityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM participations WHERE activity_id = ?
	`, activityID).Scan(&count)
	return count, err
}

func (s *SQLiteStore) ListUserParticipations(ctx context.Context, userID string) ([]UserParticipation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pa.id, pa.activity_id, pa.user_id, pa.responses, pa.score, pa.created_at, pa.updated_at,
			a.title, a.activity_type
		FROM participations pa
		JOIN activities a ON a.id = pa.activity_id
		WHERE pa.user_id = ?
		ORDER BY pa.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participations := []UserParticipation{}
	for rows.Next() {
		var up UserParticipation
		var responses, createdAt, updatedAt string
		if err := rows.Scan(&up.ID, &up.ActivityID, &up.UserID, &responses, &up.Score, &createdAt, &updatedAt,
			&up.ActivityTitle, &up.ActivityType); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(responses), &up.Responses); err != nil {
			return nil, err
		}
		up.CreatedAt = parseTime(createdAt)
		up.UpdatedAt = parseTime(updatedAt)
		participations = append(participations, up)
	}
	return participations, rows.Err()
}
