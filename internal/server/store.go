package server

import (
	"context"
	"errors"
	"time"

	"github.com/quickvotes/backend/internal/quickvotes"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict covers uniqueness violations (username, email, access
	// code) and illegal state transitions.
	ErrConflict = errors.New("conflict")
	// ErrVersionConflict is returned by settings writes when the
	// compare-and-swap version no longer matches.
	ErrVersionConflict = errors.New("version conflict")
)

// Item is one stored activity_items row. Content is kept raw here;
// decoding into the typed variants happens in the domain package.
type Item struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	Content    []byte `json:"content"`
	Position   int    `json:"position"`
}

// Participant is a participation enriched with the joined profile
// columns, as every participant-facing read in the original selected.
type Participant struct {
	quickvotes.Participation
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Name returns the participant-facing name, preferring display name.
func (p Participant) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

// ActivitySummary is an activity joined with its owner's public profile.
type ActivitySummary struct {
	quickvotes.Activity
	OwnerUsername  string `json:"ownerUsername"`
	OwnerName      string `json:"ownerName"`
	OwnerAvatarURL string `json:"ownerAvatarUrl"`
}

// UserParticipation is a participation joined with its activity summary
// for the caller's dashboard.
type UserParticipation struct {
	quickvotes.Participation
	ActivityTitle string                  `json:"activityTitle"`
	ActivityType  quickvotes.ActivityType `json:"activityType"`
}

type ProfileUpdate struct {
	Username    string
	DisplayName string
	AvatarURL   string
}

type ActivityUpdate struct {
	Title       string
	Description string
	ExpiresAt   *time.Time
}

type Store interface {
	// Profiles.
	CreateProfile(ctx context.Context, p quickvotes.Profile, passwordHash string) (quickvotes.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (quickvotes.Profile, string, error)
	ProfileByID(ctx context.Context, userID string) (quickvotes.Profile, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (quickvotes.Profile, error)

	// Activities.
	CreateActivity(ctx context.Context, a quickvotes.Activity) (quickvotes.Activity, error)
	ActivityByID(ctx context.Context, id string) (quickvotes.Activity, error)
	ActivityByAccessCode(ctx context.Context, code string) (ActivitySummary, error)
	AccessCodeTaken(ctx context.Context, code string) (bool, error)
	ListActivitiesByOwner(ctx context.Context, userID string) ([]quickvotes.Activity, error)
	ListPublicActivities(ctx context.Context, limit, offset int) ([]ActivitySummary, error)
	UpdateActivity(ctx context.Context, id string, upd ActivityUpdate) (quickvotes.Activity, error)
	SetVisibility(ctx context.Context, id string, isPublic bool) error
	// TransitionState moves id from exactly `from` to `to`; any other
	// current state reports ErrConflict. Transitions are monotonic:
	// pending -> started -> ended, with ended terminal.
	TransitionState(ctx context.Context, id string, from, to quickvotes.ActivityState) error
	// MarkExpired forces state to ended unless it already is; reports
	// whether this call performed the update.
	MarkExpired(ctx context.Context, id string) (bool, error)
	// UpdateSettings overwrites settings if version still matches,
	// bumping the version; ErrVersionConflict otherwise.
	UpdateSettings(ctx context.Context, id string, s quickvotes.Settings, version int) error
	DeleteActivity(ctx context.Context, id string) error

	// Activity items.
	ItemsByActivity(ctx context.Context, activityID string) ([]Item, error)
	// UpsertItem updates the existing item content in place, or inserts
	// at position 0 when none exists (quiz builder save).
	UpsertItem(ctx context.Context, activityID string, content []byte) error
	// ReplaceItems deletes all existing items and inserts content as the
	// single item (raffle/wheel/vote builder save).
	ReplaceItems(ctx context.Context, activityID string, content []byte) error

	// Participations. At most one row per (activity, user).
	JoinActivity(ctx context.Context, activityID, userID string, responses quickvotes.Responses) (created bool, err error)
	UpsertParticipation(ctx context.Context, activityID, userID string, responses quickvotes.Responses, score float64) (quickvotes.Participation, error)
	ParticipationFor(ctx context.Context, activityID, userID string) (quickvotes.Participation, error)
	ListParticipants(ctx context.Context, activityID string) ([]Participant, error)
	CountParticipants(ctx context.Context, activityID string) (int, error)
	ListUserParticipations(ctx context.Context, userID string) ([]UserParticipation, error)
}
