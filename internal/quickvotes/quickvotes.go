// Package quickvotes defines the core domain types and the
// aggregation/selection algorithms (quiz scoring, vote tallies, raffle
// draws, wheel spins). It has zero external dependencies — everything
// here is pure Go.
package quickvotes

import "time"

type ActivityType string

const (
	TypeQuiz   ActivityType = "quiz"
	TypeRaffle ActivityType = "raffle"
	TypeWheel  ActivityType = "wheel"
	TypeVote   ActivityType = "vote"
)

// Valid reports whether t is one of the four known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case TypeQuiz, TypeRaffle, TypeWheel, TypeVote:
		return true
	}
	return false
}

type ActivityState string

const (
	StatePending ActivityState = "pending"
	StateStarted ActivityState = "started"
	StateEnded   ActivityState = "ended"
)

type Profile struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Name returns the participant-facing name: display name when set,
// username otherwise.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

type Activity struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        ActivityType  `json:"activityType"`
	IsPublic    bool          `json:"isPublic"`
	AccessCode  string        `json:"accessCode,omitempty"`
	State       ActivityState `json:"state"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
	Settings    Settings      `json:"settings"`
	// Version guards settings overwrites: draws and winner clears
	// compare-and-swap on it so two owner tabs get a conflict instead
	// of clobbering each other.
	Version   int       `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Expired reports whether the activity's expiry timestamp has passed.
func (a Activity) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// Settings holds ephemeral results written outside the item content:
// the raffle winner list and the participants-mode wheel winner.
type Settings struct {
	Winners []RaffleWinner `json:"winners,omitempty"`
	Winner  *WheelWinner   `json:"winner,omitempty"`
}

// RaffleWinner records one prize allocation from a draw. Field names
// match the original settings.winners rows.
type RaffleWinner struct {
	Prize  string `json:"prize"`
	User   string `json:"user"`
	Avatar string `json:"avatar,omitempty"`
	UserID string `json:"user_id"`
}

// WheelWinner is the single winner of a participants-mode wheel.
type WheelWinner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Participation struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activityId"`
	UserID     string    `json:"userId"`
	Responses  Responses `json:"responses"`
	Score      float64   `json:"score"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Responses is the per-type participation payload. Exactly one group of
// fields is populated depending on the activity type: quiz answers, the
// raffle entry marker, vote selections, or a wheel spin result.
type Responses struct {
	Answers         []QuizAnswer `json:"answers,omitempty"`
	Participated    bool         `json:"participated,omitempty"`
	SelectedOptions []string     `json:"selectedOptions,omitempty"`
	Result          string       `json:"result,omitempty"`
}

// QuizAnswer records one answered question. Responses are keyed by
// QuestionIndex; the prompt text is carried alongside for display and
// for matching rows written before the index existed.
type QuizAnswer struct {
	QuestionIndex  int    `json:"questionIndex"`
	SelectedOption int    `json:"selectedOption"`
	Question       string `json:"question,omitempty"`
	SelectedAnswer string `json:"selectedAnswer,omitempty"`
}
