package challenge

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Logic string

const (
	LogicFixed       Logic = "fixed"
	LogicProgressive Logic = "progressive"
)

type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// MaxActiveChallenges caps how many challenge instances a user may run at once.
const MaxActiveChallenges = 3

// Domain errors. Handlers map these to HTTP status codes with errors.Is;
// none of them is retryable.
var (
	ErrNotFound          = errors.New("challenge not found")
	ErrLimitExceeded     = errors.New("active challenge limit exceeded")
	ErrAlreadyActive     = errors.New("challenge already active for user")
	ErrAlreadyValidated  = errors.New("day already validated")
	ErrNotActive         = errors.New("challenge is not active")
	ErrDefinitionMissing = errors.New("challenge definition missing")
	ErrFutureDate        = errors.New("validation date is in the future")
)

// Definition is the immutable template for a challenge. Catalog entries and
// synthesized custom definitions share this shape.
type Definition struct {
	ID           string     `json:"id" db:"id"`
	ExerciseID   string     `json:"exerciseId" db:"exercise_id"`
	DurationDays int        `json:"durationDays" db:"duration_days"`
	Logic        Logic      `json:"logic" db:"logic"`
	BaseAmount   int        `json:"baseAmount" db:"base_amount"`
	Increment    int        `json:"increment" db:"increment"`
	Difficulty   Difficulty `json:"difficulty" db:"difficulty"`
}

// HistoryEntry records one validated day of a user challenge.
// At most one entry per distinct Date may have Completed = true.
type HistoryEntry struct {
	Date      string    `json:"date" db:"log_date"` // YYYY-MM-DD
	Amount    int       `json:"amount" db:"amount"`
	Completed bool      `json:"completed" db:"completed"`
	CatchUp   bool      `json:"catchUp" db:"catch_up"`
	LoggedAt  time.Time `json:"loggedAt" db:"logged_at"`
}

// UserChallenge is one user's live attempt at a definition.
//
// Snapshot is a frozen copy of the definition taken at join time. All
// progression math for an instance must use the snapshot, never a live
// catalog lookup, once the instance exists.
type UserChallenge struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	UserID        uuid.UUID      `json:"userId" db:"user_id"`
	ChallengeID   string         `json:"challengeId" db:"challenge_id"`
	Snapshot      *Definition    `json:"definitionSnapshot" db:"definition_snapshot"`
	StartDate     time.Time      `json:"startDate" db:"start_date"`
	LastLogDate   *time.Time     `json:"lastLogDate" db:"last_log_date"`
	TotalProgress int            `json:"totalProgress" db:"total_progress"`
	Status        Status         `json:"status" db:"status"`
	History       []HistoryEntry `json:"history"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
}

type JoinRequest struct {
	ChallengeID string `json:"challengeId"`
}

type CreateCustomRequest struct {
	ExerciseID   string     `json:"exerciseId"`
	DurationDays int        `json:"durationDays"`
	Difficulty   Difficulty `json:"difficulty"`
}

type ValidateDayRequest struct {
	Reps int    `json:"reps"`
	Date string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

// ActiveChallenge is a list item for the active-challenges screen: the
// instance plus today's derived numbers so the client does no date math.
type ActiveChallenge struct {
	UserChallenge
	DayIndex       int  `json:"dayIndex"`
	TodayTarget    int  `json:"todayTarget"`
	CompletedToday bool `json:"completedToday"`
}
