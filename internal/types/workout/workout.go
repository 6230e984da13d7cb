package workout

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryChallenge Category = "challenge"
	CategoryFree      Category = "free"
)

// Session is one recorded workout. Challenge validations create exactly one
// session with a single exercise entry.
type Session struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"userId" db:"user_id"`
	ExerciseID  string     `json:"exerciseId" db:"exercise_id"`
	Sets        int        `json:"sets" db:"sets"`
	Reps        int        `json:"reps" db:"reps"`
	Calories    float64    `json:"calories" db:"calories"`
	Category    Category   `json:"category" db:"category"`
	ChallengeID *string    `json:"challengeId,omitempty" db:"challenge_id"`
	PerformedAt time.Time  `json:"performedAt" db:"performed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}
