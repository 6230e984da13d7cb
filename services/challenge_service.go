package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repRivalAPI/internal/catalog"
	"repRivalAPI/internal/progression"
	"repRivalAPI/internal/types/challenge"
	"repRivalAPI/internal/types/workout"
	"repRivalAPI/utils"
)

type ChallengeService struct {
	db           *pgxpool.Pool
	badgeService *BadgeService
}

func NewChallengeService(db *pgxpool.Pool, badgeService *BadgeService) *ChallengeService {
	return &ChallengeService{db: db, badgeService: badgeService}
}

// Join creates a new challenge instance from a shipped catalog definition.
// The cap check and the insert run in one transaction with the user row
// locked, so two rapid joins cannot both pass the check.
func (s *ChallengeService) Join(ctx context.Context, clerkID string, challengeID string) (uuid.UUID, error) {
	def, ok := catalog.GetDefinition(challengeID)
	if !ok {
		return uuid.Nil, challenge.ErrNotFound
	}
	return s.createInstance(ctx, clerkID, def)
}

// CreateCustom synthesizes a fresh progressive definition from the requested
// exercise and difficulty and creates the instance exactly as Join does.
func (s *ChallengeService) CreateCustom(ctx context.Context, clerkID string, req *challenge.CreateCustomRequest) (uuid.UUID, error) {
	if req.DurationDays <= 0 {
		return uuid.Nil, fmt.Errorf("durationDays must be positive")
	}

	ex, ok := catalog.GetExercise(req.ExerciseID)
	if !ok {
		return uuid.Nil, fmt.Errorf("exercise %s: %w", req.ExerciseID, challenge.ErrNotFound)
	}

	base, increment := progression.DeriveCustomParams(req.Difficulty, ex.PullMovement)
	def := challenge.Definition{
		ID:           fmt.Sprintf("custom_%s_%d", ex.ID, time.Now().UnixMilli()),
		ExerciseID:   ex.ID,
		DurationDays: req.DurationDays,
		Logic:        challenge.LogicProgressive,
		BaseAmount:   base,
		Increment:    increment,
		Difficulty:   req.Difficulty,
	}
	return s.createInstance(ctx, clerkID, def)
}

func (s *ChallengeService) createInstance(ctx context.Context, clerkID string, def challenge.Definition) (uuid.UUID, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Locking the user row serializes concurrent joins for the same user.
	var userID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1 FOR UPDATE`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user not found")
		}
		return uuid.Nil, fmt.Errorf("failed to get user: %w", err)
	}

	var activeCount int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_challenges
		WHERE user_id = $1 AND status = 'active'
	`, userID).Scan(&activeCount)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to count active challenges: %w", err)
	}
	if activeCount >= challenge.MaxActiveChallenges {
		return uuid.Nil, challenge.ErrLimitExceeded
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_challenges
			WHERE user_id = $1 AND challenge_id = $2 AND status = 'active'
		)
	`, userID, def.ID).Scan(&exists)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check active challenge: %w", err)
	}
	if exists {
		return uuid.Nil, challenge.ErrAlreadyActive
	}

	instanceID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO user_challenges (id, user_id, challenge_id, definition_snapshot, start_date, total_progress, status, created_at)
		VALUES ($1, $2, $3, $4, NOW(), 0, 'active', NOW())
	`, instanceID, userID, def.ID, def)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create challenge instance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit: %w", err)
	}

	log.Printf("ChallengeService: user %s joined challenge %s (instance %s)", clerkID, def.ID, instanceID)
	return instanceID, nil
}

// ListActive returns the user's active challenge instances with today's
// derived numbers, ordered not-completed-today first.
func (s *ChallengeService) ListActive(ctx context.Context, clerkID string) ([]*challenge.ActiveChallenge, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, challenge_id, definition_snapshot, start_date, last_log_date, total_progress, status, created_at
		FROM user_challenges
		WHERE user_id = $1 AND status = 'active'
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active challenges: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	todayKey := progression.DateKey(now)

	var active []*challenge.ActiveChallenge
	for rows.Next() {
		uc := challenge.UserChallenge{}
		err := rows.Scan(
			&uc.ID,
			&uc.UserID,
			&uc.ChallengeID,
			&uc.Snapshot,
			&uc.StartDate,
			&uc.LastLogDate,
			&uc.TotalProgress,
			&uc.Status,
			&uc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}

		ac := &challenge.ActiveChallenge{UserChallenge: uc}
		if uc.Snapshot != nil {
			ac.DayIndex = progression.DayIndex(uc.StartDate, now)
			ac.TodayTarget = progression.TargetForDay(uc.Snapshot, ac.DayIndex)
		}
		active = append(active, ac)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}

	for _, ac := range active {
		history, err := s.loadHistory(ctx, s.db, ac.ID)
		if err != nil {
			return nil, err
		}
		ac.History = history
		for _, h := range history {
			if h.Date == todayKey && h.Completed {
				ac.CompletedToday = true
				break
			}
		}
	}

	// Not validated today first, then oldest first. The store guarantees no
	// ordering, so it is imposed here.
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].CompletedToday != active[j].CompletedToday {
			return !active[i].CompletedToday
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	if active == nil {
		active = []*challenge.ActiveChallenge{}
	}
	return active, nil
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, so history can be
// read standalone or inside an open transaction.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *ChallengeService) loadHistory(ctx context.Context, q rowQuerier, userChallengeID uuid.UUID) ([]challenge.HistoryEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT to_char(log_date, 'YYYY-MM-DD'), amount, completed, catch_up, logged_at
		FROM challenge_history
		WHERE user_challenge_id = $1
		ORDER BY id
	`, userChallengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer rows.Close()

	var history []challenge.HistoryEntry
	for rows.Next() {
		var h challenge.HistoryEntry
		if err := rows.Scan(&h.Date, &h.Amount, &h.Completed, &h.CatchUp, &h.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		history = append(history, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	if history == nil {
		history = []challenge.HistoryEntry{}
	}
	return history, nil
}

// Abandon marks an active instance abandoned. Ownership is enforced in the
// WHERE clause: a caller can only abandon their own challenges. Terminal,
// the instance is never deleted.
func (s *ChallengeService) Abandon(ctx context.Context, clerkID string, userChallengeID uuid.UUID) error {
	result, err := s.db.Exec(ctx, `
		UPDATE user_challenges
		SET status = 'abandoned'
		WHERE id = $1
			AND user_id = (SELECT id FROM users WHERE clerk_id = $2)
			AND status = 'active'
	`, userChallengeID, clerkID)
	if err != nil {
		return fmt.Errorf("failed to abandon challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return challenge.ErrNotFound
	}
	return nil
}

// ValidateDay records one day's completion as a single all-or-nothing unit:
// workout session, user cumulative stats, history entry and instance
// progress all commit together or not at all.
//
// The instance row is locked for the duration of the transaction, so of two
// concurrent attempts for the same dateKey exactly one succeeds; the other
// observes the history entry and fails with ErrAlreadyValidated, with no
// writes.
func (s *ChallengeService) ValidateDay(ctx context.Context, clerkID string, userChallengeID uuid.UUID, reps int, validationDate time.Time) (*challenge.UserChallenge, error) {
	if reps <= 0 {
		return nil, fmt.Errorf("reps must be positive")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	var weightKg float64
	err = tx.QueryRow(ctx, `SELECT id, weight_kg FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID, &weightKg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	uc := challenge.UserChallenge{}
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, challenge_id, definition_snapshot, start_date, last_log_date, total_progress, status, created_at
		FROM user_challenges
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, userChallengeID, userID).Scan(
		&uc.ID,
		&uc.UserID,
		&uc.ChallengeID,
		&uc.Snapshot,
		&uc.StartDate,
		&uc.LastLogDate,
		&uc.TotalProgress,
		&uc.Status,
		&uc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, challenge.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get challenge instance: %w", err)
	}

	if uc.Status != challenge.StatusActive {
		return nil, challenge.ErrNotActive
	}

	// Snapshot first; the catalog lookup is only a safety net for
	// pre-snapshot legacy rows.
	def := uc.Snapshot
	if def == nil {
		if catalogDef, ok := catalog.GetDefinition(uc.ChallengeID); ok {
			def = &catalogDef
		}
	}
	if def == nil {
		return nil, challenge.ErrDefinitionMissing
	}

	dateKey := progression.DateKey(validationDate)

	// Idempotency guard, inside the same transaction as the writes.
	var alreadyDone bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM challenge_history
			WHERE user_challenge_id = $1 AND log_date = $2 AND completed = true
		)
	`, uc.ID, dateKey).Scan(&alreadyDone)
	if err != nil {
		return nil, fmt.Errorf("failed to check history: %w", err)
	}
	if alreadyDone {
		return nil, challenge.ErrAlreadyValidated
	}

	now := time.Now()
	dayIdx := progression.DayIndex(uc.StartDate, validationDate)
	todayIdx := progression.DayIndex(uc.StartDate, now)
	// Only today and catch-up for past days can be validated. A future date
	// would fast-forward progress and completion in a single call.
	if dayIdx > todayIdx {
		return nil, challenge.ErrFutureDate
	}
	catchUp := dayIdx < todayIdx

	var met, secondsPerRep float64 = 6.0, 2.5
	if ex, ok := catalog.GetExercise(def.ExerciseID); ok {
		met, secondsPerRep = ex.MET, ex.SecondsPerRep
	}
	calories := utils.EstimateCalories(weightKg, met, secondsPerRep, reps)

	sessionID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO workout_sessions (id, user_id, exercise_id, sets, reps, calories, category, challenge_id, performed_at, created_at)
		VALUES ($1, $2, $3, 1, $4, $5, $6, $7, $8, NOW())
	`, sessionID, userID, def.ExerciseID, reps, calories, workout.CategoryChallenge, uc.ChallengeID, validationDate)
	if err != nil {
		return nil, fmt.Errorf("failed to create workout session: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET total_reps = total_reps + $2,
			total_sessions = total_sessions + 1,
			total_calories = total_calories + $3,
			last_activity = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`, userID, reps, calories)
	if err != nil {
		return nil, fmt.Errorf("failed to update user stats: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO challenge_history (user_challenge_id, log_date, amount, completed, catch_up, logged_at)
		VALUES ($1, $2, $3, true, $4, NOW())
	`, uc.ID, dateKey, reps, catchUp)
	if err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}

	newStatus := challenge.StatusActive
	if dayIdx >= def.DurationDays-1 {
		newStatus = challenge.StatusCompleted
	}

	err = tx.QueryRow(ctx, `
		UPDATE user_challenges
		SET total_progress = total_progress + $2,
			last_log_date = NOW(),
			status = $3
		WHERE id = $1
		RETURNING total_progress, last_log_date, status
	`, uc.ID, reps, newStatus).Scan(&uc.TotalProgress, &uc.LastLogDate, &uc.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to update challenge instance: %w", err)
	}

	// Read back the full history, including the entry just written, so the
	// returned instance carries complete state.
	uc.History, err = s.loadHistory(ctx, tx, uc.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit validation: %w", err)
	}

	log.Printf("ChallengeService: user %s validated day %d of %s (%d reps, catchUp=%t)", clerkID, dayIdx, uc.ChallengeID, reps, catchUp)

	// Badge unlocks ride on the committed stats; delivery is fire-and-forget.
	if s.badgeService != nil {
		go s.badgeService.CheckAndUnlock(context.WithoutCancel(ctx), clerkID)
	}

	return &uc, nil
}
