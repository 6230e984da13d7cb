package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repRivalAPI/internal/progression"
	"repRivalAPI/internal/stats"
	"repRivalAPI/internal/types/streak"
	"repRivalAPI/internal/types/workout"
	"repRivalAPI/internal/user"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		ID:        uuid.New().String(),
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified, created_at, updated_at
	`

	err := s.db.QueryRow(
		ctx,
		query,
		u.ID,
		u.ClerkID,
		u.Email,
		u.Username,
		u.FirstName,
		u.LastName,
		u.ImageURL,
		u.CreatedAt,
		u.UpdatedAt,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
	SELECT id, clerk_id, email, username, first_name, last_name, image_url, email_verified,
		weight_kg, height_cm, total_reps, total_sessions, total_calories, last_activity, created_at, updated_at
	FROM users
	WHERE clerk_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.WeightKg,
		&u.HeightCm,
		&u.TotalReps,
		&u.TotalSessions,
		&u.TotalCalories,
		&u.LastActivity,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		weight_kg = CASE WHEN $6 > 0 THEN $6 ELSE weight_kg END,
		height_cm = CASE WHEN $7 > 0 THEN $7 ELSE height_cm END,
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified,
		weight_kg, height_cm, total_reps, total_sessions, total_calories, last_activity, created_at, updated_at
	`

	u := &user.User{}
	err := s.db.QueryRow(
		ctx,
		query,
		clerkID,
		req.Username,
		req.FirstName,
		req.LastName,
		req.ImageURL,
		req.WeightKg,
		req.HeightCm,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.WeightKg,
		&u.HeightCm,
		&u.TotalReps,
		&u.TotalSessions,
		&u.TotalCalories,
		&u.LastActivity,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return u, nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func (s *UserService) UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error {
	query := `
	UPDATE users
	SET email_verified = $2, updated_at = NOW()
	WHERE clerk_id = $1
	`
	_, err := s.db.Exec(ctx, query, clerkID, verified)
	return err
}

// RecordVisit runs the daily streak transition for one user visit. A repeat
// visit on the same calendar day performs no write at all; the client can
// call this on every app foreground.
func (s *UserService) RecordVisit(ctx context.Context, clerkID string) (*streak.Streak, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	st := &streak.Streak{UserID: userID}
	err = s.db.QueryRow(ctx, `
		SELECT id, current_streak, longest_streak, last_connection, created_at, updated_at
		FROM streaks
		WHERE user_id = $1
	`, userID).Scan(&st.ID, &st.CurrentStreak, &st.LongestStreak, &st.LastConnection, &st.CreatedAt, &st.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	now := time.Now()
	current, longest, changed := progression.NextStreak(st.CurrentStreak, st.LongestStreak, st.LastConnection, now)
	if !changed {
		return st, nil
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO streaks (id, user_id, current_streak, longest_streak, last_connection, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak = $3,
			longest_streak = $4,
			last_connection = $5,
			updated_at = NOW()
		RETURNING id, current_streak, longest_streak, last_connection, created_at, updated_at
	`, uuid.New(), userID, current, longest, now).Scan(
		&st.ID, &st.CurrentStreak, &st.LongestStreak, &st.LastConnection, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}

	log.Printf("UserService: streak for %s now %d (longest %d)", clerkID, st.CurrentStreak, st.LongestStreak)
	return st, nil
}

func (s *UserService) GetUserStats(ctx context.Context, clerkID string) (*stats.UserStats, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	query := `
	SELECT
		u.total_reps,
		u.total_sessions,
		u.total_calories,
		COALESCE(s.current_streak, 0) AS current_streak,
		COALESCE(s.longest_streak, 0) AS longest_streak,
		COUNT(DISTINCT uc.id) FILTER (WHERE uc.status = 'active') AS active_challenges,
		COUNT(DISTINCT uc.id) FILTER (WHERE uc.status = 'completed') AS completed_challenges,
		COUNT(DISTINCT ub.badge_id) AS badges_count
	FROM users u
	LEFT JOIN streaks s ON u.id = s.user_id
	LEFT JOIN user_challenges uc ON u.id = uc.user_id
	LEFT JOIN user_badges ub ON u.id = ub.user_id
	WHERE u.id = $1
	GROUP BY u.id, s.current_streak, s.longest_streak
	`

	st := &stats.UserStats{}
	err = s.db.QueryRow(ctx, query, userID).Scan(
		&st.TotalReps,
		&st.TotalSessions,
		&st.TotalCalories,
		&st.CurrentStreak,
		&st.LongestStreak,
		&st.ActiveChallenges,
		&st.CompletedChallenges,
		&st.BadgesCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return st, nil
}

func (s *UserService) GetSessions(ctx context.Context, clerkID string, limit int) ([]*workout.Session, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, exercise_id, sets, reps, calories, category, challenge_id, performed_at, created_at
		FROM workout_sessions
		WHERE user_id = $1
		ORDER BY performed_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*workout.Session
	for rows.Next() {
		sess := &workout.Session{}
		err := rows.Scan(
			&sess.ID,
			&sess.UserID,
			&sess.ExerciseID,
			&sess.Sets,
			&sess.Reps,
			&sess.Calories,
			&sess.Category,
			&sess.ChallengeID,
			&sess.PerformedAt,
			&sess.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	if sessions == nil {
		sessions = []*workout.Session{}
	}
	return sessions, nil
}

// RegisterDevice stores a push token for the user so badge unlocks can be
// delivered. Upsert keyed on the token itself.
func (s *UserService) RegisterDevice(ctx context.Context, clerkID string, token string, platform string) error {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO user_devices (user_id, token, platform, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (token) DO UPDATE SET user_id = $1, platform = $3
	`, userID, token, platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}
