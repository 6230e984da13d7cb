package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"repRivalAPI/internal/badge"
	"repRivalAPI/internal/notification"
)

// PushProvider delivers badge-unlock pushes. Satisfied by notification.FCMService.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type BadgeService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewBadgeService(db *pgxpool.Pool) *BadgeService {
	return &BadgeService{db: db}
}

func (s *BadgeService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

func (s *BadgeService) GetBadges(ctx context.Context, clerkID string) ([]*badge.BadgeWithStatus, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	query := `
	SELECT
		b.id,
		b.name,
		b.description,
		b.icon,
		b.criteria_type,
		b.criteria_value,
		b.created_at,
		CASE WHEN ub.id IS NOT NULL THEN true ELSE false END AS unlocked,
		ub.unlocked_at
	FROM badges b
	LEFT JOIN user_badges ub ON b.id = ub.badge_id AND ub.user_id = $1
	ORDER BY unlocked DESC, b.criteria_value ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch badges: %w", err)
	}
	defer rows.Close()

	var badges []*badge.BadgeWithStatus
	for rows.Next() {
		b := &badge.BadgeWithStatus{}
		err := rows.Scan(
			&b.ID,
			&b.Name,
			&b.Description,
			&b.Icon,
			&b.CriteriaType,
			&b.CriteriaValue,
			&b.CreatedAt,
			&b.Unlocked,
			&b.UnlockedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badges: %w", err)
	}

	return badges, nil
}

// CheckAndUnlock inserts every badge whose criteria the user now meets and
// pushes a notification for each fresh unlock. Runs fire-and-forget after a
// validation; errors are logged, never surfaced to the validation caller.
func (s *BadgeService) CheckAndUnlock(ctx context.Context, clerkID string) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		log.Printf("BadgeService: user lookup failed for %s: %v", clerkID, err)
		return
	}

	query := `
	WITH user_metrics AS (
		SELECT
			u.total_reps,
			u.total_sessions,
			COALESCE(s.current_streak, 0) AS current_streak,
			(SELECT COUNT(*) FROM user_challenges uc WHERE uc.user_id = u.id AND uc.status = 'completed') AS completed_challenges
		FROM users u
		LEFT JOIN streaks s ON u.id = s.user_id
		WHERE u.id = $1
	)
	INSERT INTO user_badges (id, user_id, badge_id, unlocked_at)
	SELECT gen_random_uuid(), $1, b.id, NOW()
	FROM badges b, user_metrics m
	WHERE NOT EXISTS (
			SELECT 1 FROM user_badges ub WHERE ub.user_id = $1 AND ub.badge_id = b.id
		)
		AND (
			(b.criteria_type = 'total_reps' AND m.total_reps >= b.criteria_value)
			OR (b.criteria_type = 'sessions' AND m.total_sessions >= b.criteria_value)
			OR (b.criteria_type = 'streak' AND m.current_streak >= b.criteria_value)
			OR (b.criteria_type = 'challenges_completed' AND m.completed_challenges >= b.criteria_value)
		)
	RETURNING badge_id, (SELECT name FROM badges WHERE id = badge_id)
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		log.Printf("BadgeService: unlock check failed for %s: %v", clerkID, err)
		return
	}
	defer rows.Close()

	type unlock struct {
		badgeID uuid.UUID
		name    string
	}
	var unlocks []unlock
	for rows.Next() {
		var u unlock
		if err := rows.Scan(&u.badgeID, &u.name); err != nil {
			log.Printf("BadgeService: failed to scan unlock: %v", err)
			return
		}
		unlocks = append(unlocks, u)
	}
	if err = rows.Err(); err != nil {
		log.Printf("BadgeService: error iterating unlocks: %v", err)
		return
	}

	if len(unlocks) == 0 {
		return
	}
	log.Printf("BadgeService: user %s unlocked %d badge(s)", clerkID, len(unlocks))

	if s.pushProvider == nil {
		return
	}

	tokens, err := s.deviceTokens(ctx, userID)
	if err != nil {
		log.Printf("BadgeService: failed to load device tokens: %v", err)
		return
	}

	for _, u := range unlocks {
		err := s.pushProvider.SendPush(ctx, tokens, "Badge unlocked!", u.name, map[string]any{
			"type":    "badge_unlock",
			"badgeId": u.badgeID.String(),
		})
		if err != nil {
			log.Printf("BadgeService: push failed for badge %s: %v", u.badgeID, err)
		}
	}
}

func (s *BadgeService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM user_devices WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
