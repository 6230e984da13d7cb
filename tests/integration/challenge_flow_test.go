package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repRivalAPI/internal/types/challenge"
	modelUser "repRivalAPI/internal/user"
	"repRivalAPI/services"
	"repRivalAPI/tests/helpers"
)

// TestChallengeLifecycle walks one user through join, daily validation,
// idempotent re-validation and abandon.
func TestChallengeLifecycle(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	badgeService := services.NewBadgeService(pool)
	userService := services.NewUserService(pool)
	challengeService := services.NewChallengeService(pool, badgeService)

	ctx := context.Background()
	clerkID := "user_test_challenge_" + time.Now().Format("20060102150405")

	_, err := userService.CreateUser(ctx, &modelUser.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "test.challenge@example.com",
		Username:  "testchallenger",
		FirstName: "Test",
		LastName:  "Challenger",
	})
	require.NoError(t, err)

	// Step 1: join a catalog challenge
	t.Log("Step 1: join pushups medium")

	instanceID, err := challengeService.Join(ctx, clerkID, "pushups_medium_30d")
	require.NoError(t, err)

	// Joining the same definition twice is rejected
	_, err = challengeService.Join(ctx, clerkID, "pushups_medium_30d")
	assert.ErrorIs(t, err, challenge.ErrAlreadyActive)

	// Unknown definitions are rejected
	_, err = challengeService.Join(ctx, clerkID, "no_such_challenge")
	assert.ErrorIs(t, err, challenge.ErrNotFound)

	// Step 2: active list shows the instance with today's target
	t.Log("Step 2: list active")

	active, err := challengeService.ListActive(ctx, clerkID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, instanceID, active[0].ID)
	assert.Equal(t, 0, active[0].DayIndex)
	assert.Equal(t, 10, active[0].TodayTarget)
	assert.False(t, active[0].CompletedToday)
	require.NotNil(t, active[0].Snapshot)
	assert.Equal(t, "pushups", active[0].Snapshot.ExerciseID)

	// Step 3: validate today's reps
	t.Log("Step 3: validate day")

	updated, err := challengeService.ValidateDay(ctx, clerkID, instanceID, 10, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 10, updated.TotalProgress)
	assert.Equal(t, challenge.StatusActive, updated.Status)
	require.Len(t, updated.History, 1)
	assert.True(t, updated.History[0].Completed)
	assert.False(t, updated.History[0].CatchUp)

	// Step 4: a second validation for the same day is rejected and changes nothing
	t.Log("Step 4: duplicate validation")

	_, err = challengeService.ValidateDay(ctx, clerkID, instanceID, 10, time.Now())
	assert.ErrorIs(t, err, challenge.ErrAlreadyValidated)

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 10, u.TotalReps, "duplicate validation must not inflate totals")
	assert.Equal(t, 1, u.TotalSessions)

	active, err = challengeService.ListActive(ctx, clerkID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].CompletedToday)

	// A future date can never be validated
	tomorrow := time.Now().AddDate(0, 0, 1)
	_, err = challengeService.ValidateDay(ctx, clerkID, instanceID, 10, tomorrow)
	assert.ErrorIs(t, err, challenge.ErrFutureDate)

	u, err = userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 10, u.TotalReps, "rejected future validation must not write")

	// Backdate the start so yesterday falls inside the challenge, then log a
	// catch-up day; the response must carry the complete history.
	_, err = pool.Exec(ctx, `
		UPDATE user_challenges SET start_date = start_date - INTERVAL '2 days'
		WHERE id = $1`, instanceID)
	require.NoError(t, err)

	yesterday := time.Now().AddDate(0, 0, -1)
	updated, err = challengeService.ValidateDay(ctx, clerkID, instanceID, 14, yesterday)
	require.NoError(t, err)
	assert.Equal(t, 24, updated.TotalProgress)
	require.Len(t, updated.History, 2, "response must include prior history")
	catchUpCount := 0
	for _, h := range updated.History {
		if h.CatchUp {
			catchUpCount++
		}
	}
	assert.Equal(t, 1, catchUpCount)

	// Step 5: the workout session was recorded
	t.Log("Step 5: session log")

	sessions, err := userService.GetSessions(ctx, clerkID, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	// Newest first: today's validation, then the backdated catch-up
	assert.Equal(t, "pushups", sessions[0].ExerciseID)
	assert.Equal(t, 10, sessions[0].Reps)
	assert.Equal(t, 14, sessions[1].Reps)
	assert.Greater(t, sessions[0].Calories, 0.0)

	// Step 6: abandon
	t.Log("Step 6: abandon")

	err = challengeService.Abandon(ctx, clerkID, instanceID)
	require.NoError(t, err)

	active, err = challengeService.ListActive(ctx, clerkID)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Abandoning again reports not found
	err = challengeService.Abandon(ctx, clerkID, instanceID)
	assert.ErrorIs(t, err, challenge.ErrNotFound)

	// Validating an abandoned instance is rejected
	_, err = challengeService.ValidateDay(ctx, clerkID, instanceID, 10, time.Now())
	assert.ErrorIs(t, err, challenge.ErrNotActive)
}

// TestAbandonRequiresOwnership checks a user cannot abandon someone else's
// challenge instance.
func TestAbandonRequiresOwnership(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	badgeService := services.NewBadgeService(pool)
	userService := services.NewUserService(pool)
	challengeService := services.NewChallengeService(pool, badgeService)

	ctx := context.Background()
	stamp := time.Now().Format("20060102150405")
	ownerID := "user_test_owner_" + stamp
	otherID := "user_test_other_" + stamp

	for i, clerkID := range []string{ownerID, otherID} {
		_, err := userService.CreateUser(ctx, &modelUser.CreateUserRequest{
			ClerkID:   clerkID,
			Email:     "test.owner" + string(rune('a'+i)) + "@example.com",
			Username:  "testowner" + string(rune('a'+i)),
			FirstName: "Test",
			LastName:  "Owner",
		})
		require.NoError(t, err)
	}

	instanceID, err := challengeService.Join(ctx, ownerID, "squats_easy_30d")
	require.NoError(t, err)

	err = challengeService.Abandon(ctx, otherID, instanceID)
	assert.ErrorIs(t, err, challenge.ErrNotFound)

	active, err := challengeService.ListActive(ctx, ownerID)
	require.NoError(t, err)
	assert.Len(t, active, 1, "owner's challenge must survive")
}

// TestActiveChallengeLimit checks the cap on concurrent instances.
func TestActiveChallengeLimit(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	badgeService := services.NewBadgeService(pool)
	userService := services.NewUserService(pool)
	challengeService := services.NewChallengeService(pool, badgeService)

	ctx := context.Background()
	clerkID := "user_test_limit_" + time.Now().Format("20060102150405")

	_, err := userService.CreateUser(ctx, &modelUser.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "test.limit@example.com",
		Username:  "testlimit",
		FirstName: "Test",
		LastName:  "Limit",
	})
	require.NoError(t, err)

	ids := []string{"pushups_easy_30d", "squats_easy_30d", "situps_easy_30d"}
	for _, id := range ids {
		_, err := challengeService.Join(ctx, clerkID, id)
		require.NoError(t, err)
	}

	_, err = challengeService.Join(ctx, clerkID, "burpees_easy_30d")
	assert.ErrorIs(t, err, challenge.ErrLimitExceeded)

	// Custom creation counts against the same cap
	_, err = challengeService.CreateCustom(ctx, clerkID, &challenge.CreateCustomRequest{
		ExerciseID:   "lunges",
		DurationDays: 14,
		Difficulty:   challenge.DifficultyMedium,
	})
	assert.ErrorIs(t, err, challenge.ErrLimitExceeded)
}

// TestCustomChallenge checks custom definitions are snapshotted on the
// instance and usable without a catalog entry.
func TestCustomChallenge(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	badgeService := services.NewBadgeService(pool)
	userService := services.NewUserService(pool)
	challengeService := services.NewChallengeService(pool, badgeService)

	ctx := context.Background()
	clerkID := "user_test_custom_" + time.Now().Format("20060102150405")

	_, err := userService.CreateUser(ctx, &modelUser.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "test.custom@example.com",
		Username:  "testcustom",
		FirstName: "Test",
		LastName:  "Custom",
	})
	require.NoError(t, err)

	instanceID, err := challengeService.CreateCustom(ctx, clerkID, &challenge.CreateCustomRequest{
		ExerciseID:   "pullups",
		DurationDays: 14,
		Difficulty:   challenge.DifficultyHard,
	})
	require.NoError(t, err)

	active, err := challengeService.ListActive(ctx, clerkID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].Snapshot)
	assert.Equal(t, "pullups", active[0].Snapshot.ExerciseID)
	assert.Equal(t, 14, active[0].Snapshot.DurationDays)
	assert.Equal(t, challenge.LogicProgressive, active[0].Snapshot.Logic)

	// Pull movement, so targets are dampened below the hard push numbers
	assert.Less(t, active[0].Snapshot.BaseAmount, 20)

	updated, err := challengeService.ValidateDay(ctx, clerkID, instanceID, active[0].TodayTarget, time.Now())
	require.NoError(t, err)
	assert.Equal(t, active[0].TodayTarget, updated.TotalProgress)

	// Unknown exercise is rejected
	_, err = challengeService.CreateCustom(ctx, clerkID, &challenge.CreateCustomRequest{
		ExerciseID:   "kettlebell_swings",
		DurationDays: 14,
		Difficulty:   challenge.DifficultyMedium,
	})
	assert.ErrorIs(t, err, challenge.ErrNotFound)
}

// TestVisitStreak checks the streak transitions via the visit endpoint path.
func TestVisitStreak(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)

	ctx := context.Background()
	clerkID := "user_test_streak_" + time.Now().Format("20060102150405")

	_, err := userService.CreateUser(ctx, &modelUser.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "test.streak@example.com",
		Username:  "teststreak",
		FirstName: "Test",
		LastName:  "Streak",
	})
	require.NoError(t, err)

	st, err := userService.RecordVisit(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 1, st.LongestStreak)

	// Same day again: unchanged
	st, err = userService.RecordVisit(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)

	// Backdate last_connection to yesterday and visit again
	_, err = pool.Exec(ctx, `
		UPDATE streaks SET last_connection = NOW() - INTERVAL '1 day'
		WHERE user_id = (SELECT id FROM users WHERE clerk_id = $1)`, clerkID)
	require.NoError(t, err)

	st, err = userService.RecordVisit(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.CurrentStreak)
	assert.Equal(t, 2, st.LongestStreak)

	// Backdate to three days ago: streak resets, longest survives
	_, err = pool.Exec(ctx, `
		UPDATE streaks SET last_connection = NOW() - INTERVAL '3 days'
		WHERE user_id = (SELECT id FROM users WHERE clerk_id = $1)`, clerkID)
	require.NoError(t, err)

	st, err = userService.RecordVisit(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 2, st.LongestStreak)
}
