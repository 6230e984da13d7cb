package stats

type UserStats struct {
	TotalReps           int     `json:"total_reps"`
	TotalSessions       int     `json:"total_sessions"`
	TotalCalories       float64 `json:"total_calories"`
	CurrentStreak       int     `json:"current_streak"`
	LongestStreak       int     `json:"longest_streak"`
	ActiveChallenges    int     `json:"active_challenges"`
	CompletedChallenges int     `json:"completed_challenges"`
	BadgesCount         int     `json:"badges_count"`
}
