package user

import "time"

type User struct {
	ID            string     `json:"id"`
	ClerkID       string     `json:"clerkId"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	EmailVerified bool       `json:"emailVerified"`
	WeightKg      float64    `json:"weightKg"`
	HeightCm      float64    `json:"heightCm"`
	TotalReps     int        `json:"totalReps"`
	TotalSessions int        `json:"totalSessions"`
	TotalCalories float64    `json:"totalCalories"`
	LastActivity  *time.Time `json:"lastActivity,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
