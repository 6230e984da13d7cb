package exercise

// Exercise describes a bodyweight movement the app ships with.
// MET and SecondsPerRep feed the calorie estimate on workout sessions.
type Exercise struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Emoji         string  `json:"emoji"`
	MET           float64 `json:"met"`
	SecondsPerRep float64 `json:"secondsPerRep"`
	PullMovement  bool    `json:"pullMovement"`
}
