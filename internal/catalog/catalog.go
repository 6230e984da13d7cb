package catalog

import (
	"fmt"
	"sort"

	"repRivalAPI/internal/progression"
	"repRivalAPI/internal/types/challenge"
	"repRivalAPI/internal/types/exercise"
)

// The exercises the product ships with. MET values follow the compendium
// numbers for vigorous calisthenics; SecondsPerRep is the pace assumed by
// the calorie estimate.
var exercises = map[string]exercise.Exercise{
	"pushups":  {ID: "pushups", Name: "Push-ups", Emoji: "💪", MET: 8.0, SecondsPerRep: 2.0},
	"squats":   {ID: "squats", Name: "Squats", Emoji: "🦵", MET: 5.5, SecondsPerRep: 2.5},
	"situps":   {ID: "situps", Name: "Sit-ups", Emoji: "🔥", MET: 4.3, SecondsPerRep: 2.0},
	"burpees":  {ID: "burpees", Name: "Burpees", Emoji: "🤸", MET: 10.0, SecondsPerRep: 4.0},
	"lunges":   {ID: "lunges", Name: "Lunges", Emoji: "🏃", MET: 5.0, SecondsPerRep: 2.5},
	"plankups": {ID: "plankups", Name: "Plank-ups", Emoji: "🧱", MET: 6.0, SecondsPerRep: 3.0},
	"pullups":  {ID: "pullups", Name: "Pull-ups", Emoji: "🏋️", MET: 9.0, SecondsPerRep: 3.0, PullMovement: true},
	"chinups":  {ID: "chinups", Name: "Chin-ups", Emoji: "🆙", MET: 9.0, SecondsPerRep: 3.0, PullMovement: true},
}

const shippedDurationDays = 30

var definitions = buildDefinitions()

// One shipped definition per (exercise, difficulty) pairing, all 30-day
// progressive ramps. Parameters come from the same derivation as custom
// challenges so pull movements stay dampened.
func buildDefinitions() map[string]challenge.Definition {
	difficulties := []challenge.Difficulty{
		challenge.DifficultyEasy,
		challenge.DifficultyMedium,
		challenge.DifficultyHard,
		challenge.DifficultyExtreme,
	}

	defs := make(map[string]challenge.Definition)
	for _, ex := range exercises {
		for _, diff := range difficulties {
			base, inc := progression.DeriveCustomParams(diff, ex.PullMovement)
			id := fmt.Sprintf("%s_%s_%dd", ex.ID, diff, shippedDurationDays)
			defs[id] = challenge.Definition{
				ID:           id,
				ExerciseID:   ex.ID,
				DurationDays: shippedDurationDays,
				Logic:        challenge.LogicProgressive,
				BaseAmount:   base,
				Increment:    inc,
				Difficulty:   diff,
			}
		}
	}
	return defs
}

// GetDefinition looks up a shipped challenge definition. Not finding one is
// not fatal: custom challenges are never in this table.
func GetDefinition(id string) (challenge.Definition, bool) {
	def, ok := definitions[id]
	return def, ok
}

func ListDefinitions() []challenge.Definition {
	defs := make([]challenge.Definition, 0, len(definitions))
	for _, def := range definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// GetExercise resolves display and metabolic parameters for an exercise id.
func GetExercise(id string) (exercise.Exercise, bool) {
	ex, ok := exercises[id]
	return ex, ok
}

func ListExercises() []exercise.Exercise {
	exs := make([]exercise.Exercise, 0, len(exercises))
	for _, ex := range exercises {
		exs = append(exs, ex)
	}
	sort.Slice(exs, func(i, j int) bool { return exs[i].ID < exs[j].ID })
	return exs
}
