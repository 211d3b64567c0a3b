package models

// MetricBundle holds the additive health metric totals for one time period.
// All fields combine by plain per-field addition, so summing bundles is
// associative and commutative: fold order over a set of days never changes
// the result.
type MetricBundle struct {
	Steps                 int64   `json:"steps"`
	CyclingMeters         float64 `json:"cycling_meters"`
	WalkingMeters         float64 `json:"walking_meters"`
	RunningMeters         float64 `json:"running_meters"`
	SwimmingMeters        float64 `json:"swimming_meters"`
	CrossCountrySkiMeters float64 `json:"cross_country_ski_meters"`
	DownhillSkiMeters     float64 `json:"downhill_ski_meters"`
	SwimStrokes           int64   `json:"swim_strokes"`
	ActiveKilocalories    float64 `json:"active_kilocalories"`
	RestingKilocalories   float64 `json:"resting_kilocalories"`
	Heartbeats            int64   `json:"heartbeats"`
	FlightsClimbed        int64   `json:"flights_climbed"`
	ExerciseMinutes       int64   `json:"exercise_minutes"`
	StandMinutes          int64   `json:"stand_minutes"`
	SleepTotalMinutes     int64   `json:"sleep_total_minutes"`
	SleepDeepMinutes      int64   `json:"sleep_deep_minutes"`
	SleepREMMinutes       int64   `json:"sleep_rem_minutes"`
}

// Add returns the per-field sum of b and other.
func (b MetricBundle) Add(other MetricBundle) MetricBundle {
	return MetricBundle{
		Steps:                 b.Steps + other.Steps,
		CyclingMeters:         b.CyclingMeters + other.CyclingMeters,
		WalkingMeters:         b.WalkingMeters + other.WalkingMeters,
		RunningMeters:         b.RunningMeters + other.RunningMeters,
		SwimmingMeters:        b.SwimmingMeters + other.SwimmingMeters,
		CrossCountrySkiMeters: b.CrossCountrySkiMeters + other.CrossCountrySkiMeters,
		DownhillSkiMeters:     b.DownhillSkiMeters + other.DownhillSkiMeters,
		SwimStrokes:           b.SwimStrokes + other.SwimStrokes,
		ActiveKilocalories:    b.ActiveKilocalories + other.ActiveKilocalories,
		RestingKilocalories:   b.RestingKilocalories + other.RestingKilocalories,
		Heartbeats:            b.Heartbeats + other.Heartbeats,
		FlightsClimbed:        b.FlightsClimbed + other.FlightsClimbed,
		ExerciseMinutes:       b.ExerciseMinutes + other.ExerciseMinutes,
		StandMinutes:          b.StandMinutes + other.StandMinutes,
		SleepTotalMinutes:     b.SleepTotalMinutes + other.SleepTotalMinutes,
		SleepDeepMinutes:      b.SleepDeepMinutes + other.SleepDeepMinutes,
		SleepREMMinutes:       b.SleepREMMinutes + other.SleepREMMinutes,
	}
}

// IsZero reports whether every field is zero (the identity element).
func (b MetricBundle) IsZero() bool {
	return b == MetricBundle{}
}

// Calories returns active + resting energy for the period. Highscores track
// this combined value rather than either raw field.
func (b MetricBundle) Calories() float64 {
	return b.ActiveKilocalories + b.RestingKilocalories
}

// SumBundles folds a set of bundles into their total.
func SumBundles(bundles ...MetricBundle) MetricBundle {
	var total MetricBundle
	for _, b := range bundles {
		total = total.Add(b)
	}
	return total
}
