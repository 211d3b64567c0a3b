package models

// Canonical metric names accepted by the ingest path. Sleep arrives through
// its own sample shape and is not listed here.
const (
	MetricSteps           = "step_count"
	MetricCycling         = "cycling_distance"
	MetricWalking         = "walking_distance"
	MetricRunning         = "running_distance"
	MetricSwimming        = "swimming_distance"
	MetricCrossCountrySki = "cross_country_ski_distance"
	MetricDownhillSki     = "downhill_ski_distance"
	MetricSwimStrokes     = "swim_strokes"
	MetricActiveEnergy    = "active_energy"
	MetricRestingEnergy   = "resting_energy"
	MetricHeartbeats      = "heartbeats"
	MetricFlightsClimbed  = "flights_climbed"
	MetricExerciseTime    = "exercise_time"
	MetricStandTime       = "stand_time"
)

// TrackedMetrics is every sample name the engine folds into a bundle.
var TrackedMetrics = []string{
	MetricSteps,
	MetricCycling,
	MetricWalking,
	MetricRunning,
	MetricSwimming,
	MetricCrossCountrySki,
	MetricDownhillSki,
	MetricSwimStrokes,
	MetricActiveEnergy,
	MetricRestingEnergy,
	MetricHeartbeats,
	MetricFlightsClimbed,
	MetricExerciseTime,
	MetricStandTime,
}

// MetricTracked reports whether name is one of the tracked sample metrics.
func MetricTracked(name string) bool {
	for _, m := range TrackedMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// ApplySample adds a raw sample quantity to the matching bundle field.
// It reports false for unrecognized metric names, leaving the bundle alone.
func (b *MetricBundle) ApplySample(name string, qty float64) bool {
	switch name {
	case MetricSteps:
		b.Steps += int64(qty)
	case MetricCycling:
		b.CyclingMeters += qty
	case MetricWalking:
		b.WalkingMeters += qty
	case MetricRunning:
		b.RunningMeters += qty
	case MetricSwimming:
		b.SwimmingMeters += qty
	case MetricCrossCountrySki:
		b.CrossCountrySkiMeters += qty
	case MetricDownhillSki:
		b.DownhillSkiMeters += qty
	case MetricSwimStrokes:
		b.SwimStrokes += int64(qty)
	case MetricActiveEnergy:
		b.ActiveKilocalories += qty
	case MetricRestingEnergy:
		b.RestingKilocalories += qty
	case MetricHeartbeats:
		b.Heartbeats += int64(qty)
	case MetricFlightsClimbed:
		b.FlightsClimbed += int64(qty)
	case MetricExerciseTime:
		b.ExerciseMinutes += int64(qty)
	case MetricStandTime:
		b.StandMinutes += int64(qty)
	default:
		return false
	}
	return true
}
