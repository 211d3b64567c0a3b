package sync

import "github.com/google/uuid"

// Phase names a stage of a synchronization run.
type Phase string

const (
	PhaseFetch      Phase = "fetch"
	PhaseDays       Phase = "days"
	PhaseWeeks      Phase = "weeks"
	PhaseMonths     Phase = "months"
	PhaseYears      Phase = "years"
	PhaseHighscores Phase = "highscores"
	PhaseCommit     Phase = "commit"
	PhaseDone       Phase = "done"
)

// Progress is one advisory progress event. Percent is monotonically
// non-decreasing over a run and lands on 100 with PhaseDone. Consumers may
// ignore or stop draining events without affecting the sync outcome.
type Progress struct {
	RunID       uuid.UUID `json:"run_id"`
	Phase       Phase     `json:"phase"`
	Description string    `json:"description"`
	Percent     int       `json:"percent"`
}

// phaseSpan is a phase's slice of the run's [0,100] percentage range.
type phaseSpan struct {
	lo, hi int
}

// phaseSpans partitions [0,100] across the phases of a full run. Sub-phase
// progress is rescaled linearly into its span before being reported.
var phaseSpans = map[Phase]phaseSpan{
	PhaseFetch:      {0, 15},
	PhaseDays:       {15, 40},
	PhaseWeeks:      {40, 65},
	PhaseMonths:     {65, 85},
	PhaseYears:      {85, 95},
	PhaseHighscores: {95, 99},
	PhaseCommit:     {99, 100},
}

// reporter writes progress events to a caller-supplied channel. Sends never
// block: if the consumer is absent or slow the event is dropped, because
// progress is advisory and must not affect engine correctness.
type reporter struct {
	ch    chan<- Progress
	runID uuid.UUID
	last  int
}

func newReporter(ch chan<- Progress, runID uuid.UUID) *reporter {
	return &reporter{ch: ch, runID: runID}
}

// emit reports a phase at the given fraction [0,1] of its span, clamped so
// the overall percentage never goes backwards.
func (r *reporter) emit(phase Phase, description string, fraction float64) {
	span, ok := phaseSpans[phase]
	if !ok {
		span = phaseSpan{100, 100}
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	pct := span.lo + int(float64(span.hi-span.lo)*fraction)
	if pct < r.last {
		pct = r.last
	}
	r.last = pct

	if r.ch == nil {
		return
	}
	select {
	case r.ch <- Progress{RunID: r.runID, Phase: phase, Description: description, Percent: pct}:
	default:
	}
}

// done reports terminal completion at 100 percent.
func (r *reporter) done(description string) {
	r.last = 100
	if r.ch == nil {
		return
	}
	select {
	case r.ch <- Progress{RunID: r.runID, Phase: PhaseDone, Description: description, Percent: 100}:
	default:
	}
}
