package sync

import (
	"testing"

	"github.com/google/uuid"
)

func TestReporterClampsBackwards(t *testing.T) {
	ch := make(chan Progress, 16)
	rep := newReporter(ch, uuid.New())

	rep.emit(PhaseWeeks, "weeks", 0.5) // lands mid-span
	rep.emit(PhaseFetch, "late fetch event", 0)

	first, second := <-ch, <-ch
	if second.Percent < first.Percent {
		t.Errorf("percent regressed from %d to %d", first.Percent, second.Percent)
	}
}

func TestReporterScalesIntoSpan(t *testing.T) {
	ch := make(chan Progress, 16)
	rep := newReporter(ch, uuid.New())

	rep.emit(PhaseDays, "start", 0)
	rep.emit(PhaseDays, "half", 0.5)
	rep.emit(PhaseDays, "end", 1)

	want := []int{15, 27, 40}
	for i, w := range want {
		ev := <-ch
		if ev.Percent != w {
			t.Errorf("event %d percent = %d, want %d", i, ev.Percent, w)
		}
	}
}

func TestReporterClampsFraction(t *testing.T) {
	ch := make(chan Progress, 16)
	rep := newReporter(ch, uuid.New())

	rep.emit(PhaseFetch, "overshoot", 2.5)
	if ev := <-ch; ev.Percent != 15 {
		t.Errorf("percent = %d, want span upper bound 15", ev.Percent)
	}
}

// TestReporterNeverBlocks sends into a full channel; a blocking send would
// hang the test.
func TestReporterNeverBlocks(t *testing.T) {
	ch := make(chan Progress) // no buffer, no reader
	rep := newReporter(ch, uuid.New())

	rep.emit(PhaseFetch, "dropped", 0)
	rep.done("dropped")
}

func TestReporterNilChannel(t *testing.T) {
	rep := newReporter(nil, uuid.New())
	rep.emit(PhaseFetch, "ignored", 0.5)
	rep.done("ignored")
	if rep.last != 100 {
		t.Errorf("last = %d, want 100 after done", rep.last)
	}
}
