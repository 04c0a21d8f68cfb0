package heatwave

import (
	"time"
)

// Day is one point of a cell's chronological daily series.
type Day struct {
	Date  time.Time
	Value float64
}

// Event is one maximal run of consecutive days strictly above the
// threshold. Intensities are relative to the threshold.
type Event struct {
	Start      time.Time
	End        time.Time
	Duration   int
	Max        float64
	Mean       float64
	Cumulative float64
}

type scanState int

const (
	stateOutside scanState = iota
	stateInRun
)

// DetectRuns scans a chronological daily series once and returns the
// maximal runs of consecutive calendar days whose value strictly
// exceeds threshold, keeping only runs of at least minDuration days.
// A missing calendar day breaks a run; runs are never bridged across
// gaps. A run still open at the end of the series is flushed.
func DetectRuns(days []Day, threshold float64, minDuration int) []Event {
	if minDuration < 1 {
		minDuration = 1
	}

	var events []Event
	state := stateOutside
	runStart := 0
	var prevDate time.Time

	flush := func(start, end int) {
		duration := end - start + 1
		if duration < minDuration {
			return
		}
		ev := Event{Start: days[start].Date, End: days[end].Date, Duration: duration}
		for i := start; i <= end; i++ {
			intensity := days[i].Value - threshold
			if intensity > ev.Max {
				ev.Max = intensity
			}
			ev.Cumulative += intensity
		}
		ev.Mean = ev.Cumulative / float64(duration)
		events = append(events, ev)
	}

	for i, d := range days {
		exceeds := d.Value > threshold
		gap := i > 0 && !d.Date.Equal(prevDate.AddDate(0, 0, 1))

		switch state {
		case stateOutside:
			if exceeds {
				state = stateInRun
				runStart = i
			}

		case stateInRun:
			switch {
			case gap && exceeds:
				// The run breaks at the gap and a new one starts today.
				flush(runStart, i-1)
				runStart = i
			case gap || !exceeds:
				flush(runStart, i-1)
				state = stateOutside
			}
		}

		prevDate = d.Date
	}

	if state == stateInRun {
		flush(runStart, len(days)-1)
	}

	return events
}
