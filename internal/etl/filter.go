package etl

import (
	"sort"

	"github.com/BartekS5/eventsync/pkg/models"
	"github.com/BartekS5/eventsync/pkg/utils"
)

// EventTime returns the event timestamp in epoch milliseconds. Missing or
// malformed timestamps read as 0.
func EventTime(e models.Event) int64 {
	return utils.TimestampMillis(e.String("timestamp"))
}

// Filter keeps the events with w.From < time <= w.To, sorted ascending by
// time. Events sharing a timestamp keep their input order.
func Filter(events []models.Event, w models.Window) []models.Event {
	type timed struct {
		ms    int64
		event models.Event
	}

	kept := make([]timed, 0, len(events))
	for _, e := range events {
		if ms := EventTime(e); w.Contains(ms) {
			kept = append(kept, timed{ms: ms, event: e})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].ms < kept[j].ms })

	out := make([]models.Event, len(kept))
	for i, k := range kept {
		out[i] = k.event
	}
	return out
}
