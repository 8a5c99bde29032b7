package format

import (
	"fmt"

	"github.com/cxd309/race-engine/internal/engine"
	"github.com/cxd309/race-engine/internal/horse"
)

// Standings renders the final results, one row per horse in finishing order.
func Standings(results []engine.Result, m Mode) string {
	tb := NewTable(m)
	tb.Header("Pos", "Horse", "Name", "Distance", "Finish")
	tb.AlignRight(1, 4, 5)
	finished := 0
	for _, r := range results {
		finish := "-"
		if r.Finished {
			finish = fmt.Sprintf("tick %d", r.FinishTick)
			finished++
		}
		tb.Row(r.Position, r.ID, r.Name, fmt.Sprintf("%.1f", r.Distance), finish)
	}
	tb.Footer("", "", "", "finished", fmt.Sprintf("%d/%d", finished, len(results)))
	return tb.String()
}

// Field renders one tick of the race: where each horse is and what it is
// doing, ordered as given.
func Field(row engine.RaceLogRow, m Mode) string {
	tb := NewTable(m)
	tb.Header("Rank", "Horse", "Lane", "Speed", "Stamina", "Behavior", "Mode")
	tb.AlignRight(1, 3, 4, 5)
	for _, h := range row.Horses {
		tb.Row(h.Rank, h.ID, h.Lane, fmt.Sprintf("%.2f", h.Speed),
			fmt.Sprintf("%.0f%%", 100*h.StaminaRatio), h.Behavior, mode(h))
	}
	return tb.String()
}

func mode(h horse.Snapshot) string {
	if h.Finished {
		return "finished"
	}
	return string(h.Mode)
}
