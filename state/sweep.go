package state

import (
	"maps"
	"slices"
	"time"
)

// expired lists, in ascending order, the ids of players whose last activity
// is at least timeout before now. It does not modify players, so the caller
// can delete the result without disturbing the scan.
func expired(players map[int]*Player, now time.Time, timeout time.Duration) []int {
	var ids []int
	for _, id := range slices.Sorted(maps.Keys(players)) {
		if now.Sub(players[id].LastActivity) >= timeout {
			ids = append(ids, id)
		}
	}
	return ids
}
