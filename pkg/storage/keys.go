package storage

import "fmt"

// Journal key schema. Every process run writes under its own prefix so runs
// never overwrite each other:
//
//	run:<runID>:trade:<round>:<seq>            → Trade
//	run:<runID>:part:<participant>:<round>     → Snapshot
//
// Rounds and sequence numbers are zero-padded (10 digits) for lexicographic
// sorting.
const (
	prefixRun   = "run:"
	segTrade    = "trade:"
	segPart     = "part:"
	numberWidth = 10
)

// tradeKey returns the key for a trade
// Format: "run:{runID}:trade:{round}:{seq}"
func tradeKey(runID string, round int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%s%0*d:%0*d", prefixRun, runID, segTrade, numberWidth, round, numberWidth, seq))
}

// tradeRoundPrefix returns the prefix for all trades of a round
func tradeRoundPrefix(runID string, round int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%s%0*d:", prefixRun, runID, segTrade, numberWidth, round))
}

// participantKey returns the key for a participant snapshot
// Format: "run:{runID}:part:{participant}:{round}"
func participantKey(runID, participant string, round int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%s%s:%0*d", prefixRun, runID, segPart, participant, numberWidth, round))
}

// participantPrefix returns the prefix for all snapshots of a participant.
// Ids containing ':' can share a prefix with another id, so readers filter
// on the decoded id.
func participantPrefix(runID, participant string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s%s:", prefixRun, runID, segPart, participant))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
