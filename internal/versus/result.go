package versus

import (
	"slices"
	"time"

	"github.com/dohr-michael/arena/internal/chat"
)

// Result is one model's outcome in a round.
type Result struct {
	Rank     int    // arrival order, from 1
	Index    int    // submission index in the comparison set
	ModelID  string
	Content  string // set on success
	Err      error  // set on failure
	Usage    chat.Usage
	Duration time.Duration
}

// OK reports whether the model answered.
func (r Result) OK() bool { return r.Err == nil }

// Batch holds every Result of one round in arrival order.
type Batch []Result

// Successes returns the successful results, arrival order preserved.
func (b Batch) Successes() Batch {
	var out Batch
	for _, r := range b {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// ByRank returns the result with the given rank.
func (b Batch) ByRank(rank int) (Result, bool) {
	i := slices.IndexFunc(b, func(r Result) bool { return r.Rank == rank })
	if i < 0 {
		return Result{}, false
	}
	return b[i], true
}
