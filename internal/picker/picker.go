package picker

import (
	"fmt"
	"math/rand"

	"github.com/kokistudios/drill/internal/catalog"
)

// Mode selects the sampling policy.
type Mode string

const (
	// ModeRandom draws uniformly from the whole pool without replacement.
	ModeRandom Mode = "random"
	// ModeBalanced rotates across category buckets so that no category
	// runs ahead of another while both still have questions left.
	ModeBalanced Mode = "balanced"
)

// ParseMode maps a user-supplied mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRandom, ModeBalanced:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown pick mode %q (use random or balanced)", s)
}

// Pick draws up to n distinct records from pool without replacement, in draw
// order. The pool is expected to be pre-filtered: completed and pending ids
// are the caller's problem. n <= 0 or an empty pool yields an empty result.
// The rng is injected so callers can seed it for reproducible picks.
func Pick(pool []catalog.QuestionRecord, n int, mode Mode, rng *rand.Rand) []catalog.QuestionRecord {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if mode == ModeBalanced {
		return pickBalanced(pool, n, rng)
	}
	return pickRandom(pool, n, rng)
}

func pickRandom(pool []catalog.QuestionRecord, n int, rng *rand.Rand) []catalog.QuestionRecord {
	remaining := append([]catalog.QuestionRecord(nil), pool...)
	if n > len(remaining) {
		n = len(remaining)
	}

	out := make([]catalog.QuestionRecord, 0, n)
	for len(out) < n {
		i := rng.Intn(len(remaining))
		out = append(out, remaining[i])
		remaining[i] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}
	return out
}

// pickBalanced partitions the pool into category buckets (first-appearance
// order) and round-robins over them, drawing one uniformly random element
// per bucket per pass and dropping exhausted buckets from the rotation.
// A single-category pool has one bucket and degenerates to random draws.
func pickBalanced(pool []catalog.QuestionRecord, n int, rng *rand.Rand) []catalog.QuestionRecord {
	buckets := make(map[string][]catalog.QuestionRecord)
	var rotation []string
	for _, r := range pool {
		if _, ok := buckets[r.Category]; !ok {
			rotation = append(rotation, r.Category)
		}
		buckets[r.Category] = append(buckets[r.Category], r)
	}

	if n > len(pool) {
		n = len(pool)
	}

	out := make([]catalog.QuestionRecord, 0, n)
	for len(out) < n && len(rotation) > 0 {
		next := rotation[:0]
		for _, cat := range rotation {
			if len(out) == n {
				next = append(next, cat)
				continue
			}
			bucket := buckets[cat]
			i := rng.Intn(len(bucket))
			out = append(out, bucket[i])
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			buckets[cat] = bucket
			if len(bucket) > 0 {
				next = append(next, cat)
			}
		}
		rotation = next
	}
	return out
}
