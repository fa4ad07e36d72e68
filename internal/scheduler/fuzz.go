package scheduler

import "math/rand"

// fuzzInterval perturbs an interval by a uniform random offset of up to ±25%
// so that cards scheduled together do not all come due on the same day.
// The result is never below one day.
func fuzzInterval(rng *rand.Rand, interval int) int {
	span := interval / 4
	if span == 0 {
		return interval
	}
	fuzzed := interval + rng.Intn(2*span+1) - span
	if fuzzed < 1 {
		fuzzed = 1
	}
	return fuzzed
}
