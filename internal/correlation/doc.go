// Package correlation drives time-correlation functions over trajectories.
//
// A shifted correlation evaluates a pair function f(reference, frame) at a set
// of lag offsets, repeated for several segments whose start frames are spread
// over the trajectory, and stacks the per-segment rows into a matrix:
//
//	starts := segments evenly spaced offsets in [skip*N, (1-window-skip)*N)
//	lags   := IndexDistribution(0, floor(window*N))
//	row[s] := Combinator(f, frames[start_s + lags...])
//
// ORDERING:
// Segments run strictly one after another in ascending start order; lags are
// visited in ascending order within a segment. Frames are fetched lazily
// through an iter.Seq, so a combinator that stops early stops fetching.
//
// CACHING:
// Scheduler wraps a run in a Gateway keyed by a checksum.Fingerprint of the
// whole call: the pair function and the frame source as positional arguments
// and every option as a keyword argument. Functions, index distributions,
// combinators and selectors all carry code identities so they take part in
// that key.
package correlation
