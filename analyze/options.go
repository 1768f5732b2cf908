// Package analyze drives bulk stream testing over whole playlists.
package analyze

import "time"

// Options controls how a playlist is sampled and tested.
type Options struct {
	// SampleSize caps how many distinct streams the sequential test
	// probes.
	SampleSize int
	// Timeout bounds each individual probe.
	Timeout time.Duration
	// MinPlayableToPass stops the sequential test early once reached.
	MinPlayableToPass int
	// Delay paces consecutive sequential probes.
	Delay time.Duration
	// SkipAdultGroups leaves adult groups out of the sample.
	SkipAdultGroups bool
	// Shuffle randomizes the sample order.
	Shuffle bool

	// MaxGroupsToTest caps how many groups the grouped test covers.
	MaxGroupsToTest int
	// StreamsPerGroup is the sample size inside each tested group.
	StreamsPerGroup int
	// MaxConcurrent bounds in-flight probes across all groups.
	MaxConcurrent int
}

// DefaultOptions returns the options used when the caller does not
// care.
func DefaultOptions() Options {
	return Options{
		SampleSize:        5,
		Timeout:           10 * time.Second,
		MinPlayableToPass: 1,
		Delay:             200 * time.Millisecond,
		SkipAdultGroups:   true,
		Shuffle:           true,
		MaxGroupsToTest:   10,
		StreamsPerGroup:   3,
		MaxConcurrent:     8,
	}
}

// normalized clamps every field into its supported range.
func (o Options) normalized() Options {
	o.SampleSize = clamp(o.SampleSize, 1, 50)
	o.MinPlayableToPass = clamp(o.MinPlayableToPass, 1, 5)
	if o.Timeout < time.Second {
		o.Timeout = time.Second
	}
	if o.Timeout > 30*time.Second {
		o.Timeout = 30 * time.Second
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.Delay > 5*time.Second {
		o.Delay = 5 * time.Second
	}
	if o.MaxGroupsToTest < 1 {
		o.MaxGroupsToTest = 1
	}
	if o.StreamsPerGroup < 1 {
		o.StreamsPerGroup = 1
	}
	if o.MaxConcurrent < 1 {
		o.MaxConcurrent = 1
	}
	return o
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
