// Package dedupe decides whether a candidate place duplicates a place that is
// already known, using a rectangular prefilter followed by tiered
// distance/similarity rules.
package dedupe

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/placematch/internal/geomatch"
	"github.com/sells-group/placematch/internal/metrics"
	"github.com/sells-group/placematch/internal/model"
	"github.com/sells-group/placematch/internal/policy"
)

// Lookup fetches known places inside a bounding box.
type Lookup interface {
	FindInBBox(ctx context.Context, box model.BBox) ([]model.PlaceRecord, error)
}

// Diagnostics receives lookup failures that the resolver swallows.
type Diagnostics interface {
	LookupFailed(ctx context.Context, candidate model.PlaceRecord, err error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPolicy overrides the default tiers and prefilter window.
func WithPolicy(p policy.DedupePolicy) Option {
	return func(r *Resolver) {
		r.policy = p
	}
}

// WithDiagnostics overrides where swallowed failures are reported.
func WithDiagnostics(d Diagnostics) Option {
	return func(r *Resolver) {
		r.diag = d
	}
}

// Resolver classifies duplicates of a candidate against a Lookup.
type Resolver struct {
	lookup Lookup
	policy policy.DedupePolicy
	diag   Diagnostics
}

// NewResolver creates a Resolver with the default policy.
func NewResolver(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup: lookup,
		policy: policy.Default().Dedupe,
		diag:   logDiagnostics{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the known places that duplicate candidate, closest first.
// Lookup failures are reported through Diagnostics and yield an empty result:
// an unreachable backend is treated as "no duplicates". A lookup aborted by a
// cancelled caller is not reported.
func (r *Resolver) Resolve(ctx context.Context, candidate model.PlaceRecord) []model.DuplicateMatch {
	box := model.BBoxAround(candidate.Coordinate(), r.policy.BBoxDeltaDegrees)

	nearby, err := r.lookup.FindInBBox(ctx, box)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.diag.LookupFailed(ctx, candidate, err)
		}
		return nil
	}

	var matches []model.DuplicateMatch
	for _, existing := range nearby {
		if m, ok := r.Classify(candidate, existing); ok {
			matches = append(matches, m)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceMeters < matches[j].DistanceMeters
	})

	metrics.RecordDuplicateCheck(len(matches) > 0)
	return matches
}

// Classify scores one pair and reports whether any tier accepts it.
func (r *Resolver) Classify(candidate, existing model.PlaceRecord) (model.DuplicateMatch, bool) {
	m := model.DuplicateMatch{
		Existing:       existing,
		DistanceMeters: geomatch.Distance(candidate.Coordinate(), existing.Coordinate()),
		Similarity:     geomatch.Similarity(candidate.Name, existing.Name),
	}
	return m, r.policy.Matches(m.DistanceMeters, m.Similarity)
}

// logDiagnostics logs the failure and counts it.
type logDiagnostics struct{}

func (logDiagnostics) LookupFailed(_ context.Context, candidate model.PlaceRecord, err error) {
	metrics.RecordLookupFailure("dedupe")
	zap.L().Warn("dedupe: nearby lookup failed, treating as no duplicates",
		zap.String("name", candidate.Name),
		zap.Float64("lat", candidate.Lat),
		zap.Float64("lng", candidate.Lng),
		zap.Error(err),
	)
}
