// Package search turns a free-text query into a ranked, duplicate-annotated
// list of candidate places.
package search

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
)

// ErrLookupFailure matches any error caused by the place-search provider
// being unreachable or failing.
var ErrLookupFailure = eris.New("search: lookup failure")

// LookupError wraps a provider failure so it matches ErrLookupFailure while
// keeping the underlying cause.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string {
	return "search: lookup failure: " + e.Err.Error()
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Is matches ErrLookupFailure.
func (e *LookupError) Is(target error) bool {
	return errors.Is(ErrLookupFailure, target)
}

// ProviderRequest is one provider call.
type ProviderRequest struct {
	Query        string
	CenterLat    float64
	CenterLng    float64
	HasCenter    bool
	RadiusMeters float64
	ResultCap    int
	Language     string
}

// ProviderPlace is one ranked provider result.
type ProviderPlace struct {
	ProviderID       string
	Name             string
	FormattedAddress string
	Lat              float64
	Lng              float64
	Rating           *float64
	CategoryTags     []string
	PhotoRef         string
	ImageURL         string
	BusinessStatus   string
}

// Provider is an external place-search service. Results are in the
// provider's ranking order.
type Provider interface {
	Search(ctx context.Context, req ProviderRequest) ([]ProviderPlace, error)
}
