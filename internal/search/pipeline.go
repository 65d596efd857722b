package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/placematch/internal/model"
	"github.com/sells-group/placematch/internal/policy"
)

const (
	DefaultResultCap    = 10
	DefaultLanguage     = "ja"
	DefaultWorkers      = 4
	DefaultRadiusMeters = 2000
)

// ErrEmptyQuery is returned when the query text is blank.
var ErrEmptyQuery = eris.New("search: query text is required")

// Resolver finds known places duplicating a candidate.
type Resolver interface {
	Resolve(ctx context.Context, candidate model.PlaceRecord) []model.DuplicateMatch
}

// Config tunes the pipeline.
type Config struct {
	ResultCap           int
	Language            string
	Workers             int
	DefaultRadiusMeters float64
}

func (c Config) withDefaults() Config {
	if c.ResultCap <= 0 {
		c.ResultCap = DefaultResultCap
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.DefaultRadiusMeters <= 0 {
		c.DefaultRadiusMeters = DefaultRadiusMeters
	}
	return c
}

// Pipeline searches a provider and annotates each result with its duplicate
// status.
type Pipeline struct {
	provider   Provider
	resolver   Resolver
	categories *Categorizer
	cfg        Config
}

// NewPipeline creates a Pipeline.
func NewPipeline(provider Provider, resolver Resolver, categories policy.CategoryPolicy, cfg Config) *Pipeline {
	return &Pipeline{
		provider:   provider,
		resolver:   resolver,
		categories: NewCategorizer(categories),
		cfg:        cfg.withDefaults(),
	}
}

// Search returns candidates in the provider's ranking order. A provider
// failure is returned as a LookupError; an empty provider response yields an
// empty, non-nil slice.
func (p *Pipeline) Search(ctx context.Context, q model.SearchQuery) ([]model.CandidatePlace, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	req := ProviderRequest{
		Query:     text,
		ResultCap: p.cfg.ResultCap,
		Language:  p.cfg.Language,
	}
	if q.Center != nil {
		req.HasCenter = true
		req.CenterLat = q.Center.Lat
		req.CenterLng = q.Center.Lng
		req.RadiusMeters = q.RadiusMeters
		if req.RadiusMeters <= 0 {
			req.RadiusMeters = p.cfg.DefaultRadiusMeters
		}
	}

	results, err := p.provider.Search(ctx, req)
	if err != nil {
		return nil, &LookupError{Err: err}
	}
	if len(results) > p.cfg.ResultCap {
		results = results[:p.cfg.ResultCap]
	}

	candidates := make([]model.CandidatePlace, len(results))
	for i, r := range results {
		candidates[i] = p.toCandidate(r)
	}

	// Each goroutine writes only its own index, so ranking survives any
	// completion order.
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i := range candidates {
		g.Go(func() error {
			p.annotate(ctx, &candidates[i])
			return nil
		})
	}
	_ = g.Wait()

	return candidates, nil
}

func (p *Pipeline) annotate(ctx context.Context, c *model.CandidatePlace) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("search: duplicate check panicked, candidate left unregistered",
				zap.String("name", c.Name),
				zap.Any("panic", r),
			)
			c.Annotate(nil)
		}
	}()
	c.Annotate(p.resolver.Resolve(ctx, c.PlaceRecord))
}

func (p *Pipeline) toCandidate(r ProviderPlace) model.CandidatePlace {
	category := p.categories.Categorize(r.CategoryTags)
	return model.CandidatePlace{
		PlaceRecord: model.PlaceRecord{
			Name:     r.Name,
			Location: r.FormattedAddress,
			Lat:      r.Lat,
			Lng:      r.Lng,
			Rating:   r.Rating,
			Tags:     category,
			ImageURL: r.ImageURL,
			Source:   model.SourceSearch,
		},
		Category:       category,
		BusinessStatus: r.BusinessStatus,
		PhotoRef:       r.PhotoRef,
	}
}
