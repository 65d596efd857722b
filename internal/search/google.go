package search

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/placematch/internal/metrics"
	"github.com/sells-group/placematch/internal/resilience"
	"github.com/sells-group/placematch/pkg/google"
)

// photoWidthPx is the width requested for candidate thumbnails.
const photoWidthPx = 400

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithRateLimit caps provider calls per second.
func WithRateLimit(perSecond float64) GoogleOption {
	return func(p *GoogleProvider) {
		if perSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithRetry overrides the retry policy for transient provider errors.
func WithRetry(cfg resilience.RetryConfig) GoogleOption {
	return func(p *GoogleProvider) {
		p.retry = cfg
	}
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(cfg resilience.BreakerConfig) GoogleOption {
	return func(p *GoogleProvider) {
		p.breaker = resilience.NewBreaker[*google.SearchTextResponse](cfg)
	}
}

// GoogleProvider adapts the Places API client to Provider. Calls pass
// through a token bucket, a circuit breaker and a transient-error retry.
type GoogleProvider struct {
	client  google.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *gobreaker.CircuitBreaker[*google.SearchTextResponse]
}

// NewGoogleProvider creates a GoogleProvider with default limits.
func NewGoogleProvider(client google.Client, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(10), 1),
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewBreaker[*google.SearchTextResponse](resilience.DefaultBreakerConfig("google_places")),
	}
	for _, o := range opts {
		o(p)
	}
	if p.retry.OnRetry == nil {
		p.retry.OnRetry = resilience.RetryLogger("google_places", "search_text")
	}
	return p
}

// Search runs a Places Text Search and converts the results.
func (p *GoogleProvider) Search(ctx context.Context, req ProviderRequest) ([]ProviderPlace, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "search: rate limiter")
	}

	start := time.Now()
	resp, err := p.breaker.Execute(func() (*google.SearchTextResponse, error) {
		return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*google.SearchTextResponse, error) {
			resp, err := p.client.SearchText(ctx, toSearchTextRequest(req))
			var apiErr *google.APIError
			if errors.As(err, &apiErr) {
				return nil, resilience.ClassifyStatus(err, apiErr.StatusCode)
			}
			return resp, err
		})
	})
	metrics.ObserveProviderCall(outcome(err), time.Since(start))
	if err != nil {
		return nil, eris.Wrap(err, "search: google places")
	}

	places := make([]ProviderPlace, 0, len(resp.Places))
	for _, gp := range resp.Places {
		if gp.Location == nil {
			zap.L().Debug("search: skipping place without location",
				zap.String("place_id", gp.ID),
				zap.String("name", gp.DisplayName.Text),
			)
			continue
		}
		places = append(places, p.convert(gp))
	}
	return places, nil
}

func (p *GoogleProvider) convert(gp google.Place) ProviderPlace {
	out := ProviderPlace{
		ProviderID:       gp.ID,
		Name:             gp.DisplayName.Text,
		FormattedAddress: gp.FormattedAddress,
		Lat:              gp.Location.Latitude,
		Lng:              gp.Location.Longitude,
		Rating:           gp.Rating,
		BusinessStatus:   gp.BusinessStatus,
	}
	if gp.PrimaryType != "" {
		out.CategoryTags = append(out.CategoryTags, gp.PrimaryType)
	}
	out.CategoryTags = append(out.CategoryTags, gp.Types...)
	if len(gp.Photos) > 0 {
		out.PhotoRef = gp.Photos[0].Name
		out.ImageURL = p.client.PhotoURL(out.PhotoRef, photoWidthPx)
	}
	return out
}

func toSearchTextRequest(req ProviderRequest) google.SearchTextRequest {
	out := google.SearchTextRequest{
		TextQuery:      req.Query,
		LanguageCode:   req.Language,
		MaxResultCount: req.ResultCap,
	}
	if req.HasCenter {
		out.LocationBias = &google.LocationBias{Circle: google.Circle{
			Center: google.LatLng{Latitude: req.CenterLat, Longitude: req.CenterLng},
			Radius: req.RadiusMeters,
		}}
	}
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case resilience.IsOpen(err):
		return "circuit_open"
	default:
		return "error"
	}
}
