package main

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placematch/internal/bio"
	"github.com/sells-group/placematch/internal/dedupe"
	"github.com/sells-group/placematch/internal/model"
	"github.com/sells-group/placematch/internal/policy"
	"github.com/sells-group/placematch/internal/resilience"
	"github.com/sells-group/placematch/internal/search"
	"github.com/sells-group/placematch/internal/share"
	"github.com/sells-group/placematch/internal/store"
	"github.com/sells-group/placematch/pkg/google"
)

// appEnv holds the components built from config for one command.
type appEnv struct {
	Store      store.Store
	Policy     *policy.Policy
	Resolver   *dedupe.Resolver
	Classifier *bio.Classifier
	Pipeline   *search.Pipeline // nil unless search was requested
	Share      *share.Workflow
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "placematch.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func loadPolicy() (*policy.Policy, error) {
	if cfg.Policy.Path == "" {
		return policy.Default(), nil
	}
	p, err := policy.Load(cfg.Policy.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "load policy %s", cfg.Policy.Path)
	}
	zap.L().Info("policy loaded", zap.String("path", cfg.Policy.Path))
	return p, nil
}

func newSearchPipeline(resolver search.Resolver, pol *policy.Policy) *search.Pipeline {
	client := google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL))
	provider := search.NewGoogleProvider(client,
		search.WithRateLimit(cfg.Google.RateLimit),
		search.WithRetry(resilience.FromRetryConfig(
			cfg.Resilience.MaxAttempts,
			cfg.Resilience.InitialBackoffMs,
			cfg.Resilience.MaxBackoffMs,
			cfg.Resilience.Multiplier,
			cfg.Resilience.JitterFraction,
		)),
		search.WithBreaker(resilience.FromBreakerConfig(
			"google_places",
			cfg.Resilience.BreakerThreshold,
			cfg.Resilience.BreakerResetSecs,
		)),
	)
	return search.NewPipeline(provider, resolver, pol.Categories, search.Config{
		ResultCap:           cfg.Search.ResultCap,
		Language:            cfg.Search.Language,
		Workers:             cfg.Search.Workers,
		DefaultRadiusMeters: cfg.Search.DefaultRadiusMeters,
	})
}

// initEnv validates config for mode, opens and migrates the store and
// builds the engine. The provider-backed pipeline is built only for the
// "search" and "serve" modes. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	pol, err := loadPolicy()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &appEnv{
		Store:      st,
		Policy:     pol,
		Resolver:   dedupe.NewResolver(st, dedupe.WithPolicy(pol.Dedupe)),
		Classifier: bio.NewClassifier(pol.Bio),
	}

	var searcher share.Searcher
	if mode == "search" || mode == "serve" {
		env.Pipeline = newSearchPipeline(env.Resolver, pol)
		searcher = env.Pipeline
	}

	center, radius := cfg.Share.SearchBias()
	env.Share = share.NewWorkflow(searcher, env.Classifier, env.Resolver, st, share.Config{
		PlaceholderQuery:    cfg.Share.PlaceholderQuery,
		PlaceholderLocation: cfg.Share.PlaceholderLocation,
		FallbackImageURL:    cfg.Share.FallbackImageURL,
		DefaultCenter:       model.Coordinate{Lat: cfg.Share.DefaultLat, Lng: cfg.Share.DefaultLng},
		SearchCenter:        center,
		SearchRadiusMeters:  radius,
	})

	zap.L().Debug("environment ready",
		zap.String("mode", mode),
		zap.String("store", cfg.Store.Driver),
	)
	return env, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}
