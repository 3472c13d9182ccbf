package main

import (
	"context"

	"github.com/matsen/citegraph/internal/bibparse"
	"github.com/matsen/citegraph/internal/cache"
	"github.com/matsen/citegraph/internal/citation"
	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/crossref"
	"github.com/matsen/citegraph/internal/equation"
	"github.com/matsen/citegraph/internal/graphstore"
	"github.com/matsen/citegraph/internal/logging"
	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/pdf"
	"github.com/matsen/citegraph/internal/pipeline"
	"github.com/matsen/citegraph/internal/storage"
)

// services holds the collaborators of one CLI invocation and what must be
// closed afterwards.
type services struct {
	deps    pipeline.Deps
	store   *storage.Store
	graph   *graphstore.Sink
	closers []func() error
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("closing service", logging.Err(err))
		}
	}
}

// buildServices wires the pipeline's collaborators from repository and
// global configuration. Optional services that cannot be reached are
// logged and left out.
func buildServices(ctx context.Context, repoRoot string, db *storage.DB, cfg *config.Config, global *config.GlobalConfig) (*services, error) {
	s := &services{}

	text, err := pdf.NewExtractor(cfg.PDFMaxPages, cfg.Fingerprint)
	if err != nil {
		return nil, err
	}
	policy, err := citation.ParseOrphanPolicy(cfg.OrphanPolicy)
	if err != nil {
		return nil, err
	}

	s.store = storage.NewStore(config.DocumentsPath(repoRoot), db)

	lookups := crossref.NewClient(
		crossref.WithMailto(global.CrossrefMailto),
		crossref.WithCache(buildCache(ctx, global, s)),
		crossref.WithMetrics(registry),
		crossref.WithLogger(logger.Named("crossref")),
	)

	var fallbacks []pipeline.ReferenceParser
	if global.AnystylePath != "" {
		a, err := bibparse.NewAnystyle(global.AnystylePath)
		if err != nil {
			logger.Warn("anystyle configured but unavailable", logging.Err(err))
		} else {
			fallbacks = append(fallbacks, a)
		}
	}
	fallbacks = append(fallbacks, bibparse.NewLocal())

	var sinks []pipeline.Store
	if global.Neo4jURI != "" {
		g, err := graphstore.New(ctx, graphstore.Config{
			URI:      global.Neo4jURI,
			Username: global.Neo4jUser,
			Password: global.Neo4jPassword,
			Database: global.Neo4jDatabase,
		}, logger.Named("neo4j"))
		if err != nil {
			logger.Warn("neo4j unavailable, graph sink disabled", logging.Err(err))
		} else {
			s.graph = g
			sinks = append(sinks, g)
			s.closers = append(s.closers, func() error { return g.Close(context.Background()) })
		}
	}

	s.deps = pipeline.Deps{
		Text:        text,
		Identifiers: pdf.NewResolver(),
		Metadata:    lookups,
		References:  lookups,
		Fallbacks:   fallbacks,
		Citations:   citation.NewExtractor(cfg.ContextWindow, policy),
		Equations:   equation.Options{Window: cfg.ContextWindow, MinInlineLength: cfg.MinInlineLength},
		Consolidate: metadata.NewConsolidator(s.store),
		Store:       s.store,
		Sinks:       sinks,
		Logger:      logger,
		Metrics:     registry,
	}
	return s, nil
}

// buildCache returns Redis when configured and reachable, otherwise an
// in-process cache.
func buildCache(ctx context.Context, global *config.GlobalConfig, s *services) cache.Cache {
	ttl, _ := global.CacheTTL()
	if global.RedisAddr == "" {
		return cache.NewMemory(ttl)
	}
	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     global.RedisAddr,
		Password: global.RedisPassword,
		DB:       global.RedisDB,
		TTL:      ttl,
	})
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", logging.String("addr", global.RedisAddr), logging.Err(err))
		return cache.NewMemory(ttl)
	}
	s.closers = append(s.closers, r.Close)
	return r
}

func newCoordinator(s *services) *pipeline.Coordinator {
	return pipeline.New(pipeline.DefaultStages(s.deps),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(registry),
	)
}
