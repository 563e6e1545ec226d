package graph

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/errors"
	"github.com/repograph/repograph-go/internal/guard"
	"github.com/repograph/repograph-go/internal/logging"
)

// Gateway is the single road to Neo4j. It owns the connection pool,
// enforces the per-query timeout, maps driver failures onto error
// kinds, and routes every call through the neo4j_query circuit
// breaker.
type Gateway struct {
	driver       neo4j.DriverWithContext
	database     string
	queryTimeout time.Duration
	breaker      *guard.Breaker
}

// NewGateway connects to Neo4j and verifies connectivity up front.
func NewGateway(ctx context.Context, cfg config.Neo4jConfig) (*Gateway, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = 50
			c.SocketConnectTimeout = cfg.ConnectionTimeout
			c.SocketKeepalive = true
			c.MaxConnectionLifetime = time.Hour
		})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "failed to create neo4j driver")
	}

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		driver.Close(ctx)
		return nil, errors.Unavailablef("failed to connect to neo4j at %s: %v", cfg.URI, err)
	}

	logging.Info("connected to neo4j",
		"uri", cfg.URI, "user", cfg.User, "database", cfg.Database)

	return &Gateway{
		driver:       driver,
		database:     cfg.Database,
		queryTimeout: cfg.QueryTimeout,
		breaker:      guard.NewNeo4jQueryBreaker(),
	}, nil
}

// Close releases the connection pool.
func (g *Gateway) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// HealthCheck verifies connectivity, for the /health endpoint.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	if err := g.driver.VerifyConnectivity(ctx); err != nil {
		return errors.Unavailablef("neo4j health check failed: %v", err)
	}
	return nil
}

// Breaker exposes the query circuit breaker so callers can inspect its
// state.
func (g *Gateway) Breaker() *guard.Breaker {
	return g.breaker
}

// ExecuteRead runs a read query with reader routing.
func (g *Gateway) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return g.execute(ctx, query, params, true)
}

// ExecuteWrite runs a write query against the cluster leader.
func (g *Gateway) ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return g.execute(ctx, query, params, false)
}

func (g *Gateway) execute(ctx context.Context, query string, params map[string]any, read bool) ([]map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}

	var rows []map[string]any
	err := g.breaker.CallContext(ctx, func() error {
		queryCtx, cancel := context.WithTimeout(ctx, g.queryTimeout)
		defer cancel()

		opts := []neo4j.ExecuteQueryConfigurationOption{}
		if g.database != "" {
			opts = append(opts, neo4j.ExecuteQueryWithDatabase(g.database))
		}
		if read {
			opts = append(opts, neo4j.ExecuteQueryWithReadersRouting())
		}

		result, err := neo4j.ExecuteQuery(queryCtx, g.driver, query, params,
			neo4j.EagerResultTransformer, opts...)
		if err != nil {
			return g.mapError(queryCtx, err)
		}

		rows = make([]map[string]any, 0, len(result.Records))
		for _, record := range result.Records {
			rows = append(rows, record.AsMap())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mapError turns driver failures into the error kinds callers act on.
func (g *Gateway) mapError(queryCtx context.Context, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || queryCtx.Err() == context.DeadlineExceeded {
		return errors.Timeoutf(
			"query exceeded the %s timeout; narrow the question or use a deterministic tool",
			g.queryTimeout)
	}
	if neo4j.IsConnectivityError(err) {
		return errors.Unavailablef("neo4j is unavailable: %v", err)
	}
	return errors.Wrap(err, errors.KindInternal, "query failed")
}

// SchemaSnapshot is the set of labels and relationship types that
// actually exist in the store, as opposed to the static profile.
type SchemaSnapshot struct {
	Labels            []string
	RelationshipTypes []string
}

// ListNodeLabels returns every label present in the store.
func (g *Gateway) ListNodeLabels(ctx context.Context) ([]string, error) {
	rows, err := g.ExecuteRead(ctx,
		"CALL db.labels() YIELD label RETURN label ORDER BY label", nil)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		if label, ok := row["label"].(string); ok {
			labels = append(labels, label)
		}
	}
	return labels, nil
}

// ListRelationshipTypes returns every relationship type present in the
// store.
func (g *Gateway) ListRelationshipTypes(ctx context.Context) ([]string, error) {
	rows, err := g.ExecuteRead(ctx,
		"CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType ORDER BY relationshipType", nil)
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(rows))
	for _, row := range rows {
		if t, ok := row["relationshipType"].(string); ok {
			types = append(types, t)
		}
	}
	return types, nil
}

// Snapshot fetches the live schema in one round trip pair.
func (g *Gateway) Snapshot(ctx context.Context) (*SchemaSnapshot, error) {
	labels, err := g.ListNodeLabels(ctx)
	if err != nil {
		return nil, err
	}
	types, err := g.ListRelationshipTypes(ctx)
	if err != nil {
		return nil, err
	}
	return &SchemaSnapshot{Labels: labels, RelationshipTypes: types}, nil
}
