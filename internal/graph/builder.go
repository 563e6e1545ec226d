package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/repograph/repograph-go/internal/extract"
	"github.com/repograph/repograph-go/internal/logging"
	"github.com/repograph/repograph-go/internal/schema"
)

// Builder buffers entities and edges and merge-upserts them into the
// store in batches. Writes are idempotent: re-indexing an unchanged
// repository produces zero net changes.
type Builder struct {
	store        Store
	profile      *schema.Profile
	repositoryID string
	batchSize    int

	mu       sync.Mutex
	entities []extract.Entity
	edges    []extract.Edge

	flushMu sync.Mutex

	stats BuildStats
}

// BuildStats counts what one builder instance has written and dropped.
type BuildStats struct {
	NodesWritten  int
	EdgesWritten  int
	NodesDropped  int
	EdgesDropped  int
	BatchesFailed int
}

// NewBuilder creates a builder for one repository run.
func NewBuilder(store Store, profile *schema.Profile, repositoryID string, batchSize int) *Builder {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Builder{
		store:        store,
		profile:      profile,
		repositoryID: repositoryID,
		batchSize:    batchSize,
	}
}

// InitializeSchema creates the profile's indexes and constraints.
func (b *Builder) InitializeSchema(ctx context.Context) error {
	statements := append(b.profile.ConstraintStatements(), b.profile.IndexStatements()...)
	for _, stmt := range statements {
		if _, err := b.store.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	logging.Info("graph schema initialized",
		"profile", b.profile.Name, "statements", len(statements))
	return nil
}

// AddEntity buffers one entity, flushing when the buffer reaches the
// batch size. Entities that fail profile validation are dropped.
func (b *Builder) AddEntity(ctx context.Context, e extract.Entity) error {
	if err := b.profile.ValidateNode(e.Kind, e.Properties); err != nil {
		logging.Warn("dropping invalid entity", "kind", e.Kind, "error", err)
		b.mu.Lock()
		b.stats.NodesDropped++
		b.mu.Unlock()
		return nil
	}

	b.mu.Lock()
	b.entities = append(b.entities, e)
	full := len(b.entities)+len(b.edges) >= b.batchSize
	b.mu.Unlock()

	if full {
		return b.Flush(ctx)
	}
	return nil
}

// AddEdge buffers one edge, flushing when the buffer reaches the batch
// size.
func (b *Builder) AddEdge(ctx context.Context, e extract.Edge) error {
	b.mu.Lock()
	b.edges = append(b.edges, e)
	full := len(b.entities)+len(b.edges) >= b.batchSize
	b.mu.Unlock()

	if full {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered records. Entities land before edges so
// that edge endpoints exist. Only one flush runs at a time; a failing
// batch is logged and skipped.
func (b *Builder) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	entities := b.entities
	edges := b.edges
	b.entities = nil
	b.edges = nil
	b.mu.Unlock()

	if len(entities) > 0 {
		b.flushEntities(ctx, entities)
	}
	for _, e := range edges {
		b.flushEdge(ctx, e)
	}
	return nil
}

// flushEntities groups by kind and sends one batched merge-upsert per
// kind.
func (b *Builder) flushEntities(ctx context.Context, entities []extract.Entity) {
	byKind := make(map[string][]map[string]any)
	for _, e := range entities {
		if !hasMergeKey(e.Kind, e.Properties) {
			logging.Warn("dropping entity with null merge key",
				"kind", e.Kind, "properties", e.Properties)
			b.countDroppedNode()
			continue
		}
		byKind[e.Kind] = append(byKind[e.Kind], e.Properties)
	}

	kinds := make([]string, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		batch := byKind[kind]
		query := mergeNodesQuery(kind)
		if _, err := b.store.ExecuteWrite(ctx, query, map[string]any{"batch": batch}); err != nil {
			logging.Error("node batch failed, skipping",
				"kind", kind, "size", len(batch), "error", err)
			b.countFailedBatch(len(batch), 0)
			continue
		}
		b.mu.Lock()
		b.stats.NodesWritten += len(batch)
		b.mu.Unlock()
	}
}

// mergeNodesQuery builds the UNWIND merge-upsert for one node kind.
// Matching is on the composite key, then all incoming properties are
// merged onto the node.
func mergeNodesQuery(kind string) string {
	keys := MergeKey(kind)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: props.%s", k, k)
	}
	return fmt.Sprintf(
		"UNWIND $batch AS props MERGE (n:%s {%s}) SET n += props",
		kind, strings.Join(parts, ", "))
}

// flushEdge upserts one relationship. Endpoints are located by
// (repository, path-or-name), except Role endpoints which are global
// and matched by name alone.
func (b *Builder) flushEdge(ctx context.Context, e extract.Edge) {
	srcMatch, srcParams, ok := b.endpointMatch("a", "src", e.Source)
	if !ok {
		logging.Warn("dropping edge with unidentifiable source",
			"kind", e.Kind, "source_kind", e.Source.Kind)
		b.countDroppedEdge()
		return
	}
	dstMatch, dstParams, ok := b.endpointMatch("b", "dst", e.Target)
	if !ok {
		logging.Warn("dropping edge with unidentifiable target",
			"kind", e.Kind, "target_kind", e.Target.Kind)
		b.countDroppedEdge()
		return
	}

	params := map[string]any{"props": edgeProps(e)}
	for k, v := range srcParams {
		params[k] = v
	}
	for k, v := range dstParams {
		params[k] = v
	}

	query := fmt.Sprintf(
		"MATCH (a:%s), (b:%s) WHERE %s AND %s MERGE (a)-[r:%s]->(b) SET r += $props",
		e.Source.Kind, e.Target.Kind, srcMatch, dstMatch, e.Kind)

	if _, err := b.store.ExecuteWrite(ctx, query, params); err != nil {
		logging.Error("edge upsert failed, skipping",
			"kind", e.Kind, "error", err)
		b.countFailedBatch(0, 1)
		return
	}
	b.mu.Lock()
	b.stats.EdgesWritten++
	b.mu.Unlock()
}

// endpointMatch renders the WHERE fragment for one edge endpoint.
func (b *Builder) endpointMatch(alias, prefix string, ep extract.Endpoint) (string, map[string]any, bool) {
	id, key := endpointIdentity(ep)
	if id == nil {
		return "", nil, false
	}

	idParam := prefix + "_id"
	if ep.Kind == "Role" {
		return fmt.Sprintf("%s.name = $%s", alias, idParam),
			map[string]any{idParam: id}, true
	}

	repoParam := prefix + "_repo"
	return fmt.Sprintf("%s.repository = $%s AND %s.%s = $%s", alias, repoParam, alias, key, idParam),
		map[string]any{repoParam: b.repositoryID, idParam: id}, true
}

func endpointIdentity(ep extract.Endpoint) (any, string) {
	if v, ok := ep.Properties["path"]; ok && v != nil {
		return v, "path"
	}
	if v, ok := ep.Properties["name"]; ok && v != nil {
		return v, "name"
	}
	return nil, ""
}

func edgeProps(e extract.Edge) map[string]any {
	if e.Properties == nil {
		return map[string]any{}
	}
	return e.Properties
}

func hasMergeKey(kind string, props map[string]any) bool {
	for _, k := range MergeKey(kind) {
		if v, ok := props[k]; !ok || v == nil {
			return false
		}
	}
	return true
}

// ClearRepository removes every node scoped to the repository. Role
// nodes carry no repository property, so they survive.
func (b *Builder) ClearRepository(ctx context.Context, repositoryID string) error {
	_, err := b.store.ExecuteWrite(ctx,
		"MATCH (n) WHERE n.repository = $repository DETACH DELETE n",
		map[string]any{"repository": repositoryID})
	if err != nil {
		return fmt.Errorf("failed to clear repository %s: %w", repositoryID, err)
	}
	logging.Info("repository cleared", "repository", repositoryID)
	return nil
}

// ClearAll wipes the whole graph, Role nodes included.
func (b *Builder) ClearAll(ctx context.Context) error {
	if _, err := b.store.ExecuteWrite(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	logging.Info("graph cleared")
	return nil
}

// GraphStats describes what currently lives in the store.
type GraphStats struct {
	NodesByLabel map[string]int64
	EdgesByType  map[string]int64
	TotalNodes   int64
	TotalEdges   int64
}

// Stats counts nodes per label and relationships per type.
func (b *Builder) Stats(ctx context.Context) (*GraphStats, error) {
	stats := &GraphStats{
		NodesByLabel: map[string]int64{},
		EdgesByType:  map[string]int64{},
	}

	rows, err := b.store.ExecuteRead(ctx,
		"MATCH (n) UNWIND labels(n) AS label RETURN label, count(n) AS count ORDER BY label", nil)
	if err != nil {
		return nil, fmt.Errorf("node stats query failed: %w", err)
	}
	for _, row := range rows {
		label, _ := row["label"].(string)
		count, _ := row["count"].(int64)
		stats.NodesByLabel[label] = count
		stats.TotalNodes += count
	}

	rows, err = b.store.ExecuteRead(ctx,
		"MATCH ()-[r]->() RETURN type(r) AS type, count(r) AS count ORDER BY type", nil)
	if err != nil {
		return nil, fmt.Errorf("edge stats query failed: %w", err)
	}
	for _, row := range rows {
		typ, _ := row["type"].(string)
		count, _ := row["count"].(int64)
		stats.EdgesByType[typ] = count
		stats.TotalEdges += count
	}
	return stats, nil
}

// BuildStats returns the counters accumulated so far.
func (b *Builder) BuildStats() BuildStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Builder) countDroppedNode() {
	b.mu.Lock()
	b.stats.NodesDropped++
	b.mu.Unlock()
}

func (b *Builder) countDroppedEdge() {
	b.mu.Lock()
	b.stats.EdgesDropped++
	b.mu.Unlock()
}

func (b *Builder) countFailedBatch(nodes, edges int) {
	b.mu.Lock()
	b.stats.BatchesFailed++
	b.stats.NodesDropped += nodes
	b.stats.EdgesDropped += edges
	b.mu.Unlock()
}
