// Package extract defines the extractor plugin contract: walk one
// repository tree and emit typed entity and edge records tagged by schema
// profile. Concrete extractors live in subpackages and register
// themselves at init time.
package extract

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Entity is one node record emitted by an extractor.
type Entity struct {
	Kind       string
	Properties map[string]interface{}
}

// Endpoint identifies one end of an edge by kind plus the properties
// needed to match it (path or name, and repository for non-Role kinds).
type Endpoint struct {
	Kind       string
	Properties map[string]interface{}
}

// Edge is one relationship record emitted by an extractor.
type Edge struct {
	Kind       string
	Source     Endpoint
	Target     Endpoint
	Properties map[string]interface{}
}

// EmitEntity receives entity records. Implementations must tolerate
// concurrent calls being serialized by the extractor.
type EmitEntity func(Entity) error

// EmitEdge receives edge records.
type EmitEdge func(Edge) error

// Extractor walks a repository and emits entities and edges. Both passes
// must be deterministic for a fixed file tree (ignoring order) and must
// tag every non-Role entity with the repository id.
type Extractor interface {
	Profile() string
	Entities(ctx context.Context, root, repositoryID string, emit EmitEntity) error
	Edges(ctx context.Context, root, repositoryID string, emit EmitEdge) error
}

// Factory builds an extractor with the given worker-pool width.
type Factory func(workers int) Extractor

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an extractor factory under a profile id. Called from
// extractor package init functions.
func Register(profile string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[profile]; dup {
		panic("extract: duplicate registration for profile " + profile)
	}
	registry[profile] = factory
}

// New returns an extractor for the profile.
func New(profile string, workers int) (Extractor, error) {
	registryMu.RLock()
	factory, ok := registry[profile]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no extractor registered for profile %q (available: %v)",
			profile, Profiles())
	}
	if workers <= 0 {
		workers = 4
	}
	return factory(workers), nil
}

// Profiles returns the registered profile ids in sorted order.
func Profiles() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InjectRepository stamps the repository id onto an entity's properties.
// Role nodes are global and never carry a repository.
func InjectRepository(e *Entity, repositoryID string) {
	if e.Kind == "Role" || repositoryID == "" {
		return
	}
	if e.Properties == nil {
		e.Properties = make(map[string]interface{})
	}
	e.Properties["repository"] = repositoryID
}

// SerialEmitter wraps an emit callback so extractor workers can emit
// concurrently.
type SerialEmitter struct {
	mu sync.Mutex
}

// Entity emits one entity under the lock.
func (s *SerialEmitter) Entity(emit EmitEntity, e Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return emit(e)
}

// Edge emits one edge under the lock.
func (s *SerialEmitter) Edge(emit EmitEdge, e Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return emit(e)
}
