// Package synonym provides the alias registry shared by the city and category
// resolvers.
package synonym

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/tally/internal/textnorm"
)

// ErrAliasIsCanonical is returned when an alias folds to the name of a
// different canonical entity. Canonical names always resolve to themselves,
// so such an alias could never take effect.
var ErrAliasIsCanonical = errors.New("alias is the name of another canonical entity")

// Entry is a single alias binding.
type Entry struct {
	CanonicalID string
	Alias       string
}

// Entity is the result of resolving an alias.
type Entity struct {
	// CanonicalID is the authoritative identifier, as registered.
	CanonicalID string
	// Alias is the registered alias text that matched. Empty when the lookup
	// hit the canonical name itself.
	Alias string
	// ViaAlias is true when the lookup matched an alias rather than the
	// canonical name.
	ViaAlias bool
}

// Registry maps folded aliases to canonical entities. Registering an alias
// that already maps elsewhere overwrites the previous binding. An alias may
// not name another canonical entity.
type Registry struct {
	byAlias     map[string]Entry
	byCanonical map[string]string            // folded canonical -> canonical as registered
	aliases     map[string]map[string]string // canonical -> folded alias -> alias as registered
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byAlias:     make(map[string]Entry),
		byCanonical: make(map[string]string),
		aliases:     make(map[string]map[string]string),
	}
}

// AddCanonical registers a canonical entity without aliases. It is a no-op
// for empty input.
func (r *Registry) AddCanonical(canonicalID string) {
	key := textnorm.Fold(canonicalID)
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addCanonicalLocked(canonicalID, key)
}

func (r *Registry) addCanonicalLocked(canonicalID, key string) string {
	if existing, ok := r.byCanonical[key]; ok {
		return existing
	}
	// A new canonical name shadows an alias with the same folded text.
	if prev, ok := r.byAlias[key]; ok {
		delete(r.aliases[prev.CanonicalID], key)
		delete(r.byAlias, key)
	}
	r.byCanonical[key] = canonicalID
	if _, ok := r.aliases[canonicalID]; !ok {
		r.aliases[canonicalID] = make(map[string]string)
	}
	return canonicalID
}

// Register binds alias to canonicalID. When the alias previously resolved to
// a different canonical entity that canonical is returned as displaced. Empty
// input and an alias equal to its own canonical are no-ops. An alias naming
// another canonical entity fails with ErrAliasIsCanonical and changes nothing.
func (r *Registry) Register(canonicalID, alias string) (displaced string, err error) {
	canonicalKey := textnorm.Fold(canonicalID)
	aliasKey := textnorm.Fold(alias)
	if canonicalKey == "" || aliasKey == "" {
		return "", nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if aliasKey == canonicalKey {
		r.addCanonicalLocked(canonicalID, canonicalKey)
		return "", nil
	}
	if other, ok := r.byCanonical[aliasKey]; ok {
		return "", fmt.Errorf("%w: %q is %s", ErrAliasIsCanonical, alias, other)
	}
	canonicalID = r.addCanonicalLocked(canonicalID, canonicalKey)

	if prev, ok := r.byAlias[aliasKey]; ok {
		if prev.CanonicalID != canonicalID {
			displaced = prev.CanonicalID
		}
		delete(r.aliases[prev.CanonicalID], aliasKey)
	}

	r.byAlias[aliasKey] = Entry{CanonicalID: canonicalID, Alias: alias}
	r.aliases[canonicalID][aliasKey] = alias
	return displaced, nil
}

// Resolve looks up a canonical entity by alias or canonical name. Lookup is
// case- and whitespace-insensitive.
func (r *Registry) Resolve(alias string) (Entity, bool) {
	key := textnorm.Fold(alias)
	if key == "" {
		return Entity{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if canonical, ok := r.byCanonical[key]; ok {
		return Entity{CanonicalID: canonical}, true
	}
	if entry, ok := r.byAlias[key]; ok {
		return Entity{CanonicalID: entry.CanonicalID, Alias: entry.Alias, ViaAlias: true}, true
	}
	return Entity{}, false
}

// AllAliasesFor returns the registered aliases of a canonical entity, sorted.
func (r *Registry) AllAliasesFor(canonicalID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	canonical, ok := r.byCanonical[textnorm.Fold(canonicalID)]
	if !ok {
		return nil
	}
	aliases := make([]string, 0, len(r.aliases[canonical]))
	for _, a := range r.aliases[canonical] {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	return aliases
}

// Canonicals returns every canonical entity, sorted.
func (r *Registry) Canonicals() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byCanonical))
	for _, c := range r.byCanonical {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of aliases plus canonicals.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAlias) + len(r.byCanonical)
}

// Clone returns an independent copy, used to layer per-user records on top of
// the shared seed.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := NewRegistry()
	for k, v := range r.byCanonical {
		c.byCanonical[k] = v
	}
	for k, v := range r.byAlias {
		c.byAlias[k] = v
	}
	for canonical, set := range r.aliases {
		copied := make(map[string]string, len(set))
		for k, v := range set {
			copied[k] = v
		}
		c.aliases[canonical] = copied
	}
	return c
}
