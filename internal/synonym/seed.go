package synonym

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedEntity is one canonical entity with its aliases in a seed file.
type SeedEntity struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Seed is the on-disk format of a seed file.
type Seed struct {
	Cities   []SeedEntity `yaml:"cities"`
	Keywords []SeedEntity `yaml:"keywords"`
}

// DefaultSeed returns the seed list shipped with the binary.
func DefaultSeed() (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(defaultSeed, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse embedded seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("embedded seed: %w", err)
	}
	return &seed, nil
}

// ParseSeed reads a seed file in the same format as the embedded one.
func ParseSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&seed); err != nil {
		if err == io.EOF {
			return &seed, nil
		}
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// LoadSeedFile returns the embedded seed merged with the seed file at path.
// An empty path returns the embedded seed alone.
func LoadSeedFile(path string) (*Seed, error) {
	seed, err := DefaultSeed()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return seed, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	extra, err := ParseSeed(f)
	if err != nil {
		return nil, err
	}
	seed.Cities = append(seed.Cities, extra.Cities...)
	seed.Keywords = append(seed.Keywords, extra.Keywords...)
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return seed, nil
}

// Validate reports an alias that names another city or keyword of the same
// section.
func (s *Seed) Validate() error {
	for section, entities := range map[string][]SeedEntity{"cities": s.Cities, "keywords": s.Keywords} {
		if _, err := newRegistry(entities); err != nil {
			return fmt.Errorf("%s: %w", section, err)
		}
	}
	return nil
}

// CityRegistry builds a registry from the seed's cities.
func (s *Seed) CityRegistry() *Registry {
	return buildRegistry(s.Cities)
}

// KeywordRegistry builds a registry from the seed's keywords.
func (s *Seed) KeywordRegistry() *Registry {
	return buildRegistry(s.Keywords)
}

// buildRegistry builds from a validated seed; a conflicting alias is left
// out.
func buildRegistry(entities []SeedEntity) *Registry {
	r, _ := newRegistry(entities)
	return r
}

// newRegistry registers every canonical before any alias so conflicts do not
// depend on entity order. It returns the first conflict.
func newRegistry(entities []SeedEntity) (*Registry, error) {
	r := NewRegistry()
	for _, e := range entities {
		r.AddCanonical(e.Name)
	}
	var first error
	for _, e := range entities {
		for _, alias := range e.Aliases {
			if _, err := r.Register(e.Name, alias); err != nil && first == nil {
				first = err
			}
		}
	}
	return r, first
}
