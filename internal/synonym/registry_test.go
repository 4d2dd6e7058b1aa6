package synonym

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	r.AddCanonical("Минск")
	r.Register("Минск", "Minsk")
	r.Register("Санкт-Петербург", "Saint Petersburg")

	tests := []struct {
		name      string
		input     string
		canonical string
		alias     string
		found     bool
		viaAlias  bool
	}{
		{name: "canonical", input: "Минск", canonical: "Минск", found: true},
		{name: "canonical folded", input: "  МИНСК ", canonical: "Минск", found: true},
		{name: "alias", input: "Minsk", canonical: "Минск", alias: "Minsk", found: true, viaAlias: true},
		{name: "alias upper", input: "MINSK", canonical: "Минск", alias: "Minsk", found: true, viaAlias: true},
		{name: "alias inner whitespace", input: "saint   PETERSBURG", canonical: "Санкт-Петербург", alias: "Saint Petersburg", found: true, viaAlias: true},
		{name: "unknown", input: "Paris"},
		{name: "empty", input: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity, ok := r.Resolve(tt.input)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.canonical, entity.CanonicalID)
			assert.Equal(t, tt.alias, entity.Alias)
			assert.Equal(t, tt.viaAlias, entity.ViaAlias)
		})
	}
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	r := NewRegistry()

	displaced, err := r.Register("Брест", "BR")
	require.NoError(t, err)
	assert.Empty(t, displaced)

	displaced, err = r.Register("Борисов", "br")
	require.NoError(t, err)
	assert.Equal(t, "Брест", displaced)

	entity, ok := r.Resolve("BR")
	require.True(t, ok)
	assert.Equal(t, "Борисов", entity.CanonicalID)
	assert.Empty(t, r.AllAliasesFor("Брест"))
	assert.Equal(t, []string{"br"}, r.AllAliasesFor("Борисов"))

	// Re-registering the same binding is not a conflict.
	displaced, err = r.Register("Борисов", "BR")
	require.NoError(t, err)
	assert.Empty(t, displaced)
}

func TestRegistry_AliasCannotNameAnotherCanonical(t *testing.T) {
	r := NewRegistry()
	r.AddCanonical("Минск")

	displaced, err := r.Register("Гродно", "минск")
	require.ErrorIs(t, err, ErrAliasIsCanonical)
	assert.Empty(t, displaced)

	entity, ok := r.Resolve("минск")
	require.True(t, ok)
	assert.Equal(t, "Минск", entity.CanonicalID)
	assert.False(t, entity.ViaAlias)
	assert.Empty(t, r.AllAliasesFor("Гродно"))
	assert.Equal(t, []string{"Минск"}, r.Canonicals())
}

func TestRegistry_NewCanonicalShadowsAlias(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("Минск", "Борисов")
	require.NoError(t, err)

	r.AddCanonical("Борисов")

	entity, ok := r.Resolve("борисов")
	require.True(t, ok)
	assert.Equal(t, "Борисов", entity.CanonicalID)
	assert.Empty(t, r.AllAliasesFor("Минск"))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_RegisterIgnoresEmptyAndSelfAlias(t *testing.T) {
	r := NewRegistry()
	displaced, err := r.Register("", "x")
	require.NoError(t, err)
	assert.Empty(t, displaced)
	_, err = r.Register("Лида", " ")
	require.NoError(t, err)
	_, err = r.Register("Лида", "ЛИДА")
	require.NoError(t, err)

	assert.Equal(t, []string{"Лида"}, r.Canonicals())
	assert.Empty(t, r.AllAliasesFor("Лида"))

	entity, ok := r.Resolve("лида")
	require.True(t, ok)
	assert.False(t, entity.ViaAlias)
}

func TestRegistry_AllAliasesForSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("Гомель", "Homel")
	r.Register("Гомель", "Gomel")
	r.Register("Гомель", "Homiel")

	assert.Equal(t, []string{"Gomel", "Homel", "Homiel"}, r.AllAliasesFor("гомель"))
	assert.Nil(t, r.AllAliasesFor("Пинск"))
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	base := NewRegistry()
	base.Register("Минск", "Minsk")

	clone := base.Clone()
	clone.Register("Минск", "Mensk")
	clone.Register("Орша", "Orsha")

	_, ok := base.Resolve("Mensk")
	assert.False(t, ok)
	_, ok = base.Resolve("Orsha")
	assert.False(t, ok)
	assert.Equal(t, []string{"Minsk"}, base.AllAliasesFor("Минск"))

	_, ok = clone.Resolve("Minsk")
	assert.True(t, ok)
	assert.Equal(t, []string{"Mensk", "Minsk"}, clone.AllAliasesFor("Минск"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Register("Минск", fmt.Sprintf("alias-%d", i))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = r.Resolve("alias-0")
			_ = r.Canonicals()
		}()
	}
	wg.Wait()
	assert.Len(t, r.AllAliasesFor("Минск"), 8)
}

func TestDefaultSeed(t *testing.T) {
	seed, err := DefaultSeed()
	require.NoError(t, err)

	cities := seed.CityRegistry()
	entity, ok := cities.Resolve("MINSK")
	require.True(t, ok)
	assert.Equal(t, "Минск", entity.CanonicalID)
	assert.Equal(t, "Minsk", entity.Alias)

	entity, ok = cities.Resolve("могилев")
	require.True(t, ok)
	assert.Equal(t, "Могилёв", entity.CanonicalID)

	keywords := seed.KeywordRegistry()
	entity, ok = keywords.Resolve("Taxi")
	require.True(t, ok)
	assert.Equal(t, "такси", entity.CanonicalID)
}

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed(strings.NewReader("cities:\n  - name: Несвиж\n    aliases: [Nesvizh]\n"))
	require.NoError(t, err)
	require.Len(t, seed.Cities, 1)
	assert.Equal(t, []string{"Nesvizh"}, seed.Cities[0].Aliases)

	seed, err = ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seed.Cities)

	_, err = ParseSeed(strings.NewReader("cities: [: bad"))
	assert.Error(t, err)

	_, err = ParseSeed(strings.NewReader("cities:\n  - name: Лида\n    aliases: [Несвиж]\n  - name: Несвиж\n"))
	assert.ErrorIs(t, err, ErrAliasIsCanonical)
}

func TestLoadSeedFile(t *testing.T) {
	path := t.TempDir() + "/seed.yaml"
	require.NoError(t, writeFile(path, "cities:\n  - name: Несвиж\n    aliases: [Nesvizh]\n"))

	seed, err := LoadSeedFile(path)
	require.NoError(t, err)
	cities := seed.CityRegistry()

	_, ok := cities.Resolve("Nesvizh")
	assert.True(t, ok)
	_, ok = cities.Resolve("Minsk")
	assert.True(t, ok, "embedded seed is kept")

	_, err = LoadSeedFile(t.TempDir() + "/missing.yaml")
	assert.Error(t, err)

	clash := t.TempDir() + "/clash.yaml"
	require.NoError(t, writeFile(clash, "cities:\n  - name: Несвиж\n    aliases: [Минск]\n"))
	_, err = LoadSeedFile(clash)
	assert.ErrorIs(t, err, ErrAliasIsCanonical)
}
