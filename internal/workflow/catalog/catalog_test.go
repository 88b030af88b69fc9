package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recognizedStyles = []string{
	"traditional", "realistic", "watercolor", "geometric", "minimalist",
	"neo-traditional", "blackwork", "tribal", "japanese", "fineline",
}

func TestLoadDefault(t *testing.T) {
	tables, err := LoadDefault()
	require.NoError(t, err)

	assert.NotEmpty(t, tables.Version)
	assert.ElementsMatch(t, recognizedStyles, tables.StyleNames())
	assert.Len(t, tables.BodyZones, 13)

	ids := make([]string, 0, len(tables.Backends))
	for _, b := range tables.Backends {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"realism-tier", "balanced-tier", "artistic-tier", "typography-tier", "experimental-tier"}, ids)

	for _, r := range tables.TransferRules {
		assert.True(t, tables.IsStyle(r.From), "rule source %s", r.From)
		assert.True(t, tables.IsStyle(r.To), "rule target %s", r.To)
	}
}

func TestRuleLookupIsCaseInsensitive(t *testing.T) {
	tables := MustLoadDefault()

	r, ok := tables.Rule(" Traditional ", "REALISTIC")
	require.True(t, ok)
	assert.Equal(t, 85, r.Compatibility)

	_, ok = tables.Rule("realistic", "realistic")
	assert.False(t, ok)
	_, ok = tables.Rule("tribal", "watercolor")
	assert.False(t, ok)
}

func TestRuleTransformationsSortedByPriority(t *testing.T) {
	tables := MustLoadDefault()
	for _, r := range tables.TransferRules {
		for i := 1; i < len(r.Transformations); i++ {
			assert.LessOrEqual(t, r.Transformations[i-1].Priority, r.Transformations[i].Priority,
				"%s->%s", r.From, r.To)
		}
		for _, tr := range r.Transformations {
			if tr.Type == TransformAdd {
				assert.Nil(t, tr.Pattern())
			} else {
				assert.NotNil(t, tr.Pattern())
			}
		}
	}
}

func TestBackendTraits(t *testing.T) {
	tables := MustLoadDefault()

	realism, ok := tables.Backend("realism-tier")
	require.True(t, ok)
	assert.True(t, realism.HasTrait(TraitRealism))
	assert.True(t, realism.HasTrait(TraitPortrait))
	assert.True(t, realism.SupportsStyle("Realistic"))

	typo, ok := tables.Backend("typography-tier")
	require.True(t, ok)
	assert.True(t, typo.HasTrait(TraitTypography))
	assert.True(t, typo.HasTrait(TraitPrecision))
	assert.False(t, typo.SupportsStyle(""))
}

func TestColorPattern(t *testing.T) {
	tables := MustLoadDefault()
	re := tables.ColorPattern()
	require.NotNil(t, re)

	assert.Equal(t, "vibrant colors", re.FindString("a koi with vibrant colors"))
	assert.Empty(t, re.FindString("black and grey koi"))

	// 连在一起的颜色词整体命中
	assert.Equal(t, "red and blue color", re.FindString("hummingbird with red and blue color washes"))
	assert.Equal(t, "orange, gold or pink", re.FindString("koi with orange, gold or pink scales"))
	assert.Equal(t, "red", re.FindString("red rose and a sword"))
}

func TestParse_Rejects(t *testing.T) {
	base := string(defaultTables)

	cases := []struct {
		name string
		mut  func(string) string
	}{
		{"unknown field", func(s string) string { return s + "\nunexpected_field: true\n" }},
		{"missing version", func(s string) string { return strings.Replace(s, `version: "2026.10.1"`, `version: ""`, 1) }},
		{"bad transformation type", func(s string) string {
			return strings.Replace(s, "{ type: remove, target: 'classic flash", "{ type: explode, target: 'classic flash", 1)
		}},
		{"bad regexp", func(s string) string {
			return strings.Replace(s, `target: 'bold black outlines?', replacement: "soft gradient shading"`, `target: 'bold (black', replacement: "soft gradient shading"`, 1)
		}},
		{"self rule", func(s string) string {
			return strings.Replace(s, "  - from: tribal\n    to: blackwork", "  - from: tribal\n    to: tribal", 1)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mutated := tc.mut(base)
			require.NotEqual(t, base, mutated)
			_, err := Parse([]byte(mutated))
			assert.Error(t, err)
		})
	}
}

func TestStoreSwap(t *testing.T) {
	first := MustLoadDefault()
	store := NewStore(first)
	assert.Same(t, first, store.Tables())

	second := MustLoadDefault()
	second.Version = "next"
	old := store.Swap(second)
	assert.Same(t, first, old)
	assert.Equal(t, "next", store.Version())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, defaultTables, 0o600))

	tables, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, MustLoadDefault().Version, tables.Version)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
