package vocab

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
)

func TestEnhanceStyle_NoStyle(t *testing.T) {
	tables := catalog.MustLoadDefault()
	assert.Equal(t, "rose", EnhanceStyle(tables, "rose", wfmodel.EnhancementContext{Technique: "line_work"}))
}

func TestEnhanceStyle_FullContext(t *testing.T) {
	tables := catalog.MustLoadDefault()
	got := EnhanceStyle(tables, "rose", wfmodel.EnhancementContext{
		Style:        "Traditional",
		Technique:    "line_work",
		ColorPalette: "black_and_gray",
		Placement:    "forearm",
		Subject:      "rose",
		PreviewMode:  true,
	})

	for _, want := range []string{
		"traditional tattoo style",
		"clean line work",
		"black and gray palette",
		"sized for the forearm",
		"well-balanced composition",
		"heavy consistent line weight",
		"visualized on skin",
		"delicate petal and leaf detail",
	} {
		assert.Contains(t, got, want)
	}
	assert.True(t, strings.HasPrefix(got, "rose, "))
}

func TestEnhanceStyle_Fallbacks(t *testing.T) {
	tables := catalog.MustLoadDefault()
	got := EnhanceStyle(tables, "koi", wfmodel.EnhancementContext{
		Style:        "cyberpunk",
		Technique:    "laser",
		ColorPalette: "red and gold",
	})
	assert.Contains(t, got, "cyberpunk style")
	assert.Contains(t, got, "red and gold color palette")
	assert.Contains(t, got, "print-ready artwork")
}

func TestEnhanceStyle_Idempotent(t *testing.T) {
	tables := catalog.MustLoadDefault()
	ec := wfmodel.EnhancementContext{Style: "watercolor", Technique: "shading", Placement: "back"}
	once := EnhanceStyle(tables, "hummingbird", ec)
	assert.Equal(t, once, EnhanceStyle(tables, once, ec))
}

func TestResolveBackend(t *testing.T) {
	tables := catalog.MustLoadDefault()

	b, exact, err := ResolveBackend(tables, "Realism-Tier", "balanced-tier")
	require.NoError(t, err)
	assert.Equal(t, "realism-tier", b.ID)
	assert.True(t, exact)

	b, exact, err = ResolveBackend(tables, "", "balanced-tier")
	require.NoError(t, err)
	assert.Equal(t, "balanced-tier", b.ID)
	assert.True(t, exact)

	b, exact, err = ResolveBackend(tables, "dall-e", "balanced-tier")
	require.NoError(t, err)
	assert.Equal(t, "balanced-tier", b.ID)
	assert.False(t, exact)

	_, _, err = ResolveBackend(tables, "nope", "missing")
	assert.Error(t, err)
}

func TestAdapt_TypographyOnlyForText(t *testing.T) {
	tables := catalog.MustLoadDefault()
	typo, _ := tables.Backend("typography-tier")

	plain := Adapt(tables, "mountain range", typo, wfmodel.PromptAnalysis{Keywords: []string{"mountain", "range"}})
	assert.Contains(t, plain.Prompt, "crisp vector-style linework")
	assert.NotContains(t, plain.Prompt, "clear typography")
	assert.True(t, strings.HasSuffix(plain.Prompt, ClosingPhrase))

	text := Adapt(tables, "mom script", typo, wfmodel.PromptAnalysis{Keywords: []string{"script"}})
	assert.Contains(t, text.Prompt, "clear typography, readable text")
}

func TestAdapt_Truncates(t *testing.T) {
	tables := catalog.MustLoadDefault()
	exp, _ := tables.Backend("experimental-tier")

	long := strings.Repeat("lotus petal ", 30)
	got := Adapt(tables, long, exp, wfmodel.PromptAnalysis{})
	assert.True(t, got.Truncated)
	assert.True(t, strings.HasSuffix(got.Prompt, "..."))
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Prompt), exp.MaxPromptChars)
}
