package node

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "", TruncateByRunes("abc", 0))
	assert.Equal(t, "abc", TruncateByRunes("abc", 5))
	assert.Equal(t, "纹身", TruncateByRunes("纹身设计", 2))
}

func TestTruncateAtWord(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		max       int
		want      string
		truncated bool
	}{
		{name: "fits", in: "rose tattoo", max: 20, want: "rose tattoo"},
		{name: "word boundary", in: "black rose tattoo with thorns", max: 20, want: "black rose tattoo..."},
		{name: "trailing separator", in: "rose, tattoo, thorns, leaves", max: 18, want: "rose, tattoo..."},
		{name: "long word hard cut", in: "supercalifragilistic tattoo", max: 12, want: "supercali..."},
		{name: "tiny budget", in: "rose tattoo", max: 2, want: ".."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := TruncateAtWord(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in != got, truncated)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.max)
		})
	}
}

func TestContainsTerm(t *testing.T) {
	assert.True(t, ContainsTerm("A Woman portrait", "woman"))
	assert.False(t, ContainsTerm("A woman portrait", "man"))
	assert.True(t, ContainsTerm("sacred geometry, dots", "sacred geometry"))
	assert.True(t, ContainsTerm("neo-traditional rose", "traditional"))
	assert.False(t, ContainsTerm("watercolor koi", "color"))
	assert.False(t, ContainsTerm("anything", " "))
}

func TestAppendPhrase(t *testing.T) {
	assert.Equal(t, "rose", AppendPhrase("", "rose"))
	assert.Equal(t, "rose, clean lines", AppendPhrase("rose, ", "clean lines"))
	assert.Equal(t, "rose, Clean Lines", AppendPhrase("rose, Clean Lines", "clean lines"))
	assert.Equal(t, "rose, a, b", AppendPhrases("rose", "a", "b", "a"))
}

func TestCollapseSeparators(t *testing.T) {
	assert.Equal(t, "rose, thorns", CollapseSeparators("  rose ,  , thorns , "))
	assert.Equal(t, "a rose tattoo.", CollapseSeparators("a  rose   tattoo ."))
	assert.Equal(t, "rose", CollapseSeparators(", rose,"))
}

func TestCollapseSeparators_Conjunctions(t *testing.T) {
	cases := map[string]string{
		"red and blue  and ":                       "red and blue",
		"ink and and, solid black fill":            "ink, solid black fill",
		"koi and , lotus":                          "koi, lotus",
		"and a rose":                               "a rose",
		"rose or and thorns":                       "rose or thorns",
		"rose, thorns, and leaves":                 "rose, thorns, and leaves",
		"sand and band":                            "sand and band",
		"hummingbird with red and blue feathers.": "hummingbird with red and blue feathers.",
	}
	for in, want := range cases {
		assert.Equal(t, want, CollapseSeparators(in), in)
	}
}
