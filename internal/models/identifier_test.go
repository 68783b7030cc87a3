package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rohankatakam/repolens/internal/errors"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		input string
		owner string
		name  string
	}{
		{"acme/widget", "acme", "widget"},
		{"  acme/widget  ", "acme", "widget"},
		{"acme/widget/", "acme", "widget"},
		{"acme/widget.git", "acme", "widget"},
		{"github.com/acme/widget", "acme", "widget"},
		{"https://github.com/acme/widget", "acme", "widget"},
		{"https://github.com/acme/widget/", "acme", "widget"},
		{"https://github.com/acme/widget.git", "acme", "widget"},
		{"http://www.github.com/acme/widget", "acme", "widget"},
		{"https://github.com/acme/widget/tree/main/src", "acme", "widget"},
		{"https://github.com/acme/widget?tab=readme", "acme", "widget"},
		{"git@github.com:acme/widget.git", "acme", "widget"},
		{"acme/widget.js", "acme", "widget.js"},
		{"Acme/Widget", "Acme", "Widget"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, err := ParseIdentifier(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.owner, id.Owner)
			assert.Equal(t, tt.name, id.Name)
		})
	}
}

func TestParseIdentifierRejectsMalformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"widget",
		"acme/",
		"/widget",
		"github.com/acme",
		"https://github.com/",
		"a/b/c",
		"acme corp/widget",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseIdentifier(input)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidIdentifier))
		})
	}
}

func TestParseIdentifierIdempotent(t *testing.T) {
	inputs := []string{
		"acme/widget",
		"https://github.com/acme/widget.git",
		"git@github.com:Acme/Widget.git",
		"github.com/acme/widget.js/",
		"github.com/localhostdev/widget",
		"localhostdev/widget",
	}

	for _, input := range inputs {
		first, err := ParseIdentifier(input)
		require.NoError(t, err)

		second, err := ParseIdentifier(first.String())
		require.NoError(t, err)
		assert.Equal(t, first, second, "normalizing %q twice should be stable", input)
	}
}

func TestParseIdentifierHosts(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"localhost/acme/widget", "acme/widget"},
		{"http://localhost:8080/acme/widget", "acme/widget"},
		{"localhostdev/widget", "localhostdev/widget"},
		{"github.com/localhostdev/widget", "localhostdev/widget"},
	}

	for _, tt := range tests {
		id, err := ParseIdentifier(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, id.String(), tt.input)
	}
}

func TestCacheKeyIsLowerCase(t *testing.T) {
	id, err := ParseIdentifier("https://github.com/Acme/Widget")
	require.NoError(t, err)
	assert.Equal(t, "Acme/Widget", id.String())
	assert.Equal(t, "acme/widget", id.CacheKey())
}

func TestLanguageColor(t *testing.T) {
	assert.Equal(t, "#00ADD8", LanguageColor("Go"))
	assert.Equal(t, DefaultLanguageColor, LanguageColor("Brainfuck"))
}

func TestWeekStart(t *testing.T) {
	b := WeeklyBucket{Week: 1700352000}
	assert.Equal(t, int64(1700352000), b.WeekStart().Unix())
}
