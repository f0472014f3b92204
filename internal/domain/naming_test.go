package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Buy milk", "buy-milk"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"Ünïcödé & symbols!!", "n-c-d-symbols"},
		{"already-slugged", "already-slugged"},
		{"MiXeD Case 123", "mixed-case-123"},
		{"", "untitled"},
		{"!!!", "untitled"},
		{"a very long title that keeps going and going well past the limit", "a-very-long-title-that-keeps-going-and-g"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Slugify(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 40)
		})
	}
}

func TestSlugify_TruncationNeverEndsInDash(t *testing.T) {
	// 40th character lands on a separator.
	got := Slugify("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa b")
	assert.NotEqual(t, byte('-'), got[len(got)-1])
}

func TestParseTaskFileID(t *testing.T) {
	const id = "0d4f2f9e-9a8b-4c6d-8e1f-123456789abc"

	got, ok := ParseTaskFileID(id + "-buy-milk.txt")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	// Slug is optional.
	got, ok = ParseTaskFileID(id + ".txt")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = ParseTaskFileID("short.txt")
	assert.False(t, ok)
	_, ok = ParseTaskFileID("not-a-uuid-prefix-but-long-enough-to-slice.txt")
	assert.False(t, ok)
}

func TestTaskFileName(t *testing.T) {
	const id = "0d4f2f9e-9a8b-4c6d-8e1f-123456789abc"
	name := TaskFileName(id, "Buy milk")
	assert.Equal(t, id+"-buy-milk.txt", name)

	parsed, ok := ParseTaskFileID(name)
	assert.True(t, ok)
	assert.Equal(t, id, parsed)
}

func TestBoardSlugs(t *testing.T) {
	assert.Equal(t, "project-home-renovation", ProjectBoardSlug("Home Renovation"))
	assert.Equal(t, "context-errands", ContextBoardSlug("errands"))
	assert.Equal(t, "review.txt", BoardFileName("review"))
}
