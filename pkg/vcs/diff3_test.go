package vcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMerge3 tests line-level three-way merges.
func TestMerge3(t *testing.T) {
	tests := []struct {
		name         string
		base         string
		ours         string
		theirs       string
		want         string
		wantConflict bool
	}{
		{
			name:   "unchanged",
			base:   "a\nb\n",
			ours:   "a\nb\n",
			theirs: "a\nb\n",
			want:   "a\nb\n",
		},
		{
			name:   "only ours changed",
			base:   "a\nb\nc\n",
			ours:   "a\nB\nc\n",
			theirs: "a\nb\nc\n",
			want:   "a\nB\nc\n",
		},
		{
			name:   "only theirs changed",
			base:   "a\nb\nc\n",
			ours:   "a\nb\nc\n",
			theirs: "a\nb\nc\nd\n",
			want:   "a\nb\nc\nd\n",
		},
		{
			name:   "disjoint edits",
			base:   "1\n2\n3\n4\n5\n6\n",
			ours:   "one\n2\n3\n4\n5\n6\n",
			theirs: "1\n2\n3\n4\n5\nsix\n",
			want:   "one\n2\n3\n4\n5\nsix\n",
		},
		{
			name:   "identical edits taken once",
			base:   "a\nb\nc\n",
			ours:   "a\nX\nc\n",
			theirs: "a\nX\nc\n",
			want:   "a\nX\nc\n",
		},
		{
			name:   "insert and delete elsewhere",
			base:   "a\nb\nc\nd\ne\n",
			ours:   "a\nb\nc\nd\ne\nf\n",
			theirs: "b\nc\nd\ne\n",
			want:   "b\nc\nd\ne\nf\n",
		},
		{
			name:         "same line changed differently",
			base:         "a\nb\nc\n",
			ours:         "a\nours\nc\n",
			theirs:       "a\ntheirs\nc\n",
			want:         "a\n<<<<<<< ours\nours\n=======\ntheirs\n>>>>>>> theirs\nc\n",
			wantConflict: true,
		},
		{
			name:         "both appended",
			base:         "a\n",
			ours:         "a\nx\n",
			theirs:       "a\ny\n",
			want:         "a\n<<<<<<< ours\nx\n=======\ny\n>>>>>>> theirs\n",
			wantConflict: true,
		},
		{
			name:         "both added from nothing",
			base:         "",
			ours:         "mine",
			theirs:       "yours\n",
			want:         "<<<<<<< ours\nmine\n=======\nyours\n>>>>>>> theirs\n",
			wantConflict: true,
		},
		{
			name:         "overlapping ranges",
			base:         "a\nb\nc\nd\n",
			ours:         "a\nB\nC\nd\n",
			theirs:       "a\nb\nCC\nd\n",
			want:         "a\n<<<<<<< ours\nB\nC\n=======\nb\nCC\n>>>>>>> theirs\nd\n",
			wantConflict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conflict := merge3(tt.base, tt.ours, tt.theirs, "ours", "theirs")
			assert.Equal(t, tt.wantConflict, conflict)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestSplitLines tests that lines keep their terminators.
func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"a\n", "b"}, splitLines("a\nb"))
	assert.Equal(t, []string{"a\n", "\n"}, splitLines("a\n\n"))
}

// TestIsBinary tests the NUL byte heuristic.
func TestIsBinary(t *testing.T) {
	assert.False(t, isBinary([]byte("plain text\n")))
	assert.True(t, isBinary([]byte("bin\x00ary")))
}
