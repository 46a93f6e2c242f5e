package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedOrder(t *testing.T) {
	tests := []struct {
		name        string
		bracketSize int
		want        []int
	}{
		{"size 2", 2, []int{0, 1}},
		{"size 4", 4, []int{0, 3, 1, 2}},
		{"size 8", 8, []int{0, 7, 3, 4, 1, 6, 2, 5}},
		{"size 16", 16, []int{0, 15, 7, 8, 3, 12, 4, 11, 1, 14, 6, 9, 2, 13, 5, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeedOrder(tt.bracketSize))
		})
	}
}

func TestSeedOrderTopSeedsSeparated(t *testing.T) {
	// Seeds 0 and 1 must land in opposite halves for every bracket size.
	for _, size := range []int{4, 8, 16, 32, 64} {
		order := SeedOrder(size)
		var pos0, pos1 int
		for i, s := range order {
			if s == 0 {
				pos0 = i
			}
			if s == 1 {
				pos1 = i
			}
		}
		assert.NotEqual(t, pos0 < size/2, pos1 < size/2,
			"seeds 1 and 2 share a half in bracket of size %d", size)
	}
}

func TestBracketSize(t *testing.T) {
	tests := []struct {
		n          int
		wantSize   int
		wantRounds int
	}{
		{2, 2, 1},
		{3, 4, 2},
		{4, 4, 2},
		{5, 8, 3},
		{8, 8, 3},
		{9, 16, 4},
		{16, 16, 4},
		{1, 2, 1},
	}

	for _, tt := range tests {
		size, rounds := BracketSize(tt.n)
		assert.Equal(t, tt.wantSize, size, "size for n=%d", tt.n)
		assert.Equal(t, tt.wantRounds, rounds, "rounds for n=%d", tt.n)
	}
}
