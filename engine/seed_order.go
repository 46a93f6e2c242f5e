package engine

// SeedOrder returns the classic bracket ordering of seed indexes for a
// power-of-two bracket: the half-size order interleaved with complements, so
// the top seed meets the lowest and top seeds cannot collide before the
// rounds force it. For size 8: [0 7 3 4 1 6 2 5] → 1v8, 4v5, 2v7, 3v6.
func SeedOrder(bracketSize int) []int {
	if bracketSize <= 2 {
		return []int{0, 1}
	}

	sub := SeedOrder(bracketSize / 2)
	order := make([]int, 0, bracketSize)
	for _, seed := range sub {
		order = append(order, seed, bracketSize-1-seed)
	}
	return order
}

// BracketSize returns the next power of two >= n, and the number of rounds
// needed to play it out.
func BracketSize(n int) (size, rounds int) {
	size, rounds = 1, 0
	for size < n {
		size <<= 1
		rounds++
	}
	if rounds == 0 {
		rounds = 1
		size = 2
	}
	return size, rounds
}
