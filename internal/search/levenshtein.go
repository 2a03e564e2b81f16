package search

import (
	"fmt"
	"sync"
)

// Levenshtein computes classic edit distance (insertion, deletion and
// substitution each cost 1) with a reusable scratch matrix. The matrix only
// ever grows, so steady-state query traffic allocates nothing.
//
// Concurrency contract: the scratch matrix is shared, so Distance serializes
// callers with an internal mutex. Callers that need parallel throughput
// should hold one engine per worker instead.
type Levenshtein struct {
	mu     sync.Mutex
	matrix [][]int
}

// NewLevenshtein returns an engine with an empty scratch matrix.
func NewLevenshtein() *Levenshtein {
	return &Levenshtein{}
}

// Distance returns the edit distance between a and b. Output is identical to
// a freshly-allocated dynamic-programming table regardless of call history.
func (l *Levenshtein) Distance(a, b string) int {
	if a == b {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// The shorter string drives the inner dimension. Purely a scratch-size
	// optimization; distance is symmetric.
	if len(rb) > len(ra) {
		ra, rb = rb, ra
	}
	rows := len(ra) + 1
	cols := len(rb) + 1

	l.mu.Lock()
	defer l.mu.Unlock()

	l.grow(rows, cols)
	m := l.matrix

	// The matrix is shared across calls, so the base row and column must be
	// repopulated every time: prior calls leave stale values behind.
	for j := 0; j < cols; j++ {
		m[0][j] = j
	}
	for i := 1; i < rows; i++ {
		m[i][0] = i
		for j := 1; j < cols; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d := m[i-1][j] + 1 // deletion
			if ins := m[i][j-1] + 1; ins < d {
				d = ins // insertion
			}
			if sub := m[i-1][j-1] + cost; sub < d {
				d = sub // substitution
			}
			m[i][j] = d
		}
	}

	return m[rows-1][cols-1]
}

// grow ensures the scratch matrix covers at least rows x cols, never
// shrinking either dimension. Caller must hold l.mu.
func (l *Levenshtein) grow(rows, cols int) {
	haveRows := len(l.matrix)
	haveCols := 0
	if haveRows > 0 {
		haveCols = len(l.matrix[0])
	}

	if rows > haveRows || cols > haveCols {
		newRows := max(rows, haveRows)
		newCols := max(cols, haveCols)
		m := make([][]int, newRows)
		for i := range m {
			m[i] = make([]int, newCols)
		}
		l.matrix = m
	}

	// A matrix smaller than requested after growth means the bookkeeping
	// above is broken, not that the input was bad. Fail loudly.
	if len(l.matrix) < rows || len(l.matrix[0]) < cols {
		panic(fmt.Sprintf("levenshtein: scratch matrix %dx%d smaller than required %dx%d",
			len(l.matrix), len(l.matrix[0]), rows, cols))
	}
}
