package matching

// Scorer provides the string comparison primitives used by the match engine.
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ExactMatch returns 1.0 for exact match, 0.0 otherwise
func (s *Scorer) ExactMatch(a, b string) float64 {
	if a == b && a != "" {
		return 1.0
	}
	return 0.0
}

// Ratio computes 2*M/T where M is the number of matched characters across all
// matching blocks and T the combined length. Returns 0.0 when either side is
// blank.
func (s *Scorer) Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	ra := []rune(a)
	rb := []rune(b)

	matches := totalMatches(ra, rb)
	return 2.0 * float64(matches) / float64(len(ra)+len(rb))
}

type matchSpan struct {
	alo, ahi, blo, bhi int
}

// totalMatches sums the sizes of all matching blocks. Blocks are found by
// locating the longest match and recursing on the pieces to its left and
// right.
func totalMatches(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	total := 0
	queue := []matchSpan{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		span := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, size := longestMatch(a, b2j, span)
		if size == 0 {
			continue
		}
		total += size

		if span.alo < i && span.blo < j {
			queue = append(queue, matchSpan{span.alo, i, span.blo, j})
		}
		if i+size < span.ahi && j+size < span.bhi {
			queue = append(queue, matchSpan{i + size, span.ahi, j + size, span.bhi})
		}
	}
	return total
}

// longestMatch finds the longest run of equal characters inside the span,
// preferring the earliest such run in a, then in b.
func longestMatch(a []rune, b2j map[rune][]int, span matchSpan) (besti, bestj, bestsize int) {
	besti, bestj, bestsize = span.alo, span.blo, 0
	j2len := make(map[int]int)

	for i := span.alo; i < span.ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < span.blo {
				continue
			}
			if j >= span.bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}
	return besti, bestj, bestsize
}
