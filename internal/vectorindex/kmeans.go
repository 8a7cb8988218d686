package vectorindex

import (
	"math"
	"math/rand"

	math32 "github.com/chewxy/math32"
)

// clusterCountFor picks K ≈ 4·√N.
func clusterCountFor(n int) int {
	k := int(4 * math.Sqrt(float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// kmeans runs Lloyd's algorithm over vectors and returns K centroids.
// seed must be deterministic across calls with the same input so that
// re-clustering the same segment twice (e.g. in tests) is reproducible;
// callers pass a fixed seed derived from the segment ordinal rather than
// wall-clock time.
func kmeans(vectors [][]float32, k int, seed int64, maxIters int) [][]float32 {
	n := len(vectors)
	if n == 0 {
		return nil
	}
	if k >= n {
		centroids := make([][]float32, n)
		for i, v := range vectors {
			centroids[i] = append([]float32(nil), v...)
		}
		return centroids
	}

	rng := rand.New(rand.NewSource(seed))
	dims := len(vectors[0])

	centroids := make([][]float32, k)
	for i, idx := range rng.Perm(n)[:k] {
		centroids[i] = append([]float32(nil), vectors[idx]...)
	}

	assignment := make([]int, n)
	if maxIters <= 0 {
		maxIters = 25
	}

	for iter := 0; iter < maxIters; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestDist := 0, float32(math.MaxFloat32)
			for c, centroid := range centroids {
				d := squaredDistance(v, centroid)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}

		sums := make([][]float32, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float32, dims)
		}
		for i, v := range vectors {
			c := assignment[i]
			counts[c]++
			for d := 0; d < dims; d++ {
				sums[c][d] += v[d]
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue // keep the previous centroid for an empty cluster
			}
			for d := 0; d < dims; d++ {
				centroids[c][d] = sums[c][d] / float32(counts[c])
			}
		}

		if !changed {
			break
		}
	}

	return centroids
}

func squaredDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// nearestCentroid returns the index of the centroid closest to v.
func nearestCentroid(v []float32, centroids [][]float32) int {
	best, bestDist := 0, float32(math.MaxFloat32)
	for i, c := range centroids {
		d := squaredDistance(v, c)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// cosineSimilarity assumes neither vector is all-zero.
func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	denom := math32.Sqrt(na) * math32.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
