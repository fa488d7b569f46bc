package indexing

import (
	"math"

	"gonum.org/v1/gonum/blas/blas32"
)

// unitTolerance is how far a norm may be from 1 and still count as unit length.
const unitTolerance = 1e-5

func asVec(v []float32) blas32.Vector {
	return blas32.Vector{N: len(v), Data: v, Inc: 1}
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return blas32.Dot(asVec(a), asVec(b))
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return blas32.Nrm2(asVec(v))
}

// NormalizeInPlace scales v to unit length. Zero vectors are left untouched and
// vectors already within unitTolerance of unit length are not rescaled, so the
// operation is idempotent.
func NormalizeInPlace(v []float32) {
	n := Norm(v)
	if n == 0 || math.Abs(float64(n)-1) <= unitTolerance {
		return
	}
	blas32.Scal(1/n, asVec(v))
}

// NormalizeL2 returns a unit-length copy of v.
func NormalizeL2(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	NormalizeInPlace(out)
	return out
}

// RoundSimilarity reports s with 4 decimal digits, clamped to [-1, 1].
func RoundSimilarity(s float32) float64 {
	r := math.Round(float64(s)*1e4) / 1e4
	return math.Max(-1, math.Min(1, r))
}

func clampUnit(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
