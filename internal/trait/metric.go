package trait

import "math"

// Compatibility scores how well attrs match prefs: 1 is a perfect match, 0 is
// maximal mismatch on every dimension.
func Compatibility(prefs, attrs Vector, r Range) (float64, error) {
	return normalizedAgreement(prefs, attrs, r)
}

// Similarity scores two attribute vectors with the same formula as
// Compatibility.
func Similarity(a, b Vector, r Range) (float64, error) {
	return normalizedAgreement(a, b, r)
}

func normalizedAgreement(a, b Vector, r Range) (float64, error) {
	n := len(a)
	if n == 0 || len(b) == 0 {
		return 0, ErrNoDimensions
	}
	if len(b) != n {
		return 0, &MismatchError{Want: n, Got: len(b)}
	}
	if err := r.Validate(); err != nil {
		return 0, err
	}

	diff := 0.0
	for i := range a {
		diff += math.Abs(a[i] - b[i])
	}
	score := 1 - diff/(float64(n)*r.Span())
	// Out-of-range inputs can push the raw score below zero.
	return math.Max(0, math.Min(1, score)), nil
}

// SimilarityMatrix returns the symmetric pairwise similarity table for vs.
// The diagonal is 1.
func SimilarityMatrix(vs []Vector, r Range) ([][]float64, error) {
	n := len(vs)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s, err := Similarity(vs[i], vs[j], r)
			if err != nil {
				return nil, err
			}
			m[i][j], m[j][i] = s, s
		}
	}
	return m, nil
}
