package match

import "strings"

// Similarity scores how much two free-text descriptions overlap, in [0,1].
// Case-insensitive substring and keyword overlap only; this is deliberately
// not NLP so every score can be explained in an audit entry.
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 1
	}

	tokensA := strings.Fields(na)
	tokensB := make(map[string]struct{})
	for _, tok := range strings.Fields(nb) {
		tokensB[tok] = struct{}{}
	}

	shared := 0
	for _, tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(tokensA))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
