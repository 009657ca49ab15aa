package resolver

import "github.com/gmoreiraDEV/basix-engine/pkg/booking"

// ResolveProfessional returns the first candidate whose normalized name or
// nickname is a substring of the normalized query, falling back to the first
// candidate with any name word present as a query word.
func ResolveProfessional(query string, candidates []booking.Professional) (booking.Professional, bool) {
	q := normalize(query)
	if q == "" {
		return booking.Professional{}, false
	}

	for _, p := range candidates {
		if containsAny(q, []string{normalize(p.Name), normalize(p.Nickname)}) {
			return p, true
		}
	}

	seen := make(map[string]struct{})
	for _, tok := range tokens(q) {
		seen[tok] = struct{}{}
	}
	for _, p := range candidates {
		for _, tok := range tokens(p.Name) {
			if _, ok := seen[tok]; ok {
				return p, true
			}
		}
	}
	return booking.Professional{}, false
}
