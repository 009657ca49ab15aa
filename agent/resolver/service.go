package resolver

import (
	"sort"
	"strings"

	"github.com/gmoreiraDEV/basix-engine/pkg/booking"
)

// ServiceRules holds the locale specific vocabulary used by ResolveService.
type ServiceRules struct {
	// ExcludedCategories drops any candidate whose category contains one of
	// these fragments.
	ExcludedCategories []string
	// HaircutTokens switch the query to the haircut sub-intent.
	HaircutTokens []string
	// HaircutNameTokens are required in a candidate name under the haircut
	// sub-intent. The first one is preferred when ordering.
	HaircutNameTokens []string
}

var DefaultServiceRules = ServiceRules{
	ExcludedCategories: []string{"depil", "manicure", "podologia", "unha"},
	HaircutTokens:      []string{"corte", "cortar", "cabelo", "haircut", "barba e cabelo"},
	HaircutNameTokens:  []string{"corte", "cabelo"},
}

// ResolveService picks a service for the query using DefaultServiceRules.
func ResolveService(query string, professionalID *int64, candidates []booking.Service) (booking.Service, bool) {
	return DefaultServiceRules.Resolve(query, professionalID, candidates)
}

// Resolve filters out excluded categories, narrows to haircut services when
// the query asks for one, then prefers a service linked to professionalID.
// Otherwise the first surviving candidate wins.
func (r ServiceRules) Resolve(query string, professionalID *int64, candidates []booking.Service) (booking.Service, bool) {
	q := normalize(query)
	haircut := containsAny(q, r.HaircutTokens)

	kept := make([]booking.Service, 0, len(candidates))
	for _, svc := range candidates {
		if containsAny(normalize(svc.Category), r.ExcludedCategories) {
			continue
		}
		if haircut && !containsAny(normalize(svc.Name), r.HaircutNameTokens) {
			continue
		}
		kept = append(kept, svc)
	}
	if len(kept) == 0 {
		return booking.Service{}, false
	}

	if haircut && len(r.HaircutNameTokens) > 0 {
		preferred := r.HaircutNameTokens[0]
		sort.SliceStable(kept, func(i, j int) bool {
			return rank(kept[i].Name, preferred) < rank(kept[j].Name, preferred)
		})
	}

	if professionalID != nil {
		for _, svc := range kept {
			if svc.ProfessionalID == *professionalID {
				return svc, true
			}
		}
	}
	return kept[0], true
}

func rank(name, preferred string) int {
	if strings.Contains(normalize(name), preferred) {
		return 0
	}
	return 1
}
