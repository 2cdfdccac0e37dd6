package services

import (
	"strings"

	"painel/internal/core"
)

// FilterSuppliers keeps the suppliers matching both the category selector
// and the case-insensitive name term. AllCategories and an empty term match
// everything. Input order is preserved and the input is not modified.
func FilterSuppliers(suppliers []core.Supplier, category core.Category, term string) []core.Supplier {
	needle := strings.ToLower(term)
	out := make([]core.Supplier, 0, len(suppliers))
	for _, s := range suppliers {
		if category != core.AllCategories && s.Category != category {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(s.Name), needle) {
			continue
		}
		out = append(out, s)
	}
	return out
}
