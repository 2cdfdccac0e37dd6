package services

import (
	"strings"
	"testing"

	"painel/internal/core"
	"painel/internal/sources/memory"
)

func names(list []core.Supplier) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}

func TestFilterSuppliers(t *testing.T) {
	all := memory.DefaultSuppliers()
	cases := []struct {
		name     string
		category core.Category
		term     string
		want     []string
	}{
		{"all empty", core.AllCategories, "", names(all)},
		{"category only", core.Software, "", []string{"TechSolutions Brasil", "Analytics & BI Solutions"}},
		{"term case insensitive", core.AllCategories, "PRO", []string{"Cloud Hosting Pro", "Design Studio Pro"}},
		{"category and term", core.Software, "tech", []string{"TechSolutions Brasil"}},
		{"no match", core.Hardware, "cloud", []string{}},
		{"substring in the middle", core.AllCategories, "ops", []string{"DevOps Services"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := names(FilterSuppliers(all, tc.category, tc.term))
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestFilterSuppliersProperties(t *testing.T) {
	all := memory.DefaultSuppliers()
	for _, c := range core.Categories() {
		for _, s := range FilterSuppliers(all, c, "") {
			if s.Category != c {
				t.Fatalf("category %s returned %s", c, s.Category)
			}
		}
	}
	for _, term := range []string{"s", "Pro", "inc", "xyz"} {
		for _, s := range FilterSuppliers(all, core.AllCategories, term) {
			if !strings.Contains(strings.ToLower(s.Name), strings.ToLower(term)) {
				t.Fatalf("term %q returned %q", term, s.Name)
			}
		}
	}
}

func TestFilterSuppliersDoesNotMutate(t *testing.T) {
	all := memory.DefaultSuppliers()
	before := strings.Join(names(all), "|")
	out := FilterSuppliers(all, core.AllCategories, "")
	out[0].Name = "changed"
	if strings.Join(names(all), "|") != before {
		t.Fatalf("input was mutated")
	}
	if got := FilterSuppliers(nil, core.Software, "x"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
