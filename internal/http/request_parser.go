// Package http provides HTTP server and handler implementations.
//
// This file turns dashboard query strings into a services.Selection. Invalid
// values never fail a request: they fall back to the defaults and are
// reported so the handler can log them.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"painel/internal/core"
	"painel/internal/services"
)

// Query parameter names shared by every dashboard route.
const (
	ParamDays     = "days"
	ParamCategory = "category"
	ParamSearch   = "q"
)

// InvalidParam records a query value that was replaced by its default.
type InvalidParam struct {
	Name  string
	Value string
}

// ParseSelection extracts window, category and search term from query
// values. Unknown windows become 30 days and unknown categories become
// "all"; each substitution is returned in invalid.
func ParseSelection(query url.Values) (sel services.Selection, invalid []InvalidParam) {
	rawDays := query.Get(ParamDays)
	w, ok := core.ParseWindow(rawDays)
	if !ok {
		invalid = append(invalid, InvalidParam{Name: ParamDays, Value: rawDays})
	}

	rawCat := query.Get(ParamCategory)
	c, ok := core.ParseCategory(rawCat)
	if !ok {
		invalid = append(invalid, InvalidParam{Name: ParamCategory, Value: rawCat})
	}

	return services.Selection{
		Window:   w,
		Category: c,
		Search:   sanitizeSearch(query.Get(ParamSearch)),
	}, invalid
}

// sanitizeSearch drops control characters and keeps everything else,
// surrounding spaces included, so the filter sees the term as typed.
func sanitizeSearch(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// SelectionQuery encodes sel back into query values, omitting defaults.
func SelectionQuery(sel services.Selection) url.Values {
	v := url.Values{}
	if sel.Window != core.DefaultWindow {
		v.Set(ParamDays, strconv.Itoa(sel.Window.Days()))
	}
	if sel.Category != core.AllCategories {
		v.Set(ParamCategory, sel.Category.String())
	}
	if sel.Search != "" {
		v.Set(ParamSearch, sel.Search)
	}
	return v
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}
