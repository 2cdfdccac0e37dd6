package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"painel/internal/core"
)

// templateFuncs are available to every dashboard template.
var templateFuncs = template.FuncMap{
	"percent":     func(p core.Percent) string { return p.String() },
	"changeClass": changeClass,
	"arrow":       arrow,
}

// changeClass colours a percent change: good, bad or unavailable. For
// inverse metrics a rise is bad.
func changeClass(p core.Percent, inverse bool) string {
	if !p.Valid {
		return "change change--na"
	}
	if p.Positive() != inverse {
		return "change change--good"
	}
	return "change change--bad"
}

func arrow(p core.Percent) string {
	switch {
	case !p.Valid:
		return ""
	case p.Value >= 0:
		return "▲"
	default:
		return "▼"
	}
}

// percentValue maps an unavailable percentage to JSON null.
func percentValue(p core.Percent) *float64 {
	if !p.Valid {
		return nil
	}
	v := p.Value
	return &v
}

// moneyValue renders cents as a JSON number in reais without float rounding.
func moneyValue(m core.Money) json.Number {
	return json.Number(m.Plain())
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
