package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Software       Category = "software"
	Hardware       Category = "hardware"
	Services       Category = "services"
	Marketing      Category = "marketing"
	Infrastructure Category = "infrastructure"

	// AllCategories is the selector value that disables the category predicate.
	// It is never stored on a Supplier.
	AllCategories Category = "all"
)

const (
	Window7  Window = 7
	Window30 Window = 30
	Window90 Window = 90

	DefaultWindow = Window30
)

// BRDateLayout is the dd/mm/yyyy layout used by invoices and exports.
const BRDateLayout = "02/01/2006"

type (
	Category string

	// Window is a reporting period in days.
	Window int

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Invoice struct {
		Date   Date
		Amount Money
	}

	Supplier struct {
		ID        int64
		Name      string
		Category  Category
		TotalPaid Money
		Invoices  []Invoice // newest first
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty supplier name")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNegativeTotal   = errors.New("negative total paid")
	ErrUnknownWindow   = errors.New("unknown window")
)

var categoryLabels = map[Category]string{
	AllCategories:  "Todas",
	Software:       "Software",
	Hardware:       "Hardware",
	Services:       "Serviços",
	Marketing:      "Marketing",
	Infrastructure: "Infraestrutura",
}

// Categories returns the closed set of supplier categories in display order.
func Categories() []Category {
	return []Category{Software, Hardware, Services, Marketing, Infrastructure}
}

// CategorySelectors returns "all" followed by every category.
func CategorySelectors() []Category {
	return append([]Category{AllCategories}, Categories()...)
}

// ParseCategory maps a selector value to a Category. Unknown values fail
// closed to AllCategories and report ok=false so callers can log them.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return AllCategories, true
	}
	if _, known := categoryLabels[c]; !known {
		return AllCategories, false
	}
	return c, true
}

// Valid reports whether c is one of the five supplier categories.
func (c Category) Valid() bool {
	return c != AllCategories && categoryLabels[c] != ""
}

// Label returns the pt-BR display label.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) String() string { return string(c) }

// Windows returns the supported reporting periods.
func Windows() []Window {
	return []Window{Window7, Window30, Window90}
}

// ParseWindow parses a day count. Anything outside {7, 30, 90} yields the
// default window and ok=false.
func ParseWindow(s string) (Window, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultWindow, true
	}
	for _, w := range Windows() {
		if s == fmt.Sprint(int(w)) {
			return w, true
		}
	}
	return DefaultWindow, false
}

// Days returns the window length as an int.
func (w Window) Days() int { return int(w) }

func (w Window) Validate() error {
	switch w {
	case Window7, Window30, Window90:
		return nil
	}
	return ErrUnknownWindow
}

// Label returns the pt-BR option label ("Últimos 30 dias").
func (w Window) Label() string {
	return fmt.Sprintf("Últimos %d dias", int(w))
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseBRDate parses a dd/mm/yyyy string.
func ParseBRDate(s string) (Date, error) {
	t, err := time.Parse(BRDateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// BR formats the date as dd/mm/yyyy.
func (d Date) BR() string { return d.Format(BRDateLayout) }

// DayMonth formats the date as dd/mm, the chart axis label.
func (d Date) DayMonth() string { return d.Format("02/01") }

// ISO formats the date as yyyy-mm-dd.
func (d Date) ISO() string { return d.Format("2006-01-02") }

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i Invoice) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	return i.Amount.Validate()
}

// LastInvoice returns the newest invoice; ok is false for an empty history.
func (s Supplier) LastInvoice() (Invoice, bool) {
	if len(s.Invoices) == 0 {
		return Invoice{}, false
	}
	return s.Invoices[0], true
}

func (s Supplier) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if len(s.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if !s.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, s.Category)
	}
	if s.TotalPaid.Cents < 0 {
		return ErrNegativeTotal
	}
	for i, inv := range s.Invoices {
		if err := inv.Validate(); err != nil {
			return fmt.Errorf("invoice %d: %w", i, err)
		}
	}
	return nil
}
