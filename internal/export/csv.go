// Package export renders the filtered supplier list as the CSV file the
// dashboard offers for download.
//
// Fields are joined with bare commas and never quoted. A supplier name that
// contains a comma therefore shifts the columns of its row; consumers rely on
// this exact format, so it is kept.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"painel/internal/core"
)

const (
	// Header is the first line of every export.
	Header = "Fornecedor,Categoria,Total Pago,Última Fatura"
	// ContentType is the MIME type of the export artifact.
	ContentType = "text/csv;charset=utf-8"
)

// CSV renders the suppliers in the given order. Rows are joined with "\n"
// and there is no trailing newline; an empty input yields only the header.
func CSV(suppliers []core.Supplier) string {
	lines := make([]string, 0, len(suppliers)+1)
	lines = append(lines, Header)
	for _, s := range suppliers {
		lines = append(lines, Row(s))
	}
	return strings.Join(lines, "\n")
}

// Row renders one supplier. The last column is "<dd/mm/yyyy> - R$ <amount>"
// for the newest invoice, or empty when the supplier has no invoices.
func Row(s core.Supplier) string {
	last := ""
	if inv, ok := s.LastInvoice(); ok {
		last = fmt.Sprintf("%s - R$ %s", inv.Date.BR(), inv.Amount.Plain())
	}
	return strings.Join([]string{s.Name, string(s.Category), s.TotalPaid.Plain(), last}, ",")
}

// Filename returns fornecedores_<YYYY-MM-DD>.csv for the UTC date of now.
func Filename(now time.Time) string {
	return fmt.Sprintf("fornecedores_%s.csv", now.UTC().Format("2006-01-02"))
}

// WriteFile stores payload under dir using the dated file name. The file is
// written to a temporary name first and renamed, so a failed write never
// leaves a partial export behind.
func WriteFile(dir string, now time.Time, payload string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.csv")
	if err != nil {
		return "", fmt.Errorf("create temp export: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(payload); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	path := filepath.Join(dir, Filename(now))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename export: %w", err)
	}
	return path, nil
}
