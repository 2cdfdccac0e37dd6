package google

import (
	"fmt"
	"strconv"
	"strings"

	"painel/internal/core"
)

// parseSuppliers expects a header row with ID, Nome, Categoria and
// Total Pago in any order. Rows without an id are skipped; any other
// malformed row is an error naming the sheet row.
func parseSuppliers(values [][]interface{}) ([]core.Supplier, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colID := indexOf(headers, "ID")
	colName := indexOf(headers, "Nome")
	colCat := indexOf(headers, "Categoria")
	colTotal := indexOf(headers, "Total Pago")
	if colID == -1 || colName == -1 || colCat == -1 || colTotal == -1 {
		return nil, fmt.Errorf("unexpected suppliers header: got headers=%v", headers)
	}

	out := make([]core.Supplier, 0, len(values)-1)
	seen := map[int64]bool{}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		rawID := safeGet(row, colID)
		if rawID == "" {
			continue
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("suppliers row %d: invalid id %q", i+1, rawID)
		}
		if seen[id] {
			return nil, fmt.Errorf("suppliers row %d: duplicate id %d", i+1, id)
		}
		cat, ok := core.ParseCategory(safeGet(row, colCat))
		if !ok || !cat.Valid() {
			return nil, fmt.Errorf("suppliers row %d: %w %q", i+1, core.ErrUnknownCategory, safeGet(row, colCat))
		}
		total, err := core.ParseDecimalToCents(safeGet(row, colTotal))
		if err != nil {
			return nil, fmt.Errorf("suppliers row %d: total paid %q: %w", i+1, safeGet(row, colTotal), err)
		}
		s := core.Supplier{ID: id, Name: safeGet(row, colName), Category: cat, TotalPaid: core.Money{Cents: total}}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("suppliers row %d: %w", i+1, err)
		}
		seen[id] = true
		out = append(out, s)
	}
	return out, nil
}

// parseInvoices expects Fornecedor ID, Data (dd/mm/yyyy) and Valor headers
// and groups invoices by supplier id in sheet order.
func parseInvoices(values [][]interface{}) (map[int64][]core.Invoice, error) {
	out := map[int64][]core.Invoice{}
	if len(values) == 0 {
		return out, nil
	}
	headers := toStrings(values[0])
	colSup := indexOf(headers, "Fornecedor ID")
	colDate := indexOf(headers, "Data")
	colAmount := indexOf(headers, "Valor")
	if colSup == -1 || colDate == -1 || colAmount == -1 {
		return nil, fmt.Errorf("unexpected invoices header: got headers=%v", headers)
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		rawID := safeGet(row, colSup)
		if rawID == "" {
			continue
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invoices row %d: invalid supplier id %q", i+1, rawID)
		}
		d, err := core.ParseBRDate(safeGet(row, colDate))
		if err != nil {
			return nil, fmt.Errorf("invoices row %d: %w", i+1, err)
		}
		cents, err := core.ParseDecimalToCents(safeGet(row, colAmount))
		if err != nil || cents <= 0 {
			return nil, fmt.Errorf("invoices row %d: invalid amount %q", i+1, safeGet(row, colAmount))
		}
		out[id] = append(out[id], core.Invoice{Date: d, Amount: core.Money{Cents: cents}})
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
