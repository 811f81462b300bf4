package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintTable_Aligns(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"store_name", "orders"}, [][]string{
		{"Loja Centro", "42"},
		{"Loja Aeroporto", "7"},
	})

	assert.Equal(t, []string{
		"STORE_NAME      ORDERS",
		"Loja Centro     42",
		"Loja Aeroporto  7",
	}, lines(buf.String()))
}

func TestPrintTable_ShortRowsPadWithEmptyCells(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"a", "b"}, [][]string{{"x"}})
	assert.Equal(t, []string{"A  B", "x  "}, lines(buf.String()))
}

func TestPrintTable_NoColumns(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, nil, [][]string{{"x"}})
	assert.Empty(t, buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 8))
	assert.Equal(t, "Loja Ae…", truncate("Loja Aeroporto", 8))
	assert.Equal(t, "Açaí 5…", truncate("Açaí 500ml", 7))
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "iFood", "iFood"},
		{"whole float", float64(42), "42"},
		{"fraction", 1200.5, "1200.5"},
		{"bool", true, "true"},
		{"object", map[string]any{"a": float64(1)}, `{"a":1}`},
		{"slice", []any{"x", "y"}, `["x","y"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCell(tt.in))
		})
	}
}

func TestRowColumns(t *testing.T) {
	rows := []map[string]any{
		{"revenue": 1.0, "product_name": "X-Burger", "zeta": 1, "alpha": 2},
	}
	assert.Equal(t,
		[]string{"product_name", "revenue", "alpha", "zeta"},
		rowColumns([]string{"product_name", "revenue"}, rows))
	assert.Equal(t, []string{"alpha", "product_name", "revenue", "zeta"}, rowColumns(nil, rows))
}

func TestRowsToTable(t *testing.T) {
	rows := []map[string]any{{"store_name": "Loja Centro", "orders": float64(3)}}
	assert.Equal(t, [][]string{{"Loja Centro", "3", ""}}, rowsToTable([]string{"store_name", "orders", "missing"}, rows))
}

func TestValidateOutputFormat(t *testing.T) {
	assert.NoError(t, validateOutputFormat("table"))
	assert.NoError(t, validateOutputFormat("json"))
	assert.NoError(t, validateOutputFormat(""))
	assert.Error(t, validateOutputFormat("yaml"))
}
