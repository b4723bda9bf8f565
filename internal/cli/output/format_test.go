package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "json", input: "json", want: FormatJSON},
		{name: "JSON uppercase", input: "JSON", want: FormatJSON},
		{name: "yaml", input: "yaml", want: FormatYAML},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "whitespace trimmed", input: "  table  ", want: FormatTable},
		{name: "invalid format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinterPrint(t *testing.T) {
	table := NewTableData("Name")
	table.AddRow("a.txt")

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(table))
	assert.Contains(t, buf.String(), "a.txt")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON, false).Print(map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatYAML, false).Print(map[string]int{"n": 1}))
	assert.Equal(t, "n: 1\n", buf.String())

	// Non-table data falls back to JSON.
	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print([]string{"x"}))
	assert.JSONEq(t, `["x"]`, buf.String())
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatTable, false).Success("done")
	assert.Equal(t, "done\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, FormatTable, true).Warning("careful")
	assert.Equal(t, "\033[33mcareful\033[0m\n", buf.String())
}

func TestDefaultPrinterHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	printer := DefaultPrinter()
	assert.Equal(t, FormatTable, printer.Format())
	assert.False(t, printer.color)
}
