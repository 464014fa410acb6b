package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fivetwenty-io/pocketbase-go/internal/constants"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
	OutputFormatTable = "table"
)

var timestampFields = map[string]bool{"created": true, "updated": true}

func validOutput(format string) bool {
	switch format {
	case OutputFormatJSON, OutputFormatYAML, OutputFormatTable, "":
		return true
	}

	return false
}

// render writes data in the configured output format; table output is
// delegated to table.
func render(w io.Writer, data any, table func(io.Writer) error) error {
	switch format := viper.GetString("output"); format {
	case OutputFormatJSON:
		return StandardJSONRenderer(w, data)
	case OutputFormatYAML:
		return StandardYAMLRenderer(w, data)
	case OutputFormatTable, "":
		return table(w)
	default:
		return fmt.Errorf("%w: %s", constants.ErrInvalidOutput, format)
	}
}

// StandardJSONRenderer renders data as indented JSON.
func StandardJSONRenderer(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(data)
}

// StandardYAMLRenderer renders data as YAML. JSON values are routed through
// a generic form first so records keep their server field names.
func StandardYAMLRenderer(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	var generic any

	err = json.Unmarshal(raw, &generic)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()

	return encoder.Encode(generic)
}

func renderRecordTable(w io.Writer, records []pocketbase.Record) error {
	if len(records) == 0 {
		_, _ = io.WriteString(w, "No records found\n")

		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Created", "Updated", "Fields")

	for _, record := range records {
		_ = table.Append(record.ID(),
			relativeTime(record.GetDateTime("created")),
			relativeTime(record.GetDateTime("updated")),
			summarizeFields(record))
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderRecordDetails(w io.Writer, record pocketbase.Record) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")

	for _, key := range sortedKeys(record) {
		value := formatValue(record[key])
		if timestampFields[key] {
			value += " (" + relativeTime(record.GetDateTime(key)) + ")"
		}

		_ = table.Append(key, value)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderListFooter(w io.Writer, result *pocketbase.ListResult[pocketbase.Record]) {
	if result.TotalItems < 0 {
		_, _ = fmt.Fprintf(w, "\nPage %d (totals skipped)\n", result.Page)

		return
	}

	_, _ = fmt.Fprintf(w, "\nPage %d of %d, %s records in total.\n",
		result.Page, result.TotalPages, humanize.Comma(int64(result.TotalItems)))
}

func relativeTime(dt pocketbase.DateTime) string {
	if dt.IsZero() {
		return constants.NotAvailable
	}

	return humanize.Time(dt.Time())
}

// summarizeFields renders the non-system fields of record as key=value pairs.
func summarizeFields(record pocketbase.Record) string {
	parts := make([]string, 0, len(record))

	for _, key := range sortedKeys(record) {
		switch key {
		case "id", "created", "updated", "collectionId", "collectionName":
			continue
		}

		parts = append(parts, key+"="+formatValue(record[key]))
	}

	return truncate(strings.Join(parts, " "), constants.MaxColumnWidth)
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(data)
	}
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}

	return string(runes[:width-3]) + "..."
}

func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
