package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/iancoleman/strcase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/nanorest/nanorest"
)

var headerCaser = cases.Title(language.Und)

// output writes v in the configured format. Table output expects records:
// a map or a slice of maps; columns lists the preferred column order.
func (cli *CLI) output(v any, columns ...string) error {
	switch format := cli.viperInst.GetString("format"); format {
	case "json":
		encoder := json.NewEncoder(cli.out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(cli.out)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	case "table", "":
		return cli.outputTable(v, columns)
	default:
		return NewUsageError("write output", "format", format, "Use --format table, json or yaml")
	}
}

func (cli *CLI) outputTable(v any, columns []string) error {
	var records []map[string]any
	switch r := v.(type) {
	case nil:
		return nil
	case map[string]any:
		records = []map[string]any{r}
	case []map[string]any:
		records = r
	default:
		return cli.outputYAMLFallback(v)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(cli.out, "No records")
		return err
	}

	columns = tableColumns(records, columns)
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = headerTitle(c)
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = formatCell(rec[c])
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(cli.out, t.String())
	return err
}

// outputYAMLFallback prints values that are not records, such as raw
// response data
func (cli *CLI) outputYAMLFallback(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = cli.out.Write(data)
	return err
}

// tableColumns returns preferred columns first, then every other key sorted
func tableColumns(records []map[string]any, preferred []string) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, c := range preferred {
		if !seen[c] {
			seen[c] = true
			columns = append(columns, c)
		}
	}

	var rest []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

// headerTitle turns "firstName" or "manager_id" into "First Name" or "Manager Id"
func headerTitle(column string) string {
	return headerCaser.String(strcase.ToDelimited(column, ' '))
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// records converts a find result to printable values. Unparsed results
// print their raw body.
func records(res *nanorest.Result) any {
	if !res.Parsed() {
		var raw any
		if err := json.Unmarshal(res.Raw, &raw); err != nil {
			return strings.TrimSpace(string(res.Raw))
		}
		return raw
	}
	if res.IsCollection() {
		out := make([]map[string]any, 0, len(res.Collection()))
		for _, m := range res.Collection() {
			out = append(out, m.ToJSON())
		}
		return out
	}
	if m, ok := res.Single(); ok {
		return m.ToJSON()
	}
	return nil
}

// parseAssignments reads name=value pairs. Values that parse as JSON
// (numbers, booleans, null, objects, arrays, quoted strings) keep their type;
// anything else is a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%q is not name=value", pair)
		}
		out[name] = parseValue(value)
	}
	return out, nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
