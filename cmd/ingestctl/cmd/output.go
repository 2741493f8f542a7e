package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
	OutputCSV   OutputFormat = "csv"
)

// Outputter handles different output formats
type Outputter struct {
	format OutputFormat
	writer io.Writer
}

// NewOutputter creates a new outputter with the specified format
func NewOutputter(format string, w io.Writer) *Outputter {
	return &Outputter{
		format: OutputFormat(format),
		writer: w,
	}
}

// PrintTable prints rows with the given headers in the configured format
func (o *Outputter) PrintTable(headers []string, rows [][]string) error {
	switch o.format {
	case OutputTable:
		return o.printAsTable(headers, rows)
	case OutputJSON:
		return o.printObjectAsJSON(o.records(headers, rows))
	case OutputYAML:
		return o.printObjectAsYAML(o.records(headers, rows))
	case OutputCSV:
		return o.printAsCSV(headers, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", o.format)
	}
}

// PrintObject prints a single object in the specified format
func (o *Outputter) PrintObject(obj interface{}) error {
	switch o.format {
	case OutputJSON:
		return o.printObjectAsJSON(obj)
	case OutputYAML:
		return o.printObjectAsYAML(obj)
	case OutputTable, OutputCSV:
		return fmt.Errorf("%s format not supported for single objects", o.format)
	default:
		return fmt.Errorf("unsupported output format: %s", o.format)
	}
}

func (o *Outputter) printAsTable(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(o.writer, 0, 0, 2, ' ', 0)
	if len(headers) > 0 {
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		sep := make([]string, len(headers))
		for i, h := range headers {
			sep[i] = strings.Repeat("-", max(len(h), 1))
		}
		fmt.Fprintln(tw, strings.Join(sep, "\t"))
	}
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// records keeps header order, which a map would lose
func (o *Outputter) records(headers []string, rows [][]string) []yaml.Node {
	out := make([]yaml.Node, 0, len(rows))
	for _, row := range rows {
		node := yaml.Node{Kind: yaml.MappingNode}
		for i, h := range headers {
			var v string
			if i < len(row) {
				v = row[i]
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: h},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v},
			)
		}
		out = append(out, node)
	}
	return out
}

func (o *Outputter) printObjectAsJSON(obj interface{}) error {
	if nodes, ok := obj.([]yaml.Node); ok {
		obj = orderedJSON(nodes)
	}
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(obj)
}

func (o *Outputter) printObjectAsYAML(obj interface{}) error {
	encoder := yaml.NewEncoder(o.writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(obj)
}

func (o *Outputter) printAsCSV(headers []string, rows [][]string) error {
	writer := csv.NewWriter(o.writer)
	if err := writer.Write(headers); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

// PrintWarning prints a warning message
func (o *Outputter) PrintWarning(message string) {
	color.New(color.FgYellow).Fprintf(o.writer, "⚠ %s\n", message)
}

// PrintInfo prints an info message
func (o *Outputter) PrintInfo(message string) {
	color.New(color.FgCyan).Fprintf(o.writer, "ℹ %s\n", message)
}

// orderedJSON renders mapping nodes as JSON objects in key order
func orderedJSON(nodes []yaml.Node) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(nodes))
	for _, n := range nodes {
		var b strings.Builder
		b.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				b.WriteByte(',')
			}
			k, _ := json.Marshal(n.Content[i].Value)
			v, _ := json.Marshal(n.Content[i+1].Value)
			b.Write(k)
			b.WriteByte(':')
			b.Write(v)
		}
		b.WriteByte('}')
		out = append(out, json.RawMessage(b.String()))
	}
	return out
}
