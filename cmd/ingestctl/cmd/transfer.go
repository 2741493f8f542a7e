package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ingestion-gateway/internal/model"
)

// transferFlags are the request fields shared by export, import and preview
type transferFlags struct {
	source  string
	table   string
	file    string
	columns []string
	joins   []string
}

func (f *transferFlags) bind(cmd *cobra.Command, withJoins bool) {
	cmd.Flags().StringVar(&f.table, "table", "", "store table")
	cmd.Flags().StringVar(&f.file, "file", "", "CSV file")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "comma separated columns, table.column for joined exports")
	if withJoins {
		cmd.Flags().StringArrayVar(&f.joins, "join", nil, "join as TYPE:mainTable.mainColumn=joinTable.joinColumn (repeatable)")
	}
}

func (f *transferFlags) request(source model.Source) (*model.TransferRequest, error) {
	joins, err := parseJoinFlags(f.joins)
	if err != nil {
		return nil, err
	}
	return &model.TransferRequest{
		Source:         source,
		TableName:      f.table,
		FilePath:       f.file,
		Columns:        f.columns,
		JoinConditions: joins,
		Credential:     credential,
	}, nil
}

var (
	exportFlags  transferFlags
	importFlags  transferFlags
	previewFlags transferFlags
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a store query to a CSV file",
	Long: `Export selected columns of a store table, optionally joined, to a CSV
file in the configured output directory.

Examples:
  ingestctl export --table orders --file orders.csv --columns id,total
  ingestctl export --table orders --file report.csv \
    --columns orders.id,customers.name \
    --join INNER:orders.cust_id=customers.id`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := exportFlags.request(model.SourceClickHouse)
		if err != nil {
			return err
		}
		return runTransfer(cmd, req)
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a CSV file into a new store table",
	Long: `Create the table if it does not exist and load the selected columns of
the CSV file into it. All columns are loaded when --columns is omitted.

Example:
  ingestctl import --file ./uploads/people.csv --table people`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := importFlags.request(model.SourceFlatFile)
		if err != nil {
			return err
		}
		return runTransfer(cmd, req)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the first rows a transfer would move",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := previewFlags.request(model.Source(previewFlags.source))
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		preview, err := a.Transfers.Preview(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := outputter(cmd)
		rows := make([][]string, len(preview.Rows))
		for i, row := range preview.Rows {
			rows[i] = textCells(row, preview.Columns)
		}
		if len(rows) == 0 && out.format == OutputTable {
			out.PrintWarning("No rows returned")
		}
		return out.PrintTable(preview.Columns, rows)
	},
}

func init() {
	exportFlags.bind(exportCmd, true)
	importFlags.bind(importCmd, false)
	previewFlags.bind(previewCmd, true)
	previewCmd.Flags().StringVar(&previewFlags.source, "source", string(model.SourceClickHouse), "clickhouse or flatfile")

	exportCmd.MarkFlagRequired("table")
	exportCmd.MarkFlagRequired("file")
	importCmd.MarkFlagRequired("table")
	importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(previewCmd)
}

func runTransfer(cmd *cobra.Command, req *model.TransferRequest) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Transfers.Transfer(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	out := outputter(cmd)
	if out.format != OutputTable {
		return out.PrintObject(result)
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Ingestion completed. Records processed: %d\n", result.RecordCount)
	if result.OutputPath != "" {
		out.PrintInfo("Written to " + result.OutputPath)
	}
	if result.ArchiveURI != "" {
		out.PrintInfo("Archived to " + result.ArchiveURI)
	}
	if result.TableCreated {
		out.PrintInfo("Loaded into " + result.TableName)
	}
	return nil
}

// textCells renders a row for display; null cells print as empty text.
func textCells(row model.Row, columns []string) []string {
	values := row.Cells(columns)
	out := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}
