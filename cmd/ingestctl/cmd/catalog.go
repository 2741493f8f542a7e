package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var columnsFile string

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tables, err := a.Transfers.ListTables(cmd.Context(), credential)
		if err != nil {
			return err
		}
		rows := make([][]string, len(tables))
		for i, t := range tables {
			rows[i] = []string{t}
		}
		return outputter(cmd).PrintTable([]string{"table"}, rows)
	},
}

var columnsCmd = &cobra.Command{
	Use:   "columns [table...]",
	Short: "List columns of store tables or of a CSV file",
	Long: `List columns of one or more store tables, or of a CSV file header.

Examples:
  ingestctl columns orders customers
  ingestctl columns --file ./uploads/people.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if columnsFile == "" && len(args) == 0 {
			return fmt.Errorf("either a table name or --file must be specified")
		}
		if columnsFile != "" && len(args) > 0 {
			return fmt.Errorf("table names and --file are mutually exclusive")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out := outputter(cmd)
		if columnsFile != "" {
			columns, err := a.Transfers.FileColumns(cmd.Context(), columnsFile)
			if err != nil {
				return err
			}
			return out.PrintTable([]string{"column"}, singleColumn(columns))
		}

		byTable, err := a.Transfers.ListColumnsForTables(cmd.Context(), args, credential)
		if err != nil {
			return err
		}
		var rows [][]string
		for _, table := range args {
			for _, column := range byTable[table] {
				rows = append(rows, []string{table, column})
			}
		}
		return out.PrintTable([]string{"table", "column"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(columnsCmd)

	columnsCmd.Flags().StringVar(&columnsFile, "file", "", "read the header of this CSV file")
}

func singleColumn(values []string) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return rows
}
