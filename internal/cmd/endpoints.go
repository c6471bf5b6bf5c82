package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bipard/healthfetch/pkg/endpoint"
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List the upstream endpoint table",
	Long: `List every upstream endpoint and the record columns it feeds.

Example:
  healthfetch endpoints
  healthfetch endpoints --json`,
	RunE: runEndpoints,
}

var endpointsJSON bool

func init() {
	rootCmd.AddCommand(endpointsCmd)

	endpointsCmd.Flags().BoolVar(&endpointsJSON, "json", false, "Output as JSON")
}

func runEndpoints(_ *cobra.Command, _ []string) error {
	if endpointsJSON {
		type row struct {
			Name        string   `json:"name"`
			Path        string   `json:"path"`
			Description string   `json:"description"`
			Columns     []string `json:"columns"`
		}
		rows := make([]row, 0, len(endpoint.Specs))
		for _, spec := range endpoint.Specs {
			r := row{Name: spec.Name, Path: spec.Path, Description: spec.Description, Columns: []string{}}
			for _, f := range spec.Fields {
				r.Columns = append(r.Columns, f.Column)
			}
			rows = append(rows, r)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPATH\tCOLUMNS")
	for _, spec := range endpoint.Specs {
		cols := make([]string, 0, len(spec.Fields))
		for _, f := range spec.Fields {
			cols = append(cols, f.Column)
		}
		display := strings.Join(cols, ",")
		if display == "" {
			display = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Name, spec.Path, display)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d endpoints\n", endpoint.Count)
	return nil
}
