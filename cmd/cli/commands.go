package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"statadvisor/adapters/excel"
	"statadvisor/domain/assumption"
	"statadvisor/domain/catalog"
	"statadvisor/internal/loader"
	"statadvisor/internal/report"
	"statadvisor/internal/severity"
	"statadvisor/internal/suitability"

	"github.com/spf13/cobra"
)

// inputFlags are shared by the commands that score a set of checks
type inputFlags struct {
	checksPath string
	sampleSize int
	asJSON     bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.checksPath, "checks", "-", "JSON file of assumption checks keyed by assumption, or - for stdin")
	cmd.Flags().IntVarP(&f.sampleSize, "sample-size", "n", 0, "Sample size of the dataset")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print JSON instead of a table")
}

func (f *inputFlags) checks(cmd *cobra.Command) (assumption.Checks, error) {
	var r io.Reader = cmd.InOrStdin()
	if f.checksPath != "-" {
		file, err := os.Open(f.checksPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open checks file: %w", err)
		}
		defer file.Close()
		r = file
	}

	var checks assumption.Checks
	if err := json.NewDecoder(r).Decode(&checks); err != nil {
		return nil, fmt.Errorf("failed to parse checks: %w", err)
	}
	if f.sampleSize < 0 {
		return nil, fmt.Errorf("sample size must not be negative")
	}
	return checks, nil
}

func activeCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		return loader.Default()
	}
	return loader.LoadFile(path)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newClassifyCmd() *cobra.Command {
	var input inputFlags
	var minConfidence int

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify assumption checks by severity and confidence",
		Long: `Classify assumption checks by severity and confidence.

Example: statadvisor classify --checks checks.json -n 48 --min-confidence 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := activeCatalog(cmd)
			if err != nil {
				return err
			}
			checks, err := input.checks(cmd)
			if err != nil {
				return err
			}

			assessments := severity.FilterByConfidence(severity.Assess(checks, input.sampleSize), minConfidence)
			findings := report.Findings(assessments, cat.RemediesFor)
			if input.asJSON {
				return printJSON(cmd.OutOrStdout(), findings)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ASSUMPTION\tSEVERITY\tCONFIDENCE\tACTION")
			for _, f := range findings {
				sev, action := "unknown", "-"
				if f.Known {
					sev = f.Severity.String()
				}
				if f.Recommendation != nil {
					action = string(f.Recommendation.Action)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\n", f.Assumption, sev, f.Confidence, action)
			}
			return tw.Flush()
		},
	}

	input.register(cmd)
	cmd.Flags().IntVar(&minConfidence, "min-confidence", 0, "Hide results below this confidence (0-100)")
	return cmd
}

func newRankCmd() *cobra.Command {
	var input inputFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank catalog tests by suitability for the given checks",
		Long: `Rank catalog tests by suitability for the given checks.

Example: echo '{"normality":{"passed":false,"p_value":0.02}}' | statadvisor rank -n 25 --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := activeCatalog(cmd)
			if err != nil {
				return err
			}
			checks, err := input.checks(cmd)
			if err != nil {
				return err
			}

			ranking := suitability.NewScorer(cat).Rank(checks, input.sampleSize)
			if limit > 0 {
				ranking = ranking.Top(limit)
			}
			if input.asJSON {
				return printJSON(cmd.OutOrStdout(), ranking)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tTEST\tSCORE\tPOWER\tVIOLATIONS")
			i := 0
			for name, score := range ranking.All() {
				i++
				parts := make([]string, 0, len(score.Violations))
				for _, v := range score.Violations {
					label := v.Assumption
					if label == "" {
						label = string(v.Type)
					}
					parts = append(parts, label+":"+string(v.Severity))
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%s\n", i, name, score.Score, score.Power, strings.Join(parts, ","))
			}
			return tw.Flush()
		},
	}

	input.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the top N tests")
	return cmd
}

func newReportCmd() *cobra.Command {
	var input inputFlags
	var format, out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a Markdown, HTML or JSON report of the assessment and ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := activeCatalog(cmd)
			if err != nil {
				return err
			}
			checks, err := input.checks(cmd)
			if err != nil {
				return err
			}

			rep := report.Build(
				suitability.NewScorer(cat).Rank(checks, input.sampleSize),
				severity.Assess(checks, input.sampleSize),
				cat.RemediesFor,
				input.sampleSize,
			)

			var body []byte
			switch format {
			case "md", "markdown":
				body = []byte(rep.Markdown())
			case "html":
				body = rep.HTML()
			case "json":
				if body, err = json.MarshalIndent(rep, "", "  "); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported report format %q (use md, html or json)", format)
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(out, body, 0o644)
		},
	}

	input.register(cmd)
	cmd.Flags().StringVar(&format, "format", "md", "Report format: md, html or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate and convert test catalogs",
	}
	cmd.AddCommand(newCatalogValidateCmd(), newCatalogExportCmd())
	return cmd
}

func newCatalogValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Report every issue in a catalog file; fails on entries that cannot be scored",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cat *catalog.Catalog
				err error
			)
			if len(args) == 1 {
				cat, err = loader.ReadFile(args[0])
			} else {
				cat, err = loader.Default()
			}
			if err != nil {
				return err
			}

			issues := cat.Validate()
			fatal := 0
			for _, issue := range issues {
				level := "warning"
				if issue.Fatal {
					level = "error"
					fatal++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", level, issue)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tests, %d issues (%d fatal), version %s\n",
				len(cat.Tests), len(issues), fatal, cat.Version())

			if fatal > 0 {
				return fmt.Errorf("catalog has %d entries that cannot be scored", fatal)
			}
			return nil
		},
	}
}

func newCatalogExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the active catalog as YAML, JSON or a spreadsheet",
		Long: `Write the active catalog as YAML, JSON or a spreadsheet. The format follows
the output file extension; stdout receives YAML.

Example: statadvisor catalog export --catalog custom.yaml -o custom.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := activeCatalog(cmd)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				data, err := loader.Encode(cat, loader.FormatYAML)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			format, err := loader.FormatFromPath(out)
			if err != nil {
				return err
			}
			if format == loader.FormatXLSX {
				return excel.WriteCatalogWorkbook(cat, out)
			}
			data, err := loader.Encode(cat, format)
			if err != nil {
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (.yaml, .json, .xlsx); default stdout")
	return cmd
}
