package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/analytics/pgstore"
	"github.com/seuros/studybuddy/internal/config"
	"github.com/seuros/studybuddy/internal/database"
	"github.com/seuros/studybuddy/internal/logging"
)

var (
	statsFormat string
	statsLimit  int
)

var statsCmd = &cobra.Command{
	Use:   "stats [--format table|json|csv|yaml] [--limit N]",
	Short: "Print funnel statistics",
	Long: `Print the headline figures, the conversion funnel, the UTM breakdown and the
most recent applications from the configured analytics store.

Supported formats:
  table  - Aligned text tables (default)
  json   - One JSON document
  csv    - One CSV section per report
  yaml   - One YAML document

Example:
  studybuddy stats
  studybuddy stats --format json --limit 50`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		report, err := collectReport(cmd.Context(), cfg, statsLimit)
		if err != nil {
			return err
		}
		return writeReport(os.Stdout, report, statsFormat)
	},
}

// Report is everything the stats command prints.
type Report struct {
	GeneratedAt  time.Time                  `json:"generated_at" yaml:"generated_at"`
	Stats        analytics.Stats            `json:"stats" yaml:"stats"`
	Funnel       []analytics.FunnelStage    `json:"funnel" yaml:"funnel"`
	UTM          []analytics.UTMStat        `json:"utm" yaml:"utm"`
	Applications []analytics.ApplicationRow `json:"applications" yaml:"applications"`
}

func collectReport(ctx context.Context, cfg *config.Config, limit int) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var store analytics.Store
	if cfg.AnalyticsStore == config.AnalyticsPostgres {
		if err := database.Connect(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		defer func() { _ = database.Close() }()
		store = pgstore.New(database.DB)
	} else {
		store = analytics.NewLocalStore(cfg.DataDir)
	}

	svc := analytics.NewService(store, analytics.Options{Logger: logging.L().Named("analytics")})
	if err := svc.Init(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = svc.Dispose() }()

	return &Report{
		GeneratedAt:  time.Now().UTC(),
		Stats:        svc.GetStats(ctx),
		Funnel:       svc.GetFunnelData(ctx),
		UTM:          svc.GetUTMStats(ctx),
		Applications: svc.GetRecentApplications(ctx, limit),
	}, nil
}

func writeReport(w io.Writer, r *Report, format string) error {
	switch format {
	case "", "table":
		return outputReportTable(w, r)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	case "csv":
		return outputReportCSV(w, r)
	default:
		return fmt.Errorf("invalid format: %s (use table, json, csv or yaml)", format)
	}
}

func outputReportTable(out io.Writer, r *Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	s := r.Stats
	_, _ = fmt.Fprintln(w, "Funnel Overview")
	_, _ = fmt.Fprintf(w, "Total Visits:\t%d\n", s.TotalVisits)
	_, _ = fmt.Fprintf(w, "Unique Visitors:\t%d\n", s.UniqueVisitors)
	_, _ = fmt.Fprintf(w, "CTA Clicks:\t%d\n", s.CTAClicks)
	_, _ = fmt.Fprintf(w, "Form Starts:\t%d\n", s.FormStarts)
	_, _ = fmt.Fprintf(w, "Applications:\t%d\n", s.FilledForms)
	_, _ = fmt.Fprintf(w, "Conversion:\t%.1f%%\n", s.ConversionRate)

	_, _ = fmt.Fprintln(w, "\nSTAGE\tCOUNT\tDROP")
	_, _ = fmt.Fprintln(w, "-----\t-----\t----")
	for _, f := range r.Funnel {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d%%\n", f.Step, f.Count, f.DropRate)
	}

	_, _ = fmt.Fprintln(w, "\nSOURCE\tCAMPAIGN\tCLICKS\tSUBMISSIONS\tCONVERSION")
	_, _ = fmt.Fprintln(w, "------\t--------\t------\t-----------\t----------")
	if len(r.UTM) == 0 {
		_, _ = fmt.Fprintln(w, "(no traffic)")
	}
	for _, u := range r.UTM {
		campaign := u.Campaign
		if campaign == "" {
			campaign = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f%%\n", u.Source, campaign, u.Clicks, u.Submissions, u.Conversion)
	}

	_, _ = fmt.Fprintln(w, "\nDATE\tGRADE\tGOALS\tSUBJECTS\tLEVEL\tEMAIL\tTELEGRAM\tSOURCE")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----\t--------\t-----\t-----\t--------\t------")
	if len(r.Applications) == 0 {
		_, _ = fmt.Fprintln(w, "(no applications)")
	}
	for _, a := range r.Applications {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Date, a.Grade, a.Goals, a.Subjects, a.Level, a.Email, a.Telegram, a.Source)
	}

	return w.Flush()
}

func outputReportCSV(out io.Writer, r *Report) error {
	w := csv.NewWriter(out)

	records := [][]string{
		{"metric", "value"},
		{"total_visits", strconv.Itoa(r.Stats.TotalVisits)},
		{"unique_visitors", strconv.Itoa(r.Stats.UniqueVisitors)},
		{"cta_clicks", strconv.Itoa(r.Stats.CTAClicks)},
		{"form_starts", strconv.Itoa(r.Stats.FormStarts)},
		{"filled_forms", strconv.Itoa(r.Stats.FilledForms)},
		{"conversion_rate", strconv.FormatFloat(r.Stats.ConversionRate, 'f', 1, 64)},
		{},
		{"stage", "count", "drop_rate"},
	}
	for _, f := range r.Funnel {
		records = append(records, []string{f.Step, strconv.Itoa(f.Count), strconv.Itoa(f.DropRate)})
	}
	records = append(records, []string{}, []string{"source", "campaign", "clicks", "submissions", "conversion"})
	for _, u := range r.UTM {
		records = append(records, []string{
			u.Source, u.Campaign, strconv.Itoa(u.Clicks), strconv.Itoa(u.Submissions),
			strconv.FormatFloat(u.Conversion, 'f', 1, 64),
		})
	}
	records = append(records, []string{}, []string{"id", "date", "grade", "goals", "subjects", "level", "email", "telegram", "source"})
	for _, a := range r.Applications {
		records = append(records, []string{a.ID, a.Date, a.Grade, a.Goals, a.Subjects, a.Level, a.Email, a.Telegram, a.Source})
	}

	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func init() {
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", "table", "Output format (table, json, csv, yaml)")
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 10, "Number of recent applications to list")
}
