package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outJSON   string
	locale    string
	maxClaims int
	timeout   time.Duration
	noCache   bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <youtube-url>",
	Short: "Analyze one video and print the report",
	Long: `Analyze fetches the video's transcript and:
- Extracts the factual claims it makes
- Rates each claim against web and fact-check evidence
- Summarizes an overall consensus

The JSON report goes to stdout (or --json); progress goes to stderr.

Example:
  claimlens analyze https://www.youtube.com/watch?v=dQw4w9WgXcQ
  claimlens analyze https://youtu.be/dQw4w9WgXcQ --locale de --max-claims 5 --json report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")
	analyzeCmd.Flags().StringVar(&locale, "locale", model.DefaultLocale, "transcript and summary language")
	analyzeCmd.Flags().IntVar(&maxClaims, "max-claims", model.DefaultMaxClaims, "maximum claims to verify")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache (force a fresh run)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "Model: %s/%s (fallback %s)\n", cfg.LLM.Provider, cfg.LLM.ModelPrimary, cfg.LLM.ModelFallback)
		fmt.Fprintf(os.Stderr, "Cache: %v\n\n", cfg.Cache.Enabled)
	}

	p, closeCache, err := pipeline.NewFromConfig(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	report, err := p.Analyze(ctx, model.AnalysisRequest{URL: args[0], Locale: locale, MaxClaims: maxClaims})
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	printSummary(os.Stderr, report)

	var out io.Writer = cmd.OutOrStdout()
	if outJSON != "" {
		f, err := os.Create(outJSON)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if outJSON != "" {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
	}
	return nil
}

func printSummary(w io.Writer, report *model.Report) {
	fmt.Fprintln(w, banner)
	fmt.Fprintf(w, "  %s (%s)\n", report.Video.Title, report.Video.Channel)
	fmt.Fprintln(w, banner)
	fmt.Fprintf(w, "Consensus: %s\n  %s\n\n", report.Consensus.Rating, report.Consensus.Summary)
	for i, c := range report.Claims {
		fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, c.Rating, c.Text)
	}
	if len(report.Claims) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Took %dms · model %s · cached %v\n", report.Meta.TookMs, report.Meta.Model, report.Meta.Cached)
}
