package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netsift/netsift/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	mode     string
	limit    int
	domain   string
	language string
	country  string
	mobile   string // "", "true", "false"
	format   string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `Search indexed documents. Hybrid mode (the default) runs both
semantic and keyword search and fuses the rankings with reciprocal rank
fusion.

Examples:
  netsift search "laptop return policy"
  netsift search "gdpr consent banner" --mode keyword --limit 5
  netsift search "checkout flow" --domain shop.example.com --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Search mode: semantic, keyword, hybrid")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 = config default)")
	cmd.Flags().StringVar(&opts.domain, "domain", "", "Filter by domain")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Filter by language (e.g. en, de)")
	cmd.Flags().StringVar(&opts.country, "country", "", "Filter by country code")
	cmd.Flags().StringVar(&opts.mobile, "mobile", "", "Filter by mobile rendering: true or false")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	mode, err := search.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	filters := search.Filters{
		Domain:   opts.domain,
		Language: opts.language,
		Country:  opts.country,
	}
	switch strings.ToLower(opts.mobile) {
	case "":
	case "true":
		v := true
		filters.Mobile = &v
	case "false":
		v := false
		filters.Mobile = &v
	default:
		return fmt.Errorf("--mobile must be true or false, got %q", opts.mobile)
	}

	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	resp, err := svc.Orchestrator.Search(cmd.Context(), search.Request{
		Query:   query,
		Mode:    mode,
		Limit:   opts.limit,
		Filters: filters,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Degraded {
		fmt.Fprintln(out, "warning: one index branch failed, results are partial")
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}
	for i, r := range resp.Results {
		fmt.Fprintf(out, "%2d. %s (%.4f, %s)\n", i+1, r.CanonicalURL, r.Score, strings.Join(r.Sources, "+"))
		if r.Title != "" {
			fmt.Fprintf(out, "    %s\n", r.Title)
		}
		if r.Snippet != "" {
			fmt.Fprintf(out, "    %s\n", r.Snippet)
		}
	}
	return nil
}
