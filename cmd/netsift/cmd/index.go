package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/netsift/netsift/internal/pipeline"
)

// indexDocument is the JSONL input format: one scraped document per line.
type indexDocument struct {
	URL         string `json:"url"`
	ResolvedURL string `json:"resolved_url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text"`
	Language    string `json:"language,omitempty"`
	Country     string `json:"country,omitempty"`
	Mobile      bool   `json:"mobile,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

func newIndexCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index scraped documents from a JSONL file or stdin",
		Long: `Index scraped documents into both the vector store and the keyword
index. Input is JSON Lines, one document per line:

  {"url": "https://example.com/page", "text": "...", "language": "en"}

Examples:
  netsift index --input scrape.jsonl
  cat scrape.jsonl | netsift index`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in io.Reader = cmd.InOrStdin()
			if inputPath != "" {
				f, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("failed to open input file: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			docs, err := readDocuments(in)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no documents to index")
				return nil
			}

			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			results, err := svc.Coordinator.IndexBatch(cmd.Context(), docs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary := pipeline.Summarize(results)
			fmt.Fprintf(out, "indexed %d/%d documents (%d skipped, %d failed, %d without keyword entry)\n",
				summary.Indexed, summary.Total, summary.Skipped, summary.Failed, summary.Degraded)

			for _, r := range results {
				if !r.Success {
					fmt.Fprintf(out, "  failed: %s: %v\n", r.URL, r.Err)
				}
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d documents failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSONL input file (default: stdin)")

	return cmd
}

// readDocuments parses JSONL input, skipping blank lines.
func readDocuments(r io.Reader) ([]pipeline.Document, error) {
	var docs []pipeline.Document

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc indexDocument
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, fmt.Errorf("invalid document on line %d: %w", lineNo, err)
		}
		docs = append(docs, pipeline.Document{
			URL:         doc.URL,
			ResolvedURL: doc.ResolvedURL,
			Title:       doc.Title,
			Description: doc.Description,
			Text:        doc.Text,
			Language:    doc.Language,
			Country:     doc.Country,
			Mobile:      doc.Mobile,
			SessionID:   doc.SessionID,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return docs, nil
}
