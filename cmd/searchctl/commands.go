package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/client"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/resilience"
)

func newIndexCmd(a *app) *cobra.Command {
	var url, file, content string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index one document",
		Long: `Submits a document to the indexer. The content is taken verbatim from
--content or from --file ("-" reads stdin).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return errors.New("--url is required")
			}
			if file != "" && content != "" {
				return errors.New("--file and --content are mutually exclusive")
			}
			if file != "" {
				data, err := readInput(cmd, file)
				if err != nil {
					return err
				}
				content = string(data)
			}

			resp, err := a.client.Index(cmd.Context(), client.Document{URL: url, Content: content})
			if err != nil {
				return err
			}
			state := "updated"
			if resp.NewDocument {
				state = "new"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d terms, %s)\n", resp.Message, resp.URL, resp.Terms, state)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "document url")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read content from file")
	cmd.Flags().StringVar(&content, "content", "", "document content")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func newSearchCmd(a *app) *cobra.Command {
	var asJSON, explain bool
	cmd := &cobra.Command{
		Use:   "search [term]...",
		Short: "Search indexed documents",
		Long: `Ranks documents by a weighted TF-IDF and BM25 score. Terms may be given
as separate arguments or joined with '+'; matching is exact and case-sensitive.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, "+")
			if explain {
				res, err := a.client.Explain(cmd.Context(), query)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, res)
				}
				if len(res.Results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
					return nil
				}
				for i, r := range res.Results {
					fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s (score %.4f, tf-idf %.4f, bm25 %.4f)\n", i+1, r.URL, r.Score, r.TFIDF, r.BM25)
				}
				return nil
			}

			urls, err := a.client.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, urls)
			}
			if len(urls) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
				return nil
			}
			for i, u := range urls {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s\n", i+1, u)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	cmd.Flags().BoolVar(&explain, "explain", false, "show per-document scores")
	return cmd
}

func newCrawlCmd(a *app) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl pages and index them",
		Long:  `Fetches each url, extracts its visible text and submits it to the indexer.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := crawler.OptionsFromConfig(a.cfg.Crawler)
			if workers > 0 {
				opts.Workers = workers
			}
			fetcher := crawler.NewFetcher(a.cfg.Crawler.FetchTimeout, a.cfg.Crawler.UserAgent)
			c := crawler.New(fetcher, crawler.NewHTTPSink(a.client, resilience.BreakerConfig{}), opts, a.metrics)

			report, err := c.Crawl(cmd.Context(), args)
			fmt.Fprintf(cmd.OutOrStdout(), "crawled %d urls: %d indexed, %d failed in %s\n",
				report.URLs, report.Submitted, report.Failed, report.Duration.Round(time.Millisecond))
			return err
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent fetches (overrides config)")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var withAnalytics bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "documents:               %d\n", stats.TotalDocuments)
			fmt.Fprintf(cmd.OutOrStdout(), "average document length: %.2f\n", stats.AverageDocumentLength)
			if !withAnalytics {
				return nil
			}
			raw, err := a.client.Analytics(cmd.Context())
			if err != nil {
				return err
			}
			var pretty any
			if err := json.Unmarshal(raw, &pretty); err != nil {
				return fmt.Errorf("decoding analytics: %w", err)
			}
			return printJSON(cmd, pretty)
		},
	}
	cmd.Flags().BoolVar(&withAnalytics, "analytics", false, "also print the searcher's analytics")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
