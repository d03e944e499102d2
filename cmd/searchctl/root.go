package main

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/client"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
)

// app carries what every subcommand needs once the root flags are parsed.
type app struct {
	configPath  string
	indexerURL  string
	searcherURL string
	timeout     time.Duration
	verbose     bool

	cfg     *config.Config
	client  *client.Client
	metrics *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "searchctl",
		Short:         "Index, search and crawl against AsuraCrow services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&a.indexerURL, "indexer", "", "indexer base URL (overrides config)")
	root.PersistentFlags().StringVar(&a.searcherURL, "searcher", "", "searcher base URL (overrides config)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "request timeout (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newIndexCmd(a),
		newSearchCmd(a),
		newCrawlCmd(a),
		newStatsCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.indexerURL != "" {
		cfg.Client.IndexerURL = a.indexerURL
	}
	if a.searcherURL != "" {
		cfg.Client.SearcherURL = a.searcherURL
	}
	if a.timeout > 0 {
		cfg.Client.Timeout = a.timeout
	}
	if cfg.Client.IndexerURL == "" || cfg.Client.SearcherURL == "" {
		return errors.New("indexer and searcher URLs must be set")
	}

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logger.Setup(level, "text")

	a.cfg = cfg
	a.client = client.New(cfg.Client)
	a.metrics = metrics.New(prometheus.NewRegistry())
	return nil
}
