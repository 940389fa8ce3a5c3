package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/clean"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/scrape"
)

var (
	scrapeQuery    string
	scrapeNoEnrich bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Discover and enrich leads from web search",
}

var scrapeRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Search for leads, enrich them, and store the results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		jinaClient, err := initJina()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scraper := scrape.NewScraper(jinaClient)
		leads, err := scraper.Run(ctx, scrapeQuery)
		if err != nil {
			return err
		}
		if max := cfg.Scrape.MaxResults; max > 0 && len(leads) > max {
			leads = leads[:max]
		}

		enriched := 0
		if !scrapeNoEnrich {
			opts := []enrich.Option{enrich.WithConcurrency(cfg.Scrape.MaxConcurrency)}
			if fc := initFirecrawl(); fc != nil {
				opts = append(opts, enrich.WithFallback(fc))
			}
			enricher := enrich.NewEnricher(jinaClient, opts...)
			enriched, err = enricher.EnrichAll(ctx, leads)
			if err != nil {
				return err
			}
		}

		stored := 0
		for _, lead := range leads {
			clean.Apply(lead)
			if lead.Email != "" {
				if existing, err := st.GetLeadByEmail(ctx, lead.Email); err == nil && existing != nil {
					continue
				}
			}
			if err := st.UpsertLead(ctx, lead); err != nil {
				zap.L().Warn("scrape: upsert failed", zap.String("website", lead.Website), zap.Error(err))
				continue
			}
			stored++
		}

		zap.L().Info("scrape complete",
			zap.String("query", scrapeQuery),
			zap.Int("candidates", len(leads)),
			zap.Int("enriched", enriched),
			zap.Int("stored", stored),
		)
		return nil
	},
}

func init() {
	scrapeRunCmd.Flags().StringVar(&scrapeQuery, "query", "", `search query, e.g. "roofing contractors in Austin" (required)`)
	scrapeRunCmd.Flags().BoolVar(&scrapeNoEnrich, "no-enrich", false, "skip website enrichment")
	_ = scrapeRunCmd.MarkFlagRequired("query")

	scrapeCmd.AddCommand(scrapeRunCmd)
	rootCmd.AddCommand(scrapeCmd)
}
