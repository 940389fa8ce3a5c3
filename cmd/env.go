package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/outreach"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/airtable"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/firecrawl"
	"github.com/sells-group/outreach-cli/pkg/jina"
	"github.com/sells-group/outreach-cli/pkg/mailer"
	"github.com/sells-group/outreach-cli/pkg/openai"
	sfpkg "github.com/sells-group/outreach-cli/pkg/salesforce"
)

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "outreach.db"
		}
		st, err := store.NewSQLite(path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initAirtable() (airtable.Client, error) {
	if err := cfg.Validate("airtable"); err != nil {
		return nil, err
	}
	var opts []airtable.Option
	if cfg.Airtable.BaseURL != "" {
		opts = append(opts, airtable.WithBaseURL(cfg.Airtable.BaseURL))
	}
	return airtable.NewClient(cfg.Airtable.Token, cfg.Airtable.BaseID, opts...), nil
}

func initJina() (jina.Client, error) {
	if err := cfg.Validate("jina"); err != nil {
		return nil, err
	}
	var opts []jina.Option
	if cfg.Jina.BaseURL != "" {
		opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
	}
	if cfg.Jina.SearchBaseURL != "" {
		opts = append(opts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	return jina.NewClient(cfg.Jina.Key, opts...), nil
}

// initFirecrawl returns nil when no key is configured; the enricher treats
// a nil fallback as jina-only.
func initFirecrawl() firecrawl.Client {
	if cfg.Firecrawl.Key == "" {
		return nil
	}
	var opts []firecrawl.Option
	if cfg.Firecrawl.BaseURL != "" {
		opts = append(opts, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	}
	return firecrawl.NewClient(cfg.Firecrawl.Key, opts...)
}

func initSalesforce() (sfpkg.Client, error) {
	if err := cfg.Validate("salesforce"); err != nil {
		return nil, err
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}

// initSender builds the configured mail sender and returns it with the
// from address.
func initSender() (mailer.Sender, string, error) {
	switch cfg.Outreach.Sender {
	case "smtp":
		if err := cfg.Validate("smtp"); err != nil {
			return nil, "", err
		}
		sender := mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		return sender, cfg.SMTP.From, nil
	case "graph":
		if err := cfg.Validate("graph"); err != nil {
			return nil, "", err
		}
		var opts []mailer.GraphOption
		if cfg.Graph.BaseURL != "" {
			opts = append(opts, mailer.WithBaseURL(cfg.Graph.BaseURL))
		}
		sender := mailer.NewGraphSender(cfg.Graph.TenantID, cfg.Graph.ClientID, cfg.Graph.ClientSecret, cfg.Graph.From, opts...)
		return sender, cfg.Graph.From, nil
	default:
		return nil, "", eris.Errorf("unsupported sender: %s", cfg.Outreach.Sender)
	}
}

// initGenerator builds the configured copy generator. Returns nil without
// error when the campaign has no generated steps.
func initGenerator(campaign *outreach.Campaign) (outreach.Generator, error) {
	needed := false
	for _, s := range campaign.Steps {
		if s.Generate != "" {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}

	switch cfg.Outreach.Generator {
	case "openai":
		if err := cfg.Validate("openai"); err != nil {
			return nil, err
		}
		var opts []openai.Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return openai.NewClient(cfg.OpenAI.Key, cfg.OpenAI.Model, opts...), nil
	case "anthropic":
		if err := cfg.Validate("anthropic"); err != nil {
			return nil, err
		}
		return anthropic.NewClient(cfg.Anthropic.Key, cfg.Anthropic.Model), nil
	default:
		return nil, eris.Errorf("unsupported generator: %s", cfg.Outreach.Generator)
	}
}

func schedulerConfig(from string) outreach.SchedulerConfig {
	return outreach.SchedulerConfig{
		From:         from,
		PollInterval: time.Duration(cfg.Outreach.PollIntervalSecs) * time.Second,
		DailyCap:     cfg.Outreach.DailySendCap,
	}
}
