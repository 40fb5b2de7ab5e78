package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/digital-twin/internal/cache"
	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/config"
	"github.com/Veraticus/digital-twin/internal/llm"
	"github.com/Veraticus/digital-twin/internal/simulation"
	"github.com/Veraticus/digital-twin/internal/storage"
)

// newEngine builds an engine with the configured population cache. The
// returned cleanup closes the cache.
func newEngine(opts ...simulation.Option) (*simulation.Engine, func(), error) {
	c, err := cache.New(config.LoadCache(viper.GetViper()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create population cache: %w", err)
	}

	cleanup := func() {}
	if c != nil {
		opts = append(opts, simulation.WithCache(c))
		cleanup = func() {
			if closeErr := c.Close(); closeErr != nil {
				slog.Error("Failed to close population cache", "error", closeErr)
			}
		}
	}

	return simulation.NewEngine(opts...), cleanup, nil
}

// newParser builds the campaign parser from the llm configuration.
func newParser() (*llm.CampaignParser, error) {
	cfg, err := config.LoadLLM(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Campaign parsing needs an API key for the configured provider", err)
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return llm.ParserFromConfig(client, cfg, slog.Default()), nil
}

// openStore opens the SQLite export store at path, or at database.path when
// path is empty.
func openStore(ctx context.Context, path string) (*storage.SQLiteStorage, error) {
	if path == "" {
		path = viper.GetString("database.path")
	}

	db, err := storage.Open(ctx, config.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func closeStore(db *storage.SQLiteStorage) {
	if err := db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

// flagName maps a filter field to its command line flag.
func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

// addFilterFlags registers one flag per campaign field.
func addFilterFlags(cmd *cobra.Command) {
	for _, field := range campaign.Fields() {
		usage := "campaign " + strings.ReplaceAll(field, "_", " ")
		domain := strings.Join(campaign.Domain(field), ", ")

		switch {
		case campaign.IsList(field):
			usage += " (comma-separated: " + domain + ")"
		case domain != "":
			usage += " (one of: " + domain + ")"
		default:
			usage += fmt.Sprintf(" (months, %d-%d)", campaign.MinTerm, campaign.MaxTerm)
		}

		cmd.Flags().String(flagName(field), "", usage)
	}
}

// filterFromFlags applies every filter flag the user set on top of base.
func filterFromFlags(cmd *cobra.Command, base campaign.Filter) (campaign.Filter, error) {
	f := base.Clone()

	var errs []error
	for _, field := range campaign.Fields() {
		flag := cmd.Flags().Lookup(flagName(field))
		if flag == nil || !flag.Changed {
			continue
		}
		if err := f.Set(field, flag.Value.String()); err != nil {
			errs = append(errs, fmt.Errorf("--%s: %w", flag.Name, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return f, common.NewUserError("Invalid campaign flags", err)
	}
	return f, nil
}
