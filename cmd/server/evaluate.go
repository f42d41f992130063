package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"promo-engine/internal/app/server"
	"promo-engine/internal/campaign"
	"promo-engine/internal/engine"
)

var (
	evalAt   string
	evalFile string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Print whether the promotion is displayed at a given instant",
	Long: `Evaluates the stored campaign, or the JSON record in --file, at --at
(RFC 3339, default now) and prints the decision and rendered view.`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalAt, "at", "", "instant to evaluate at (RFC 3339)")
	evaluateCmd.Flags().StringVarP(&evalFile, "file", "f", "", "campaign JSON file instead of the configured store")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	now := time.Now()
	if evalAt != "" {
		if now, err = time.Parse(time.RFC3339, evalAt); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}

	var (
		c  campaign.Config
		ok bool
	)
	if evalFile != "" {
		data, err := os.ReadFile(evalFile)
		if err != nil {
			return err
		}
		var errs campaign.ValidationErrors
		c, errs, err = campaign.Decode(data, loc)
		if err != nil {
			return fmt.Errorf("%s: %w", evalFile, err)
		}
		if len(errs) > 0 {
			log.Warn().Err(errs).Str("file", evalFile).Msg("campaign has field errors")
		}
		ok = true
	} else {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		repo, store, err := server.Repository(ctx, cfg, campaign.NewBroker())
		if err != nil {
			return err
		}
		defer store.Close()
		if c, ok, err = repo.Load(ctx); err != nil {
			return err
		}
	}

	return writePresentation(cmd.OutOrStdout(), evaluate(c, ok, now.In(loc)))
}

func evaluate(c campaign.Config, configured bool, now time.Time) engine.Presentation {
	if !configured {
		return engine.Presentation{Decision: campaign.Decision{Reason: campaign.ReasonUnconfigured}}
	}
	d := campaign.Evaluate(c, now)
	if !d.Display {
		return engine.Presentation{Decision: d}
	}
	v := campaign.Render(c)
	return engine.Presentation{Decision: d, View: &v}
}

func writePresentation(w io.Writer, p engine.Presentation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
