package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/infra/logger"
)

var planFlags struct {
	start  string
	target string
	at     string
	mode   string
	export string
	format string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute a single load change and print its milestones",
	Example: `  loadchange plan --start 400 --target 500 --at 10:00
  loadchange plan --start 500 --target 400 --mode "4 Puls" --export plan.html`,
	RunE: planLoadChange,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.start, "start", "", "current unit load in MW")
	f.StringVar(&planFlags.target, "target", "", "target unit load in MW")
	f.StringVar(&planFlags.at, "at", "", "start time HH:MM[:SS], now when empty")
	f.StringVar(&planFlags.mode, "mode", "", `pulverizer mode, "3 Puls" or "4 Puls"`)
	f.StringVar(&planFlags.export, "export", "", "write the plan rows to this file")
	f.StringVar(&planFlags.format, "format", "", "export format csv, json or html (default from the file extension)")
	_ = planCmd.MarkFlagRequired("start")
	_ = planCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(planCmd)
}

func planLoadChange(cmd *cobra.Command, args []string) error {
	rc := cfg.Engine
	if planFlags.mode != "" {
		m, err := model.ParsePulverizerMode(planFlags.mode)
		if err != nil {
			return err
		}
		rc.PulverizerMode = m
	}
	snap, err := computePlan(cmd.Context(), rc, cfg.Session.ResampleStep(), planFlags.start, planFlags.target, planFlags.at, time.Now())
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), snap)
	if planFlags.export != "" {
		if err := exportPlan(planFlags.export, planFlags.format, snap); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", planFlags.export)
	}
	return nil
}

// computePlan enters one base plan in a throwaway session.
func computePlan(ctx context.Context, rc model.RampConfig, step time.Duration, start, target, at string, now time.Time) (engine.Snapshot, error) {
	req, err := parseEnter(start, target, at, now)
	if err != nil {
		return engine.Snapshot{}, err
	}
	s, err := engine.NewSession(engine.Options{
		Config:       rc,
		ResampleStep: step,
		Clock:        engine.ClockFunc(func() time.Time { return req.At }),
		Logger:       logger.New("plan"),
	})
	if err != nil {
		return engine.Snapshot{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.Enter(ctx, req)
}

// parseEnter reads the operator inputs of a base plan. An empty at starts
// the plan at now.
func parseEnter(start, target, at string, now time.Time) (engine.EnterRequest, error) {
	startMW, err := engine.ParsePower("start power", start)
	if err != nil {
		return engine.EnterRequest{}, err
	}
	targetMW, err := engine.ParsePower("target power", target)
	if err != nil {
		return engine.EnterRequest{}, err
	}
	t := now
	if at != "" {
		if t, err = engine.ParseClock(at, now); err != nil {
			return engine.EnterRequest{}, err
		}
	}
	return engine.EnterRequest{StartMW: startMW, TargetMW: targetMW, At: t}, nil
}
