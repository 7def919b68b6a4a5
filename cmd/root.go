package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/loadchange/app"
	"github.com/kilianp07/loadchange/config"
	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/infra/logger"
)

var baseFlags struct {
	start  string
	target string
	at     string
	mode   string
}

var (
	cfgPath string
	envFile string
	cfg     *config.Config
)

const rootLong = `Plans unit load changes, tracks operator overrides and raises the ramp alarms.

Run without a subcommand the planner serves headless. With --start and
--target it enters that base plan first, then ticks it: alarms fire and the
plan is published to the configured sinks. Without them no plan exists and
only the sinks are served; use the console to drive a plan interactively.`

const rootExample = `  loadchange --start 400 --target 500 --at 10:00
  loadchange --start 500 --target 400 --mode "4 Puls" -c loadchange.yaml`

var rootCmd = &cobra.Command{
	Use:               "loadchange",
	Short:             "Unit load change planner",
	Long:              rootLong,
	Example:           rootExample,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	f := rootCmd.Flags()
	f.StringVar(&baseFlags.start, "start", "", "current unit load in MW of the base plan")
	f.StringVar(&baseFlags.target, "target", "", "target unit load in MW of the base plan")
	f.StringVar(&baseFlags.at, "at", "", "base plan start time HH:MM[:SS], now when empty")
	f.StringVar(&baseFlags.mode, "mode", "", `pulverizer mode of the base plan, "3 Puls" or "4 Puls"`)
	rootCmd.MarkFlagsRequiredTogether("start", "target")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("env file: %w", err)
		}
	}
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.Logging.Apply()
	cfg = c
	return nil
}

// run serves the session headless until interrupted. Alarms and plan
// publishing need the base plan entered from the flags.
func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	log := logger.New("main")
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()
	entered, err := enterBase(ctx, svc.Session, baseFlags.start, baseFlags.target, baseFlags.at, baseFlags.mode, time.Now())
	if err != nil {
		return fmt.Errorf("base plan: %w", err)
	}
	if !entered {
		log.Warnf("no base plan given, serving sinks only")
	}
	return svc.Run(ctx)
}

// enterBase enters the base plan given on the command line. It reports false
// when start and target are both empty.
func enterBase(ctx context.Context, s *engine.Session, start, target, at, mode string, now time.Time) (bool, error) {
	if start == "" && target == "" {
		return false, nil
	}
	req, err := parseEnter(start, target, at, now)
	if err != nil {
		return false, err
	}
	if mode != "" {
		m, err := model.ParsePulverizerMode(mode)
		if err != nil {
			return false, err
		}
		rc := s.Snapshot().Config
		rc.PulverizerMode = m
		req.Config = &rc
	}
	if _, err := s.Enter(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}
