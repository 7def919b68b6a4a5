package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilianp07/loadchange/infra/logger"
	"github.com/kilianp07/loadchange/qa/scenarios"
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml|glob>...",
	Short: "Replay load change scenarios against a virtual clock",
	Args:  cobra.MinimumNArgs(1),
	RunE:  replay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func replay(cmd *cobra.Command, args []string) error {
	var files []string
	for _, a := range args {
		m, err := filepath.Glob(a)
		if err != nil {
			return err
		}
		if len(m) == 0 {
			return fmt.Errorf("no scenario matches %s", a)
		}
		files = append(files, m...)
	}
	out := cmd.OutOrStdout()
	failed := 0
	for _, f := range files {
		sc, err := scenarios.Load(f)
		if err != nil {
			return err
		}
		res, err := scenarios.Run(cmd.Context(), sc, scenarios.Options{
			Config: cfg.Engine,
			Logger: logger.New("replay"),
		})
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", sc.Name, err)
			continue
		}
		if problems := scenarios.Check(sc.Expected, res); len(problems) > 0 {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", sc.Name)
			for _, p := range problems {
				fmt.Fprintf(out, "  %s\n", p)
			}
			continue
		}
		fmt.Fprintf(out, "ok   %s (total %.3f MWh)\n", sc.Name, res.Summary.TotalMWh)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(files))
	}
	return nil
}
