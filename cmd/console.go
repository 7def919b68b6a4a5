package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/kilianp07/loadchange/app"
	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/infra/logger"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive operator console",
	RunE:  runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

const consoleHelp = `commands:
  enter <start MW> <target MW> [HH:MM]   enter the base load change
  mode [3|4] [pause 429 min] [hold min]  pulverizer mode for the next enter
  append <target MW> <HH:MM> [hold min]  queue an override command
  hold [HH:MM|now] [MW]                  freeze the plan
  log <MW> [duration]                    journal a manual hold instruction
  reset                                  drop the plan
  status                                 live power and queue state
  report                                 milestones, copy text and energy
  export <file> [csv|json|html]          write the plan rows
  help                                   this text
  quit                                   leave the console`

// Console executes operator commands against a session.
type Console struct {
	session *engine.Session
	now     func() time.Time
	out     io.Writer
	// cfg overrides the session defaults on enter once set by mode.
	cfg *model.RampConfig
}

// NewConsole returns a console writing to out.
func NewConsole(s *engine.Session, now func() time.Time, out io.Writer) *Console {
	if now == nil {
		now = time.Now
	}
	return &Console{session: s, now: now, out: out}
}

// errQuit ends the console loop.
var errQuit = errors.New("quit")

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "enter":
		return c.enter(ctx, args)
	case "mode":
		return c.mode(args)
	case "append":
		return c.append(ctx, args)
	case "hold", "freeze":
		return c.hold(ctx, args)
	case "log":
		return c.logHold(ctx, args)
	case "reset":
		c.session.Reset(ctx)
		fmt.Fprintln(c.out, "plan cleared")
		return nil
	case "status":
		printStatus(c.out, c.session.Snapshot())
		return nil
	case "report":
		printReport(c.out, c.session.Snapshot())
		return nil
	case "export":
		if len(args) == 0 {
			return fmt.Errorf("usage: export <file> [format]")
		}
		format := ""
		if len(args) > 1 {
			format = args[1]
		}
		if err := exportPlan(args[0], format, c.session.Snapshot()); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "exported %s\n", args[0])
		return nil
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try 'help')", fields[0])
	}
}

func (c *Console) enter(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: enter <start MW> <target MW> [HH:MM]")
	}
	start, err := engine.ParsePower("start power", args[0])
	if err != nil {
		return err
	}
	target, err := engine.ParsePower("target power", args[1])
	if err != nil {
		return err
	}
	at := c.now()
	if len(args) > 2 {
		if at, err = engine.ParseClock(args[2], at); err != nil {
			return err
		}
	}
	snap, err := c.session.Enter(ctx, engine.EnterRequest{StartMW: start, TargetMW: target, At: at, Config: c.cfg})
	if err != nil {
		return err
	}
	printReport(c.out, snap)
	return nil
}

// mode selects the pulverizer mode and, for four stage operation, the pause
// minutes used by the following enter commands. "3 Puls" may be written with
// its space.
func (c *Console) mode(args []string) error {
	rc := c.session.Snapshot().Config
	if c.cfg != nil {
		rc = *c.cfg
	}
	if len(args) == 0 {
		fmt.Fprintf(c.out, "mode %s, pause 429 %d min, hold pause %d min\n", rc.PulverizerMode, rc.PauseTime429Min, rc.PauseTimeHoldMin)
		return nil
	}
	token, rest := args[0], args[1:]
	if len(rest) > 0 && strings.EqualFold(rest[0], "puls") {
		token, rest = token+" "+rest[0], rest[1:]
	}
	m, err := model.ParsePulverizerMode(token)
	if err != nil {
		return err
	}
	rc.PulverizerMode = m
	if len(rest) > 0 {
		if rc.PauseTime429Min, err = engine.ParseMinutes("pause 429 minutes", rest[0]); err != nil {
			return err
		}
	}
	if len(rest) > 1 {
		if rc.PauseTimeHoldMin, err = engine.ParseMinutes("hold pause minutes", rest[1]); err != nil {
			return err
		}
	}
	if err := rc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidInput, err)
	}
	c.cfg = &rc
	fmt.Fprintf(c.out, "mode %s, pause 429 %d min, hold pause %d min\n", rc.PulverizerMode, rc.PauseTime429Min, rc.PauseTimeHoldMin)
	return nil
}

func (c *Console) append(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: append <target MW> <HH:MM> [hold min]")
	}
	target, err := engine.ParsePower("target power", args[0])
	if err != nil {
		return err
	}
	at, err := engine.ParseClock(args[1], c.now())
	if err != nil {
		return err
	}
	var hold int
	if len(args) > 2 {
		if hold, err = engine.ParseMinutes("hold minutes", args[2]); err != nil {
			return err
		}
	}
	res, err := c.session.Append(ctx, engine.AppendRequest{TargetMW: target, At: at, HoldMinutes: hold})
	if err != nil {
		return err
	}
	if !res.Decision.Accepted {
		fmt.Fprintf(c.out, "deferred: %s\n", res.Decision.Message)
	}
	fmt.Fprintf(c.out, "> %s at %s\n", engine.CopyText(res.Command.StartPower, res.Command.TargetPower),
		res.Command.ScheduledStart.Format("15:04:05"))
	return nil
}

func (c *Console) hold(ctx context.Context, args []string) error {
	var req engine.HoldRequest
	if len(args) > 0 && args[0] != "now" {
		at, err := engine.ParseClock(args[0], c.now())
		if err != nil {
			return err
		}
		req.At = at
	}
	if len(args) > 1 {
		p, err := engine.ParsePower("hold power", args[1])
		if err != nil {
			return err
		}
		req.Power = &p
	}
	a, err := c.session.HoldNow(ctx, req)
	if err != nil {
		return err
	}
	if a.Snapped {
		fmt.Fprintf(c.out, "inside a hold window, anchored at its end\n")
	}
	fmt.Fprintf(c.out, "frozen at %s, %s MW\n", a.T.Format("15:04:05"), engine.FormatMW(a.Power))
	return nil
}

func (c *Console) logHold(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: log <MW> [duration]")
	}
	p, err := engine.ParsePower("holding load", args[0])
	if err != nil {
		return err
	}
	text, err := c.session.LogHold(ctx, p, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "> %s\n", text)
	return nil
}

// rlWriter keeps asynchronous output from clobbering the prompt.
type rlWriter struct {
	rl *readline.Instance
	w  io.Writer
}

func (w *rlWriter) Write(p []byte) (int, error) {
	w.rl.Clean()
	n, err := w.w.Write(p)
	w.rl.Refresh()
	return n, err
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("console").Errorf("service close: %v", err)
		}
	}()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "loadchange> ",
		HistoryFile: historyFile(),
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer func() { _ = rl.Close() }()
	out := &rlWriter{rl: rl, w: cmd.OutOrStdout()}

	events := svc.Bus().Subscribe()
	served := make(chan error, 1)
	go func() { served <- svc.Run(ctx) }()

	lines := make(chan string, 10)
	go readlineLoop(ctx, cancel, rl, lines)

	console := NewConsole(svc.Session, time.Now, out)
	fmt.Fprintln(out, "type 'help' for commands")
	for {
		select {
		case line := <-lines:
			if err := console.Exec(ctx, line); errors.Is(err, errQuit) {
				cancel()
			} else if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Kind == engine.EventAlarm {
				fmt.Fprintf(out, "ALARM %s: %s\n", ev.Time.Format("15:04:05"), ev.Text)
			}
		case <-ctx.Done():
			return <-served
		}
	}
}

// readlineLoop feeds non-empty lines to out until EOF or Ctrl+C.
func readlineLoop(ctx context.Context, cancel context.CancelFunc, rl *readline.Instance, out chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			cancel()
			return
		}
		if err != nil {
			cancel()
			return
		}
		line = strings.TrimSpace(line)
		if line != "" {
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "loadchange")
	_ = os.MkdirAll(dir, 0o750)
	return filepath.Join(dir, "history")
}
