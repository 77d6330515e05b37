// Command ohsched runs and inspects a section's weekly schedule.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/arnavshah/oh-scheduler-go/internal/app"
	"github.com/arnavshah/oh-scheduler-go/internal/runner"
	"github.com/arnavshah/oh-scheduler-go/pkg/auth"
	"github.com/arnavshah/oh-scheduler-go/pkg/config"
	"github.com/arnavshah/oh-scheduler-go/pkg/logger"
	"github.com/arnavshah/oh-scheduler-go/pkg/report"
)

const usage = `Usage: ohsched [-config scheduler.yaml] <command> [args]

Commands:
  run            schedule, persist and notify the next week
  preview        solve the next week without saving anything
  weeks          list scheduled weeks
  show <week>    print a scheduled week
  keygen <name>  print an API key signed with API_MASTER_SECRET
`

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the section config")
	asJSON := flag.Bool("json", false, "print JSON instead of tables")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	config.LoadEnv()

	if err := run(flag.Arg(0), flag.Args()[1:], *configPath, *asJSON); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string, configPath string, asJSON bool) error {
	if cmd == "keygen" {
		if len(args) != 1 {
			return errors.New("keygen takes exactly one name")
		}
		cfg := config.FromEnv()
		if cfg.Auth.MasterSecret == "" {
			return errors.New("API_MASTER_SECRET not set")
		}
		key := auth.New(cfg.Auth).GenerateHMACKey(args[0])
		fmt.Printf("Generated Key for %s:\n%s\n", args[0], key)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	l, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	switch cmd {
	case "run", "preview":
		var out *runner.Outcome
		if cmd == "run" {
			out, err = a.Runner.RunWeek(ctx)
		} else {
			out, err = a.Runner.Preview(ctx)
		}
		if out != nil && out.Report != nil {
			if perr := printReport(out.Report, out, asJSON); perr != nil {
				return perr
			}
		}
		return err
	case "weeks":
		weeks, err := a.Runner.Weeks(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(weeks)
		}
		for _, w := range weeks {
			fmt.Println(w)
		}
		return nil
	case "show":
		if len(args) != 1 {
			return errors.New("show takes a week number")
		}
		week, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid week %q", args[0])
		}
		sum, err := a.Runner.Week(ctx, week)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(sum)
		}
		fmt.Printf("Week %d: %d staff, %d weeks remaining\n", sum.Week, sum.StaffCount, sum.WeeksRemaining)
		if sum.Report == nil {
			fmt.Println("not scheduled yet")
			return nil
		}
		return sum.Report.WriteText(os.Stdout)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printReport(rep *report.Report, out *runner.Outcome, asJSON bool) error {
	if asJSON {
		return printJSON(out)
	}
	if out.DryRun {
		fmt.Println("Preview, nothing was saved.")
	} else {
		fmt.Printf("Run %s saved weeks %v and notified %d staff.\n", out.RunID, out.Written, out.Notified)
	}
	return rep.WriteText(os.Stdout)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
