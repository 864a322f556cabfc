// Command schedulectl inspects and edits a doctor's schedule through the
// schedule API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"medsched/internal/config"
	"medsched/internal/gateway"
	"medsched/internal/model"
	"medsched/internal/override"
	"medsched/internal/scheduling"
	"medsched/internal/weekly"
)

const usage = `usage: schedulectl [flags] <command> [args]

commands:
  ping               check that the schedule API answers
  show               weekly template
  resolve YYYY-MM-DD effective schedule of a date
  dates              dates with custom hours in the horizon
  horizon            effective schedule of every date in the horizon
  export FILE        write the horizon as an .xlsx file
  set-day DOW HOURS [SLOT] [BREAK...]
                     set and enable a weekday (DOW 0=Sunday..6=Saturday)
  hours DATE HOURS [SLOT] [BREAK...]
                     custom hours for one date
  block DATE [REASON...]
                     mark a date unavailable

HOURS and BREAK are HH:MM-HH:MM, SLOT is 15, 30, 45 or 60 minutes.
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		// a bare errUsage means the usage text was already printed
		if err != errUsage {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("schedulectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", os.Getenv("MEDSCHED_CONFIG_PATH"), "path to config.yaml")
	doctorID := fs.String("doctor", "", "doctor id (overrides doctor.id)")
	baseURL := fs.String("api", "", "schedule API base URL (overrides api.base_url)")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *doctorID != "" {
		cfg.Doctor.ID = *doctorID
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}
	if cfg.Doctor.ID == "" || cfg.API.BaseURL == "" {
		return errors.New("doctor id and api base url are required")
	}

	level := cfg.LogLevel()
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}

	client := gateway.NewClient(gateway.Options{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.API.APIKey,
		Token:             cfg.API.Token,
		DoctorID:          cfg.Doctor.ID,
		Timeout:           cfg.APITimeout(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Logger:            &logger,
	})
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "ping" {
		if err := client.HealthCheck(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil
	}

	svc := scheduling.NewService(scheduling.Options{
		Gateway:     client,
		Logger:      &logger,
		Location:    loc,
		HorizonDays: cfg.HorizonDays(),
	})
	if err := svc.Load(ctx); err != nil {
		return err
	}

	switch cmd {
	case "show":
		tpl, err := svc.Template()
		if err != nil {
			return err
		}
		printTemplate(stdout, tpl)
	case "resolve":
		if len(rest) != 1 {
			return fmt.Errorf("%w: resolve needs a date", errUsage)
		}
		date, err := model.ParseDate(rest[0])
		if err != nil {
			return err
		}
		eff, err := svc.Resolve(ctx, date)
		if err != nil {
			return err
		}
		printEffective(stdout, []model.EffectiveSchedule{eff})
	case "dates":
		for _, d := range svc.CustomizedDates().Dates() {
			fmt.Fprintln(stdout, d)
		}
	case "horizon":
		days, err := svc.EffectiveHorizon(ctx)
		if err != nil {
			return err
		}
		printEffective(stdout, days)
	case "export":
		if len(rest) != 1 {
			return fmt.Errorf("%w: export needs a file name", errUsage)
		}
		return exportFile(ctx, svc, rest[0])
	case "set-day":
		return setDay(ctx, svc, rest, stdout)
	case "hours":
		return setHours(ctx, svc, rest, stdout)
	case "block":
		return blockDate(ctx, svc, rest, stdout)
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return nil
}

func setDay(ctx context.Context, svc *scheduling.Service, args []string, w io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: set-day needs a weekday and hours", errUsage)
	}
	dow, err := strconv.Atoi(args[0])
	if err != nil || !model.ValidDay(dow) {
		return fmt.Errorf("%w: weekday must be 0..6, got %q", errUsage, args[0])
	}
	h, err := parseHours(args[1:])
	if err != nil {
		return err
	}

	err = svc.EditTemplate(func(t *weekly.Template) error {
		day, err := t.Day(dow)
		if err != nil {
			return err
		}
		if err := t.SetActive(dow, false); err != nil {
			return err
		}
		for i := len(day.BreakTimes) - 1; i >= 0; i-- {
			if err := t.RemoveBreak(dow, i); err != nil {
				return err
			}
		}
		if err := t.SetWindow(dow, h.start, h.end); err != nil {
			return err
		}
		if h.slot != 0 {
			if err := t.SetSlotDuration(dow, h.slot); err != nil {
				return err
			}
		}
		for _, b := range h.breaks {
			if err := t.AddBreak(dow, b); err != nil {
				return err
			}
		}
		return t.SetActive(dow, true)
	})
	if err != nil {
		return err
	}
	res, err := svc.SaveTemplate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, res.Message)
	return nil
}

func setHours(ctx context.Context, svc *scheduling.Service, args []string, w io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: hours needs a date and hours", errUsage)
	}
	date, err := model.ParseDate(args[0])
	if err != nil {
		return err
	}
	h, err := parseHours(args[1:])
	if err != nil {
		return err
	}
	return editOverride(ctx, svc, date, w, func(d *override.Draft) error {
		// Blocking first lifts the hour checks while the day is rebuilt.
		if err := d.SetAvailable(false); err != nil {
			return err
		}
		for i := len(d.Override().BreakTimes) - 1; i >= 0; i-- {
			if err := d.RemoveBreak(i); err != nil {
				return err
			}
		}
		if err := d.SetWindow(h.start, h.end); err != nil {
			return err
		}
		if h.slot != 0 {
			if err := d.SetSlotDuration(h.slot); err != nil {
				return err
			}
		}
		d.SetReason("")
		if err := d.SetAvailable(true); err != nil {
			return err
		}
		for _, b := range h.breaks {
			if err := d.AddBreak(b); err != nil {
				return err
			}
		}
		return nil
	})
}

func blockDate(ctx context.Context, svc *scheduling.Service, args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: block needs a date", errUsage)
	}
	date, err := model.ParseDate(args[0])
	if err != nil {
		return err
	}
	reason := strings.Join(args[1:], " ")
	return editOverride(ctx, svc, date, w, func(d *override.Draft) error {
		d.SetReason(reason)
		return d.SetAvailable(false)
	})
}

func editOverride(ctx context.Context, svc *scheduling.Service, date model.Date, w io.Writer, fn func(*override.Draft) error) error {
	if err := svc.OpenOverride(ctx, date); err != nil {
		return err
	}
	if err := svc.EditOverride(fn); err != nil {
		_ = svc.CloseOverride()
		return err
	}
	res, err := svc.SaveOverride(ctx)
	if err != nil {
		_ = svc.CloseOverride()
		return err
	}
	fmt.Fprintln(w, res.Message)
	if res.HasWarning() {
		fmt.Fprintln(w, "warning:", res.Warning)
	}
	return nil
}

type hours struct {
	start, end model.Clock
	slot       model.SlotDuration
	breaks     []model.BreakInterval
}

// parseHours reads "HH:MM-HH:MM [SLOT] [HH:MM-HH:MM...]".
func parseHours(args []string) (hours, error) {
	var h hours
	window, err := parseRange(args[0])
	if err != nil {
		return h, err
	}
	h.start, h.end = window.StartTime, window.EndTime

	rest := args[1:]
	if len(rest) > 0 && !strings.Contains(rest[0], ":") {
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return h, fmt.Errorf("%w: slot must be minutes, got %q", errUsage, rest[0])
		}
		h.slot = model.SlotDuration(n)
		rest = rest[1:]
	}
	for _, arg := range rest {
		b, err := parseRange(arg)
		if err != nil {
			return h, err
		}
		h.breaks = append(h.breaks, b)
	}
	return h, nil
}

func parseRange(s string) (model.BreakInterval, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return model.BreakInterval{}, fmt.Errorf("%w: expected HH:MM-HH:MM, got %q", errUsage, s)
	}
	start, err := model.ParseClock(from)
	if err != nil {
		return model.BreakInterval{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	end, err := model.ParseClock(to)
	if err != nil {
		return model.BreakInterval{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	return model.BreakInterval{StartTime: start, EndTime: end}, nil
}

func exportFile(ctx context.Context, svc *scheduling.Service, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := svc.ExportHorizon(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printTemplate(w io.Writer, tpl model.FullTemplate) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tACTIVE\tHOURS\tSLOT\tBREAKS")
	for _, d := range tpl.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s-%s\t%d\t%s\n",
			d.DayShort, yesNo(d.IsActive), d.StartTime, d.EndTime, int(d.SlotDuration), breaks(d.BreakTimes))
	}
	_ = tw.Flush()
}

func printEffective(w io.Writer, days []model.EffectiveSchedule) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSOURCE\tAVAILABLE\tHOURS\tSLOT\tBREAKS")
	for _, d := range days {
		if !d.IsAvailable {
			fmt.Fprintf(tw, "%s\t%s\tno\t-\t-\t-\n", d.Date, d.Source)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\tyes\t%s-%s\t%d\t%s\n",
			d.Date, d.Source, d.StartTime, d.EndTime, int(d.SlotDuration), breaks(d.BreakTimes))
	}
	_ = tw.Flush()
}

func breaks(list []model.BreakInterval) string {
	if len(list) == 0 {
		return "-"
	}
	parts := make([]string, len(list))
	for i, b := range list {
		parts[i] = b.String()
	}
	return strings.Join(parts, ",")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
