package breach

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/loopboard/loopboard/internal/notify"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DefaultScanInterval is used when no interval or schedule is configured.
const DefaultScanInterval = time.Minute

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// DaemonOpts configures the scanner daemon.
type DaemonOpts struct {
	// Interval between sweeps. Ignored when Schedule is set.
	Interval time.Duration
	// Schedule is an optional 5-field cron expression driving sweeps.
	Schedule string
	// Notifiers receive each newly created alert. Best effort; a failed
	// notification is logged and never blocks the sweep.
	Notifiers []notify.Notifier
	Out       io.Writer
}

// RunDaemon sweeps for breaches until ctx is cancelled. Each sweep reads
// current wall-clock time once, so every deadline in one sweep is compared
// against the same instant.
func RunDaemon(ctx context.Context, db *gorm.DB, opts DaemonOpts) error {
	if db == nil {
		return fmt.Errorf("breach: db is required")
	}
	if opts.Schedule != "" {
		if _, err := cronParser.Parse(opts.Schedule); err != nil {
			return fmt.Errorf("breach: parse schedule %q: %w", opts.Schedule, err)
		}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultScanInterval
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Schedule != "" {
		fmt.Fprintf(opts.Out, "Breach scanner starting (schedule %q)...\n", opts.Schedule)
	} else {
		fmt.Fprintf(opts.Out, "Breach scanner starting (sweep every %s)...\n", opts.Interval)
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(opts.Out, "Breach scanner stopped.\n")
			return nil
		default:
		}

		result, err := Scan(db, time.Now())
		if err != nil {
			log.Printf("breach: sweep error: %v", err)
		} else if len(result.Created) > 0 {
			fmt.Fprintf(opts.Out, "Sweep: %d messages checked, %d alerts raised\n",
				result.Scanned, len(result.Created))
			dispatch(ctx, opts.Notifiers, result, opts.Out)
		}

		sleepWithContext(ctx, nextSweep(opts))
	}
}

// dispatch pushes each created alert through every notifier.
func dispatch(ctx context.Context, notifiers []notify.Notifier, result *ScanResult, out io.Writer) {
	for _, alert := range result.Created {
		fmt.Fprintf(out, "Alert: %s %s for message %d (agent %s)\n",
			alert.Severity, alert.AlertType, alert.MessageID, alert.AgentName)
		for _, n := range notifiers {
			if err := n.Notify(ctx, alert); err != nil {
				log.Printf("breach: notify %s for alert %d: %v", n.Name(), alert.ID, err)
			}
		}
	}
}

// nextSweep returns how long to wait before the next sweep.
func nextSweep(opts DaemonOpts) time.Duration {
	if opts.Schedule == "" {
		return opts.Interval
	}
	sched, err := cronParser.Parse(opts.Schedule)
	if err != nil {
		return opts.Interval
	}
	d := time.Until(sched.Next(time.Now()))
	if d < 0 {
		return 0
	}
	return d
}

// sleepWithContext sleeps for duration d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
