package loader

import (
	"context"
	"github.com/ValentinKolb/dLoad/lib/common"
	"time"
)

// IProgressSource is polled by Monitor. Pipeline implements it.
type IProgressSource interface {
	Progress() Progress
	Err() error
}

// Monitor polls src every interval and passes each snapshot to report.
// It returns nil after reporting 100 percent, the job failure once src
// reaches StateFailed, and ctx.Err() when ctx is cancelled. Monitor never
// influences the job it observes.
func Monitor(ctx context.Context, src IProgressSource, interval time.Duration, report func(Progress)) error {
	if interval <= 0 {
		interval = common.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		pr := src.Progress()
		if pr.State == StateFailed {
			if err := src.Err(); err != nil {
				return err
			}
			return common.NewError(common.ErrCUnknown, "load job failed")
		}

		report(pr)
		if pr.Percent >= 100 {
			return nil
		}
	}
}
