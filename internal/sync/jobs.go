package sync

import (
	"context"
	"time"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/notify"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/schedules"
	"github.com/nhle/ecotrack-console/internal/users"
)

// ReportsJob reloads the report cache.
func ReportsJob(m *reports.Manager, every time.Duration) Job {
	return Job{Name: JobReports, Interval: every, Run: m.Load}
}

// UsersJob reloads the user directory.
func UsersJob(d *users.Directory, every time.Duration) Job {
	return Job{Name: JobUsers, Interval: every, Run: d.Load}
}

// SchedulesJob reloads the collection schedule.
func SchedulesJob(b *schedules.Board, every time.Duration) Job {
	return Job{Name: JobSchedules, Interval: every, Run: b.Load}
}

// NotificationsJob refreshes the notification streams. Partial stream
// failures are absorbed by the aggregator; only an all-streams failure or
// an Unauthorized stream fails the run.
func NotificationsJob(a *notify.Aggregator, streams []notify.StreamSpec, every time.Duration) Job {
	return Job{
		Name:     JobNotifications,
		Interval: every,
		Run: func(ctx context.Context) error {
			_, err := a.Refresh(ctx, streams)
			return err
		},
	}
}

// Register adds the standard console jobs configured by cfg.
func Register(
	p *Poller,
	cfg model.SyncConfig,
	m *reports.Manager,
	a *notify.Aggregator,
	d *users.Directory,
	b *schedules.Board,
) {
	reportEvery := time.Duration(cfg.ReportIntervalSec) * time.Second
	p.Register(ReportsJob(m, reportEvery))
	p.Register(NotificationsJob(a, notify.StreamsFromConfig(cfg.Streams),
		time.Duration(cfg.NotificationIntervalSec)*time.Second))
	p.Register(UsersJob(d, reportEvery))
	p.Register(SchedulesJob(b, reportEvery))
}
