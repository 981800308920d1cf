package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/notifier/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance reports on background jobs. A job that keeps failing is down;
// one that has not run within maxAge is degraded.
func Maintenance(runs func() []monitoring.JobRun, maxAge time.Duration, now func() time.Time) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}
	if now == nil {
		now = time.Now
	}

	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		if runs == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}
		jobs := runs()
		if len(jobs) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance jobs registered"}
		}

		status := monitoring.StatusUp
		var problems []string
		for _, job := range jobs {
			switch {
			case job.Runs == 0:
				problems = append(problems, job.Job+": pending first run")
			case job.ConsecutiveFailures > 0:
				status = monitoring.WorstStatus(status, monitoring.StatusDown)
				problems = append(problems, job.Job+": "+job.LastError)
			case now().Sub(job.LastRunAt) > maxAge:
				status = monitoring.WorstStatus(status, monitoring.StatusDegraded)
				problems = append(problems, job.Job+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
	})
}
