// Package monitoring evaluates the health of the notifier's dependencies.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/iter"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

const defaultProbeTimeout = 3 * time.Second

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Check is a single named dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// NewCheck constructs a check; a nil probe always reports down.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager runs the registered probes.
type HealthManager struct {
	checks  []Check
	timeout time.Duration
}

// NewHealthManager constructs a manager whose probes share timeout.
func NewHealthManager(timeout time.Duration) *HealthManager {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HealthManager{timeout: timeout}
}

// Register appends probes, ignoring unnamed ones.
func (m *HealthManager) Register(checks ...Check) {
	for _, check := range checks {
		if check.Name == "" {
			continue
		}
		m.checks = append(m.checks, check)
	}
}

// Evaluate runs every probe concurrently and folds the results into one report.
// The report keeps registration order.
func (m *HealthManager) Evaluate(ctx context.Context) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	results := iter.Map(m.checks, func(check *Check) ProbeResult {
		return runCheck(ctx, *check)
	})

	report := HealthReport{Success: true, Status: StatusUp, Checks: results}
	for _, result := range results {
		report.Status = WorstStatus(report.Status, result.Status)
	}
	report.Success = report.Status == StatusUp
	return report
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
	}()
	return check.Run(ctx)
}

// WorstStatus returns the more severe of two statuses.
func WorstStatus(current, candidate ProbeStatus) ProbeStatus {
	if current == StatusDown || candidate == StatusDown {
		return StatusDown
	}
	if current == StatusDegraded || candidate == StatusDegraded {
		return StatusDegraded
	}
	return StatusUp
}

// ResultFromError converts err into a result. Timeouts degrade, anything else is down.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	duration = max(duration, 0)
	if err == nil {
		return ProbeResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return ProbeResult{Component: component, Status: status, Details: err.Error(), Duration: duration}
}

// JobRun summarises the recent history of a background job.
type JobRun struct {
	Job                 string    `json:"job"`
	Runs                int       `json:"runs"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastError           string    `json:"last_error,omitempty"`
}
