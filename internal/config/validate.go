package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "jobs.kind").
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over a loaded App. It does not mutate app.
// Callers decide whether warnings are fatal.
func Validate(app App) []Issue {
	var issues []Issue

	if strings.TrimSpace(app.DataDir) == "" {
		issues = append(issues, errorAt("data_dir", "data_dir must not be empty"))
	}
	issues = append(issues, validateServer(app.Server)...)
	issues = append(issues, validateJobs(app)...)
	issues = append(issues, validateMetrics(app.Metrics)...)
	issues = append(issues, validateWarehouse(app.Warehouse)...)

	if app.Runtime.Workers < 1 {
		issues = append(issues, errorAt("runtime.workers", "runtime.workers must be >= 1"))
	}
	if len(app.Kafka.Brokers) > 0 && strings.TrimSpace(app.Kafka.Topic) == "" {
		issues = append(issues, errorAt("kafka.topic", "kafka.topic is required when kafka.brokers is set"))
	}
	issues = append(issues, validateRetention(app.Retention)...)
	return issues
}

func validateServer(s Server) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Addr) == "" {
		issues = append(issues, errorAt("server.addr", "server.addr must not be empty"))
	}
	switch {
	case s.UploadRate < 0:
		issues = append(issues, errorAt("server.upload_rate", "server.upload_rate must be >= 0"))
	case s.UploadRate == 0:
		issues = append(issues, warningAt("server.upload_rate", "upload rate limiting is disabled"))
	case s.UploadBurst < 1:
		issues = append(issues, errorAt("server.upload_burst", "server.upload_burst must be >= 1 when rate limiting is enabled"))
	}
	if s.MaxUploadMB <= 0 {
		issues = append(issues, errorAt("server.max_upload_mb", "server.max_upload_mb must be > 0"))
	}
	return issues
}

func validateJobs(app App) []Issue {
	switch app.Jobs.Kind {
	case "sqlite":
		return nil
	case "memory":
		return []Issue{warningAt("jobs.kind", "memory job store loses job status on restart")}
	case "redis":
		if strings.TrimSpace(app.Redis.Addr) == "" {
			return []Issue{errorAt("redis.addr", "redis.addr is required when jobs.kind is redis")}
		}
		return nil
	}
	return []Issue{errorAt("jobs.kind", fmt.Sprintf("unknown jobs.kind %q; want sqlite, redis or memory", app.Jobs.Kind))}
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
		return nil
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			return []Issue{errorAt("metrics.pushgateway_url", "pushgateway backend requires metrics.pushgateway_url")}
		}
		return nil
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			return []Issue{errorAt("metrics.datadog_addr", "datadog backend requires metrics.datadog_addr")}
		}
		return nil
	}
	return []Issue{errorAt("metrics.backend", fmt.Sprintf("unknown metrics.backend %q", m.Backend))}
}

var knownWarehouses = map[string]struct{}{
	"postgres": {}, "sqlite": {}, "mssql": {}, "mysql": {},
}

func validateWarehouse(w Warehouse) []Issue {
	if w.Kind == "" {
		return nil
	}
	var issues []Issue
	if _, ok := knownWarehouses[w.Kind]; !ok {
		issues = append(issues, warningAt("warehouse.kind",
			fmt.Sprintf("unknown warehouse kind %q; ensure a matching backend is registered", w.Kind)))
	}
	if strings.TrimSpace(w.DSN) == "" {
		issues = append(issues, errorAt("warehouse.dsn", "warehouse.dsn is required when warehouse.kind is set"))
	}
	if strings.TrimSpace(w.Table) == "" {
		issues = append(issues, errorAt("warehouse.table", "warehouse.table is required when warehouse.kind is set"))
	}
	if w.BatchSize < 0 {
		issues = append(issues, errorAt("warehouse.batch_size", "warehouse.batch_size must be >= 0"))
	}
	return issues
}

func validateRetention(r Retention) []Issue {
	if r.MaxAge <= 0 {
		return []Issue{warningAt("retention.max_age", "retention sweeper is disabled")}
	}
	if _, err := cron.ParseStandard(r.Schedule); err != nil {
		return []Issue{errorAt("retention.schedule", fmt.Sprintf("invalid cron schedule %q: %v", r.Schedule, err))}
	}
	return nil
}

func errorAt(path, msg string) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: msg}
}

func warningAt(path, msg string) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: msg}
}
