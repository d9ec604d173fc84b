package config

import (
	"testing"
	"time"
)

/*
validApp returns a configuration that passes Validate without issues.
*/
func validApp() App {
	return App{
		DataDir:   "data",
		Server:    Server{Addr: ":8000", UploadRate: 5, UploadBurst: 10, MaxUploadMB: 100},
		Jobs:      Jobs{Kind: "sqlite"},
		Metrics:   Metrics{Backend: "none"},
		Runtime:   Runtime{Workers: 2},
		Retention: Retention{Schedule: "@daily", MaxAge: time.Hour},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*App)
		wantPath string
		wantSev  IssueSeverity
	}{
		{"empty data dir", func(a *App) { a.DataDir = " " }, "data_dir", SeverityError},
		{"empty addr", func(a *App) { a.Server.Addr = "" }, "server.addr", SeverityError},
		{"negative rate", func(a *App) { a.Server.UploadRate = -1 }, "server.upload_rate", SeverityError},
		{"rate disabled", func(a *App) { a.Server.UploadRate = 0 }, "server.upload_rate", SeverityWarning},
		{"zero burst", func(a *App) { a.Server.UploadBurst = 0 }, "server.upload_burst", SeverityError},
		{"zero upload size", func(a *App) { a.Server.MaxUploadMB = 0 }, "server.max_upload_mb", SeverityError},
		{"unknown jobs kind", func(a *App) { a.Jobs.Kind = "etcd" }, "jobs.kind", SeverityError},
		{"memory jobs", func(a *App) { a.Jobs.Kind = "memory" }, "jobs.kind", SeverityWarning},
		{"redis without addr", func(a *App) { a.Jobs.Kind = "redis" }, "redis.addr", SeverityError},
		{"pushgateway without url", func(a *App) { a.Metrics.Backend = "pushgateway" }, "metrics.pushgateway_url", SeverityError},
		{"datadog without addr", func(a *App) { a.Metrics.Backend = "datadog" }, "metrics.datadog_addr", SeverityError},
		{"unknown metrics", func(a *App) { a.Metrics.Backend = "statsite" }, "metrics.backend", SeverityError},
		{"warehouse without dsn", func(a *App) { a.Warehouse = Warehouse{Kind: "postgres", Table: "t"} }, "warehouse.dsn", SeverityError},
		{"warehouse unknown kind", func(a *App) { a.Warehouse = Warehouse{Kind: "oracle", DSN: "x", Table: "t"} }, "warehouse.kind", SeverityWarning},
		{"zero workers", func(a *App) { a.Runtime.Workers = 0 }, "runtime.workers", SeverityError},
		{"kafka without topic", func(a *App) { a.Kafka.Brokers = []string{"k:9092"} }, "kafka.topic", SeverityError},
		{"bad schedule", func(a *App) { a.Retention.Schedule = "every day" }, "retention.schedule", SeverityError},
		{"retention disabled", func(a *App) { a.Retention.MaxAge = 0 }, "retention.max_age", SeverityWarning},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := validApp()
			tt.mutate(&app)
			issues := Validate(app)
			if len(issues) != 1 {
				t.Fatalf("issues = %v, want exactly one", issues)
			}
			if issues[0].Path != tt.wantPath || issues[0].Severity != tt.wantSev {
				t.Fatalf("issue = %+v, want %s at %s", issues[0], tt.wantSev, tt.wantPath)
			}
		})
	}
}

func TestValidate_Clean(t *testing.T) {
	t.Parallel()

	if issues := Validate(validApp()); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	got := Issue{Severity: SeverityError, Path: "jobs.kind", Message: "bad"}.Error()
	if got != "error at jobs.kind: bad" {
		t.Fatalf("Error() = %q", got)
	}
	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatal("warnings alone are not errors")
	}
}
