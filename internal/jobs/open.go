package jobs

import (
	"context"
	"fmt"
	"log"

	"musicetl/internal/config"
)

// Open builds the Tracker selected by app.Jobs.Kind and, when Kafka brokers
// are configured, wraps it with Publishing.
func Open(ctx context.Context, app config.App) (Tracker, error) {
	var (
		t   Tracker
		err error
	)
	switch app.Jobs.Kind {
	case "memory":
		t = NewMemory()
	case "redis":
		t, err = NewRedis(ctx, RedisOptions{Addr: app.Redis.Addr, Password: app.Redis.Password, DB: app.Redis.DB})
	case "sqlite", "":
		t, err = OpenSQLite(ctx, app.JobsDSN())
	default:
		return nil, fmt.Errorf("jobs: unsupported jobs.kind=%s", app.Jobs.Kind)
	}
	if err != nil {
		return nil, err
	}
	if len(app.Kafka.Brokers) > 0 {
		log.Printf("jobs: publishing events to kafka topic=%s brokers=%v", app.Kafka.Topic, app.Kafka.Brokers)
		t = NewPublishing(t, NewKafkaWriter(app.Kafka.Brokers, app.Kafka.Topic))
	}
	return t, nil
}
