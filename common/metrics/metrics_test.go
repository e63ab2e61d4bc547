package metrics

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMock_IgnoresRecords(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.Database.RecordQuery(ctx, "select", "applications", time.Millisecond, nil)
		m.Messaging.RecordPublish(ctx, "nats", "admissions.application.submitted", time.Millisecond, errors.New("down"))
		m.Health.RecordDependencyCheck(ctx, "postgres", time.Millisecond, nil)
	})
}

func TestDatabaseMetrics_RecordQuery(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")

	dm, err := NewDatabaseMetrics(meter)
	require.NoError(t, err)

	ctx := context.Background()
	dm.RecordQuery(ctx, "insert", "applications", 3*time.Millisecond, nil)
	dm.RecordQuery(ctx, "insert", "applications", 3*time.Millisecond, errors.New("duplicate key"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["db.query.duration"])
	assert.True(t, names["db.query.errors"])
}

func TestNew_RegistersAllCollectors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	m, err := New(context.Background(), "admissions-service-test", logger)
	require.NoError(t, err)
	assert.NotNil(t, m.Runtime)
	assert.NotNil(t, m.Database)
	assert.NotNil(t, m.Messaging)
	assert.NotNil(t, m.Health)
}
