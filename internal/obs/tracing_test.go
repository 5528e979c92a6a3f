package obs

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported tracing exporter")
}

func TestInitTracerNoneExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := InitTracer(context.Background(), TracingConfig{Exporter: "none", ServiceName: "voucher-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestTruncateSQL(t *testing.T) {
	long := make([]byte, maxStatementLen+10)
	for i := range long {
		long[i] = 'x'
	}
	require.Len(t, truncateSQL(string(long)), maxStatementLen+3)
	require.Equal(t, "SELECT 1", truncateSQL("SELECT 1"))
}

func TestPGXTracerEndsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var tracer PGXTracer
	ctx := tracer.TraceQueryStart(context.Background(), nil, pgxStart("select id from vouchers"))
	tracer.TraceQueryEnd(ctx, nil, pgxEnd())

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "pgx SELECT", ended[0].Name())
}

func pgxStart(sql string) pgx.TraceQueryStartData { return pgx.TraceQueryStartData{SQL: sql} }

func pgxEnd() pgx.TraceQueryEndData { return pgx.TraceQueryEndData{} }
