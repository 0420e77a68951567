package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"goa.design/clue/log"
)

func TestClueLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := newLogContext(&buf)

	NewClueLogger().Info(ctx, "stream started", "message_id", "m1")

	out := buf.String()
	require.Contains(t, out, `"msg":"stream started"`)
	require.Contains(t, out, `"message_id":"m1"`)
}

func TestClueLoggerErrorExtractsErr(t *testing.T) {
	var buf bytes.Buffer
	ctx := newLogContext(&buf)

	NewClueLogger().Error(ctx, "upstream failed", "err", errors.New("boom"), "items", 3)

	out := buf.String()
	require.Contains(t, out, "boom")
	require.Contains(t, out, `"items":3`)
}

func TestFieldersSkipsNonStringKeys(t *testing.T) {
	got := fielders("m", []any{1, "x", "k", "v", "dangling"})
	require.Equal(t, []log.Fielder{
		log.KV{K: "msg", V: "m"},
		log.KV{K: "k", V: "v"},
		log.KV{K: "dangling", V: nil},
	}, got)
}

func TestTagsToAttrs(t *testing.T) {
	got := tagsToAttrs([]string{"type", "text-delta", "odd"})
	require.Equal(t, []attribute.KeyValue{
		attribute.String("type", "text-delta"),
		attribute.String("odd", ""),
	}, got)
}

func TestKvSliceToAttrsFormatsUnknownTypes(t *testing.T) {
	got := kvSliceToAttrs([]any{"n", 2, "d", time.Second})
	require.Equal(t, []attribute.KeyValue{
		attribute.Int("n", 2),
		attribute.String("d", "1s"),
	}, got)
}

func TestClueMetricsCachesInstruments(t *testing.T) {
	m := NewClueMetrics().(*ClueMetrics)
	m.IncCounter("uistream.events", 1, "type", "start")
	m.IncCounter("uistream.events", 1, "type", "finish")
	m.RecordTimer("uistream.run.duration", time.Millisecond)
	require.Len(t, m.counters, 1)
	require.Len(t, m.histograms, 1)
}

func newLogContext(buf *bytes.Buffer) context.Context {
	return log.Context(context.Background(),
		log.WithOutput(buf),
		log.WithFormat(log.FormatJSON),
		log.WithDisableBuffering(func(context.Context) bool { return true }),
	)
}
