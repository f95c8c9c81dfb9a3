package tracing

import (
	"context"
	"errors"
	"testing"

	"backer-hq/backer/pkg/config"
	"backer-hq/backer/pkg/vcs"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T, sampler string) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := New(&config.TracingConfig{
		Enabled:     true,
		Sampler:     sampler,
		SampleRatio: 1,
		ServiceName: "backer-test",
	}, WithExporter(exporter), WithSyncExport(), WithVersion("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exporter
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	disabled, err := New(&config.TracingConfig{})
	require.NoError(t, err)
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.Shutdown(context.Background()))

	ctx, span := disabled.Start(context.Background(), "noop")
	span.End()
	assert.Empty(t, TraceID(ctx))

	_, err = New(&config.TracingConfig{Enabled: true, Sampler: "sometimes"}, WithExporter(tracetest.NewNoopExporter()))
	assert.Error(t, err)

	// The OTLP exporter connects lazily.
	otlp, err := New(&config.TracingConfig{Enabled: true, Endpoint: "127.0.0.1:4317", Insecure: true, ServiceName: "backer"})
	require.NoError(t, err)
	assert.True(t, otlp.Enabled())
	assert.NoError(t, otlp.Shutdown(context.Background()))
}

func TestTracer_RecordsSpans(t *testing.T) {
	tracer, exporter := newRecordingTracer(t, SamplerAlways)

	ctx, span := tracer.Start(context.Background(), "vcs.commit")
	assert.NotEmpty(t, TraceID(ctx))
	SetRepositoryAttributes(span, "/data", "master")
	SetCommitAttributes(span, &vcs.CommitRecord{
		Hash:      plumbing.NewHash("1111111111111111111111111111111111111111"),
		Parent:    plumbing.NewHash("2222222222222222222222222222222222222222"),
		HasParent: true,
	})
	SetStatus(span, nil)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "vcs.commit", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	attrs := attrMap(spans[0].Attributes)
	assert.Equal(t, "/data", attrs[AttrRepository].AsString())
	assert.Equal(t, "master", attrs[AttrBranch].AsString())
	assert.Equal(t, "1111111111111111111111111111111111111111", attrs[AttrRevision].AsString())
	assert.Equal(t, "2222222222222222222222222222222222222222", attrs[AttrParent].AsString())
}

func TestTracer_SyncAndPushAttributes(t *testing.T) {
	tracer, exporter := newRecordingTracer(t, SamplerAlways)

	_, span := tracer.Start(context.Background(), "vcs.pull")
	SetSyncAttributes(span, &vcs.SyncResult{
		Fetch: &vcs.FetchResult{Remote: "origin", Stats: vcs.TransferStats{ObjectsReceived: 6, BytesReceived: 512}},
		Merge: &vcs.MergeResult{
			Analysis:  vcs.AnalysisNormal,
			Outcome:   vcs.OutcomeConflicts,
			Conflicts: []vcs.Conflict{{Path: "a.txt", Reason: "content"}},
		},
	})
	SetStatus(span, errors.New("boom"))
	span.End()

	_, span = tracer.Start(context.Background(), "vcs.push")
	SetPushAttributes(span, &vcs.PushResult{Remote: "origin", Outcome: vcs.PushRemoteMissing})
	SetSyncAttributes(span, nil)
	SetPushAttributes(span, nil)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	pull := attrMap(spans[0].Attributes)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "normal", pull[AttrAnalysis].AsString())
	assert.Equal(t, "conflicts", pull[AttrOutcome].AsString())
	assert.Equal(t, int64(1), pull[AttrConflicts].AsInt64())
	assert.Equal(t, int64(6), pull[AttrObjectsReceived].AsInt64())
	assert.Len(t, spans[0].Events, 1)

	push := attrMap(spans[1].Attributes)
	assert.Equal(t, "remote-missing", push[AttrPushOutcome].AsString())
}

func TestTracer_NeverSampler(t *testing.T) {
	tracer, exporter := newRecordingTracer(t, SamplerNever)

	_, span := tracer.Start(context.Background(), "vcs.commit")
	span.End()
	assert.Empty(t, exporter.GetSpans())
}
