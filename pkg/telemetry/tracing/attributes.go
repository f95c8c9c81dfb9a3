package tracing

import (
	"backer-hq/backer/pkg/vcs"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for repository jobs.
const (
	AttrRepository = "backer.repository"
	AttrBranch     = "backer.branch"
	AttrRemote     = "backer.remote"
	AttrRevision   = "backer.revision"
	AttrParent     = "backer.parent"

	AttrAnalysis  = "backer.merge.analysis"
	AttrOutcome   = "backer.merge.outcome"
	AttrConflicts = "backer.merge.conflicts"

	AttrObjectsReceived = "backer.fetch.objects_received"
	AttrBytesReceived   = "backer.fetch.bytes_received"
	AttrRemoteEmpty     = "backer.fetch.remote_empty"

	AttrPushOutcome = "backer.push.outcome"
)

// SetRepositoryAttributes identifies the repository a span works on.
func SetRepositoryAttributes(span trace.Span, path, branch string) {
	span.SetAttributes(
		attribute.String(AttrRepository, path),
		attribute.String(AttrBranch, branch),
	)
}

// SetCommitAttributes describes a recorded commit.
func SetCommitAttributes(span trace.Span, rec *vcs.CommitRecord) {
	if rec == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(AttrRevision, rec.Hash.String())}
	if rec.HasParent {
		attrs = append(attrs, attribute.String(AttrParent, rec.Parent.String()))
	}
	span.SetAttributes(attrs...)
}

// SetSyncAttributes describes a pull.
func SetSyncAttributes(span trace.Span, res *vcs.SyncResult) {
	if res == nil {
		return
	}
	if f := res.Fetch; f != nil {
		span.SetAttributes(
			attribute.String(AttrRemote, f.Remote),
			attribute.Bool(AttrRemoteEmpty, f.RemoteEmpty),
			attribute.Int(AttrObjectsReceived, f.Stats.ObjectsReceived),
			attribute.Int64(AttrBytesReceived, f.Stats.BytesReceived),
		)
	}
	if m := res.Merge; m != nil {
		span.SetAttributes(
			attribute.String(AttrAnalysis, m.Analysis.String()),
			attribute.String(AttrOutcome, m.Outcome.String()),
			attribute.Int(AttrConflicts, len(m.Conflicts)),
			attribute.String(AttrRevision, m.Head.String()),
		)
	}
}

// SetPushAttributes describes a push.
func SetPushAttributes(span trace.Span, res *vcs.PushResult) {
	if res == nil {
		return
	}
	span.SetAttributes(
		attribute.String(AttrRemote, res.Remote),
		attribute.String(AttrPushOutcome, res.Outcome.String()),
		attribute.String(AttrRevision, res.Head.String()),
	)
}
