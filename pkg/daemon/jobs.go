package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"backer-hq/backer/pkg/journal"
	"backer-hq/backer/pkg/notify"
	"backer-hq/backer/pkg/telemetry/logging"
	"backer-hq/backer/pkg/telemetry/tracing"
	"backer-hq/backer/pkg/vcs"
)

// CommitReport is the result of CommitNow.
type CommitReport struct {
	// Commit is nil when the commit was paused by pending conflicts.
	Commit *vcs.CommitRecord
	// Paused is set while an unresolved merge blocks commits.
	Paused bool
	// Push is nil when pushing is disabled or was not attempted.
	Push *vcs.PushResult
}

// CommitNow records every change in the working tree as one revision and
// pushes it when a remote is configured and pushing is enabled.
//
// Pending merge conflicts pause the commit; that is reported in the result,
// not as an error.
func (d *Daemon) CommitNow(ctx context.Context) (*CommitReport, error) {
	d.lane.Lock()
	defer d.lane.Unlock()

	rec, err := d.commit(ctx)
	if errors.Is(err, vcs.ErrConflictPending) {
		return &CommitReport{Paused: true}, nil
	}
	if err != nil {
		return nil, err
	}

	report := &CommitReport{Commit: rec}
	if d.pushEnabled() {
		// The commit stands whatever the push outcome.
		report.Push, err = d.push(ctx)
	}
	return report, err
}

// PushNow pushes the tracked branch.
func (d *Daemon) PushNow(ctx context.Context) (*vcs.PushResult, error) {
	d.lane.Lock()
	defer d.lane.Unlock()

	return d.push(ctx)
}

// SyncNow snapshots uncommitted changes, then fetches and merges the remote
// branch.
func (d *Daemon) SyncNow(ctx context.Context) (*vcs.SyncResult, error) {
	d.lane.Lock()
	defer d.lane.Unlock()

	return d.sync(ctx)
}

// attempt is the bookkeeping shared by every job run.
type attempt struct {
	id    string
	job   string
	ctx   context.Context
	span  trace.Span
	start time.Time
}

func (d *Daemon) begin(ctx context.Context, job string) *attempt {
	id := uuid.NewString()
	ctx = logging.WithAttemptID(ctx, id)
	ctx = logging.WithJob(ctx, job)
	ctx, span := d.tracer.Start(ctx, "backer."+job)
	tracing.SetRepositoryAttributes(span, d.cfg.Watch.Path, d.cfg.Remote.Branch)

	return &attempt{id: id, job: job, ctx: ctx, span: span, start: d.clock.Now()}
}

func (a *attempt) elapsed(d *Daemon) time.Duration {
	return d.clock.Since(a.start)
}

// finish closes the span and records the attempt. err is nil for expected
// outcomes.
func (d *Daemon) finish(a *attempt, outcome, revision, detail string, err error) {
	tracing.SetStatus(a.span, err)
	a.span.End()
	d.tracker.Record(a.job, err)

	if d.journal == nil {
		return
	}
	entry := journal.Entry{
		ID:       a.id,
		Kind:     journal.Kind(a.job),
		Outcome:  outcome,
		Revision: revision,
		Detail:   detail,
		Started:  a.start,
		Finished: d.clock.Now(),
	}
	if err != nil {
		entry.Error = logging.RedactString(err.Error())
	}
	if _, jerr := d.journal.Record(context.WithoutCancel(a.ctx), entry); jerr != nil {
		d.logger.WarnContext(a.ctx, "Failed to record journal entry", "error", jerr)
	}
}

// fail reports a failed attempt to the log and the notifier.
func (d *Daemon) fail(a *attempt, err error) {
	d.logger.ErrorContext(a.ctx, "Attempt failed", "job", a.job, "error", err)
	d.notify(a.ctx, fmt.Sprintf("%s failed: %v", a.job, err))
}

// notify sends body and logs delivery failures; the job never depends on it.
func (d *Daemon) notify(ctx context.Context, body string) {
	body = logging.RedactString(body)
	if err := d.notifier.Notify(notify.DefaultTitle, body, d.cfg.Notify.Timeout); err != nil {
		d.logger.WarnContext(ctx, "Failed to send notification", "error", err)
	}
}

// networkContext applies sync.timeout to a fetch or push.
func (d *Daemon) networkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.Sync.Timeout > 0 {
		return context.WithTimeout(ctx, d.cfg.Sync.Timeout)
	}
	return ctx, func() {}
}

// signature returns the commit author, resolving it from the repository
// configuration on first use.
func (d *Daemon) signature(repo *vcs.Repository) vcs.Signature {
	if d.author == (vcs.Signature{}) {
		d.author = repo.ConfiguredSignature(defaultSignature())
	}
	return d.author
}

// label turns an outcome name into a metric label value.
func label(s string) string {
	return strings.ReplaceAll(s, "-", "_")
}

// commit runs one commit attempt. The caller holds the lane.
func (d *Daemon) commit(ctx context.Context) (*vcs.CommitRecord, error) {
	a := d.begin(ctx, JobCommit)

	repo, err := d.open()
	if err != nil {
		return nil, d.commitFailed(a, err)
	}

	rec, err := repo.Commit(d.cfg.Commit.Message, d.signature(repo))
	switch {
	case errors.Is(err, vcs.ErrConflictPending):
		d.collector.RecordCommit("conflict_pending", a.elapsed(d))
		d.logger.WarnContext(a.ctx, "Merge conflicts are unresolved; skipping commit", "path", d.cfg.Watch.Path)
		d.notify(a.ctx, fmt.Sprintf("Backups of %s are paused until the merge conflicts are resolved", d.cfg.Watch.Path))
		d.finish(a, "conflict_pending", "", "", nil)
		return nil, err
	case err != nil:
		return nil, d.commitFailed(a, err)
	}

	d.collector.RecordCommit("committed", a.elapsed(d))
	tracing.SetCommitAttributes(a.span, rec)

	attrs := []any{"hash", rec.Hash.String(), "branch", rec.Branch}
	if rec.HasParent {
		attrs = append(attrs, "parent", rec.Parent.String())
	}
	if !rec.MergeHead.IsZero() {
		attrs = append(attrs, "merge_head", rec.MergeHead.String())
	}
	d.logger.InfoContext(a.ctx, "Committed changes", attrs...)

	d.finish(a, "committed", rec.Hash.String(), rec.Message, nil)
	return rec, nil
}

func (d *Daemon) commitFailed(a *attempt, err error) error {
	d.collector.RecordCommit("error", a.elapsed(d))
	d.fail(a, err)
	d.finish(a, "error", "", "", err)
	return err
}

// push runs one push attempt. The caller holds the lane.
func (d *Daemon) push(ctx context.Context) (*vcs.PushResult, error) {
	a := d.begin(ctx, JobPush)

	res, err := d.doPush(a)
	if err != nil {
		d.collector.RecordPush("error", a.elapsed(d))
		d.fail(a, err)
		d.finish(a, "error", "", "", err)
		return nil, err
	}

	outcome := label(res.Outcome.String())
	d.collector.RecordPush(outcome, a.elapsed(d))
	tracing.SetPushAttributes(a.span, res)

	switch res.Outcome {
	case vcs.PushRemoteMissing:
		d.logger.WarnContext(a.ctx, "Remote not found; changes are committed locally only", "remote", res.Remote)
		d.notify(a.ctx, fmt.Sprintf("No remote %q is configured; changes are kept locally", res.Remote))
	case vcs.PushUpToDate:
		d.logger.DebugContext(a.ctx, "Remote already up to date", "remote", res.Remote, "ref", res.Ref)
	default:
		d.logger.InfoContext(a.ctx, "Pushed", "remote", res.Remote, "ref", res.Ref, "head", res.Head.String())
	}

	d.finish(a, outcome, revision(res.Head), res.Remote+" "+res.Ref, nil)
	return res, nil
}

func (d *Daemon) doPush(a *attempt) (*vcs.PushResult, error) {
	repo, err := d.open()
	if err != nil {
		return nil, err
	}

	ctx, cancel := d.networkContext(a.ctx)
	defer cancel()

	return repo.Push(ctx, vcs.PushOptions{
		Remote:      d.cfg.Remote.Name,
		Branch:      d.cfg.Remote.Branch,
		Credentials: d.credentials,
		Progress:    d.progress,
	})
}

// sync runs one sync attempt. The caller holds the lane.
func (d *Daemon) sync(ctx context.Context) (*vcs.SyncResult, error) {
	a := d.begin(ctx, JobSync)

	res, err := d.doSync(a)
	if res != nil && res.Fetch != nil {
		d.collector.RecordFetched(res.Fetch.Stats.ObjectsReceived, res.Fetch.Stats.BytesReceived)
	}

	switch {
	case errors.Is(err, vcs.ErrConflictPending):
		d.collector.RecordSync(label(vcs.OutcomeConflicts.String()), a.elapsed(d))
		d.logger.WarnContext(a.ctx, "Merge conflicts are unresolved; fetched without merging")
		d.finish(a, "conflict_pending", "", "", nil)
		return res, nil
	case err != nil:
		d.collector.RecordSync("error", a.elapsed(d))
		d.fail(a, err)
		d.finish(a, "error", "", "", err)
		return res, err
	}

	merge := res.Merge
	outcome := label(merge.Outcome.String())
	d.collector.RecordSync(outcome, a.elapsed(d))
	tracing.SetSyncAttributes(a.span, res)

	logArgs := []any{
		"analysis", merge.Analysis.String(),
		"outcome", merge.Outcome.String(),
		"head", merge.Head.String(),
		"transfer", res.Fetch.Stats.String(),
	}
	detail := merge.Analysis.String()

	switch merge.Outcome {
	case vcs.OutcomeConflicts:
		paths := conflictPaths(merge.Conflicts)
		d.logger.WarnContext(a.ctx, "Merge left conflicts in the working tree", append(logArgs, "conflicts", paths)...)
		d.notify(a.ctx, fmt.Sprintf("Merge conflicts in %d file(s): %s. Resolve them to resume backups.",
			len(merge.Conflicts), strings.Join(paths, ", ")))
		detail = strings.Join(paths, ", ")
	case vcs.OutcomeNoOp:
		d.logger.DebugContext(a.ctx, "Already up to date", logArgs...)
	default:
		if merge.Analysis == vcs.AnalysisUnborn && !merge.Previous.IsZero() {
			d.logger.WarnContext(a.ctx, "Local history replaced by unrelated remote history",
				"previous", merge.Previous.String(), "head", merge.Head.String())
		}
		d.logger.InfoContext(a.ctx, "Synced with remote", logArgs...)
	}

	d.finish(a, outcome, revision(merge.Head), detail, nil)
	return res, nil
}

func (d *Daemon) doSync(a *attempt) (*vcs.SyncResult, error) {
	repo, err := d.open()
	if err != nil {
		return nil, err
	}

	// Snapshot local work so that a merge never overwrites it.
	clean, err := repo.IsClean()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}
	if !clean {
		if _, err := d.commit(a.ctx); err != nil && !errors.Is(err, vcs.ErrConflictPending) {
			return nil, fmt.Errorf("failed to snapshot changes before sync: %w", err)
		}
		if repo, err = d.open(); err != nil {
			return nil, err
		}
	}

	ctx, cancel := d.networkContext(a.ctx)
	defer cancel()

	return repo.Pull(ctx, vcs.PullOptions{
		FetchOptions: vcs.FetchOptions{
			Remote:      d.cfg.Remote.Name,
			Branch:      d.cfg.Remote.Branch,
			Credentials: d.credentials,
			Progress:    d.progress,
		},
		Signature: d.signature(repo),
	})
}

func conflictPaths(conflicts []vcs.Conflict) []string {
	paths := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		if c.SideFile != "" {
			paths = append(paths, c.Path+" (see "+c.SideFile+")")
			continue
		}
		paths = append(paths, c.Path)
	}
	return paths
}

func revision(h plumbing.Hash) string {
	if h.IsZero() {
		return ""
	}
	return h.String()
}
