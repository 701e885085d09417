// Package orchestrator implements the C5 component: it drives the
// detect -> parse -> validate -> normalize -> persist pipeline for a single
// file or a batch of files, tracks per-file and per-batch status, and
// retries transient store failures with backoff. Mirrors the staged,
// status-reporting shape of the teacher's pkg/core/pipeline orchestrator,
// rebuilt around the Dialect-A/Dialect-B ingestion domain instead of SEC
// filings.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finagent/pkg/apperr"
	"finagent/pkg/config"
	"finagent/pkg/core/dialect"
	"finagent/pkg/core/normalize"
	"finagent/pkg/core/store"
	"finagent/pkg/core/validate"
	"finagent/pkg/model"
)

func newBatchID() string {
	return "batch_" + uuid.NewString()
}

// Status is a file or batch lifecycle state.
type Status string

const (
	StatusPending            Status = "Pending"
	StatusProcessing         Status = "Processing"
	StatusCompleted          Status = "Completed"
	StatusFailed             Status = "Failed"
	StatusPartiallyCompleted Status = "PartiallyCompleted"
)

// FileResult is the outcome of ingest_file for one input file.
type FileResult struct {
	Path             string         `json:"path"`
	Status           Status         `json:"status"`
	RecordsProcessed int            `json:"records_processed"`
	RecordsCreated   int            `json:"records_created"`
	RecordsUpdated   int            `json:"records_updated"`
	ValidationResult []ValidationRow `json:"validation_result"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	Duration         time.Duration  `json:"duration"`
}

// ValidationRow reports one candidate's quality score and issues within a
// FileResult, distinguishing per-record outcomes from whole-file failure.
type ValidationRow struct {
	PeriodStart  string        `json:"period_start"`
	PeriodEnd    string        `json:"period_end"`
	QualityScore float64       `json:"quality_score"`
	Issues       []model.Issue `json:"issues"`
	Accepted     bool          `json:"accepted"`
}

// BatchResult is the outcome of ingest_batch.
type BatchResult struct {
	BatchID string       `json:"batch_id"`
	Status  Status       `json:"status"`
	Files   []FileResult `json:"files"`
}

// AuditEntry is one in-memory record per batch step, kept by the
// Orchestrator and returned by History; it is not written to the
// ingestion_audit table.
type AuditEntry struct {
	BatchID     string
	File        string
	Phase       string
	StartedAt   time.Time
	EndedAt     time.Time
	Outcome     string
	IssueSummary string
}

// Orchestrator drives ingestion end to end and keeps in-memory batch status
// for the status(batch_id) query. Batch state lives in memory only —
// restart loses in-flight batch bookkeeping, which is acceptable since the
// store itself is the durable record of what was actually persisted.
type Orchestrator struct {
	store  *store.Store
	cfg    *config.Config
	log    *zap.Logger
	nowFn  func() time.Time

	mu      chan struct{} // binary mutex guarding batches
	batches map[string]*BatchResult
	audit   []AuditEntry
}

// New builds an Orchestrator. log may be nil, in which case a no-op logger
// is used (useful in tests that don't care about log output).
func New(st *store.Store, cfg *config.Config, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:   st,
		cfg:     cfg,
		log:     log,
		nowFn:   time.Now,
		mu:      make(chan struct{}, 1),
		batches: make(map[string]*BatchResult),
	}
}

func (o *Orchestrator) lock()   { o.mu <- struct{}{} }
func (o *Orchestrator) unlock() { <-o.mu }

// IngestFile implements ingest_file: read, detect, parse, validate per
// candidate, normalize, and persist. Individual candidate failures are
// recorded in ValidationResult/Accepted without aborting the rest of the
// file (partial success).
func (o *Orchestrator) IngestFile(ctx context.Context, path string) FileResult {
	start := o.nowFn()
	result := FileResult{Path: path, Status: StatusProcessing}

	raw, err := os.ReadFile(path)
	if err != nil {
		result.Status = StatusFailed
		result.ErrorMessage = err.Error()
		result.Duration = o.nowFn().Sub(start)
		return result
	}

	kind, root, err := dialect.Detect(raw)
	if err != nil {
		result.Status = StatusFailed
		result.ErrorMessage = err.Error()
		result.Duration = o.nowFn().Sub(start)
		return result
	}

	var parsed dialect.ParseResult
	switch kind {
	case dialect.KindDialectA:
		parsed = dialect.ParseA(root)
	case dialect.KindDialectB:
		parsed = dialect.ParseB(root)
	}

	now := o.nowFn()
	anyAccepted := false
	anyRejected := false

	for _, c := range parsed.Candidates {
		c.Issues = append(c.Issues, parsed.Issues...)

		vr := validate.Validate(c, now, nil)
		row := ValidationRow{
			PeriodStart:  c.PeriodStart.Format("2006-01-02"),
			PeriodEnd:    c.PeriodEnd.Format("2006-01-02"),
			QualityScore: vr.QualityScore,
			Issues:       vr.Issues,
			Accepted:     vr.IsValid,
		}

		if !vr.IsValid {
			anyRejected = true
			result.ValidationResult = append(result.ValidationResult, row)
			continue
		}

		norm := normalize.FromCandidate(c, now)

		outcome, err := o.persistWithRetry(ctx, norm)
		if err != nil {
			row.Accepted = false
			row.Issues = append(row.Issues, model.Issue{
				Code: "PERSIST_FAILED", Severity: model.SeverityCritical, Message: err.Error(),
			})
			anyRejected = true
			result.ValidationResult = append(result.ValidationResult, row)
			continue
		}

		anyAccepted = true
		result.RecordsProcessed++
		if outcome.Outcome == store.OutcomeCreated {
			result.RecordsCreated++
		} else {
			result.RecordsUpdated++
		}
		row.Issues = append(row.Issues, outcome.ConflictIssues...)
		result.ValidationResult = append(result.ValidationResult, row)
	}

	switch {
	case anyAccepted && anyRejected:
		result.Status = StatusPartiallyCompleted
	case anyAccepted:
		result.Status = StatusCompleted
	case len(parsed.Candidates) == 0:
		result.Status = StatusCompleted
	default:
		result.Status = StatusFailed
		result.ErrorMessage = "no candidates were accepted"
	}

	result.Duration = o.nowFn().Sub(start)
	return result
}

// persistWithRetry retries UpsertRecord with exponential backoff, but only
// when the failure is a StoreTransientError — parse and validation
// failures never reach here, and other store error kinds are not
// transient by definition.
func (o *Orchestrator) persistWithRetry(ctx context.Context, norm normalize.Normalized) (*store.UpsertResult, error) {
	base := o.cfg.IngestBackoffBase()
	maxAttempts := o.cfg.IngestRetryMax
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	var lastErr error
	delay := base
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome, err := o.store.UpsertRecord(ctx, norm.Record, norm.Accounts, norm.Values, o.cfg.SourcePriority)
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if apperr.KindOf(err) != apperr.KindStoreTransient {
			return nil, err
		}

		o.log.Warn("transient store error, retrying",
			zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}

// IngestBatch implements ingest_batch: runs IngestFile over every path with
// a bounded worker pool, then classifies batch status. A per-file failure
// never aborts the rest of the batch.
func (o *Orchestrator) IngestBatch(ctx context.Context, paths []string) *BatchResult {
	batchID := newBatchID()
	result := &BatchResult{BatchID: batchID, Status: StatusProcessing}

	o.lock()
	o.batches[batchID] = result
	o.unlock()

	workers := o.cfg.IngestWorkers
	if workers <= 0 {
		workers = 4
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			started := o.nowFn()
			fr := o.IngestFile(gctx, p)
			results[i] = fr

			o.lock()
			o.audit = append(o.audit, AuditEntry{
				BatchID:      batchID,
				File:         p,
				Phase:        "ingest_file",
				StartedAt:    started,
				EndedAt:      o.nowFn(),
				Outcome:      string(fr.Status),
				IssueSummary: summarizeIssues(fr),
			})
			o.unlock()
			return nil // per-file failures never abort the batch
		})
	}
	_ = g.Wait()

	completed, failed := 0, 0
	for _, fr := range results {
		switch fr.Status {
		case StatusCompleted, StatusPartiallyCompleted:
			completed++
		default:
			failed++
		}
	}

	switch {
	case failed == 0:
		result.Status = StatusCompleted
	case completed == 0:
		result.Status = StatusFailed
	default:
		result.Status = StatusPartiallyCompleted
	}
	result.Files = results

	o.lock()
	o.batches[batchID] = result
	o.unlock()

	return result
}

// IngestBatchAsync implements ingest_batch_async: enqueues the batch on a
// background goroutine and returns its id immediately; status(batch_id)
// polls for completion.
func (o *Orchestrator) IngestBatchAsync(ctx context.Context, paths []string) string {
	batchID := newBatchID()
	placeholder := &BatchResult{BatchID: batchID, Status: StatusPending}

	o.lock()
	o.batches[batchID] = placeholder
	o.unlock()

	go func() {
		workers := o.cfg.IngestWorkers
		if workers <= 0 {
			workers = 4
		}
		results := make([]FileResult, len(paths))
		g, gctx := errgroup.WithContext(context.Background())
		g.SetLimit(workers)
		for i, p := range paths {
			i, p := i, p
			g.Go(func() error {
				results[i] = o.IngestFile(gctx, p)
				return nil
			})
		}
		_ = g.Wait()

		completed, failed := 0, 0
		for _, fr := range results {
			if fr.Status == StatusCompleted || fr.Status == StatusPartiallyCompleted {
				completed++
			} else {
				failed++
			}
		}
		final := StatusCompleted
		switch {
		case completed == 0:
			final = StatusFailed
		case failed > 0:
			final = StatusPartiallyCompleted
		}

		o.lock()
		o.batches[batchID] = &BatchResult{BatchID: batchID, Status: final, Files: results}
		o.unlock()
	}()

	return batchID
}

// Status implements status(batch_id?): looks up a previously submitted
// batch's current state.
func (o *Orchestrator) Status(batchID string) (*BatchResult, error) {
	o.lock()
	defer o.unlock()
	br, ok := o.batches[batchID]
	if !ok {
		return nil, apperr.DataNotFound("batch %q not found", batchID)
	}
	return br, nil
}

// History returns every audit entry recorded across all batches/files
// processed by this Orchestrator instance, oldest first.
func (o *Orchestrator) History() []AuditEntry {
	o.lock()
	defer o.unlock()
	out := make([]AuditEntry, len(o.audit))
	copy(out, o.audit)
	return out
}

func summarizeIssues(fr FileResult) string {
	var critical, errs, warns int
	for _, row := range fr.ValidationResult {
		for _, is := range row.Issues {
			switch is.Severity {
			case model.SeverityCritical:
				critical++
			case model.SeverityError:
				errs++
			case model.SeverityWarning:
				warns++
			}
		}
	}
	return fmt.Sprintf("critical=%d error=%d warning=%d", critical, errs, warns)
}
