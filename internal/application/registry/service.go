package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"trackreg/internal/cachemanager"
	"trackreg/internal/ledger"
	"trackreg/internal/log"
	"trackreg/internal/runs/domain"
	"trackreg/internal/tracing"
)

// Service is the command surface of the run registry. It composes the path
// resolver, the dependency linker, and the repositories behind one facade;
// every CLI command maps to exactly one method.
//
// Mutations either complete fully or leave the registry unchanged. An
// upstream declared at registration is validated before the record is
// inserted; ledger imports run in a single transaction.
type Service struct {
	runs     domain.RunRepository
	imports  domain.ImportRepository
	resolver *domain.Resolver
	linker   *domain.Linker

	cache      cachemanager.CacheManager[string, []*domain.Run]
	lineage    *cachemanager.ReadThroughCache[string, []*domain.Run, int64]
	lineageTTL time.Duration
	skipCache  func() bool

	tracer trace.Tracer
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithTracer sets the tracer used to create operation spans.
// Without it the Service traces into a noop provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithLineageCache caches lineage chains in the given cache for ttl.
// skip is consulted on every lookup; returning true bypasses the cache,
// which lets config disable caching without rewiring the Service. The
// cache is flushed after every mutation.
func WithLineageCache(cache cachemanager.CacheManager[string, []*domain.Run], ttl time.Duration, skip func() bool) Option {
	return func(s *Service) {
		s.cache = cache
		s.lineageTTL = ttl
		s.skipCache = skip
	}
}

// NewService creates the registry command surface over the given
// repositories. The resolver carries the environment lookup used for path
// normalization, so tests can inject one.
func NewService(runs domain.RunRepository, imports domain.ImportRepository, resolver *domain.Resolver, opts ...Option) *Service {
	s := &Service{
		runs:     runs,
		imports:  imports,
		resolver: resolver,
		linker:   domain.NewLinker(runs),
		tracer:   noop.NewTracerProvider().Tracer("noop"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil {
		s.lineage = cachemanager.NewReadThroughCache(
			s.cache,
			func(_ context.Context, id int64) ([]*domain.Run, error) {
				return s.linker.Lineage(id)
			},
			lineageKey,
			s.lineageTTL,
			s.skipCache,
		)
	}
	return s
}

func lineageKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && (s.skipCache == nil || !s.skipCache())
}

// FlushLineageCache drops every cached lineage chain. The watch loop calls
// this when another process writes the database file.
func (s *Service) FlushLineageCache(ctx context.Context) {
	s.flushLineage(ctx)
}

// flushLineage runs after every mutation. Chains are cheap to rebuild, so
// the whole cache is dropped rather than tracking which chains changed.
func (s *Service) flushLineage(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Flush(ctx); err != nil {
		log.ErrorErr(log.CatCache, "failed to flush lineage cache", err)
	}
}

func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanPrefixOp+op,
		trace.WithSpanKind(trace.SpanKindInternal))
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func (s *Service) finishSpan(span trace.Span, err error) {
	defer span.End()
	if err != nil {
		span.SetAttributes(attribute.String(tracing.AttrErrorType, errorType(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// errorType labels an error with its registry taxonomy kind for the span
// attribute. Anything outside the taxonomy is labeled internal.
func errorType(err error) string {
	var notFound *domain.RunNotFoundError
	var mismatch *domain.StageMismatchError
	switch {
	case errors.Is(err, domain.ErrMalformedPath):
		return "malformed_path"
	case errors.Is(err, domain.ErrDuplicateResultPath):
		return "duplicate_result_path"
	case errors.Is(err, domain.ErrDuplicateID):
		return "duplicate_id"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.Is(err, domain.ErrImmutableField):
		return "immutable_field"
	case errors.As(err, &mismatch):
		return "stage_mismatch"
	case errors.Is(err, domain.ErrAlreadyLinked):
		return "already_linked"
	case errors.Is(err, domain.ErrReferencedByDependents):
		return "referenced_by_dependents"
	case errors.Is(err, domain.ErrCycleDetected):
		return "cycle_detected"
	default:
		return "internal"
	}
}

// RegisterInput carries the fields of a run record to create. Dataset and
// Result are raw path references; Register normalizes them before use.
type RegisterInput struct {
	Stage      domain.Stage
	SizeClass  domain.SizeClass
	GraphCount *int64
	Dataset    string
	Result     string
	UpstreamID *int64
	Notes      string
}

// Register creates a new run record and returns it with its assigned id.
//
// An upstream declared at registration is validated with the same rules
// Link applies, before anything is written: only a triplet run may carry
// one, and it must name an existing doublet run. A failed registration
// leaves no record behind.
func (s *Service) Register(ctx context.Context, input RegisterInput) (run *domain.Run, err error) {
	ctx, span := s.startSpan(ctx, "register",
		attribute.String(tracing.AttrRunStage, input.Stage.String()),
		attribute.String(tracing.AttrDatasetPath, input.Dataset),
		attribute.String(tracing.AttrResultPath, input.Result))
	defer func() { s.finishSpan(span, err) }()

	if !input.Stage.IsValid() {
		return nil, fmt.Errorf("invalid stage %q", input.Stage)
	}
	if !input.SizeClass.IsValid() {
		return nil, fmt.Errorf("invalid size class %q", input.SizeClass)
	}
	if input.GraphCount != nil && *input.GraphCount < 0 {
		return nil, fmt.Errorf("graph count cannot be negative, got %d", *input.GraphCount)
	}

	dataset, err := s.resolver.Normalize(input.Dataset)
	if err != nil {
		return nil, fmt.Errorf("dataset path: %w", err)
	}
	result, err := s.resolver.Normalize(input.Result)
	if err != nil {
		return nil, fmt.Errorf("result path: %w", err)
	}
	span.AddEvent(tracing.EventPathNormalized)

	exists, err := s.runs.ExistsByResultPath(result)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateResultPath, result)
	}

	if input.UpstreamID != nil {
		if input.Stage != domain.StageTriplet {
			return nil, &domain.StageMismatchError{Got: input.Stage, Want: domain.StageTriplet}
		}
		if err = s.linker.CheckUpstream(*input.UpstreamID); err != nil {
			return nil, err
		}
		span.AddEvent(tracing.EventUpstreamVerified)
		span.SetAttributes(attribute.Int64(tracing.AttrUpstreamID, *input.UpstreamID))
	}

	run = domain.NewRun(input.Stage, dataset, result)
	if input.SizeClass != domain.SizeUnspecified {
		run.SetSizeClass(input.SizeClass)
	}
	if input.GraphCount != nil {
		run.SetGraphCount(*input.GraphCount)
	}
	if input.Notes != "" {
		run.SetNotes(input.Notes)
	}
	if input.UpstreamID != nil {
		run.SetUpstream(*input.UpstreamID)
	}

	if err = s.runs.Save(run); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64(tracing.AttrRunID, run.ID()))

	s.flushLineage(ctx)
	log.Info(log.CatRegistry, "run registered",
		"id", run.ID(), "stage", run.Stage().String(), "result", run.ResultPath())
	return run, nil
}

// Complete records the elapsed training time on an existing run, and
// optionally the number of graphs it trained on. Completing a run again
// overwrites the previous values.
func (s *Service) Complete(ctx context.Context, id int64, duration time.Duration, graphs *int64) (run *domain.Run, err error) {
	ctx, span := s.startSpan(ctx, "complete",
		attribute.Int64(tracing.AttrRunID, id))
	defer func() { s.finishSpan(span, err) }()

	if duration <= 0 {
		return nil, fmt.Errorf("training duration must be positive, got %s", duration)
	}
	if graphs != nil && *graphs < 0 {
		return nil, fmt.Errorf("graph count cannot be negative, got %d", *graphs)
	}

	run, err = s.runs.FindByID(id)
	if err != nil {
		return nil, err
	}
	run.Complete(duration)
	if graphs != nil {
		run.SetGraphCount(*graphs)
	}
	if err = s.runs.Save(run); err != nil {
		return nil, err
	}

	s.flushLineage(ctx)
	log.Info(log.CatRegistry, "run completed", "id", id, "duration", duration.String())
	return run, nil
}

// Annotate replaces the free-text notes on a run, or appends a line when
// appendNote is set.
func (s *Service) Annotate(ctx context.Context, id int64, notes string, appendNote bool) (run *domain.Run, err error) {
	ctx, span := s.startSpan(ctx, "annotate",
		attribute.Int64(tracing.AttrRunID, id))
	defer func() { s.finishSpan(span, err) }()

	run, err = s.runs.FindByID(id)
	if err != nil {
		return nil, err
	}
	if appendNote {
		run.AppendNote(notes)
	} else {
		run.SetNotes(notes)
	}
	if err = s.runs.Save(run); err != nil {
		return nil, err
	}

	s.flushLineage(ctx)
	log.Info(log.CatRegistry, "run annotated", "id", id)
	return run, nil
}

// Reclassify changes the advisory size class on a run.
func (s *Service) Reclassify(ctx context.Context, id int64, class domain.SizeClass) (run *domain.Run, err error) {
	ctx, span := s.startSpan(ctx, "reclassify",
		attribute.Int64(tracing.AttrRunID, id),
		attribute.String(tracing.AttrSizeClass, class.String()))
	defer func() { s.finishSpan(span, err) }()

	if !class.IsValid() {
		return nil, fmt.Errorf("invalid size class %q", class)
	}
	run, err = s.runs.FindByID(id)
	if err != nil {
		return nil, err
	}
	run.SetSizeClass(class)
	if err = s.runs.Save(run); err != nil {
		return nil, err
	}

	s.flushLineage(ctx)
	log.Info(log.CatRegistry, "run reclassified", "id", id, "size", class.String())
	return run, nil
}

// UpdateFields carries a partial update for an existing run. Nil fields
// stay untouched. Stage, Dataset, and Result are fixed at registration:
// naming one with a value other than the stored one fails with
// ErrImmutableField, while restating the current value is a no-op.
type UpdateFields struct {
	Stage      *domain.Stage
	Dataset    *string
	Result     *string
	SizeClass  *domain.SizeClass
	GraphCount *int64
	Duration   *time.Duration
	Notes      *string
}

// Update merges a partial set of fields into an existing run. Only the
// mutable fields (size class, graph count, training duration, notes) can
// change; attempts on the fixed fields are rejected before anything is
// written.
func (s *Service) Update(ctx context.Context, id int64, fields UpdateFields) (run *domain.Run, err error) {
	ctx, span := s.startSpan(ctx, "update",
		attribute.Int64(tracing.AttrRunID, id))
	defer func() { s.finishSpan(span, err) }()

	if fields.SizeClass != nil && !fields.SizeClass.IsValid() {
		return nil, fmt.Errorf("invalid size class %q", *fields.SizeClass)
	}
	if fields.GraphCount != nil && *fields.GraphCount < 0 {
		return nil, fmt.Errorf("graph count cannot be negative, got %d", *fields.GraphCount)
	}
	if fields.Duration != nil && *fields.Duration <= 0 {
		return nil, fmt.Errorf("training duration must be positive, got %s", *fields.Duration)
	}

	run, err = s.runs.FindByID(id)
	if err != nil {
		return nil, err
	}
	if err = s.checkImmutable(run, fields); err != nil {
		return nil, err
	}

	if fields.SizeClass == nil && fields.GraphCount == nil && fields.Duration == nil && fields.Notes == nil {
		return run, nil
	}
	if fields.SizeClass != nil {
		run.SetSizeClass(*fields.SizeClass)
	}
	if fields.GraphCount != nil {
		run.SetGraphCount(*fields.GraphCount)
	}
	if fields.Duration != nil {
		run.Complete(*fields.Duration)
	}
	if fields.Notes != nil {
		run.SetNotes(*fields.Notes)
	}
	if err = s.runs.Save(run); err != nil {
		return nil, err
	}

	s.flushLineage(ctx)
	log.Info(log.CatRegistry, "run updated", "id", id)
	return run, nil
}

// checkImmutable rejects an update that names a fixed field with a value
// other than the stored one. Paths are compared on their normalized form,
// so restating the current path through an env var or redundant separators
// still counts as unchanged.
func (s *Service) checkImmutable(run *domain.Run, fields UpdateFields) error {
	if fields.Stage != nil && *fields.Stage != run.Stage() {
		return fmt.Errorf("%w: stage is fixed at registration", domain.ErrImmutableField)
	}
	if fields.Dataset != nil {
		dataset, err := s.resolver.Normalize(*fields.Dataset)
		if err != nil {
			return fmt.Errorf("dataset path: %w", err)
		}
		if dataset != run.DatasetPath() {
			return fmt.Errorf("%w: dataset path is fixed at registration", domain.ErrImmutableField)
		}
	}
	if fields.Result != nil {
		result, err := s.resolver.Normalize(*fields.Result)
		if err != nil {
			return fmt.Errorf("result path: %w", err)
		}
		if result != run.ResultPath() {
			return fmt.Errorf("%w: result path is fixed at registration", domain.ErrImmutableField)
		}
	}
	return nil
}

// Link records that the triplet run consumes the doublet run's checkpoint.
func (s *Service) Link(ctx context.Context, tripletID, doubletID int64) (err error) {
	ctx, span := s.startSpan(ctx, "link",
		attribute.Int64(tracing.AttrRunID, tripletID),
		attribute.Int64(tracing.AttrUpstreamID, doubletID))
	defer func() { s.finishSpan(span, err) }()

	if err = s.linker.Link(tripletID, doubletID); err != nil {
		return err
	}

	s.flushLineage(ctx)
	log.Info(log.CatRegistry, "runs linked", "triplet", tripletID, "doublet", doubletID)
	return nil
}

// Unlink clears the upstream edge on a triplet run. Unlinking a run that
// has no edge is permitted and changes nothing.
func (s *Service) Unlink(ctx context.Context, tripletID int64) (err error) {
	ctx, span := s.startSpan(ctx, "unlink",
		attribute.Int64(tracing.AttrRunID, tripletID))
	defer func() { s.finishSpan(span, err) }()

	if err = s.linker.Unlink(tripletID); err != nil {
		return err
	}

	s.flushLineage(ctx)
	log.Info(log.CatRegistry, "run unlinked", "triplet", tripletID)
	return nil
}

// Get retrieves a single run record by id.
func (s *Service) Get(ctx context.Context, id int64) (run *domain.Run, err error) {
	ctx, span := s.startSpan(ctx, "get",
		attribute.Int64(tracing.AttrRunID, id))
	defer func() { s.finishSpan(span, err) }()

	return s.runs.FindByID(id)
}

// List retrieves runs matching the filter, in registration order. A
// non-nil where predicate is evaluated against every candidate and keeps
// only the runs it matches.
func (s *Service) List(ctx context.Context, filter domain.ListFilter, where *WherePredicate) (runs []*domain.Run, err error) {
	ctx, span := s.startSpan(ctx, "list")
	defer func() { s.finishSpan(span, err) }()

	runs, err = s.runs.ListWithFilter(filter)
	if err != nil {
		return nil, err
	}

	if where != nil {
		kept := make([]*domain.Run, 0, len(runs))
		for _, run := range runs {
			matched, merr := where.Match(run)
			if merr != nil {
				return nil, merr
			}
			if matched {
				kept = append(kept, run)
			}
		}
		runs = kept
	}

	span.SetAttributes(attribute.Int(tracing.AttrListCount, len(runs)))
	return runs, nil
}

// Lineage returns the ordered ancestor chain of a run, nearest ancestor
// first. With a lineage cache configured, chains are served from it until
// the next mutation flushes them.
func (s *Service) Lineage(ctx context.Context, id int64) (chain []*domain.Run, err error) {
	ctx, span := s.startSpan(ctx, "lineage",
		attribute.Int64(tracing.AttrRunID, id))
	defer func() { s.finishSpan(span, err) }()

	if s.lineage == nil {
		chain, err = s.linker.Lineage(id)
	} else {
		if s.cacheEnabled() {
			if cached, found := s.cache.Get(ctx, lineageKey(id)); found {
				span.AddEvent(tracing.EventCacheHit)
				span.SetAttributes(attribute.Int(tracing.AttrLineageDepth, len(cached)))
				return cached, nil
			}
			span.AddEvent(tracing.EventCacheMiss)
		}
		chain, err = s.lineage.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int(tracing.AttrLineageDepth, len(chain)))
	return chain, nil
}

// Purge permanently removes a run record. Removal is rejected while any
// other run's upstream edge points at the target.
func (s *Service) Purge(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "purge",
		attribute.Int64(tracing.AttrRunID, id))
	defer func() { s.finishSpan(span, err) }()

	if err = s.runs.Delete(id); err != nil {
		return err
	}

	s.flushLineage(ctx)
	log.Info(log.CatRegistry, "run purged", "id", id)
	return nil
}

// ImportResult reports one completed ledger import.
type ImportResult struct {
	Batch domain.ImportBatch
	Runs  []*domain.Run
}

// ImportLedger replays a legacy ledger as registry records in one atomic
// batch: every entry lands together with an import-audit row, or nothing
// does. Entries are validated, their paths normalized, and their result
// paths checked against the registry before any write. Returned runs carry
// their assigned ids in ledger order.
func (s *Service) ImportLedger(ctx context.Context, source string, entries []ledger.Entry) (result *ImportResult, err error) {
	ctx, span := s.startSpan(ctx, "import",
		attribute.String(tracing.AttrImportSource, source),
		attribute.Int(tracing.AttrImportCount, len(entries)))
	defer func() { s.finishSpan(span, err) }()

	if err = ledger.Validate(entries); err != nil {
		return nil, err
	}
	span.AddEvent(tracing.EventLedgerParsed)

	// Two raw paths can normalize to the same reference, so duplicates are
	// checked again on the normalized form.
	runs := make([]*domain.Run, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		run, berr := s.buildImportRun(e)
		if berr != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, berr)
		}
		if prev, dup := seen[run.ResultPath()]; dup {
			return nil, fmt.Errorf("entry %d: %w: %s already used by entry %d",
				i+1, domain.ErrDuplicateResultPath, run.ResultPath(), prev)
		}
		seen[run.ResultPath()] = i + 1

		exists, eerr := s.runs.ExistsByResultPath(run.ResultPath())
		if eerr != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, eerr)
		}
		if exists {
			return nil, fmt.Errorf("entry %d: %w: %s", i+1, domain.ErrDuplicateResultPath, run.ResultPath())
		}
		runs = append(runs, run)
	}

	batch := domain.ImportBatch{
		ID:        uuid.NewString(),
		Source:    source,
		RunCount:  int64(len(runs)),
		CreatedAt: time.Now().UTC(),
	}
	if err = s.imports.ImportRuns(batch, runs, ledger.UpstreamIndexes(entries)); err != nil {
		return nil, err
	}

	s.flushLineage(ctx)
	log.Info(log.CatRegistry, "ledger imported",
		"source", source, "runs", len(runs), "batch", batch.ID)
	return &ImportResult{Batch: batch, Runs: runs}, nil
}

// buildImportRun converts one validated ledger entry into a run entity.
// A numbered entry keeps its ledger id; the store preserves it on insert.
func (s *Service) buildImportRun(e ledger.Entry) (*domain.Run, error) {
	stage, err := domain.ParseStage(e.Stage)
	if err != nil {
		return nil, err
	}
	dataset, err := s.resolver.Normalize(e.Dataset)
	if err != nil {
		return nil, fmt.Errorf("dataset path: %w", err)
	}
	result, err := s.resolver.Normalize(e.Result)
	if err != nil {
		return nil, fmt.Errorf("result path: %w", err)
	}

	run := domain.NewRun(stage, dataset, result)
	if e.ID != nil {
		run.SetID(*e.ID)
	}
	if e.Size != "" {
		class, err := domain.ParseSizeClass(e.Size)
		if err != nil {
			return nil, err
		}
		run.SetSizeClass(class)
	}
	if e.Graphs != nil {
		run.SetGraphCount(*e.Graphs)
	}
	if e.Duration != "" {
		d, err := time.ParseDuration(e.Duration)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q", e.Duration)
		}
		run.Complete(d)
	}
	if e.Notes != "" {
		run.SetNotes(e.Notes)
	}
	return run, nil
}

// ImportHistory lists past import batches, newest first.
func (s *Service) ImportHistory(ctx context.Context) (batches []domain.ImportBatch, err error) {
	ctx, span := s.startSpan(ctx, "import_history")
	defer func() { s.finishSpan(span, err) }()

	batches, err = s.imports.List()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int(tracing.AttrListCount, len(batches)))
	return batches, nil
}
