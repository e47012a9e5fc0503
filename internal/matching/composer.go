// Package matching implements the filter request flow: criteria
// extraction, candidate pool retrieval, pinned partitioning, attribute
// filtering and size-bounded result composition, with idempotent
// prospect persistence.
package matching

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/db"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/levels"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/predicates"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/types"
)

// State marks how far a filter request progressed. Failures short
// circuit to StateResponded with an empty result, never an error to
// the caller.
type State string

const (
	StateReceived          State = "RECEIVED"
	StateCriteriaExtracted State = "CRITERIA_EXTRACTED"
	StatePoolRetrieved     State = "POOL_RETRIEVED"
	StatePartitioned       State = "PARTITIONED"
	StateFiltered          State = "FILTERED"
	StateComposed          State = "COMPOSED"
	StatePersisted         State = "PERSISTED"
	StateResponded         State = "RESPONDED"
)

// Origin recorded on prospects produced by semantic search.
const OriginSemantic = "vaga_semantica"

// Store is the persistence surface the composer needs. *db.DB
// implements it.
type Store interface {
	GetWorkbook(ctx context.Context, id uuid.UUID) (*types.Workbook, error)
	GetJob(ctx context.Context, id int64) (*types.Job, error)
	CandidatePool(ctx context.Context, embedding pgvector.Vector, excludeIDs []int64, filters db.PoolFilters, limit int) ([]types.RankedApplicant, error)
	ListProspects(ctx context.Context, workbookID uuid.UUID) ([]types.Prospect, error)
	ReplaceProspects(ctx context.Context, workbookID uuid.UUID, prospects []types.Prospect) error
}

// CriteriaExtractor turns a free-text request into criteria. It
// degrades internally and never fails.
type CriteriaExtractor interface {
	Extract(ctx context.Context, request string) types.FilterCriteria
}

// Options tune pool sizing and result limits.
type Options struct {
	// DefaultFirstLimit applies when the request names no quantity and
	// no attribute filters (a broad first search).
	DefaultFirstLimit int
	// DefaultRefineLimit applies when the request names no quantity but
	// carries attribute filters (a refinement).
	DefaultRefineLimit int
	// PoolFloor and PoolMultiplier size the oversampled pool:
	// max(PoolFloor, limit*PoolMultiplier).
	PoolFloor      int
	PoolMultiplier int
	// PushdownFilters moves attribute predicates into the pool query.
	// Off, the same predicates run in process over the retrieved pool.
	PushdownFilters bool
}

// DefaultOptions mirrors the production tuning.
func DefaultOptions() Options {
	return Options{
		DefaultFirstLimit:  20,
		DefaultRefineLimit: 10,
		PoolFloor:          1000,
		PoolMultiplier:     10,
		PushdownFilters:    true,
	}
}

// FilterResult is the complete outcome of one filter request.
type FilterResult struct {
	WorkbookID uuid.UUID               `json:"workbook_id"`
	Criteria   types.FilterCriteria    `json:"criteria"`
	Pinned     []types.RankedApplicant `json:"selecionados"`
	Candidates []types.RankedApplicant `json:"candidatos"`
	Limit      int                     `json:"limite"`
	Summary    string                  `json:"resumo"`
	Persisted  bool                    `json:"-"`
	State      State                   `json:"-"`
}

// Composer orchestrates a filter request end to end.
type Composer struct {
	store     Store
	extractor CriteriaExtractor
	hierarchy *levels.Hierarchy
	builder   *predicates.SQLBuilder
	formatter *Formatter
	opts      Options
	log       *zap.Logger
}

func NewComposer(store Store, extractor CriteriaExtractor, opts Options, log *zap.Logger) *Composer {
	hierarchy := levels.NewLanguageLevels()
	return &Composer{
		store:     store,
		extractor: extractor,
		hierarchy: hierarchy,
		builder:   predicates.NewSQLBuilder(hierarchy),
		formatter: NewFormatter(),
		opts:      opts,
		log:       log,
	}
}

// Filter runs the whole flow for one request. It never returns an
// error: infrastructure failures are logged and reported as an empty
// result with a human readable summary, and a persistence failure
// still returns the composed result.
func (c *Composer) Filter(ctx context.Context, workbookID uuid.UUID, request string) *FilterResult {
	state := StateReceived
	c.log.Info("filter request received",
		zap.String("workbook_id", workbookID.String()), zap.Int("request_len", len(request)))

	crit := c.extractor.Extract(ctx, request)
	state = StateCriteriaExtracted
	limit := c.resolveLimit(crit)

	workbook, err := c.store.GetWorkbook(ctx, workbookID)
	if err != nil || workbook == nil {
		return c.fail(workbookID, crit, limit, state, "workbook lookup", err)
	}
	job, err := c.store.GetJob(ctx, workbook.JobID)
	if err != nil || job == nil {
		return c.fail(workbookID, crit, limit, state, "job lookup", err)
	}
	if len(job.Embedding.Slice()) == 0 {
		return c.fail(workbookID, crit, limit, state, "job embedding missing", nil)
	}

	prospects, err := c.store.ListProspects(ctx, workbookID)
	if err != nil {
		return c.fail(workbookID, crit, limit, state, "prospect listing", err)
	}
	pinned := selectedProspects(prospects)

	// The pool query runs without excluding prior results: non-selected
	// rows are replaced wholesale on persist, so the identical request
	// retrieves the identical pool and composes the identical answer.
	poolSize := max(c.opts.PoolFloor, limit*c.opts.PoolMultiplier)
	var filters db.PoolFilters
	if c.opts.PushdownFilters {
		filters.Conditions, filters.Args = c.builder.Conditions(crit, db.PoolConditionOffset)
	}
	pool, err := c.store.CandidatePool(ctx, job.Embedding, nil, filters, poolSize)
	if err != nil {
		return c.fail(workbookID, crit, limit, state, "pool retrieval", err)
	}
	state = StatePoolRetrieved
	c.log.Debug("candidate pool retrieved",
		zap.Int("pool_size", len(pool)), zap.Int("requested", poolSize))

	pinnedRanked, candidates := c.partitionPool(pool, pinned)
	state = StatePartitioned

	if !c.opts.PushdownFilters {
		set := predicates.Build(crit, c.hierarchy)
		candidates = applyPredicates(set, candidates)
	}
	state = StateFiltered

	sortByScore(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Origin = OriginSemantic
	}
	state = StateComposed

	result := &FilterResult{
		WorkbookID: workbookID,
		Criteria:   crit,
		Pinned:     pinnedRanked,
		Candidates: candidates,
		Limit:      limit,
	}

	if err := c.persist(ctx, workbookID, candidates); err != nil {
		// The recruiter still gets the composed result; only durability
		// of the working set is lost.
		c.log.Warn("prospect persistence failed",
			zap.String("workbook_id", workbookID.String()), zap.Error(err))
	} else {
		result.Persisted = true
		state = StatePersisted
	}

	result.Summary = c.formatter.Summary(job, result)
	result.State = StateResponded
	c.log.Info("filter request responded",
		zap.String("workbook_id", workbookID.String()),
		zap.String("last_state", string(state)),
		zap.Int("candidates", len(candidates)),
		zap.Int("pinned", len(pinnedRanked)))
	return result
}

func (c *Composer) resolveLimit(crit types.FilterCriteria) int {
	if crit.Limit != nil {
		return *crit.Limit
	}
	if crit.HasFilters() {
		return c.opts.DefaultRefineLimit
	}
	return c.opts.DefaultFirstLimit
}

// selectedProspects keeps only the pinned rows of the working set.
// Non-selected rows carry no state worth reading back: they are the
// previous run's candidates and get replaced on persist.
func selectedProspects(prospects []types.Prospect) []types.Prospect {
	var pinned []types.Prospect
	for _, p := range prospects {
		if p.Selected {
			pinned = append(pinned, p)
		}
	}
	return pinned
}

// partitionPool separates the pinned applicants from the open
// candidates. A pinned applicant found in the pool carries its fresh
// score; one that fell outside the pool is still included, with the
// score persisted at pin time.
func (c *Composer) partitionPool(pool []types.RankedApplicant, pinned []types.Prospect) (pinnedRanked, candidates []types.RankedApplicant) {
	pinnedByID := make(map[int64]types.Prospect, len(pinned))
	for _, p := range pinned {
		pinnedByID[p.ApplicantID] = p
	}

	seen := make(map[int64]bool, len(pinned))
	for _, ranked := range pool {
		prospect, isPinned := pinnedByID[ranked.Applicant.ID]
		if !isPinned {
			candidates = append(candidates, ranked)
			continue
		}
		ranked.Origin = prospect.Origin
		pinnedRanked = append(pinnedRanked, ranked)
		seen[ranked.Applicant.ID] = true
	}
	for _, p := range pinned {
		if seen[p.ApplicantID] {
			continue
		}
		pinnedRanked = append(pinnedRanked, types.RankedApplicant{
			Applicant: types.Applicant{ID: p.ApplicantID},
			Distance:  1 - p.Score,
			Score:     p.Score,
			Origin:    p.Origin,
		})
	}
	sortByScore(pinnedRanked)
	return pinnedRanked, candidates
}

func applyPredicates(set predicates.Set, pool []types.RankedApplicant) []types.RankedApplicant {
	if set.Empty() {
		return pool
	}
	filtered := pool[:0]
	for _, ranked := range pool {
		if set.Matches(&ranked.Applicant) {
			filtered = append(filtered, ranked)
		}
	}
	return filtered
}

func (c *Composer) persist(ctx context.Context, workbookID uuid.UUID, candidates []types.RankedApplicant) error {
	prospects := make([]types.Prospect, 0, len(candidates))
	for _, ranked := range candidates {
		prospects = append(prospects, types.Prospect{
			WorkbookID:  workbookID,
			ApplicantID: ranked.Applicant.ID,
			Score:       ranked.Score,
			Origin:      ranked.Origin,
		})
	}
	return c.store.ReplaceProspects(ctx, workbookID, prospects)
}

func (c *Composer) fail(workbookID uuid.UUID, crit types.FilterCriteria, limit int, state State, stage string, err error) *FilterResult {
	c.log.Error("filter request failed",
		zap.String("workbook_id", workbookID.String()),
		zap.String("stage", stage),
		zap.String("last_state", string(state)),
		zap.Error(err))
	return &FilterResult{
		WorkbookID: workbookID,
		Criteria:   crit,
		Limit:      limit,
		Summary:    c.formatter.NoResults(),
		State:      StateResponded,
	}
}

func sortByScore(ranked []types.RankedApplicant) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
}
