package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"entitymatch/internal"
	"entitymatch/internal/config"
	"entitymatch/internal/document"
)

type (
	Locator interface {
		Locate(ctx context.Context, doc document.Document, spec internal.LocateSpec) (Located, error)
	}
	Extractor interface {
		Extract(ctx context.Context, items []document.Element, fields []internal.FieldSpec) Extraction
	}
	Scorer interface {
		Compare(source internal.SourceEntity, candidates []internal.CandidateItem, fields []internal.FieldSpec, comparisons []internal.FieldComparisonSpec) []Scored
	}
	Selector interface {
		Select(scored []Scored, spec internal.SelectSpec) Selection
	}
	ActionExecutor interface {
		Execute(ctx context.Context, doc document.Document, target document.Element, spec internal.ActionSpec) ActionOutcome
	}
)

// Matcher runs one invocation: locate, extract, compare and select, act.
// It holds no per-call state and may be shared.
type Matcher struct {
	locator   Locator
	extractor Extractor
	scorer    Scorer
	selector  Selector
	actions   ActionExecutor
	log       *zap.Logger
}

type Option func(*Matcher)

func WithLogger(log *zap.Logger) Option {
	return func(m *Matcher) {
		if log != nil {
			m.log = log
		}
	}
}

func WithLocator(l Locator) Option               { return func(m *Matcher) { m.locator = l } }
func WithExtractor(x Extractor) Option           { return func(m *Matcher) { m.extractor = x } }
func WithScorer(s Scorer) Option                 { return func(m *Matcher) { m.scorer = s } }
func WithSelector(s Selector) Option             { return func(m *Matcher) { m.selector = s } }
func WithActionExecutor(a ActionExecutor) Option { return func(m *Matcher) { m.actions = a } }

func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	if m.locator == nil {
		m.locator = NewLocator(m.log)
	}
	if m.extractor == nil {
		m.extractor = NewExtractor(m.log)
	}
	if m.scorer == nil {
		m.scorer = NewComparator()
	}
	if m.selector == nil {
		m.selector = NewSelector()
	}
	if m.actions == nil {
		m.actions = NewActionRunner(m.log)
	}
	return m
}

// RunOptions validates opts and runs them. Invalid options come back as a
// failed result, like any other failure.
func (m *Matcher) RunOptions(ctx context.Context, doc document.Document, opts config.Options, defaults config.Defaults) internal.Result {
	plan, err := opts.Plan(defaults)
	if err != nil {
		res := internal.Result{InvocationID: uuid.NewString(), Matches: []internal.MatchResult{}}
		res.Error = err.Error()
		res.ErrorKind = internal.KindInvalidOptions
		m.log.Info("invalid options", zap.String("invocation_id", res.InvocationID), zap.Error(err))
		return res
	}
	return m.Run(ctx, doc, plan)
}

// Run never panics and never returns an error: every outcome is encoded in
// the result.
func (m *Matcher) Run(ctx context.Context, doc document.Document, plan internal.Plan) (res internal.Result) {
	start := time.Now()
	res.InvocationID = uuid.NewString()
	res.Matches = []internal.MatchResult{}
	log := m.log.With(zap.String("invocation_id", res.InvocationID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("matcher panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			res.Success = false
			res.Error = fmt.Sprintf("internal error: %v", r)
			res.ErrorKind = internal.KindInternal
		}
		res.DurationMs = time.Since(start).Milliseconds()
	}()

	if doc == nil {
		fail(&res, fmt.Errorf("%w: no document", config.ErrInvalidOptions))
		return res
	}
	if plan.Locate.ContainerSelector == "" {
		fail(&res, fmt.Errorf("%w: resultsSelector is required", config.ErrInvalidOptions))
		return res
	}

	plan = completePlan(plan)
	res.Warnings = append(res.Warnings, plan.Warnings...)

	log.Debug("locating items", zap.String("container", plan.Locate.ContainerSelector), zap.String("item", plan.Locate.ItemSelector))
	located, err := m.locate(ctx, doc, plan.Locate)
	res.ContainerFound = located.ContainerFound
	if err != nil {
		if kindOf(err) == internal.KindContainerNotFound {
			log.Info("container not found", zap.String("selector", plan.Locate.ContainerSelector))
		} else {
			log.Warn("locate failed", zap.Error(err))
		}
		fail(&res, err)
		return res
	}
	res.Strategy = located.Strategy
	res.ItemsFound = len(located.Items)
	if res.ItemsFound == 0 {
		log.Info("no items found", zap.String("container", plan.Locate.ContainerSelector))
		res.Success = true
		res.Error = ErrItemsNotFound.Error()
		res.ErrorKind = internal.KindItemsNotFound
		return res
	}

	log.Debug("extracting fields", zap.Int("items", res.ItemsFound), zap.Int("fields", len(plan.Fields)))
	extraction := m.extract(ctx, located.Items, plan)
	res.Rejected = append(res.Rejected, extraction.Rejected...)
	res.Warnings = append(res.Warnings, extraction.Warnings...)

	scored := m.scorer.Compare(plan.Source, extraction.Candidates, plan.Fields, plan.Comparisons)
	selection := m.selector.Select(scored, plan.Select)
	res.Matches = selection.Matches
	res.SelectedMatch = selection.Selected
	res.Rejected = append(res.Rejected, selection.Rejected...)
	res.Success = true
	log.Debug("scored candidates",
		zap.Int("candidates", len(extraction.Candidates)),
		zap.Int("matches", len(res.Matches)),
		zap.Int("rejected", len(res.Rejected)))

	if res.SelectedMatch != nil {
		target := candidateElement(extraction.Candidates, res.SelectedMatch.Index)
		outcome := m.actions.Execute(ctx, doc, target, plan.Action)
		res.ActionPerformed = outcome.Performed
		res.ActionResult = outcome.Result
		res.Warnings = append(res.Warnings, outcome.Warnings...)
		if outcome.Result != nil && !outcome.Result.Success {
			log.Warn("action failed", zap.String("kind", string(outcome.Result.Kind)), zap.String("error", outcome.Result.Error))
		}
	}

	log.Info("match complete",
		zap.Int("items", res.ItemsFound),
		zap.Int("matches", len(res.Matches)),
		zap.Bool("selected", res.SelectedMatch != nil),
		zap.Bool("action_performed", res.ActionPerformed))
	return res
}

// Inspect runs only the locate and extract stages. It backs diagnostics
// and returns the plan with derived fields filled in.
func (m *Matcher) Inspect(ctx context.Context, doc document.Document, plan internal.Plan) (internal.Plan, Located, Extraction, error) {
	if doc == nil {
		return plan, Located{}, Extraction{}, fmt.Errorf("%w: no document", config.ErrInvalidOptions)
	}
	plan = completePlan(plan)
	located, err := m.locate(ctx, doc, plan.Locate)
	if err != nil {
		return plan, located, Extraction{}, err
	}
	return plan, located, m.extract(ctx, located.Items, plan), nil
}

// locate bounds the stage by twice the timeout: one for the container wait,
// one for segmentation.
func (m *Matcher) locate(ctx context.Context, doc document.Document, spec internal.LocateSpec) (Located, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*spec.Timeout)
		defer cancel()
	}
	return m.locator.Locate(ctx, doc, spec)
}

func (m *Matcher) extract(ctx context.Context, items []document.Element, plan internal.Plan) Extraction {
	if plan.Locate.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.Locate.Timeout)
		defer cancel()
	}
	return m.extractor.Extract(ctx, items, plan.Fields)
}

// completePlan derives whole-item fields and smart comparisons when the
// caller configured none.
func completePlan(plan internal.Plan) internal.Plan {
	if len(plan.Fields) == 0 {
		for _, key := range plan.Source.Keys() {
			plan.Fields = append(plan.Fields, internal.FieldSpec{
				Name:   key,
				Weight: 1,
				Format: internal.FormatText,
			})
		}
	}
	if len(plan.Comparisons) == 0 {
		for _, f := range plan.Fields {
			if _, ok := plan.Source.Value(f.Name); !ok {
				continue
			}
			plan.Comparisons = append(plan.Comparisons, internal.FieldComparisonSpec{
				Field:     f.Name,
				Algorithm: internal.AlgorithmSmart,
				Weight:    f.Weight,
				Direction: internal.ReferenceInTarget,
			})
		}
	}
	if plan.Select.Mode == "" {
		plan.Select.Mode = internal.ModeBest
	}
	return plan
}

func candidateElement(cands []internal.CandidateItem, index int) document.Element {
	for _, c := range cands {
		if c.Index == index {
			return c.Element
		}
	}
	return nil
}

func fail(res *internal.Result, err error) {
	res.Success = false
	res.Error = err.Error()
	res.ErrorKind = kindOf(err)
}
