// Package answer evaluates one question against the crop and rainfall
// datasets and renders the single text block shown to the user.
//
// Evaluate is pure: it never performs I/O and is safe to call concurrently.
// Answer is the boundary adapter that acquires both datasets first and turns
// any fatal error into a one-line message.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/agriquery/pkg/crops"
	"github.com/hazyhaar/agriquery/pkg/dataset"
	"github.com/hazyhaar/agriquery/pkg/query"
	"github.com/hazyhaar/agriquery/pkg/rainfall"
	"github.com/hazyhaar/agriquery/pkg/region"
	"github.com/hazyhaar/agriquery/pkg/schema"
)

// Datasets holds the raw text of both datasets.
type Datasets struct {
	Crops    string
	Rainfall string
}

// Kind tells what sort of text a Result carries.
type Kind string

const (
	KindReport   Kind = "report"
	KindClarify  Kind = "clarify"
	KindNotFound Kind = "not_found"
	KindFallback Kind = "fallback"
	KindError    Kind = "error"
)

// Result is the outcome of one question.
type Result struct {
	Intent   query.Intent     `json:"intent"`
	Kind     Kind             `json:"kind"`
	Text     string           `json:"text"`
	Rainfall *rainfall.Report `json:"rainfall,omitempty"`
	Crops    *crops.Ranking   `json:"crops,omitempty"`
}

// String returns the user-visible answer text.
func (r *Result) String() string { return r.Text }

// ErrNoYear is matched by a UserInputError raised for a missing year.
var ErrNoYear = errors.New("no year in question")

// UserInputError is a question that cannot be answered as asked. It becomes
// a clarifying prompt and is never surfaced as a failure.
type UserInputError struct {
	Intent query.Intent
	Err    error // rainfall.ErrNoRegion or ErrNoYear
}

func (e *UserInputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Intent, e.Err)
}

func (e *UserInputError) Unwrap() error { return e.Err }

// Engine evaluates questions. It is immutable once built.
type Engine struct {
	registry   *region.Registry
	resolver   *schema.Resolver
	classifier *query.Classifier
	limit      int
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRegistry replaces the bundled region registry.
func WithRegistry(r *region.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithResolver replaces the default column resolver.
func WithResolver(r *schema.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithRules replaces the intent rule table.
func WithRules(rules ...query.Rule) Option {
	return func(e *Engine) { e.classifier = query.NewClassifier(rules...) }
}

// WithLimit sets how many crops a ranking lists.
func WithLimit(n int) Option {
	return func(e *Engine) { e.limit = n }
}

// New builds an Engine over the bundled registry and default rules.
func New(opts ...Option) *Engine {
	e := &Engine{limit: crops.DefaultLimit}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.registry == nil {
		e.registry = region.Default()
	}
	if e.resolver == nil {
		e.resolver = schema.Default(e.logger)
	}
	if e.classifier == nil {
		e.classifier = query.NewClassifier(query.DefaultRules...)
	}
	return e
}

// Registry returns the region registry the engine answers for.
func (e *Engine) Registry() *region.Registry { return e.registry }

// Evaluate answers raw against ds with a default Engine.
func Evaluate(ds Datasets, raw string, opts ...Option) (*Result, error) {
	return New(opts...).Evaluate(ds, raw)
}

// Evaluate answers raw against ds.
//
// Only the dataset the intent needs is parsed, and only once the question
// itself is complete. Returned errors are fatal: an empty dataset or a
// rainfall dataset without a single usable year.
func (e *Engine) Evaluate(ds Datasets, raw string) (*Result, error) {
	q := query.Normalize(raw)
	intent := e.classifier.Classify(q)
	e.logger.Debug("question classified", "intent", intent)

	switch intent {
	case query.IntentRainfallCompare:
		return e.rainfall(ds.Rainfall, q)
	case query.IntentTopCrops:
		return e.topCrops(ds.Crops, q)
	default:
		return &Result{Intent: intent, Kind: KindFallback, Text: fallbackText}, nil
	}
}

func (e *Engine) rainfall(text, q string) (*Result, error) {
	regions := e.registry.Mentioned(q)
	if len(regions) == 0 {
		return clarify(&UserInputError{Intent: query.IntentRainfallCompare, Err: rainfall.ErrNoRegion}), nil
	}

	tbl, err := dataset.Parse("rainfall", text)
	if err != nil {
		return nil, err
	}
	cols := e.resolver.Resolve(tbl.Header, rainfall.Columns...)

	agg := &rainfall.Aggregator{Registry: e.registry, Logger: e.logger}
	rep, err := agg.Compare(tbl, cols, regions)
	if err != nil {
		return nil, err
	}
	return &Result{
		Intent:   query.IntentRainfallCompare,
		Kind:     KindReport,
		Text:     renderRainfall(rep),
		Rainfall: rep,
	}, nil
}

func (e *Engine) topCrops(text, q string) (*Result, error) {
	name, ok := e.registry.First(q)
	if !ok {
		return clarify(&UserInputError{Intent: query.IntentTopCrops, Err: rainfall.ErrNoRegion}), nil
	}
	year, ok := query.ExtractYear(q)
	if !ok || year == 0 {
		return clarify(&UserInputError{Intent: query.IntentTopCrops, Err: ErrNoYear}), nil
	}

	tbl, err := dataset.Parse("crops", text)
	if err != nil {
		return nil, err
	}
	cols := e.resolver.Resolve(tbl.Header, crops.Columns...)

	r := crops.Top(tbl, cols, name, year, e.limit, e.logger)
	if !r.Found() {
		return &Result{
			Intent: query.IntentTopCrops,
			Kind:   KindNotFound,
			Text:   renderNotFound(r),
			Crops:  r,
		}, nil
	}
	return &Result{
		Intent: query.IntentTopCrops,
		Kind:   KindReport,
		Text:   renderCrops(r),
		Crops:  r,
	}, nil
}

func clarify(uerr *UserInputError) *Result {
	return &Result{Intent: uerr.Intent, Kind: KindClarify, Text: clarifyText(uerr)}
}

// AcquireFunc loads the raw text of both datasets.
type AcquireFunc func(ctx context.Context) (Datasets, error)

// Respond acquires both datasets and evaluates raw. It always returns a
// Result; acquisition and fatal evaluation errors yield KindError.
func (e *Engine) Respond(ctx context.Context, acquire AcquireFunc, raw string) *Result {
	ds, err := acquire(ctx)
	if err != nil {
		e.logger.Error("answer failed", "stage", "acquire", "error", err)
		return &Result{Intent: query.IntentUnknown, Kind: KindError, Text: ErrorText(err)}
	}
	res, err := e.Evaluate(ds, raw)
	if err != nil {
		e.logger.Error("answer failed", "stage", "evaluate", "error", err)
		return &Result{Intent: e.classifier.Classify(query.Normalize(raw)), Kind: KindError, Text: ErrorText(err)}
	}
	return res
}

// Answer returns the text to show for raw.
// Any acquisition or fatal evaluation error replaces the whole answer.
func (e *Engine) Answer(ctx context.Context, acquire AcquireFunc, raw string) string {
	return e.Respond(ctx, acquire, raw).Text
}

// Answer runs Engine.Answer with a default Engine.
func Answer(ctx context.Context, acquire AcquireFunc, raw string, opts ...Option) string {
	return New(opts...).Answer(ctx, acquire, raw)
}
