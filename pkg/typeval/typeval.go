// Package typeval runs type documents: it registers a document's
// declarations with a checker and evaluates its queries concurrently.
package typeval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/funvibe/structype/internal/config"
	"github.com/funvibe/structype/internal/store"
	"github.com/funvibe/structype/internal/typedoc"
	"github.com/funvibe/structype/internal/typesystem"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one query. Err is set when the query itself
// failed; Output is then empty.
type Result struct {
	Name   string
	Kind   typedoc.QueryKind
	Output string
	// Type is the evaluated type of eval and instantiate queries.
	Type typesystem.Type
	Err  error
	// Cached is set when the result came from the store.
	Cached bool
}

// Evaluator evaluates type documents. Declarations of every loaded
// document share one checker, so a later document may redeclare a name.
type Evaluator struct {
	cfg      config.Config
	logger   *zap.Logger
	checker  *typesystem.Checker
	registry *prometheus.Registry
	metrics  *metrics
	store    *store.Store
	runID    string
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithStore caches results in s, keyed by query name and a hash of the
// document together with every declaration the checker holds.
func WithStore(s *store.Store) Option { return func(e *Evaluator) { e.store = s } }

// WithRunID tags stored results and log lines with id.
func WithRunID(id string) Option { return func(e *Evaluator) { e.runID = id } }

func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*Evaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{cfg: cfg, registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID != "" {
		logger = logger.With(zap.String("run", e.runID))
	}
	e.logger = logger
	e.metrics = newMetrics(e.registry)

	checker, err := typesystem.NewChecker(typesystem.Options{
		MaxDepth:        cfg.MaxDepth,
		CacheSize:       cfg.CacheSize,
		TemplateTimeout: cfg.TemplateTimeout,
		Logger:          logger.Named("checker"),
		Observer:        e.metrics,
	})
	if err != nil {
		return nil, err
	}
	e.checker = checker
	return e, nil
}

// Registry returns the registry holding the evaluator's metrics.
func (e *Evaluator) Registry() *prometheus.Registry { return e.registry }

// Checker returns the underlying checker.
func (e *Evaluator) Checker() *typesystem.Checker { return e.checker }

// Load registers the document's declarations.
func (e *Evaluator) Load(doc *typedoc.Document) error {
	for _, d := range doc.Declarations {
		if err := e.checker.Declare(d); err != nil {
			return fmt.Errorf("%s: declaration %s: %w", doc.Path, d.Name, err)
		}
	}
	e.logger.Debug("loaded document",
		zap.String("path", doc.Path),
		zap.Int("declarations", len(doc.Declarations)),
		zap.Int("queries", len(doc.Queries)))
	return nil
}

// Run loads doc and evaluates its queries, at most cfg.Parallelism at a
// time. Results are in document order. Query failures are reported in
// their Result; Run itself fails only if loading, the store or ctx does.
func (e *Evaluator) Run(ctx context.Context, doc *typedoc.Document) ([]Result, error) {
	if err := e.Load(doc); err != nil {
		return nil, err
	}
	hash := resultKey(DocumentHash(doc, e.cfg), e.checker.DeclarationsHash())
	results := make([]Result, len(doc.Queries))

	g, ctx := errgroup.WithContext(ctx)
	if e.cfg.Parallelism > 0 {
		g.SetLimit(e.cfg.Parallelism)
	}
	for i, q := range doc.Queries {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.runQuery(ctx, hash, q)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Evaluator) runQuery(ctx context.Context, hash string, q typedoc.Query) (Result, error) {
	if e.store != nil {
		rec, ok, err := e.store.Lookup(ctx, hash, q.Name)
		if err != nil {
			return Result{}, err
		}
		if ok {
			e.metrics.stored.WithLabelValues("hit").Inc()
			r := Result{Name: q.Name, Kind: q.Kind, Output: rec.Output, Cached: true}
			if rec.Err != "" {
				r.Err = errors.New(rec.Err)
			}
			return r, nil
		}
		e.metrics.stored.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	r := e.Query(q)
	e.metrics.duration.WithLabelValues(string(q.Kind)).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if r.Err != nil {
		outcome = "error"
		e.logger.Debug("query failed", zap.String("query", q.Name), zap.Error(r.Err))
	}
	e.metrics.queries.WithLabelValues(string(q.Kind), outcome).Inc()

	if e.store != nil {
		rec := store.Record{DocHash: hash, Query: q.Name, Kind: string(q.Kind), Output: r.Output, RunID: e.runID}
		if r.Err != nil {
			rec.Err = r.Err.Error()
		}
		if err := e.store.Save(ctx, rec); err != nil {
			return Result{}, err
		}
	}
	return r, nil
}

// Query evaluates a single query against the loaded declarations.
func (e *Evaluator) Query(q typedoc.Query) Result {
	r := Result{Name: q.Name, Kind: q.Kind}
	switch q.Kind {
	case typedoc.QueryEval:
		t, err := e.checker.Evaluate(q.Type, q.Bindings)
		if err != nil {
			r.Err = err
			return r
		}
		r.Type, r.Output = t, t.String()
	case typedoc.QuerySubtype:
		if !q.Capture {
			r.Output = fmt.Sprint(e.checker.IsSubtype(q.Source, q.Target))
			return r
		}
		ok, captures := e.checker.IsSubtypeCapturing(q.Source, q.Target)
		r.Output = fmt.Sprint(ok)
		if ok && len(captures) > 0 {
			r.Output += " " + captures.String()
		}
	case typedoc.QueryInstantiate:
		t, err := e.checker.InstantiateDeclaration(q.Decl, q.Args)
		if err != nil {
			r.Err = err
			return r
		}
		r.Type, r.Output = t, t.String()
	default:
		r.Err = fmt.Errorf("unknown query kind %q", q.Kind)
	}
	return r
}

// Failed reports whether any result carries an error.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Format renders results one per line as "name: output" or
// "name: error: message".
func Format(results []Result) string {
	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(r.Name)
		sb.WriteString(": ")
		if r.Err != nil {
			sb.WriteString("error: ")
			sb.WriteString(r.Err.Error())
		} else {
			sb.WriteString(r.Output)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
