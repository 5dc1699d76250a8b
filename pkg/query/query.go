// Package query runs compiled predicates over candidate batches the way a
// traversal engine would: one arena per worker, immutable expressions shared
// across goroutines, and any evaluation error failing the whole query.
//
// An Engine holds what outlives a query: configuration, the decoded IR cache
// and the arena pool. A Query binds a graph snapshot, a batch context and the
// parameters, and is identified by a random uuid that appears in its logs
// and errors.
//
// Example Usage:
//
//	eng, err := query.NewEngine(cfg, log)
//	if err != nil {
//		return err
//	}
//	q, err := eng.NewQuery(g, nil, params)
//	if err != nil {
//		return err
//	}
//	p, err := q.VertexPredicate(node)
//	if err != nil {
//		return err
//	}
//	matched, err := q.FilterVertices(p, rows)
package query

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/columns"
	"github.com/orneryd/nornicrt/pkg/config"
	"github.com/orneryd/nornicrt/pkg/expr"
	"github.com/orneryd/nornicrt/pkg/graph"
	"github.com/orneryd/nornicrt/pkg/ir"
	"github.com/orneryd/nornicrt/pkg/logging"
	"github.com/orneryd/nornicrt/pkg/predicate"
	"github.com/orneryd/nornicrt/pkg/value"
)

// Engine is shared by all queries of a process. It is safe for concurrent
// use.
type Engine struct {
	cfg   config.Config
	cache *ir.Cache
	pool  *arena.Pool
	log   *logrus.Entry
}

// NewEngine validates cfg and builds the IR cache and arena pool. A nil log
// discards output.
func NewEngine(cfg *config.Config, log logrus.FieldLogger) (*Engine, error) {
	if cfg == nil {
		cfg = config.LoadDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cache, err := ir.NewCache(cfg.Cache.IRSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:   *cfg,
		cache: cache,
		pool: arena.NewPool(arena.Options{
			ChunkSize: cfg.Arena.ChunkSize,
			MaxBytes:  cfg.Arena.MaxBytes,
			Debug:     cfg.Arena.Debug,
		}),
		log: logging.Component(log, "query"),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// CacheStats reports the IR cache counters.
func (e *Engine) CacheStats() ir.CacheStats { return e.cache.Stats() }

// Stats describes the last filter run of a query.
type Stats struct {
	Rows      int
	Matches   int
	Workers   int
	ArenaPeak int64
	Duration  time.Duration
}

// Query is one query's evaluation state.
type Query struct {
	id     string
	engine *Engine
	env    expr.Env
	log    *logrus.Entry

	mu   sync.Mutex
	last Stats
}

// NewQuery binds a query to g, ctx and params. ctx may be nil when no
// context columns are referenced.
func (e *Engine) NewQuery(g graph.Reader, ctx *columns.Context, params map[string]value.Value) (*Query, error) {
	if g == nil {
		return nil, ErrNoGraph
	}
	id := uuid.NewString()
	return &Query{
		id:     id,
		engine: e,
		env:    expr.Env{Graph: g, Context: ctx, Params: params},
		log:    e.log.WithField("query_id", id),
	}, nil
}

// New builds a single-use engine from cfg and returns a query on it.
func New(g graph.Reader, ctx *columns.Context, params map[string]value.Value, cfg *config.Config, log logrus.FieldLogger) (*Query, error) {
	eng, err := NewEngine(cfg, log)
	if err != nil {
		return nil, err
	}
	return eng.NewQuery(g, ctx, params)
}

// ID returns the query's uuid.
func (q *Query) ID() string { return q.id }

// Env returns the binding environment expressions are compiled against.
func (q *Query) Env() expr.Env { return q.env }

// LastStats returns the statistics of the most recent filter run.
func (q *Query) LastStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

func (q *Query) fail(exprText string, err error) error {
	return &Error{QueryID: q.id, Expr: exprText, Err: err}
}

// Decode returns the expression tree for planner wire bytes, through the
// engine's cache.
func (q *Query) Decode(wire []byte) (*ir.Node, error) {
	n, err := q.engine.cache.Decode(wire)
	if err != nil {
		return nil, q.fail("", err)
	}
	return n, nil
}

// Compile compiles n for the vt entry point.
func (q *Query) Compile(n *ir.Node, vt expr.VarType) (*expr.Expr, error) {
	e, err := expr.Compile(n, q.env, vt)
	if err != nil {
		return nil, q.fail(n.String(), err)
	}
	return e, nil
}

// VertexPredicate compiles n into a vertex predicate; nil accepts all.
func (q *Query) VertexPredicate(n *ir.Node) (predicate.Vertex, error) {
	if n == nil {
		return predicate.AlwaysTrueVertex(), nil
	}
	e, err := q.Compile(n, expr.VertexVar)
	if err != nil {
		return predicate.Vertex{}, err
	}
	p, err := predicate.VertexExpression(e)
	if err != nil {
		return predicate.Vertex{}, q.fail(n.String(), err)
	}
	return p, nil
}

// EdgePredicate compiles n into an edge predicate restricted to triplets;
// nil accepts all edges of those types. The triplets also narrow the edge
// types n is bound against.
func (q *Query) EdgePredicate(n *ir.Node, triplets ...value.LabelTriplet) (predicate.Edge, error) {
	if n == nil {
		return predicate.AlwaysTrueEdge(triplets...), nil
	}
	env := q.env
	env.EdgeTriplets = triplets
	e, err := expr.Compile(n, env, expr.EdgeVar)
	if err != nil {
		return predicate.Edge{}, q.fail(n.String(), err)
	}
	p, err := predicate.EdgeExpression(e, triplets...)
	if err != nil {
		return predicate.Edge{}, q.fail(n.String(), err)
	}
	return p, nil
}

// PathPredicate compiles n into a row predicate; nil accepts all.
func (q *Query) PathPredicate(n *ir.Node) (predicate.Path, error) {
	if n == nil {
		return predicate.AlwaysTruePath(), nil
	}
	e, err := q.Compile(n, expr.PathVar)
	if err != nil {
		return predicate.Path{}, err
	}
	p, err := predicate.PathExpression(e)
	if err != nil {
		return predicate.Path{}, q.fail(n.String(), err)
	}
	return p, nil
}

// FilterVertices returns the positions in rows of the candidates p accepts,
// in order.
func (q *Query) FilterVertices(p predicate.Vertex, rows []predicate.VertexRow) ([]int, error) {
	return q.run(p.String(), len(rows), func(lo, hi int, a *arena.Arena, out []int) ([]int, error) {
		start := len(out)
		out, err := p.FilterRows(rows[lo:hi], a, out)
		if err != nil {
			return nil, err
		}
		for i := start; i < len(out); i++ {
			out[i] += lo
		}
		return out, nil
	})
}

// FilterEdges returns the positions in rows of the candidates p accepts, in
// order.
func (q *Query) FilterEdges(p predicate.Edge, rows []predicate.EdgeRow) ([]int, error) {
	return q.run(p.String(), len(rows), func(lo, hi int, a *arena.Arena, out []int) ([]int, error) {
		start := len(out)
		out, err := p.FilterRows(rows[lo:hi], a, out)
		if err != nil {
			return nil, err
		}
		for i := start; i < len(out); i++ {
			out[i] += lo
		}
		return out, nil
	})
}

// FilterPaths returns the context rows p accepts, in order. A nil rows
// filters every row of the context.
func (q *Query) FilterPaths(p predicate.Path, rows []int) ([]int, error) {
	if rows == nil {
		rows = make([]int, q.env.Context.RowCount())
		for i := range rows {
			rows[i] = i
		}
	}
	return q.run(p.String(), len(rows), func(lo, hi int, a *arena.Arena, out []int) ([]int, error) {
		return p.FilterRows(rows[lo:hi], a, out)
	})
}

func (q *Query) run(desc string, n int, fn batchFunc) ([]int, error) {
	log := q.log.WithFields(logrus.Fields{"predicate": desc, "rows": n})
	log.Debug("filter started")

	began := time.Now()
	out, rs, err := q.runParallel(n, fn)
	stats := Stats{
		Rows:      n,
		Matches:   len(out),
		Workers:   rs.workers,
		ArenaPeak: rs.arenaPeak,
		Duration:  time.Since(began),
	}
	q.mu.Lock()
	q.last = stats
	q.mu.Unlock()

	log = log.WithFields(logrus.Fields{
		"workers":    stats.Workers,
		"arena_peak": humanize.IBytes(uint64(stats.ArenaPeak)),
		"duration":   stats.Duration,
	})
	if err != nil {
		log.WithError(err).Error("filter failed")
		return nil, q.fail(desc, err)
	}
	log = log.WithField("matches", stats.Matches)
	if t := q.engine.cfg.Logging.SlowQueryThreshold; t > 0 && stats.Duration > t {
		log.Warn("slow filter")
	} else {
		log.Info("filter finished")
	}
	return out, nil
}
