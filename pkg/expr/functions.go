package expr

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/columns"
	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/graph"
	"github.com/orneryd/nornicrt/pkg/ir"
	"github.com/orneryd/nornicrt/pkg/simd"
	"github.com/orneryd/nornicrt/pkg/value"
)

// callEnv is what a built-in may consult besides its arguments.
type callEnv struct {
	schema *graph.Schema
	ctx    *columns.Context
}

type builtin struct {
	name    string
	minArgs int
	maxArgs int // -1: variadic
	result  func(args []value.Type) value.Type
	call    func(env *callEnv, b *Binding, args []value.Value) (value.Value, error)

	// lazy built-ins receive unevaluated arguments.
	lazy func(b *Binding, args []evaluator) (value.Value, error)
}

func fixed(t value.Type) func([]value.Type) value.Type {
	return func([]value.Type) value.Type { return t }
}

// absResult mirrors fnAbs: unsigned and Double arguments keep their type,
// signed integers widen to Int64.
func absResult(args []value.Type) value.Type {
	switch t := args[0]; {
	case t == value.TypeDouble, t.IsUnsigned():
		return t
	case t.IsInteger():
		return value.TypeInt64
	}
	return value.TypeUnknown
}

// builtins is the closed set of functions, keyed by lower-cased name.
var builtins = map[string]*builtin{}

func register(fns ...*builtin) {
	for _, fn := range fns {
		builtins[strings.ToLower(fn.name)] = fn
	}
}

func init() {
	register(
		// string
		&builtin{name: "toUpper", minArgs: 1, maxArgs: 1, result: fixed(value.TypeString), call: fnToUpper},
		&builtin{name: "toLower", minArgs: 1, maxArgs: 1, result: fixed(value.TypeString), call: fnToLower},
		&builtin{name: "trim", minArgs: 1, maxArgs: 1, result: fixed(value.TypeString), call: trimWith(strings.TrimSpace)},
		&builtin{name: "ltrim", minArgs: 1, maxArgs: 1, result: fixed(value.TypeString), call: trimWith(func(s string) string {
			return strings.TrimLeft(s, " \t\r\n")
		})},
		&builtin{name: "rtrim", minArgs: 1, maxArgs: 1, result: fixed(value.TypeString), call: trimWith(func(s string) string {
			return strings.TrimRight(s, " \t\r\n")
		})},
		&builtin{name: "substring", minArgs: 2, maxArgs: 3, result: fixed(value.TypeString), call: fnSubstring},
		&builtin{name: "left", minArgs: 2, maxArgs: 2, result: fixed(value.TypeString), call: fnLeft},
		&builtin{name: "right", minArgs: 2, maxArgs: 2, result: fixed(value.TypeString), call: fnRight},
		&builtin{name: "replace", minArgs: 3, maxArgs: 3, result: fixed(value.TypeString), call: fnReplace},
		&builtin{name: "split", minArgs: 2, maxArgs: 2, result: fixed(value.TypeList), call: fnSplit},
		&builtin{name: "size", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: fnSize},
		&builtin{name: "toString", minArgs: 1, maxArgs: 1, result: fixed(value.TypeString), call: castTo(value.TypeString)},

		// numeric
		&builtin{name: "toInteger", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: castTo(value.TypeInt64)},
		&builtin{name: "toFloat", minArgs: 1, maxArgs: 1, result: fixed(value.TypeDouble), call: castTo(value.TypeDouble)},
		&builtin{name: "abs", minArgs: 1, maxArgs: 1, result: absResult, call: fnAbs},
		&builtin{name: "ceil", minArgs: 1, maxArgs: 1, result: fixed(value.TypeDouble), call: mathFn(math.Ceil)},
		&builtin{name: "floor", minArgs: 1, maxArgs: 1, result: fixed(value.TypeDouble), call: mathFn(math.Floor)},
		&builtin{name: "round", minArgs: 1, maxArgs: 1, result: fixed(value.TypeDouble), call: mathFn(math.Round)},
		&builtin{name: "sqrt", minArgs: 1, maxArgs: 1, result: fixed(value.TypeDouble), call: mathFn(math.Sqrt)},
		&builtin{name: "sign", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: fnSign},
		&builtin{name: "pi", minArgs: 0, maxArgs: 0, result: fixed(value.TypeDouble), call: func(*callEnv, *Binding, []value.Value) (value.Value, error) {
			return value.Double(math.Pi), nil
		}},

		// vector
		&builtin{name: "dot", minArgs: 2, maxArgs: 2, result: fixed(value.TypeDouble), call: vectorFn(simd.DotProduct)},
		&builtin{name: "cosineSimilarity", minArgs: 2, maxArgs: 2, result: fixed(value.TypeDouble), call: vectorFn(simd.CosineSimilarity)},
		&builtin{name: "distance", minArgs: 2, maxArgs: 2, result: fixed(value.TypeDouble), call: vectorFn(simd.EuclideanDistance)},
		&builtin{name: "norm", minArgs: 1, maxArgs: 1, result: fixed(value.TypeDouble), call: fnNorm},

		// temporal
		&builtin{name: "year", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: timePart(func(y, _, _, _, _, _ int) int { return y })},
		&builtin{name: "month", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: timePart(func(_, m, _, _, _, _ int) int { return m })},
		&builtin{name: "day", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: timePart(func(_, _, d, _, _, _ int) int { return d })},
		&builtin{name: "hour", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: timePart(func(_, _, _, h, _, _ int) int { return h })},
		&builtin{name: "minute", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: timePart(func(_, _, _, _, mi, _ int) int { return mi })},
		&builtin{name: "second", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: timePart(func(_, _, _, _, _, s int) int { return s })},
		&builtin{name: "epochMillis", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: fnEpochMillis},
		&builtin{name: "date", minArgs: 1, maxArgs: 1, result: fixed(value.TypeDate), call: castTo(value.TypeDate)},
		&builtin{name: "datetime", minArgs: 1, maxArgs: 1, result: fixed(value.TypeTimestamp), call: castTo(value.TypeTimestamp)},

		// element and list
		&builtin{name: "id", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: fnID},
		&builtin{name: "label", minArgs: 1, maxArgs: 1, result: fixed(value.TypeString), call: fnLabel},
		&builtin{name: "type", minArgs: 1, maxArgs: 1, result: fixed(value.TypeString), call: fnLabel},
		&builtin{name: "startNode", minArgs: 1, maxArgs: 1, result: fixed(value.TypeVertex), call: endpoint(true)},
		&builtin{name: "endNode", minArgs: 1, maxArgs: 1, result: fixed(value.TypeVertex), call: endpoint(false)},
		&builtin{name: "length", minArgs: 1, maxArgs: 1, result: fixed(value.TypeInt64), call: fnLength},
		&builtin{name: "nodes", minArgs: 1, maxArgs: 1, result: fixed(value.TypeList), call: fnNodes},
		&builtin{name: "relationships", minArgs: 1, maxArgs: 1, result: fixed(value.TypeList), call: fnRelationships},
		&builtin{name: "head", minArgs: 1, maxArgs: 1, result: fixed(value.TypeUnknown), call: listEnd(true)},
		&builtin{name: "last", minArgs: 1, maxArgs: 1, result: fixed(value.TypeUnknown), call: listEnd(false)},
		&builtin{name: "coalesce", minArgs: 1, maxArgs: -1, result: coalesceType, lazy: fnCoalesce},
	)
}

type callNode struct {
	fn   *builtin
	env  *callEnv
	args []evaluator
	typ  value.Type
	src  *ir.Node
}

func (c *compiler) compileCall(n *ir.Node) (evaluator, error) {
	fn, ok := builtins[strings.ToLower(n.Name)]
	if !ok {
		return nil, evalerr.TypeMismatch("unknown function %s()", n.Name)
	}
	if len(n.Args) < fn.minArgs || (fn.maxArgs >= 0 && len(n.Args) > fn.maxArgs) {
		return nil, evalerr.ContextMismatch("%s() takes %s arguments, got %d", fn.name, arity(fn), len(n.Args))
	}
	args, err := c.compileAll(n.Args)
	if err != nil {
		return nil, err
	}
	types := make([]value.Type, len(args))
	for i, a := range args {
		types[i] = a.staticType()
	}
	return &callNode{
		fn:   fn,
		env:  &callEnv{schema: c.env.schema(), ctx: c.env.Context},
		args: args,
		typ:  fn.result(types),
		src:  n,
	}, nil
}

func arity(fn *builtin) string {
	switch {
	case fn.maxArgs < 0:
		return "at least " + strconv.Itoa(fn.minArgs)
	case fn.minArgs == fn.maxArgs:
		return strconv.Itoa(fn.minArgs)
	default:
		return strconv.Itoa(fn.minArgs) + " to " + strconv.Itoa(fn.maxArgs)
	}
}

func (n *callNode) eval(b *Binding) (value.Value, error) {
	if n.fn.lazy != nil {
		return n.fn.lazy(b, n.args)
	}
	vals := makeValues(b.Arena, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(b)
		if err != nil {
			return v, err
		}
		vals[i] = v
	}
	out, err := n.fn.call(n.env, b, vals)
	if err != nil {
		return out, fail(n.src, err)
	}
	return out, nil
}

func (n *callNode) staticType() value.Type { return n.typ }

// Casers are not safe for concurrent use.
var (
	upperCasers = sync.Pool{New: func() any { return cases.Upper(language.Und) }}
	lowerCasers = sync.Pool{New: func() any { return cases.Lower(language.Und) }}
)

func fnToUpper(_ *callEnv, b *Binding, args []value.Value) (value.Value, error) {
	return changeCase(b.Arena, args[0], &upperCasers, 'a', 'z', -0x20)
}

func fnToLower(_ *callEnv, b *Binding, args []value.Value) (value.Value, error) {
	return changeCase(b.Arena, args[0], &lowerCasers, 'A', 'Z', 0x20)
}

// changeCase maps ASCII in place into arena memory and hands everything else
// to a pooled x/text caser.
func changeCase(a *arena.Arena, v value.Value, pool *sync.Pool, lo, hi byte, delta int) (value.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	s, err := v.AsString()
	if err != nil {
		return value.Value{}, err
	}
	if s == "" {
		return v, nil
	}
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if !ascii {
		c := pool.Get().(cases.Caser)
		out := c.String(s)
		pool.Put(c)
		return value.CopyString(a, out), nil
	}
	var buf []byte
	if a == nil {
		buf = make([]byte, len(s))
	} else {
		buf = a.Alloc(len(s))
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= lo && ch <= hi {
			ch = byte(int(ch) + delta)
		}
		buf[i] = ch
	}
	if a == nil {
		return value.String(string(buf)), nil
	}
	return value.ArenaString(a, unsafe.String(&buf[0], len(buf))), nil
}

func trimWith(trim func(string) string) func(*callEnv, *Binding, []value.Value) (value.Value, error) {
	return func(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
		if args[0].IsNull() {
			return args[0], nil
		}
		s, err := args[0].AsString()
		if err != nil {
			return value.Value{}, err
		}
		return args[0].Derive(trim(s)), nil
	}
}

// runeOffset returns the byte offset of the n-th rune of s, or len(s).
func runeOffset(s string, n int64) int {
	if n <= 0 {
		return 0
	}
	var i int64
	for off := range s {
		if i == n {
			return off
		}
		i++
	}
	return len(s)
}

func intArg(v value.Value, what string) (int64, error) {
	n, err := v.AsInt64()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, evalerr.TypeMismatch("%s must not be negative, got %d", what, n)
	}
	return n, nil
}

func fnSubstring(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
	for _, a := range args {
		if a.IsNull() {
			return value.Null(), nil
		}
	}
	s, err := args[0].AsString()
	if err != nil {
		return value.Value{}, err
	}
	start, err := intArg(args[1], "substring start")
	if err != nil {
		return value.Value{}, err
	}
	from := runeOffset(s, start)
	to := len(s)
	if len(args) == 3 {
		n, err := intArg(args[2], "substring length")
		if err != nil {
			return value.Value{}, err
		}
		to = from + runeOffset(s[from:], n)
	}
	return args[0].Derive(s[from:to]), nil
}

func fnLeft(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
	if args[0].IsNull() || args[1].IsNull() {
		return value.Null(), nil
	}
	s, err := args[0].AsString()
	if err != nil {
		return value.Value{}, err
	}
	n, err := intArg(args[1], "length")
	if err != nil {
		return value.Value{}, err
	}
	return args[0].Derive(s[:runeOffset(s, n)]), nil
}

func fnRight(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
	if args[0].IsNull() || args[1].IsNull() {
		return value.Null(), nil
	}
	s, err := args[0].AsString()
	if err != nil {
		return value.Value{}, err
	}
	n, err := intArg(args[1], "length")
	if err != nil {
		return value.Value{}, err
	}
	total := int64(utf8.RuneCountInString(s))
	if n >= total {
		return args[0], nil
	}
	return args[0].Derive(s[runeOffset(s, total-n):]), nil
}

func fnReplace(_ *callEnv, b *Binding, args []value.Value) (value.Value, error) {
	var parts [3]string
	for i, a := range args {
		if a.IsNull() {
			return value.Null(), nil
		}
		s, err := a.AsString()
		if err != nil {
			return value.Value{}, err
		}
		parts[i] = s
	}
	return value.CopyString(b.Arena, strings.ReplaceAll(parts[0], parts[1], parts[2])), nil
}

func fnSplit(_ *callEnv, b *Binding, args []value.Value) (value.Value, error) {
	if args[0].IsNull() || args[1].IsNull() {
		return value.Null(), nil
	}
	s, err := args[0].AsString()
	if err != nil {
		return value.Value{}, err
	}
	sep, err := args[1].AsString()
	if err != nil {
		return value.Value{}, err
	}
	pieces := strings.Split(s, sep)
	out := makeValues(b.Arena, len(pieces))
	for i, p := range pieces {
		out[i] = args[0].Derive(p)
	}
	return wrapList(b.Arena, out), nil
}

func fnSize(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
	switch v := args[0]; v.Type() {
	case value.TypeNull:
		return v, nil
	case value.TypeString:
		s, _ := v.AsString()
		return value.Int64(int64(utf8.RuneCountInString(s))), nil
	case value.TypeList:
		items, _ := v.AsList()
		return value.Int64(int64(len(items))), nil
	default:
		return value.Value{}, evalerr.TypeMismatch("size() expects a string or list, got %s", v.Type())
	}
}

func castTo(t value.Type) func(*callEnv, *Binding, []value.Value) (value.Value, error) {
	return func(_ *callEnv, b *Binding, args []value.Value) (value.Value, error) {
		return value.Cast(args[0], t, b.Arena)
	}
}

func fnAbs(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
	v := args[0]
	switch {
	case v.IsNull():
		return v, nil
	case v.Type() == value.TypeDouble:
		f, _ := v.AsFloat64()
		return value.Double(math.Abs(f)), nil
	case v.Type().IsUnsigned():
		return v, nil
	}
	i, err := v.AsInt64()
	if err != nil {
		return value.Value{}, err
	}
	if i < 0 {
		i = -i
	}
	return value.Int64(i), nil
}

func mathFn(f func(float64) float64) func(*callEnv, *Binding, []value.Value) (value.Value, error) {
	return func(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
		if args[0].IsNull() {
			return args[0], nil
		}
		x, err := args[0].AsFloat64()
		if err != nil {
			return value.Value{}, err
		}
		return value.Double(f(x)), nil
	}
}

func fnSign(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
	if args[0].IsNull() {
		return args[0], nil
	}
	x, err := args[0].AsFloat64()
	if err != nil {
		return value.Value{}, err
	}
	switch {
	case x > 0:
		return value.Int64(1), nil
	case x < 0:
		return value.Int64(-1), nil
	}
	return value.Int64(0), nil
}

// floats converts a numeric list into arena-backed float64s.
func floats(a *arena.Arena, v value.Value) ([]float64, error) {
	items, err := v.AsList()
	if err != nil {
		return nil, err
	}
	var out []float64
	if a == nil {
		out = make([]float64, len(items))
	} else {
		out = arena.MakeSlice[float64](a, len(items))
	}
	for i, item := range items {
		f, err := item.AsFloat64()
		if err != nil {
			return nil, evalerr.TypeMismatch("vector element %d: expected number, got %s", i, item.Type())
		}
		out[i] = f
	}
	return out, nil
}

func vectorFn(f func(a, b []float64) float64) func(*callEnv, *Binding, []value.Value) (value.Value, error) {
	return func(_ *callEnv, b *Binding, args []value.Value) (value.Value, error) {
		if args[0].IsNull() || args[1].IsNull() {
			return value.Null(), nil
		}
		x, err := floats(b.Arena, args[0])
		if err != nil {
			return value.Value{}, err
		}
		y, err := floats(b.Arena, args[1])
		if err != nil {
			return value.Value{}, err
		}
		if len(x) != len(y) {
			return value.Value{}, evalerr.TypeMismatch("vector length mismatch: %d vs %d", len(x), len(y))
		}
		return value.Double(f(x, y)), nil
	}
}

func fnNorm(_ *callEnv, b *Binding, args []value.Value) (value.Value, error) {
	if args[0].IsNull() {
		return args[0], nil
	}
	x, err := floats(b.Arena, args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Double(simd.Norm(x)), nil
}

func timePart(pick func(y, mo, d, h, mi, s int) int) func(*callEnv, *Binding, []value.Value) (value.Value, error) {
	return func(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
		if args[0].IsNull() {
			return args[0], nil
		}
		t, err := args[0].AsTime()
		if err != nil {
			return value.Value{}, err
		}
		y, mo, d := t.Date()
		h, mi, s := t.Clock()
		return value.Int64(int64(pick(y, int(mo), d, h, mi, s))), nil
	}
}

func fnEpochMillis(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
	if args[0].IsNull() {
		return args[0], nil
	}
	t, err := args[0].AsTime()
	if err != nil {
		return value.Value{}, err
	}
	return value.Int64(t.UnixMilli()), nil
}

func fnID(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return v, nil
	}
	vtx, err := v.AsVertex()
	if err != nil {
		return value.Value{}, err
	}
	if vtx.IsNull() {
		return value.Null(), nil
	}
	return value.Int64(int64(vtx.ID)), nil
}

func fnLabel(env *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
	v := args[0]
	if env.schema == nil && !v.IsNull() {
		return value.Value{}, evalerr.ContextMismatch("label() needs a graph schema")
	}
	switch v.Type() {
	case value.TypeNull:
		return v, nil
	case value.TypeVertex:
		vtx, _ := v.AsVertex()
		if vtx.IsNull() {
			return value.Null(), nil
		}
		return value.String(env.schema.VertexLabelName(vtx.Label)), nil
	case value.TypeEdge:
		e, _ := v.AsEdge()
		return value.String(env.schema.EdgeLabelName(e.Triplet.Edge)), nil
	}
	return value.Value{}, evalerr.TypeMismatch("expected vertex or edge, got %s", v.Type())
}

func endpoint(start bool) func(*callEnv, *Binding, []value.Value) (value.Value, error) {
	return func(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
		if args[0].IsNull() {
			return args[0], nil
		}
		e, err := args[0].AsEdge()
		if err != nil {
			return value.Value{}, err
		}
		if start {
			return value.VertexValue(value.Vertex{Label: e.Triplet.Src, ID: e.Src}), nil
		}
		return value.VertexValue(value.Vertex{Label: e.Triplet.Dst, ID: e.Dst}), nil
	}
}

func (env *callEnv) path(v value.Value) (columns.Path, error) {
	ref, err := v.AsPath()
	if err != nil {
		return columns.Path{}, err
	}
	col, ok := env.ctx.Get(ref.Tag)
	if !ok {
		return columns.Path{}, evalerr.ContextMismatch("path column %d is not bound", ref.Tag)
	}
	pc, ok := col.(*columns.PathColumn)
	if !ok {
		return columns.Path{}, evalerr.ContextMismatch("column %d is a %s column, not a path column", ref.Tag, col.Kind())
	}
	if ref.Row < 0 || ref.Row >= pc.Size() {
		return columns.Path{}, evalerr.ContextMismatch("path row %d out of range [0, %d)", ref.Row, pc.Size())
	}
	return pc.Path(ref.Row), nil
}

func fnLength(env *callEnv, b *Binding, args []value.Value) (value.Value, error) {
	if args[0].Type() == value.TypePath {
		p, err := env.path(args[0])
		if err != nil {
			return value.Value{}, err
		}
		return value.Int64(int64(p.Len())), nil
	}
	return fnSize(env, b, args)
}

func fnNodes(env *callEnv, b *Binding, args []value.Value) (value.Value, error) {
	if args[0].IsNull() {
		return args[0], nil
	}
	p, err := env.path(args[0])
	if err != nil {
		return value.Value{}, err
	}
	out := makeValues(b.Arena, len(p.Vertices))
	for i, v := range p.Vertices {
		out[i] = value.VertexValue(v)
	}
	return wrapList(b.Arena, out), nil
}

func fnRelationships(env *callEnv, b *Binding, args []value.Value) (value.Value, error) {
	if args[0].IsNull() {
		return args[0], nil
	}
	p, err := env.path(args[0])
	if err != nil {
		return value.Value{}, err
	}
	out := makeValues(b.Arena, len(p.Edges))
	for i, e := range p.Edges {
		out[i] = value.EdgeValue(b.Arena, e)
	}
	return wrapList(b.Arena, out), nil
}

func listEnd(first bool) func(*callEnv, *Binding, []value.Value) (value.Value, error) {
	return func(_ *callEnv, _ *Binding, args []value.Value) (value.Value, error) {
		if args[0].IsNull() {
			return args[0], nil
		}
		items, err := args[0].AsList()
		if err != nil {
			return value.Value{}, err
		}
		if len(items) == 0 {
			return value.Null(), nil
		}
		if first {
			return items[0], nil
		}
		return items[len(items)-1], nil
	}
}

// coalesce stops at the first non-null argument; later ones are not
// evaluated.
func fnCoalesce(b *Binding, args []evaluator) (value.Value, error) {
	for _, a := range args {
		v, err := a.eval(b)
		if err != nil {
			return v, err
		}
		if !v.IsNull() {
			return v, nil
		}
	}
	return value.Null(), nil
}

func coalesceType(args []value.Type) value.Type {
	typ := value.TypeNull
	for i, t := range args {
		typ = joinTypes(typ, t, i > 0)
	}
	return typ
}
