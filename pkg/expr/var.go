package expr

import (
	"github.com/orneryd/nornicrt/pkg/columns"
	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/graph"
	"github.com/orneryd/nornicrt/pkg/ir"
	"github.com/orneryd/nornicrt/pkg/value"
)

// VarKind is the resolution strategy of a Var, fixed at construction.
type VarKind uint8

const (
	// VarColumn reads a context column, or the bound element itself.
	VarColumn VarKind = iota
	// VarProperty reads a property of a column element or the bound element.
	VarProperty
	// VarParam is a query parameter, looked up once.
	VarParam
	// VarLiteral is a constant.
	VarLiteral
)

func (k VarKind) String() string {
	switch k {
	case VarColumn:
		return "column"
	case VarProperty:
		return "property"
	case VarParam:
		return "param"
	case VarLiteral:
		return "literal"
	}
	return "unknown"
}

// Special properties answered from the element identity when the schema
// does not define a property of that name.
const (
	specialNone uint8 = iota
	specialID
	specialLabel
)

func specialOf(prop string) uint8 {
	switch prop {
	case "id":
		return specialID
	case "label":
		return specialLabel
	}
	return specialNone
}

type edgeProp struct {
	props []graph.PropertyDef
	idx   int
}

// Var binds an expression leaf to where its value comes from. The binding
// is resolved once; Resolve only replays it.
type Var struct {
	kind    VarKind
	varType VarType
	name    string
	prop    string
	bound   bool // addresses the element bound by the eval call
	tag     int
	typ     value.Type
	src     *ir.Node

	lit  value.Value // VarLiteral, VarParam
	col  columns.Column
	vcol *columns.VertexColumn
	ecol *columns.EdgeColumn

	schema     *graph.Schema
	special    uint8
	vertexCols []graph.PropertyColumn // indexed by label; nil where absent
	edgeProps  map[value.LabelTriplet]edgeProp
}

// NewVar resolves a Literal, Param or Var node against env.
//
// Errors: a column tag missing from the context, a parameter missing from
// the params, or the bound element of a PathVar expression is
// UnresolvedVariable; a property no candidate label defines is
// PropertyNotFound.
func NewVar(n *ir.Node, env Env, vt VarType) (*Var, error) {
	v := &Var{varType: vt, name: n.Name, prop: n.Property, tag: n.Tag, src: n, schema: env.schema()}
	switch n.Kind {
	case ir.KindLiteral:
		v.kind = VarLiteral
		v.lit = n.Value
		v.typ = n.Value.Type()
		return v, nil
	case ir.KindParam:
		p, ok := env.Params[n.Name]
		if !ok {
			return nil, evalerr.Unresolved("$" + n.Name)
		}
		v.kind = VarParam
		v.lit = p.Detach()
		v.typ = v.lit.Type()
		return v, nil
	case ir.KindVar:
	default:
		return nil, evalerr.TypeMismatch("%s node is not a variable", n.Kind)
	}

	v.bound = n.Tag == ir.CurrentTag
	if v.bound && vt == PathVar {
		return nil, evalerr.Unresolved(v.displayName())
	}
	if !v.bound {
		col, ok := env.Context.Get(n.Tag)
		if !ok {
			return nil, evalerr.Unresolved(v.displayName())
		}
		v.col = col
	}

	if n.Property == "" {
		v.kind = VarColumn
		switch {
		case v.col != nil:
			v.typ = v.col.ElemType()
		case vt == VertexVar:
			v.typ = value.TypeVertex
		default:
			v.typ = value.TypeEdge
		}
		return v, nil
	}

	v.kind = VarProperty
	v.special = specialOf(n.Property)
	if v.schema == nil {
		return nil, evalerr.PropertyNotFound(v.displayName(), n.Property)
	}
	elemKind := columns.KindVertex
	if v.col != nil {
		elemKind = v.col.Kind()
	} else if vt == EdgeVar {
		elemKind = columns.KindEdge
	}
	switch elemKind {
	case columns.KindVertex:
		labels := vertexLabels(env)
		if v.col != nil {
			vc, ok := v.col.(*columns.VertexColumn)
			if !ok {
				return nil, evalerr.TypeMismatch("column %d is not a vertex column", n.Tag)
			}
			v.vcol = vc
			if len(vc.Labels()) > 0 {
				labels = vc.Labels()
			}
		}
		if err := v.bindVertexProperty(env.Graph, labels); err != nil {
			return nil, err
		}
	case columns.KindEdge:
		triplets := edgeTriplets(env)
		if v.col != nil {
			ec, ok := v.col.(*columns.EdgeColumn)
			if !ok {
				return nil, evalerr.TypeMismatch("column %d is not an edge column", n.Tag)
			}
			v.ecol = ec
			if len(ec.Triplets()) > 0 {
				triplets = ec.Triplets()
			}
		}
		if err := v.bindEdgeProperty(triplets); err != nil {
			return nil, err
		}
	default:
		return nil, evalerr.TypeMismatch("cannot read property %q of a %s column", n.Property, elemKind)
	}
	return v, nil
}

func (v *Var) bindVertexProperty(g graph.Reader, labels []value.Label) error {
	v.vertexCols = make([]graph.PropertyColumn, v.schema.VertexLabelCount())
	found := false
	typ := value.TypeUnknown
	for _, l := range labels {
		idx, ok := v.schema.VertexPropertyIndex(l, v.prop)
		if !ok {
			continue
		}
		col, err := g.VertexPropertyColumn(l, v.prop)
		if err != nil {
			return err
		}
		v.vertexCols[l] = col
		typ = joinTypes(typ, v.schema.VertexProperties(l)[idx].Type, found)
		found = true
	}
	switch {
	case found && v.special == specialNone:
	case found:
		// a schema property shadows the identity one on its labels only
		typ = value.TypeUnknown
	case v.special == specialID:
		typ = value.TypeInt64
	case v.special == specialLabel:
		typ = value.TypeString
	default:
		return evalerr.PropertyNotFound(v.displayName(), v.prop)
	}
	v.typ = typ
	return nil
}

func (v *Var) bindEdgeProperty(triplets []value.LabelTriplet) error {
	v.edgeProps = make(map[value.LabelTriplet]edgeProp, len(triplets))
	found := false
	typ := value.TypeUnknown
	for _, t := range triplets {
		props, _ := v.schema.EdgeProperties(t)
		idx, ok := v.schema.EdgePropertyIndex(t, v.prop)
		if !ok {
			continue
		}
		v.edgeProps[t] = edgeProp{props: props, idx: idx}
		typ = joinTypes(typ, props[idx].Type, found)
		found = true
	}
	if v.special == specialID {
		v.special = specialNone // edges carry no id
	}
	switch {
	case found && v.special == specialNone:
	case found:
		typ = value.TypeUnknown
	case v.special == specialLabel:
		typ = value.TypeString
	default:
		return evalerr.PropertyNotFound(v.displayName(), v.prop)
	}
	v.typ = typ
	return nil
}

// joinTypes merges the static types of alternatives: equal types stay,
// anything else is unknown until runtime.
func joinTypes(acc, t value.Type, seen bool) value.Type {
	if !seen || acc == t {
		return t
	}
	if acc == value.TypeNull {
		return t
	}
	if t == value.TypeNull {
		return acc
	}
	return value.TypeUnknown
}

func (v *Var) displayName() string {
	switch {
	case v.name != "":
		return v.name
	case v.bound:
		return "this"
	default:
		return v.src.String()
	}
}

// Kind returns the resolution strategy.
func (v *Var) Kind() VarKind { return v.kind }

// Type returns the static type, TypeUnknown when it varies per element.
func (v *Var) Type() value.Type { return v.typ }

// Resolve produces the variable's value for one evaluation call.
func (v *Var) Resolve(b *Binding) (value.Value, error) {
	switch v.kind {
	case VarLiteral, VarParam:
		return v.lit, nil
	case VarColumn:
		if v.col == nil {
			if v.varType == VertexVar {
				if b.VID == value.NullVID {
					return value.Null(), nil
				}
				return value.VertexValue(value.Vertex{Label: b.Label, ID: b.VID}), nil
			}
			return value.EdgeValue(b.Arena, b.Edge), nil
		}
		if ec, ok := v.col.(*columns.EdgeColumn); ok {
			return value.EdgeValue(b.Arena, ec.Edge(b.Row)), nil
		}
		return v.col.At(v.tag, b.Row), nil
	}

	if v.edgeProps != nil {
		e := b.Edge
		if v.ecol != nil {
			e = v.ecol.Edge(b.Row)
		}
		return v.edgeProperty(e)
	}
	label, vid := b.Label, b.VID
	if v.vcol != nil {
		vtx := v.vcol.Vertex(b.Row)
		label, vid = vtx.Label, vtx.ID
	}
	return v.vertexProperty(label, vid)
}

func (v *Var) vertexProperty(label value.Label, vid value.VID) (value.Value, error) {
	if vid == value.NullVID {
		return value.Null(), nil
	}
	if int(label) < len(v.vertexCols) {
		if col := v.vertexCols[label]; col != nil {
			return col.Get(vid)
		}
	}
	switch v.special {
	case specialID:
		return value.Int64(int64(vid)), nil
	case specialLabel:
		return value.String(v.schema.VertexLabelName(label)), nil
	}
	return value.Value{}, evalerr.PropertyNotFound(v.schema.VertexElementName(label, vid), v.prop)
}

func (v *Var) edgeProperty(e value.Edge) (value.Value, error) {
	p, ok := v.edgeProps[e.Triplet]
	if !ok {
		if v.special == specialLabel {
			return value.String(v.schema.EdgeLabelName(e.Triplet.Edge)), nil
		}
		return value.Value{}, evalerr.PropertyNotFound(v.schema.TripletName(e.Triplet), v.prop)
	}
	return graph.EdgeDataProperty(p.props, e.Data, p.idx)
}

func (v *Var) eval(b *Binding) (value.Value, error) {
	out, err := v.Resolve(b)
	if err != nil {
		return out, evalerr.WithExpr(err, v.src.String())
	}
	return out, nil
}

func (v *Var) staticType() value.Type { return v.typ }

// usesRow reports whether the var reads the context row.
func (v *Var) usesRow() bool { return v.col != nil }
