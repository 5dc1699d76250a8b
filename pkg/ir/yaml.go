package ir

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/nornicrt/pkg/value"
)

// YAML form, one mapping per node:
//
//	op: AND
//	args:
//	  - {op: ">", args: [{var: n, property: age}, {literal: 18}]}
//	  - {op: "IS NOT NULL", args: [{var: n, tag: 0, property: name}]}
//
// Keys: literal (+ type), var (+ tag, property), param, op + args,
// call + args, cast + type, list, case.
type yamlNode struct {
	Literal  yaml.Node `yaml:"literal"`
	Type     string    `yaml:"type"`
	Var      string    `yaml:"var"`
	Tag      *int      `yaml:"tag"`
	Property string    `yaml:"property"`
	Param    string    `yaml:"param"`
	Op       string    `yaml:"op"`
	Call     string    `yaml:"call"`
	Cast     *Node     `yaml:"cast"`
	Args     []*Node   `yaml:"args"`
	List     []*Node   `yaml:"list"`
	Case     *yamlCase `yaml:"case"`
}

type yamlCase struct {
	Operand *Node      `yaml:"operand,omitempty"`
	Whens   []yamlWhen `yaml:"whens"`
	Else    *Node      `yaml:"else,omitempty"`
}

type yamlWhen struct {
	When *Node `yaml:"when"`
	Then *Node `yaml:"then"`
}

// yamlOut mirrors yamlNode for encoding; a pointer literal keeps explicit
// nulls while omitting absent ones.
type yamlOut struct {
	Literal  *yaml.Node `yaml:"literal,omitempty"`
	Type     string     `yaml:"type,omitempty"`
	Var      string     `yaml:"var,omitempty"`
	Tag      *int       `yaml:"tag,omitempty"`
	Property string     `yaml:"property,omitempty"`
	Param    string     `yaml:"param,omitempty"`
	Op       string     `yaml:"op,omitempty"`
	Call     string     `yaml:"call,omitempty"`
	Cast     *Node      `yaml:"cast,omitempty"`
	Args     []*Node    `yaml:"args,omitempty"`
	List     []*Node    `yaml:"list,omitempty"`
	Case     *yamlCase  `yaml:"case,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Node) UnmarshalYAML(doc *yaml.Node) error {
	var y yamlNode
	if err := doc.Decode(&y); err != nil {
		return err
	}
	switch {
	case y.Literal.Kind != 0:
		var raw any
		if err := y.Literal.Decode(&raw); err != nil {
			return err
		}
		v, err := value.FromGo(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", doc.Line, err)
		}
		if y.Type != "" {
			t, ok := value.ParseType(y.Type)
			if !ok {
				return fmt.Errorf("%w: line %d: unknown type %q", ErrMalformed, doc.Line, y.Type)
			}
			if v, err = value.Cast(v, t, nil); err != nil {
				return fmt.Errorf("line %d: %w", doc.Line, err)
			}
		}
		*n = Node{Kind: KindLiteral, Value: v}
	case y.Var != "" || y.Tag != nil || y.Property != "":
		tag := CurrentTag
		if y.Tag != nil {
			tag = *y.Tag
		}
		*n = Node{Kind: KindVar, Tag: tag, Name: y.Var, Property: y.Property}
	case y.Param != "":
		*n = *Param(y.Param)
	case y.Op != "":
		op, ok := ParseOp(y.Op)
		if !ok {
			return fmt.Errorf("%w: line %d: unknown operator %q", ErrMalformed, doc.Line, y.Op)
		}
		kind := KindBinary
		switch {
		case op.IsUnary():
			kind = KindUnary
		case op.IsLogical():
			kind = KindLogical
		}
		*n = Node{Kind: kind, Op: op, Args: y.Args}
	case y.Call != "":
		*n = Node{Kind: KindCall, Name: y.Call, Args: y.Args}
	case y.Cast != nil:
		t, ok := value.ParseType(y.Type)
		if !ok {
			return fmt.Errorf("%w: line %d: unknown cast type %q", ErrMalformed, doc.Line, y.Type)
		}
		*n = *Cast(y.Cast, t)
	case y.List != nil:
		*n = Node{Kind: KindList, Args: y.List}
	case y.Case != nil:
		whens := make([]When, len(y.Case.Whens))
		for i, w := range y.Case.Whens {
			whens[i] = When{When: w.When, Then: w.Then}
		}
		*n = *Case(y.Case.Operand, whens, y.Case.Else)
	default:
		return fmt.Errorf("%w: line %d: node has no kind", ErrMalformed, doc.Line)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (n *Node) MarshalYAML() (any, error) {
	var out yamlOut
	switch n.Kind {
	case KindLiteral:
		lit := &yaml.Node{}
		if err := lit.Encode(n.Value.ToGo()); err != nil {
			return nil, err
		}
		switch n.Value.Type() {
		case value.TypeNull, value.TypeBool, value.TypeInt64, value.TypeString, value.TypeList:
		case value.TypeDate, value.TypeTimestamp:
			if err := lit.Encode(n.Value.String()); err != nil {
				return nil, err
			}
			out.Type = n.Value.Type().String()
		default:
			out.Type = n.Value.Type().String()
		}
		out.Literal = lit
	case KindVar:
		out.Var = n.Name
		if out.Var == "" && n.Tag == CurrentTag && n.Property == "" {
			out.Var = "this"
		}
		if n.Tag != CurrentTag {
			tag := n.Tag
			out.Tag = &tag
		}
		out.Property = n.Property
	case KindParam:
		out.Param = n.Name
	case KindUnary, KindBinary, KindLogical:
		out.Op = n.Op.Symbol()
		if n.Op == OpNeg {
			out.Op = "neg"
		}
		out.Args = n.Args
	case KindCall:
		out.Call = n.Name
		out.Args = n.Args
		if out.Args == nil {
			out.Args = []*Node{}
		}
	case KindCast:
		out.Cast = n.arg(0)
		out.Type = n.Type.String()
	case KindList:
		out.List = n.Args
		if out.List == nil {
			out.List = []*Node{}
		}
	case KindCase:
		c := &yamlCase{Operand: n.Operand, Else: n.Else}
		for _, w := range n.Whens {
			c.Whens = append(c.Whens, yamlWhen{When: w.When, Then: w.Then})
		}
		out.Case = c
	default:
		return nil, fmt.Errorf("%w: cannot encode %s node", ErrMalformed, n.Kind)
	}
	return out, nil
}

// ParseYAML decodes and validates a YAML expression.
func ParseYAML(r io.Reader) (*Node, error) {
	var n Node
	if err := yaml.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("failed to parse expression: %w", err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

// ParseYAMLFile reads a YAML expression from path.
func ParseYAMLFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseYAML(f)
}
