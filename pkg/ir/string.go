package ir

import (
	"strconv"
	"strings"

	"github.com/orneryd/nornicrt/pkg/value"
)

// String renders n in a Cypher-like form. It is used in error messages and
// by tooling; it is not meant to be parsed back.
func (n *Node) String() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	switch n.Kind {
	case KindLiteral:
		renderLiteral(b, n.Value)
	case KindVar:
		name := n.Name
		if name == "" {
			if n.Tag == CurrentTag {
				name = "this"
			} else {
				name = "#" + strconv.Itoa(n.Tag)
			}
		}
		b.WriteString(name)
		if n.Property != "" {
			b.WriteByte('.')
			b.WriteString(n.Property)
		}
	case KindParam:
		b.WriteByte('$')
		b.WriteString(n.Name)
	case KindUnary:
		switch n.Op {
		case OpNot:
			b.WriteString("NOT ")
			n.arg(0).render(b)
		case OpNeg:
			b.WriteByte('-')
			n.arg(0).render(b)
		default:
			n.arg(0).render(b)
			b.WriteByte(' ')
			b.WriteString(n.Op.Symbol())
		}
	case KindBinary, KindLogical:
		b.WriteByte('(')
		n.arg(0).render(b)
		b.WriteByte(' ')
		b.WriteString(n.Op.Symbol())
		b.WriteByte(' ')
		n.arg(1).render(b)
		b.WriteByte(')')
	case KindCall:
		b.WriteString(n.Name)
		b.WriteByte('(')
		renderList(b, n.Args)
		b.WriteByte(')')
	case KindCast:
		b.WriteString("CAST(")
		n.arg(0).render(b)
		b.WriteString(" AS ")
		b.WriteString(n.Type.String())
		b.WriteByte(')')
	case KindList:
		b.WriteByte('[')
		renderList(b, n.Args)
		b.WriteByte(']')
	case KindCase:
		b.WriteString("CASE")
		if n.Operand != nil {
			b.WriteByte(' ')
			n.Operand.render(b)
		}
		for _, w := range n.Whens {
			b.WriteString(" WHEN ")
			w.When.render(b)
			b.WriteString(" THEN ")
			w.Then.render(b)
		}
		if n.Else != nil {
			b.WriteString(" ELSE ")
			n.Else.render(b)
		}
		b.WriteString(" END")
	default:
		b.WriteString("<invalid>")
	}
}

func (n *Node) arg(i int) *Node {
	if i < len(n.Args) {
		return n.Args[i]
	}
	return nil
}

func renderList(b *strings.Builder, nodes []*Node) {
	for i, a := range nodes {
		if i > 0 {
			b.WriteString(", ")
		}
		a.render(b)
	}
}

func renderLiteral(b *strings.Builder, v value.Value) {
	switch v.Type() {
	case value.TypeString:
		s, _ := v.AsString()
		b.WriteByte('\'')
		b.WriteString(strings.ReplaceAll(s, "'", "\\'"))
		b.WriteByte('\'')
	case value.TypeDate:
		b.WriteString("date('")
		b.WriteString(v.String())
		b.WriteString("')")
	case value.TypeTimestamp:
		b.WriteString("datetime('")
		b.WriteString(v.String())
		b.WriteString("')")
	case value.TypeList:
		items, _ := v.AsList()
		b.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				b.WriteString(", ")
			}
			renderLiteral(b, item)
		}
		b.WriteByte(']')
	default:
		b.WriteString(v.String())
	}
}
