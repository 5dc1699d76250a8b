package ir

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/orneryd/nornicrt/pkg/value"
)

// Decoding errors
var (
	ErrMalformed = errors.New("ir: malformed expression")
	ErrTooDeep   = errors.New("ir: expression nesting too deep")
)

// MaxDepth bounds the nesting accepted by Unmarshal.
const MaxDepth = 256

// Field numbers of the Expression message.
const (
	fieldKind     protowire.Number = 1
	fieldOp       protowire.Number = 2
	fieldLiteral  protowire.Number = 3
	fieldTag      protowire.Number = 4
	fieldName     protowire.Number = 5
	fieldProperty protowire.Number = 6
	fieldType     protowire.Number = 7
	fieldArg      protowire.Number = 8
	fieldWhen     protowire.Number = 9
	fieldElse     protowire.Number = 10
	fieldOperand  protowire.Number = 11
)

// Field numbers of the When message.
const (
	fieldWhenCond protowire.Number = 1
	fieldWhenThen protowire.Number = 2
)

// Field numbers of the Literal message.
const (
	fieldLitType   protowire.Number = 1
	fieldLitInt    protowire.Number = 2
	fieldLitUint   protowire.Number = 3
	fieldLitDouble protowire.Number = 4
	fieldLitString protowire.Number = 5
	fieldLitItem   protowire.Number = 6
)

// Marshal encodes n in protobuf wire format.
func Marshal(n *Node) ([]byte, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return appendNode(nil, n)
}

func appendNode(b []byte, n *Node) ([]byte, error) {
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(n.Kind))
	if n.Op != OpNone {
		b = protowire.AppendTag(b, fieldOp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(n.Op))
	}
	if n.Kind == KindLiteral {
		lit, err := appendLiteral(nil, n.Value)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldLiteral, protowire.BytesType)
		b = protowire.AppendBytes(b, lit)
	}
	if n.Kind == KindVar {
		b = protowire.AppendTag(b, fieldTag, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(n.Tag)))
	}
	if n.Name != "" {
		b = protowire.AppendTag(b, fieldName, protowire.BytesType)
		b = protowire.AppendString(b, n.Name)
	}
	if n.Property != "" {
		b = protowire.AppendTag(b, fieldProperty, protowire.BytesType)
		b = protowire.AppendString(b, n.Property)
	}
	if n.Kind == KindCast {
		b = protowire.AppendTag(b, fieldType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(n.Type))
	}
	var err error
	for _, a := range n.Args {
		if b, err = appendChild(b, fieldArg, a); err != nil {
			return nil, err
		}
	}
	for _, w := range n.Whens {
		var wb []byte
		if wb, err = appendChild(nil, fieldWhenCond, w.When); err != nil {
			return nil, err
		}
		if wb, err = appendChild(wb, fieldWhenThen, w.Then); err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldWhen, protowire.BytesType)
		b = protowire.AppendBytes(b, wb)
	}
	if n.Else != nil {
		if b, err = appendChild(b, fieldElse, n.Else); err != nil {
			return nil, err
		}
	}
	if n.Operand != nil {
		if b, err = appendChild(b, fieldOperand, n.Operand); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func appendChild(b []byte, num protowire.Number, n *Node) ([]byte, error) {
	child, err := appendNode(nil, n)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, child), nil
}

func appendLiteral(b []byte, v value.Value) ([]byte, error) {
	b = protowire.AppendTag(b, fieldLitType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.Type()))
	switch v.Type() {
	case value.TypeNull:
	case value.TypeBool:
		ok, _ := v.AsBool()
		b = protowire.AppendTag(b, fieldLitInt, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(ok))
	case value.TypeInt32, value.TypeInt64:
		i, _ := v.AsInt64()
		b = protowire.AppendTag(b, fieldLitInt, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(i))
	case value.TypeUInt32, value.TypeUInt64:
		b = protowire.AppendTag(b, fieldLitUint, protowire.VarintType)
		b = protowire.AppendVarint(b, unsignedBits(v))
	case value.TypeDouble:
		f, _ := v.AsFloat64()
		b = protowire.AppendTag(b, fieldLitDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f))
	case value.TypeString:
		s, _ := v.AsString()
		b = protowire.AppendTag(b, fieldLitString, protowire.BytesType)
		b = protowire.AppendString(b, s)
	case value.TypeDate, value.TypeTimestamp:
		i, _ := value.Cast(v, value.TypeInt64, nil)
		n, _ := i.AsInt64()
		b = protowire.AppendTag(b, fieldLitInt, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(n))
	case value.TypeList:
		items, _ := v.AsList()
		for _, item := range items {
			ib, err := appendLiteral(nil, item)
			if err != nil {
				return nil, err
			}
			b = protowire.AppendTag(b, fieldLitItem, protowire.BytesType)
			b = protowire.AppendBytes(b, ib)
		}
	default:
		return nil, fmt.Errorf("%w: %s literal has no wire form", ErrMalformed, v.Type())
	}
	return b, nil
}

func unsignedBits(v value.Value) uint64 {
	switch u := v.ToGo().(type) {
	case uint32:
		return uint64(u)
	case uint64:
		return u
	}
	return 0
}

// Unmarshal decodes an expression from protobuf wire format. Unknown fields
// are skipped.
func Unmarshal(b []byte) (*Node, error) {
	n, err := consumeNode(b, 0)
	if err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func wireErr(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}

func consumeNode(b []byte, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	n := &Node{}
	for len(b) > 0 {
		num, typ, m := protowire.ConsumeTag(b)
		if m < 0 {
			return nil, wireErr(m)
		}
		b = b[m:]
		switch {
		case typ == protowire.VarintType && (num == fieldKind || num == fieldOp || num == fieldTag || num == fieldType):
			x, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, wireErr(m)
			}
			b = b[m:]
			switch num {
			case fieldKind:
				n.Kind = Kind(x)
			case fieldOp:
				n.Op = Op(x)
			case fieldTag:
				n.Tag = int(protowire.DecodeZigZag(x))
			case fieldType:
				n.Type = value.Type(x)
			}
		case typ == protowire.BytesType && num >= fieldLiteral && num <= fieldOperand:
			raw, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireErr(m)
			}
			b = b[m:]
			if err := n.setBytesField(num, raw, depth); err != nil {
				return nil, err
			}
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, wireErr(m)
			}
			b = b[m:]
		}
	}
	return n, nil
}

func (n *Node) setBytesField(num protowire.Number, raw []byte, depth int) error {
	switch num {
	case fieldLiteral:
		v, err := consumeLiteral(raw, depth+1)
		if err != nil {
			return err
		}
		n.Value = v
	case fieldName:
		n.Name = string(raw)
	case fieldProperty:
		n.Property = string(raw)
	case fieldArg, fieldElse, fieldOperand:
		child, err := consumeNode(raw, depth+1)
		if err != nil {
			return err
		}
		switch num {
		case fieldArg:
			n.Args = append(n.Args, child)
		case fieldElse:
			n.Else = child
		default:
			n.Operand = child
		}
	case fieldWhen:
		w, err := consumeWhen(raw, depth+1)
		if err != nil {
			return err
		}
		n.Whens = append(n.Whens, w)
	default:
		return fmt.Errorf("%w: field %d is not bytes", ErrMalformed, num)
	}
	return nil
}

func consumeWhen(b []byte, depth int) (When, error) {
	var w When
	for len(b) > 0 {
		num, typ, m := protowire.ConsumeTag(b)
		if m < 0 {
			return w, wireErr(m)
		}
		b = b[m:]
		if typ != protowire.BytesType || (num != fieldWhenCond && num != fieldWhenThen) {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return w, wireErr(m)
			}
			b = b[m:]
			continue
		}
		raw, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return w, wireErr(m)
		}
		b = b[m:]
		child, err := consumeNode(raw, depth+1)
		if err != nil {
			return w, err
		}
		if num == fieldWhenCond {
			w.When = child
		} else {
			w.Then = child
		}
	}
	return w, nil
}

func consumeLiteral(b []byte, depth int) (value.Value, error) {
	if depth > MaxDepth {
		return value.Value{}, ErrTooDeep
	}
	var (
		typ   value.Type
		i     int64
		u     uint64
		f     float64
		s     string
		items []value.Value
	)
	for len(b) > 0 {
		num, wt, m := protowire.ConsumeTag(b)
		if m < 0 {
			return value.Value{}, wireErr(m)
		}
		b = b[m:]
		switch {
		case num == fieldLitType && wt == protowire.VarintType:
			x, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return value.Value{}, wireErr(m)
			}
			b, typ = b[m:], value.Type(x)
		case num == fieldLitInt && wt == protowire.VarintType:
			x, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return value.Value{}, wireErr(m)
			}
			b, i = b[m:], protowire.DecodeZigZag(x)
			if typ == value.TypeBool {
				i = int64(x)
			}
		case num == fieldLitUint && wt == protowire.VarintType:
			x, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return value.Value{}, wireErr(m)
			}
			b, u = b[m:], x
		case num == fieldLitDouble && wt == protowire.Fixed64Type:
			x, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return value.Value{}, wireErr(m)
			}
			b, f = b[m:], math.Float64frombits(x)
		case num == fieldLitString && wt == protowire.BytesType:
			x, m := protowire.ConsumeString(b)
			if m < 0 {
				return value.Value{}, wireErr(m)
			}
			b, s = b[m:], x
		case num == fieldLitItem && wt == protowire.BytesType:
			raw, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return value.Value{}, wireErr(m)
			}
			b = b[m:]
			item, err := consumeLiteral(raw, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, item)
		default:
			m = protowire.ConsumeFieldValue(num, wt, b)
			if m < 0 {
				return value.Value{}, wireErr(m)
			}
			b = b[m:]
		}
	}

	switch typ {
	case value.TypeNull:
		return value.Null(), nil
	case value.TypeBool:
		return value.Bool(i != 0), nil
	case value.TypeInt32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			break
		}
		return value.Int32(int32(i)), nil
	case value.TypeInt64:
		return value.Int64(i), nil
	case value.TypeUInt32:
		if u > math.MaxUint32 {
			break
		}
		return value.UInt32(uint32(u)), nil
	case value.TypeUInt64:
		return value.UInt64(u), nil
	case value.TypeDouble:
		return value.Double(f), nil
	case value.TypeString:
		return value.String(s), nil
	case value.TypeDate:
		if i < math.MinInt32 || i > math.MaxInt32 {
			break
		}
		return value.Date(int32(i)), nil
	case value.TypeTimestamp:
		return value.Timestamp(i), nil
	case value.TypeList:
		if items == nil {
			items = []value.Value{}
		}
		return value.List(items), nil
	}
	return value.Value{}, fmt.Errorf("%w: bad %s literal", ErrMalformed, typ)
}
