package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token represents a streaming token with approximate input offset.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource is a minimal interface required by the engine.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// NodeKind is the JSON kind of a decoded node.
type NodeKind int

const (
	NodeNull NodeKind = iota
	NodeBool
	NodeNumber
	NodeString
	NodeArray
	NodeObject
)

func (k NodeKind) String() string {
	switch k {
	case NodeBool:
		return "boolean"
	case NodeNumber:
		return "number"
	case NodeString:
		return "string"
	case NodeArray:
		return "array"
	case NodeObject:
		return "object"
	}
	return "null"
}

// Node is a decoded JSON value that remembers object key order and the input
// offset it started at (-1 when unknown).
type Node struct {
	Kind   NodeKind
	Bool   bool
	Text   string // string value, or the literal text of a number
	Keys   []string
	Fields map[string]*Node
	Items  []*Node
	Offset int64
}

// Get returns the member stored under key of an object node.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != NodeObject {
		return nil, false
	}
	c, ok := n.Fields[key]
	return c, ok
}

// ErrTrailingData is returned when input continues after the first value.
var ErrTrailingData = errors.New("engine: unexpected data after top-level value")

// Build reads exactly one value from src. Duplicate keys keep their first
// position and their last value.
func Build(src TokenSource) (*Node, error) {
	tok, err := src.NextToken()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	n, err := buildValue(src, tok)
	if err != nil {
		return nil, err
	}
	if _, err := src.NextToken(); err == nil {
		return nil, ErrTrailingData
	} else if !errors.Is(err, io.EOF) {
		return nil, err
	}
	return n, nil
}

func buildValue(src TokenSource, tok Token) (*Node, error) {
	switch tok.Kind {
	case KindBeginObject:
		n := &Node{Kind: NodeObject, Fields: map[string]*Node{}, Offset: tok.Offset}
		for {
			kt, err := next(src)
			if err != nil {
				return nil, err
			}
			if kt.Kind == KindEndObject {
				return n, nil
			}
			if kt.Kind != KindKey {
				return nil, fmt.Errorf("engine: expected object key at offset %d", kt.Offset)
			}
			vt, err := next(src)
			if err != nil {
				return nil, err
			}
			v, err := buildValue(src, vt)
			if err != nil {
				return nil, err
			}
			if _, dup := n.Fields[kt.String]; !dup {
				n.Keys = append(n.Keys, kt.String)
			}
			n.Fields[kt.String] = v
		}
	case KindBeginArray:
		n := &Node{Kind: NodeArray, Items: []*Node{}, Offset: tok.Offset}
		for {
			it, err := next(src)
			if err != nil {
				return nil, err
			}
			if it.Kind == KindEndArray {
				return n, nil
			}
			v, err := buildValue(src, it)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, v)
		}
	case KindString:
		return &Node{Kind: NodeString, Text: tok.String, Offset: tok.Offset}, nil
	case KindNumber:
		return &Node{Kind: NodeNumber, Text: tok.Number, Offset: tok.Offset}, nil
	case KindBool:
		return &Node{Kind: NodeBool, Bool: tok.Bool, Offset: tok.Offset}, nil
	case KindNull:
		return &Node{Kind: NodeNull, Offset: tok.Offset}, nil
	}
	return nil, fmt.Errorf("engine: unexpected token at offset %d", tok.Offset)
}

// next treats EOF inside a container as truncated input.
func next(src TokenSource) (Token, error) {
	t, err := src.NextToken()
	if errors.Is(err, io.EOF) {
		return Token{}, io.ErrUnexpectedEOF
	}
	return t, err
}

// FromAny converts an already-decoded Go value (encoding/json, go-json or
// yaml.v3 output) into a Node. Object keys of plain maps are sorted.
func FromAny(v any) (*Node, error) {
	switch t := v.(type) {
	case nil:
		return &Node{Kind: NodeNull, Offset: -1}, nil
	case *Node:
		return t, nil
	case bool:
		return &Node{Kind: NodeBool, Bool: t, Offset: -1}, nil
	case string:
		return &Node{Kind: NodeString, Text: t, Offset: -1}, nil
	case json.Number:
		return &Node{Kind: NodeNumber, Text: string(t), Offset: -1}, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("engine: %v is not representable in JSON", t)
		}
		return &Node{Kind: NodeNumber, Text: FormatFloat(t), Offset: -1}, nil
	case float32:
		return FromAny(float64(t))
	case int:
		return &Node{Kind: NodeNumber, Text: strconv.Itoa(t), Offset: -1}, nil
	case int64:
		return &Node{Kind: NodeNumber, Text: strconv.FormatInt(t, 10), Offset: -1}, nil
	case int32:
		return FromAny(int64(t))
	case uint64:
		return &Node{Kind: NodeNumber, Text: strconv.FormatUint(t, 10), Offset: -1}, nil
	case uint32:
		return FromAny(int64(t))
	case uint8:
		return FromAny(int64(t))
	case []any:
		n := &Node{Kind: NodeArray, Items: make([]*Node, 0, len(t)), Offset: -1}
		for _, e := range t {
			c, err := FromAny(e)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, c)
		}
		return n, nil
	case map[string]any:
		n := &Node{Kind: NodeObject, Fields: make(map[string]*Node, len(t)), Offset: -1}
		for k := range t {
			n.Keys = append(n.Keys, k)
		}
		sort.Strings(n.Keys)
		for _, k := range n.Keys {
			c, err := FromAny(t[k])
			if err != nil {
				return nil, err
			}
			n.Fields[k] = c
		}
		return n, nil
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[fmt.Sprint(k)] = vv
		}
		return FromAny(m)
	}
	return nil, fmt.Errorf("engine: unsupported value of type %T", v)
}

// ToAny converts a Node back into plain Go values. Numbers are returned as
// json.Number unless asFloat is set.
func ToAny(n *Node, asFloat bool) any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case NodeBool:
		return n.Bool
	case NodeString:
		return n.Text
	case NodeNumber:
		if asFloat {
			if f, err := strconv.ParseFloat(n.Text, 64); err == nil {
				return f
			}
		}
		return json.Number(n.Text)
	case NodeArray:
		out := make([]any, len(n.Items))
		for i, it := range n.Items {
			out[i] = ToAny(it, asFloat)
		}
		return out
	case NodeObject:
		out := make(map[string]any, len(n.Fields))
		for k, v := range n.Fields {
			out[k] = ToAny(v, asFloat)
		}
		return out
	}
	return nil
}

// FormatFloat renders a float the way JSON encoders do: plain decimal for
// ordinary magnitudes, exponent form otherwise.
func FormatFloat(f float64) string {
	if a := math.Abs(f); a != 0 && (a < 1e-6 || a >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
