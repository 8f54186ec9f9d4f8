// Package yaml tokenizes a YAML document for the decoder engine. Mapping
// keys are emitted in document order; anchors and aliases are expanded.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	eng "github.com/reoring/dataskema/internal/engine"
)

const maxAliasDepth = 64

type source struct {
	toks []eng.Token
	pos  int
	err  error
}

// NewReader reads one YAML document from r. A second document in the stream
// surfaces as trailing data.
func NewReader(r io.Reader) eng.TokenSource {
	dec := yaml.NewDecoder(r)
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &source{err: io.ErrUnexpectedEOF}
		}
		return &source{err: err}
	}
	s := &source{}
	if err := s.emit(&doc, 0); err != nil {
		return &source{err: err}
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		s.toks = append(s.toks, eng.Token{Kind: eng.KindNull, Offset: -1})
	}
	return s
}

// NewBytes wraps a byte slice holding a YAML document.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

func (s *source) NextToken() (eng.Token, error) {
	if s.err != nil {
		return eng.Token{}, s.err
	}
	if s.pos >= len(s.toks) {
		return eng.Token{}, io.EOF
	}
	t := s.toks[s.pos]
	s.pos++
	return t, nil
}

// YAML carries line/column positions only.
func (s *source) Location() int64 { return -1 }

func (s *source) emit(n *yaml.Node, depth int) error {
	if depth > maxAliasDepth*4 {
		return errors.New("yaml: document nested too deeply")
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			s.push(eng.Token{Kind: eng.KindNull})
			return nil
		}
		return s.emit(n.Content[0], depth+1)
	case yaml.AliasNode:
		if n.Alias == nil {
			return fmt.Errorf("yaml: line %d: dangling alias", n.Line)
		}
		return s.emit(n.Alias, depth+1)
	case yaml.MappingNode:
		s.push(eng.Token{Kind: eng.KindBeginObject})
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return fmt.Errorf("yaml: line %d: mapping key must be a scalar", k.Line)
			}
			s.push(eng.Token{Kind: eng.KindKey, String: k.Value})
			if err := s.emit(n.Content[i+1], depth+1); err != nil {
				return err
			}
		}
		s.push(eng.Token{Kind: eng.KindEndObject})
		return nil
	case yaml.SequenceNode:
		s.push(eng.Token{Kind: eng.KindBeginArray})
		for _, c := range n.Content {
			if err := s.emit(c, depth+1); err != nil {
				return err
			}
		}
		s.push(eng.Token{Kind: eng.KindEndArray})
		return nil
	case yaml.ScalarNode:
		return s.scalar(n)
	}
	return fmt.Errorf("yaml: line %d: unsupported node kind %d", n.Line, n.Kind)
}

func (s *source) scalar(n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		s.push(eng.Token{Kind: eng.KindNull})
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		s.push(eng.Token{Kind: eng.KindBool, Bool: b})
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			var u uint64
			if uerr := n.Decode(&u); uerr != nil {
				return err
			}
			s.push(eng.Token{Kind: eng.KindNumber, Number: strconv.FormatUint(u, 10)})
			return nil
		}
		s.push(eng.Token{Kind: eng.KindNumber, Number: strconv.FormatInt(i, 10)})
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("yaml: line %d: %s is not representable in JSON", n.Line, n.Value)
		}
		s.push(eng.Token{Kind: eng.KindNumber, Number: eng.FormatFloat(f)})
	default:
		s.push(eng.Token{Kind: eng.KindString, String: n.Value})
	}
	return nil
}

func (s *source) push(t eng.Token) {
	t.Offset = -1
	s.toks = append(s.toks, t)
}
