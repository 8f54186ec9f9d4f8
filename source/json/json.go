// Package json tokenizes JSON with encoding/json for the decoder engine.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	eng "github.com/reoring/dataskema/internal/engine"
)

type jsonSource struct {
	dec        *json.Decoder
	frames     eng.Frames
	lastOffset int64
}

// NewReader wraps an io.Reader into an engine.TokenSource for JSON.
func NewReader(r io.Reader) eng.TokenSource {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &jsonSource{dec: dec, lastOffset: -1}
}

// NewBytes wraps a byte slice into an engine.TokenSource for JSON.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

func (s *jsonSource) NextToken() (eng.Token, error) {
	start := s.dec.InputOffset()
	tok, err := s.dec.Token()
	if err != nil {
		return eng.Token{}, err
	}
	s.lastOffset = s.dec.InputOffset()

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			s.frames.Open(true)
			return eng.Token{Kind: eng.KindBeginObject, Offset: start}, nil
		case '[':
			s.frames.Open(false)
			return eng.Token{Kind: eng.KindBeginArray, Offset: start}, nil
		case '}':
			s.frames.Close()
			return eng.Token{Kind: eng.KindEndObject, Offset: start}, nil
		case ']':
			s.frames.Close()
			return eng.Token{Kind: eng.KindEndArray, Offset: start}, nil
		}
	case string:
		if s.frames.IsKey() {
			return eng.Token{Kind: eng.KindKey, String: v, Offset: start}, nil
		}
		s.frames.Scalar()
		return eng.Token{Kind: eng.KindString, String: v, Offset: start}, nil
	case bool:
		s.frames.Scalar()
		return eng.Token{Kind: eng.KindBool, Bool: v, Offset: start}, nil
	case json.Number:
		s.frames.Scalar()
		return eng.Token{Kind: eng.KindNumber, Number: string(v), Offset: start}, nil
	case float64:
		s.frames.Scalar()
		return eng.Token{Kind: eng.KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64), Offset: start}, nil
	case nil:
		s.frames.Scalar()
		return eng.Token{Kind: eng.KindNull, Offset: start}, nil
	}
	return eng.Token{}, fmt.Errorf("json: unexpected token %v", tok)
}

func (s *jsonSource) Location() int64 { return s.lastOffset }
