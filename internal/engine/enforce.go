package engine

import (
	"strconv"
	"strings"
)

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
	Offset  int64
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

// EnforceOptions controls runtime enforcement behavior.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	MaxBytes    int64
	// IssueSink receives non-fatal issues (duplicate keys under DupWarn).
	IssueSink func(SimpleIssue)
	// FailFast turns every reported issue into an error.
	FailFast bool
}

// Disabled reports whether the options would never intervene.
func (o EnforceOptions) Disabled() bool {
	return o.OnDuplicate == DupIgnore && o.MaxDepth == 0 && o.MaxBytes == 0
}

// WrapWithEnforcement returns a TokenSource that enforces duplicate key policy,
// maximum nesting depth, and maximum consumed bytes.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	return &enforcingTokenSource{inner: inner, opt: opt}
}

type frame struct {
	array   bool
	path    string
	keys    map[string]struct{}
	key     string // pending member key
	nextIdx int
}

type enforcingTokenSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []frame
}

func (e *enforcingTokenSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}

	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		path := e.valuePath()
		if e.opt.MaxDepth > 0 && len(e.stack)+1 > e.opt.MaxDepth {
			return Token{}, e.fail(SimpleIssue{Code: "parse_error", Path: rootIfEmpty(path), Message: "max depth exceeded", Offset: tok.Offset})
		}
		f := frame{array: tok.Kind == KindBeginArray, path: path}
		if !f.array {
			f.keys = map[string]struct{}{}
		}
		e.stack = append(e.stack, f)
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	case KindKey:
		if n := len(e.stack); n > 0 {
			top := &e.stack[n-1]
			if _, dup := top.keys[tok.String]; dup && e.opt.OnDuplicate != DupIgnore {
				si := SimpleIssue{
					Code:    "duplicate_key",
					Path:    joinJSONPointer(top.path, tok.String),
					Message: "key '" + tok.String + "' duplicated",
					Offset:  tok.Offset,
				}
				if e.opt.OnDuplicate == DupError || e.opt.FailFast {
					return Token{}, e.fail(si)
				}
				if e.opt.IssueSink != nil {
					e.opt.IssueSink(si)
				}
			}
			top.keys[tok.String] = struct{}{}
			top.key = tok.String
		}
	default:
		e.valuePath()
	}

	if e.opt.MaxBytes > 0 {
		if off := e.Location(); off >= 0 && off > e.opt.MaxBytes {
			return Token{}, e.fail(SimpleIssue{Code: "truncated", Path: "/", Message: "max bytes exceeded", Offset: off})
		}
	}
	return tok, nil
}

// valuePath returns the pointer of the value about to be read and advances
// the array index.
func (e *enforcingTokenSource) valuePath() string {
	n := len(e.stack)
	if n == 0 {
		return ""
	}
	top := &e.stack[n-1]
	if top.array {
		p := top.path + "/" + strconv.Itoa(top.nextIdx)
		top.nextIdx++
		return p
	}
	return joinJSONPointer(top.path, top.key)
}

func (e *enforcingTokenSource) fail(si SimpleIssue) error {
	if e.opt.IssueSink != nil {
		e.opt.IssueSink(si)
	}
	return IssueError{si}
}

func (e *enforcingTokenSource) Location() int64 { return e.inner.Location() }

var jsonPointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func joinJSONPointer(base, token string) string {
	return base + "/" + jsonPointerEscaper.Replace(token)
}

func rootIfEmpty(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// Frames tracks whether the next string token of a JSON token stream is an
// object key. Tokenizers that only report delimiters and scalars use it to
// emit KindKey.
type Frames struct {
	stack []bool // true: object expecting a key
	kinds []bool // true: object frame
}

// Open records a '{' (object=true) or '['.
func (f *Frames) Open(object bool) {
	f.stack = append(f.stack, object)
	f.kinds = append(f.kinds, object)
}

// Close records a '}' or ']' and marks the enclosing member as complete.
func (f *Frames) Close() {
	if n := len(f.stack); n > 0 {
		f.stack = f.stack[:n-1]
		f.kinds = f.kinds[:n-1]
	}
	f.valueDone()
}

// IsKey reports whether a string token is a key and consumes the key slot.
func (f *Frames) IsKey() bool {
	n := len(f.stack)
	if n > 0 && f.kinds[n-1] && f.stack[n-1] {
		f.stack[n-1] = false
		return true
	}
	return false
}

// Scalar records a value token.
func (f *Frames) Scalar() { f.valueDone() }

func (f *Frames) valueDone() {
	if n := len(f.stack); n > 0 && f.kinds[n-1] {
		f.stack[n-1] = true
	}
}
