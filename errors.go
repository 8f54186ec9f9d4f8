package dataskema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/dataskema/i18n"
)

// Issue codes
const (
	CodeInvalidType          = "invalid_type"
	CodeRequired             = "required"
	CodeUnknownKey           = "unknown_key"
	CodeDuplicateKey         = "duplicate_key"
	CodePattern              = "pattern"
	CodeInvalidEnum          = "invalid_enum"
	CodeInvalidFormat        = "invalid_format"
	CodeDiscriminatorUnknown = "discriminator_unknown"
	CodeParseError           = "parse_error"
	CodeOverflow             = "overflow"
	CodeTruncated            = "truncated"
	// Validation passes over decoded trees
	CodeIDMismatch = "id_mismatch"
	CodeWrongType  = "wrong_record_type"
)

// Issue represents a single decode, encode or validation entry.
type Issue struct {
	Path    string // JSON Pointer from the document root (for example: /rows/2/roll).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, expected literals, etc.
	Cause   error  // Optional: underlying error.
	Offset  int64  // Byte offset in the input source (-1 when unknown).
	// Params carries structured parameters ({"type": "NpcVariant", "field": "rank"})
	// for i18n and for callers that branch on the failing field.
	Params map[string]any
}

// Issues is a collection of issues that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Has reports whether any issue carries code.
func (iss Issues) Has(code string) bool {
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// String returns the Params value under key as a string ("" when absent).
func (it Issue) String(key string) string {
	s, _ := it.Params[key].(string)
	return s
}

func newIssue(path, code string, params map[string]any) Issue {
	return Issue{
		Path:    pointerOrRoot(path),
		Code:    code,
		Message: i18n.T(code, params),
		Offset:  -1,
		Params:  params,
	}
}

// MissingField reports a required wire key absent from a record of typ.
func MissingField(path, typ, field string) Issue {
	return newIssue(path, CodeRequired, map[string]any{"type": typ, "field": field})
}

// TypeMismatch reports a JSON value whose kind differs from the declared one.
func TypeMismatch(path, typ, field, expected, actual string) Issue {
	return newIssue(path, CodeInvalidType, map[string]any{
		"type": typ, "field": field, "expected": expected, "actual": actual,
	})
}

// UnknownVariant reports a discriminant literal absent from the family registry.
func UnknownVariant(path, family, value string) Issue {
	it := newIssue(path, CodeDiscriminatorUnknown, map[string]any{"family": family, "value": value})
	it.Hint = "unknown variant: '" + value + "'"
	return it
}

// PatternViolation reports a constrained string that fails its pattern.
func PatternViolation(path, typ, field, value, pattern string) Issue {
	return newIssue(path, CodePattern, map[string]any{
		"type": typ, "field": field, "value": value, "pattern": pattern,
	})
}

func pointerOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
