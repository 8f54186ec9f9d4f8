package dataskema

import (
	"errors"
	"io"

	eng "github.com/reoring/dataskema/internal/engine"
)

// readTree consumes one value from src, applying token-level enforcement
// (duplicate keys, depth, size) when configured.
func readTree(src Source, opt DecodeOpt) (*eng.Node, Issues) {
	if src == nil {
		return nil, singleIssue(CodeParseError, "nil source")
	}
	var warnings Issues
	ts := engineTokenSource(src)
	eo := eng.EnforceOptions{
		OnDuplicate: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
		FailFast:    opt.FailFast,
	}
	if !eo.Disabled() {
		if opt.Strictness.OnDuplicateKey == Warn {
			eo.IssueSink = func(si eng.SimpleIssue) {
				if si.Code == CodeDuplicateKey {
					warnings = append(warnings, engineIssue(si))
				}
			}
		}
		ts = eng.WrapWithEnforcement(ts, eo)
	}
	n, err := eng.Build(ts)
	if err != nil {
		return nil, toIssues(err)
	}
	if opt.OnWarning != nil {
		for _, w := range warnings {
			opt.OnWarning(w)
		}
	}
	return n, nil
}

func toIssues(err error) Issues {
	if err == nil {
		return nil
	}
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return AppendIssues(nil, engineIssue(ie.SimpleIssue))
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return AppendIssues(nil, Issue{Path: "/", Code: CodeTruncated, Message: "unexpected end of input", Cause: err, Offset: -1})
	}
	return AppendIssues(nil, Issue{Path: "/", Code: CodeParseError, Message: err.Error(), Cause: err, Offset: -1})
}

func engineIssue(si eng.SimpleIssue) Issue {
	return Issue{Path: pointerOrRoot(si.Path), Code: si.Code, Message: si.Message, Offset: si.Offset}
}

func singleIssue(code, msg string) Issues {
	return AppendIssues(nil, Issue{Path: "/", Code: code, Message: msg, Offset: -1})
}
