package dataskema

// UnknownPolicy controls how undeclared object keys are handled on decode.
type UnknownPolicy int

const (
	UnknownStrip  UnknownPolicy = iota // Drop unknown keys (default; forward compatible).
	UnknownStrict                      // Report unknown keys as issues.
)

// PatternPolicy controls when identifier patterns are checked.
type PatternPolicy int

const (
	PatternDefer   PatternPolicy = iota // Decode accepts any string; Validate reports.
	PatternEnforce                      // Decode reports PatternViolation.
)

// NumberMode dictates how numbers in schema-less (empty form) values are kept.
type NumberMode int

const (
	NumberJSONNumber NumberMode = iota // Preserve json.Number text.
	NumberFloat64                      // Convert to float64 (with potential precision loss).
)

// Strictness configures token-level enforcement.
type Strictness struct {
	OnDuplicateKey Severity // Warn or Error (duplicate JSON keys).
}

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// DecodeOpt bundles decoding options.
type DecodeOpt struct {
	Strictness Strictness
	MaxDepth   int
	MaxBytes   int64
	Unknown    UnknownPolicy
	Patterns   PatternPolicy
	Numbers    NumberMode
	FailFast   bool
	// OnWarning receives non-fatal issues (duplicate keys under Warn).
	OnWarning func(Issue)
}

// EncodeOpt bundles encoding options.
type EncodeOpt struct {
	Indent string // When non-empty, output is indented with this unit.
}

// Option mutates DecodeOpt.
type Option func(*DecodeOpt)

func WithStrictness(s Strictness) Option       { return func(o *DecodeOpt) { o.Strictness = s } }
func WithMaxDepth(n int) Option                { return func(o *DecodeOpt) { o.MaxDepth = n } }
func WithMaxBytes(n int64) Option              { return func(o *DecodeOpt) { o.MaxBytes = n } }
func WithUnknownPolicy(p UnknownPolicy) Option { return func(o *DecodeOpt) { o.Unknown = p } }
func WithPatterns(p PatternPolicy) Option      { return func(o *DecodeOpt) { o.Patterns = p } }
func WithNumberMode(m NumberMode) Option       { return func(o *DecodeOpt) { o.Numbers = m } }
func WithWarnings(fn func(Issue)) Option       { return func(o *DecodeOpt) { o.OnWarning = fn } }

// FailFast stops decoding at the first issue.
func FailFast() Option { return func(o *DecodeOpt) { o.FailFast = true } }

func buildOpt(opts []Option) DecodeOpt {
	var o DecodeOpt
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
