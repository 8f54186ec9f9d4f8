package i18n

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Translator retrieves localized messages for Issue codes.
// data provides the issue params ("type", "field", "expected", ...) that
// messages may embed as {name} placeholders.
type Translator interface {
	Message(code string, data map[string]any) string
}

var messages = map[language.Tag]map[string]string{
	language.English: {
		"invalid_type":          "{type}.{field}: expected {expected}, got {actual}",
		"required":              "{type}: required field {field} missing",
		"unknown_key":           "{type}: unknown key {field}",
		"duplicate_key":         "duplicate key",
		"pattern":               "{type}.{field}: {value} does not match {pattern}",
		"invalid_enum":          "{type}.{field}: {value} is not one of {expected}",
		"invalid_format":        "{type}.{field}: invalid {expected}",
		"discriminator_unknown": "{family}: unknown variant {value}",
		"parse_error":           "parse error",
		"overflow":              "{type}.{field}: {value} out of range for {expected}",
		"truncated":             "truncated",
		"id_mismatch":           "{type}: id {value} does not match derived id {expected}",
		"wrong_record_type":     "expected record of type {expected}, got {actual}",
	},
	language.Japanese: {
		"invalid_type":          "{type}.{field}: 型が不正です ({expected} を期待, {actual} を受信)",
		"required":              "{type}: 必須フィールド {field} が不足しています",
		"unknown_key":           "{type}: 未知のキー {field} です",
		"duplicate_key":         "キーが重複しています",
		"pattern":               "{type}.{field}: {value} はパターン {pattern} に一致しません",
		"invalid_enum":          "{type}.{field}: {value} は {expected} のいずれでもありません",
		"invalid_format":        "{type}.{field}: {expected} の形式が不正です",
		"discriminator_unknown": "{family}: 未知のバリアント {value} です",
		"parse_error":           "解析エラー",
		"overflow":              "{type}.{field}: {value} は {expected} の範囲外です",
		"truncated":             "打ち切られました",
		"id_mismatch":           "{type}: ID {value} が導出 ID {expected} と一致しません",
		"wrong_record_type":     "{expected} 型のレコードを期待しましたが {actual} でした",
	},
}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Japanese})

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang language.Tag }

func (t dictTranslator) Message(code string, data map[string]any) string {
	tmpl, ok := messages[t.lang][code]
	if !ok {
		tmpl, ok = messages[language.English][code]
	}
	if !ok {
		return code
	}
	if len(data) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", render(v))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func render(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return "[" + strings.Join(t, ", ") + "]"
	default:
		return fmt.Sprint(t)
	}
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: language.English}
)

// SetLanguage switches the built-in Translator to the best supported match
// for lang (a BCP 47 tag such as "ja-JP"); unsupported tags fall back to English.
func SetLanguage(lang string) {
	tag, _ := language.MatchStrings(matcher, lang)
	base, _ := tag.Base()
	chosen := language.English
	if base.String() == "ja" {
		chosen = language.Japanese
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: chosen}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	mu.Lock()
	defer mu.Unlock()
	if tr == nil {
		currentTranslator = dictTranslator{lang: language.English}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]any) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
