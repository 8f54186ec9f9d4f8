package dataskema_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/dataskema"
	"github.com/reoring/dataskema/schema"
)

func TestDecode_OptionalFieldsStayAbsent(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	rec, err := c.DecodeBytes(ctx, "NpcVariant", []byte(npcVariantJSON))
	require.NoError(t, err)
	assert.False(t, rec.Has("_comment"))
	assert.False(t, rec.Has("summary"))
	assert.Equal(t, []string{"_id", "description", "name", "nature", "rank"}, rec.Keys())
	rank, _ := rec.String("rank")
	assert.Equal(t, "troublesome", rank)

	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, npcVariantJSON, string(out))
	assert.NotContains(t, string(out), "_comment")
	assert.NotContains(t, string(out), "summary")
}

func TestDecode_SequenceOrderPreserved(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	rec, err := c.DecodeBytes(ctx, "OracleTable", []byte(oracleTableJSON))
	require.NoError(t, err)
	rows, ok := rec.Sequence("rows")
	require.True(t, ok)
	require.Len(t, rows, 3)
	var texts []string
	for _, r := range rows {
		row := r.(*dataskema.Record)
		s, _ := row.String("text")
		texts = append(texts, s)
	}
	assert.Equal(t, []string{"Scheme", "Clash", "Weaken"}, texts)

	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, oracleTableJSON, string(out))
}

func TestDecode_UnknownVariantPointsAtDiscriminant(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	_, err := c.DecodeBytes(ctx, "Entity", []byte(`{"type":"bogus_unknown_type","name":"x"}`))
	iss := issuesOf(t, err)
	require.Len(t, iss, 1)
	assert.Equal(t, dataskema.CodeDiscriminatorUnknown, iss[0].Code)
	assert.Equal(t, "/type", iss[0].Path)
	assert.Equal(t, "Entity", iss[0].String("family"))
	assert.Equal(t, "bogus_unknown_type", iss[0].String("value"))
	assert.Equal(t, []string{"npc", "oracle"}, iss[0].Params["expected"])

	_, err = c.DecodeBytes(ctx, "Holder", []byte(`{"item":{"type":"bogus_unknown_type","name":"x"}}`))
	iss = issuesOf(t, err)
	assert.Equal(t, "/item/type", iss[0].Path)
}

func TestDecode_UnionDiscriminantProblems(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	_, err := c.DecodeBytes(ctx, "Entity", []byte(`{"name":"x"}`))
	iss := issuesOf(t, err)
	assert.Equal(t, dataskema.CodeRequired, iss[0].Code)
	assert.Equal(t, "/type", iss[0].Path)

	_, err = c.DecodeBytes(ctx, "Entity", []byte(`{"type":3,"name":"x"}`))
	iss = issuesOf(t, err)
	assert.Equal(t, dataskema.CodeInvalidType, iss[0].Code)
	assert.Equal(t, "/type", iss[0].Path)

	_, err = c.DecodeBytes(ctx, "Entity", []byte(`["npc"]`))
	iss = issuesOf(t, err)
	assert.Equal(t, dataskema.CodeInvalidType, iss[0].Code)
	assert.Equal(t, "/", iss[0].Path)
}

func TestDecode_UnionMember(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	in := `{"type":"npc","name":"Chiton","rank":"dangerous"}`
	rec, err := c.DecodeBytes(ctx, "Entity", []byte(in))
	require.NoError(t, err)
	assert.Equal(t, "Entity", rec.Family())
	assert.Equal(t, "EntityNpc", rec.TypeName())
	key, lit, ok := rec.Discriminant()
	require.True(t, ok)
	assert.Equal(t, "type", key)
	assert.Equal(t, "npc", lit)
	v, _ := rec.Get("type")
	assert.Equal(t, "npc", v)
	assert.Equal(t, []string{"type", "name", "rank"}, rec.Keys())

	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestDecode_DiscriminantWrittenFirst(t *testing.T) {
	c := fixtureCodec(t)
	rec, err := c.DecodeBytes(context.Background(), "Entity", []byte(`{"dice":"1d6","name":"Action","type":"oracle"}`))
	require.NoError(t, err)
	out, err := c.Encode(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"oracle","name":"Action","dice":"1d6"}`, string(out))
}

func TestDecode_UnknownKeysDropped(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	in := `{"_id":"npc_variant.example","description":"d","name":"N","nature":"minion","rank":"troublesome","future_field":{"x":[1,2]}}`
	rec, err := c.DecodeBytes(ctx, "NpcVariant", []byte(in))
	require.NoError(t, err)
	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, npcVariantJSON, string(out))
}

func TestDecode_UnknownKeysStrict(t *testing.T) {
	c := fixtureCodec(t)
	in := `{"type":"npc","name":"N","rank":"epic","extra":1}`
	_, err := c.DecodeBytes(context.Background(), "Entity", []byte(in), dataskema.WithUnknownPolicy(dataskema.UnknownStrict))
	iss := issuesOf(t, err)
	require.Len(t, iss, 1)
	assert.Equal(t, dataskema.CodeUnknownKey, iss[0].Code)
	assert.Equal(t, "/extra", iss[0].Path)
}

func TestDecode_MissingRequiredField(t *testing.T) {
	c := fixtureCodec(t)
	_, err := c.DecodeBytes(context.Background(), "NpcVariant", []byte(`{"_id":"x","description":"d","name":"N","nature":"minion"}`))
	iss := issuesOf(t, err)
	require.Len(t, iss, 1)
	assert.Equal(t, dataskema.CodeRequired, iss[0].Code)
	assert.Equal(t, "/rank", iss[0].Path)
	assert.Equal(t, "NpcVariant", iss[0].String("type"))
	assert.Equal(t, "rank", iss[0].String("field"))
	assert.Equal(t, "NpcVariant: required field rank missing", iss[0].Message)
}

func TestDecode_TypeMismatch(t *testing.T) {
	c := fixtureCodec(t)
	_, err := c.DecodeBytes(context.Background(), "NpcVariant", []byte(`{"_id":"x","description":"d","name":5,"nature":"minion","rank":"epic"}`))
	iss := issuesOf(t, err)
	require.Len(t, iss, 1)
	assert.Equal(t, dataskema.CodeInvalidType, iss[0].Code)
	assert.Equal(t, "/name", iss[0].Path)
	assert.Equal(t, "string", iss[0].String("expected"))
	assert.Equal(t, "number", iss[0].String("actual"))
}

func TestDecode_CollectsAllIssues(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()
	in := []byte(`{"_id":1,"description":"d","name":true,"nature":"minion","rank":"legendary"}`)

	_, err := c.DecodeBytes(ctx, "NpcVariant", in)
	iss := issuesOf(t, err)
	require.Len(t, iss, 3)
	assert.Equal(t, "/_id", iss[0].Path)
	assert.Equal(t, "/name", iss[1].Path)
	assert.Equal(t, "/rank", iss[2].Path)
	assert.Equal(t, dataskema.CodeInvalidEnum, iss[2].Code)

	_, err = c.DecodeBytes(ctx, "NpcVariant", in, dataskema.FailFast())
	assert.Len(t, issuesOf(t, err), 1)

	_, err = c.DecodeBytes(dataskema.WithFailFast(ctx, true), "NpcVariant", in)
	assert.Len(t, issuesOf(t, err), 1)
}

func TestDecode_IntegerRange(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	in := strings.Replace(oracleTableJSON, `"min":1,`, `"min":40000,`, 1)
	_, err := c.DecodeBytes(ctx, "OracleTable", []byte(in))
	iss := issuesOf(t, err)
	assert.Equal(t, dataskema.CodeOverflow, iss[0].Code)
	assert.Equal(t, "/rows/0/roll/min", iss[0].Path)

	in = strings.Replace(oracleTableJSON, `"min":1,`, `"min":1.5,`, 1)
	_, err = c.DecodeBytes(ctx, "OracleTable", []byte(in))
	iss = issuesOf(t, err)
	assert.Equal(t, dataskema.CodeInvalidType, iss[0].Code)

	in = strings.Replace(oracleTableJSON, `"min":1,`, `"min":1.0,`, 1)
	rec, err := c.DecodeBytes(ctx, "OracleTable", []byte(in))
	require.NoError(t, err)
	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, oracleTableJSON, string(out))
}

func TestDecode_Nullability(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	in := strings.Replace(oracleTableJSON, `"roll":{"min":1,"max":33}`, `"roll":null`, 1)
	rec, err := c.DecodeBytes(ctx, "OracleTable", []byte(in))
	require.NoError(t, err)
	rows, _ := rec.Sequence("rows")
	first := rows[0].(*dataskema.Record)
	v, present := first.Get("roll")
	assert.True(t, present)
	assert.Nil(t, v)
	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))

	in = strings.Replace(oracleTableJSON, `"text":"Scheme"`, `"text":null`, 1)
	_, err = c.DecodeBytes(ctx, "OracleTable", []byte(in))
	iss := issuesOf(t, err)
	assert.Equal(t, dataskema.CodeInvalidType, iss[0].Code)
	assert.Equal(t, "/rows/0/text", iss[0].Path)
	assert.Equal(t, "null", iss[0].String("actual"))
}

func TestDecode_PatternPolicy(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()
	in := strings.Replace(oracleTableJSON, `"oracle_rollable:starforged/core/action"`, `"Not An Id"`, 1)

	rec, err := c.DecodeBytes(ctx, "OracleTable", []byte(in))
	require.NoError(t, err, "patterns are deferred by default")

	err = c.Validate(ctx, rec)
	iss := issuesOf(t, err)
	require.Len(t, iss, 1)
	assert.Equal(t, dataskema.CodePattern, iss[0].Code)
	assert.Equal(t, "/_id", iss[0].Path)
	assert.Equal(t, "Not An Id", iss[0].String("value"))

	_, err = c.DecodeBytes(ctx, "OracleTable", []byte(in), dataskema.WithPatterns(dataskema.PatternEnforce))
	iss = issuesOf(t, err)
	assert.Equal(t, dataskema.CodePattern, iss[0].Code)
	assert.Equal(t, "/_id", iss[0].Path)
}

func TestDecode_Timestamp(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()
	in := strings.TrimSuffix(oracleTableJSON, "}") + `,"updated":"2024-03-01T10:00:00Z"}`
	rec, err := c.DecodeBytes(ctx, "OracleTable", []byte(in))
	require.NoError(t, err)
	ts, _ := rec.String("updated")
	assert.Equal(t, "2024-03-01T10:00:00Z", ts)

	in = strings.TrimSuffix(oracleTableJSON, "}") + `,"updated":"yesterday"}`
	_, err = c.DecodeBytes(ctx, "OracleTable", []byte(in))
	iss := issuesOf(t, err)
	assert.Equal(t, dataskema.CodeInvalidFormat, iss[0].Code)
	assert.Equal(t, "/updated", iss[0].Path)
}

func TestDecode_EmptyFormKeepsNumbers(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()
	in := strings.TrimSuffix(oracleTableJSON, "}") + `,"tags":{"core":{"weight":12345678901234567890}}}`

	rec, err := c.DecodeBytes(ctx, "OracleTable", []byte(in))
	require.NoError(t, err)
	tags, _ := rec.Collection("tags")
	core := tags["core"].(map[string]any)
	assert.Equal(t, json.Number("12345678901234567890"), core["weight"])

	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestDecode_DuplicateKeys(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()
	in := []byte(`{"type":"npc","name":"first","name":"second","rank":"epic"}`)

	rec, err := c.DecodeBytes(ctx, "Entity", in)
	require.NoError(t, err)
	name, _ := rec.String("name")
	assert.Equal(t, "second", name)

	_, err = c.DecodeBytes(ctx, "Entity", in, dataskema.WithStrictness(dataskema.Strictness{OnDuplicateKey: dataskema.Error}))
	iss := issuesOf(t, err)
	assert.Equal(t, dataskema.CodeDuplicateKey, iss[0].Code)
	assert.Equal(t, "/name", iss[0].Path)

	var warned []dataskema.Issue
	_, err = c.DecodeBytes(ctx, "Entity", in,
		dataskema.WithStrictness(dataskema.Strictness{OnDuplicateKey: dataskema.Warn}),
		dataskema.WithWarnings(func(it dataskema.Issue) { warned = append(warned, it) }))
	require.NoError(t, err)
	require.Len(t, warned, 1)
	assert.Equal(t, "/name", warned[0].Path)
}

func TestDecode_Limits(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	_, err := c.DecodeBytes(ctx, "OracleTable", []byte(oracleTableJSON), dataskema.WithMaxDepth(2))
	iss := issuesOf(t, err)
	assert.Equal(t, dataskema.CodeParseError, iss[0].Code)
	assert.Equal(t, "/rows/0", iss[0].Path)

	_, err = c.DecodeReader(ctx, "OracleTable", strings.NewReader(oracleTableJSON), dataskema.WithMaxBytes(16))
	iss = issuesOf(t, err)
	assert.Equal(t, dataskema.CodeTruncated, iss[0].Code)

	rec, err := c.DecodeReader(ctx, "OracleTable", strings.NewReader(oracleTableJSON), dataskema.WithMaxBytes(4096))
	require.NoError(t, err)
	assert.Equal(t, "OracleTable", rec.TypeName())
}

func TestDecode_MalformedInput(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	_, err := c.DecodeBytes(ctx, "NpcVariant", []byte(`{"_id":"x","name":`))
	iss := issuesOf(t, err)
	assert.Contains(t, []string{dataskema.CodeTruncated, dataskema.CodeParseError}, iss[0].Code)

	_, err = c.DecodeBytes(ctx, "NpcVariant", []byte(npcVariantJSON+` {}`))
	iss = issuesOf(t, err)
	assert.Equal(t, dataskema.CodeParseError, iss[0].Code)
}

func TestDecode_YAMLMatchesJSON(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()
	doc := `
_id: oracle_rollable:starforged/core/action
dice: 1d100
name: Action
rows:
  - roll: {min: 1, max: 33}
    text: Scheme
  - roll: {min: 34, max: 66}
    text: Clash
  - roll: {min: 67, max: 100}
    text: Weaken
`
	rec, err := c.DecodeYAML(ctx, "OracleTable", []byte(doc))
	require.NoError(t, err)
	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, oracleTableJSON, string(out))
}

func TestDecode_StdDriver(t *testing.T) {
	dataskema.SetJSONDriver(dataskema.StdJSONDriver())
	t.Cleanup(dataskema.UseDefaultJSONDriver)
	assert.Equal(t, "encoding/json", dataskema.CurrentJSONDriver().Name())

	c := fixtureCodec(t)
	ctx := context.Background()
	rec, err := c.DecodeBytes(ctx, "OracleTable", []byte(oracleTableJSON))
	require.NoError(t, err)
	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, oracleTableJSON, string(out))

	_, err = c.DecodeBytes(ctx, "NpcVariant", []byte(`{"_id":"x","description":"d","name":5,"nature":"minion","rank":"epic"}`))
	iss := issuesOf(t, err)
	assert.Equal(t, "/name", iss[0].Path)
	assert.Positive(t, iss[0].Offset)
}

func TestDecode_RoundTripIsIdempotent(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()
	docs := map[string]string{
		"NpcVariant":  npcVariantJSON,
		"OracleTable": oracleTableJSON,
		"Holder":      `{"item":{"type":"oracle","name":"A","dice":"1d6"},"items":{"b":{"type":"npc","name":"B","rank":"epic"},"a":{"type":"oracle","name":"A","summary":"s","dice":"1d6"}},"count":2}`,
	}
	for typ, doc := range docs {
		first, err := c.DecodeBytes(ctx, typ, []byte(doc))
		require.NoError(t, err, typ)
		wire, err := c.Encode(ctx, first)
		require.NoError(t, err, typ)
		second, err := c.DecodeBytes(ctx, typ, wire)
		require.NoError(t, err, typ)
		assert.True(t, first.Equal(second), typ)
		again, err := c.Encode(ctx, second)
		require.NoError(t, err, typ)
		assert.Equal(t, string(wire), string(again), typ)
	}
}

func TestDecode_KeyedCollectionKeepsKeys(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()
	in := `{"item":{"type":"oracle","name":"A","dice":"1d6"},"items":{"zeta":{"type":"npc","name":"Z","rank":"epic"},"alpha":{"type":"oracle","name":"A","dice":"1d6"}}}`
	rec, err := c.DecodeBytes(ctx, "Holder", []byte(in))
	require.NoError(t, err)
	items, ok := rec.Collection("items")
	require.True(t, ok)
	assert.Len(t, items, 2)
	assert.Contains(t, items, "zeta")
	assert.Contains(t, items, "alpha")

	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, `{"item":{"type":"oracle","name":"A","dice":"1d6"},"items":{"alpha":{"type":"oracle","name":"A","dice":"1d6"},"zeta":{"type":"npc","name":"Z","rank":"epic"}}}`, string(out))
}

func TestDecode_RequiresRecordType(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	_, err := c.DecodeBytes(ctx, "Rank", []byte(`"epic"`))
	assert.ErrorIs(t, err, dataskema.ErrNotRecord)

	_, err = c.DecodeBytes(ctx, "Nope", []byte(`{}`))
	assert.ErrorIs(t, err, schema.ErrUnknownType)
}

func TestDecode_NullableRootNeverReturnsNilRecord(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	rec, err := c.DecodeBytes(ctx, "MaybeRange", []byte(`null`))
	assert.Nil(t, rec)
	iss := issuesOf(t, err)
	assert.Equal(t, dataskema.CodeInvalidType, iss[0].Code)
	assert.Equal(t, "/", iss[0].Path)
	assert.Equal(t, "null", iss[0].String("actual"))

	rec, err = c.DecodeBytes(ctx, "MaybeRange", []byte(`{"min":1,"max":6}`))
	require.NoError(t, err)
	assert.Equal(t, "DiceRange", rec.TypeName())
}

func TestDecodeValue_AnyDefinition(t *testing.T) {
	c := fixtureCodec(t)
	ctx := context.Background()

	v, err := c.DecodeValue(ctx, "Rank", "epic")
	require.NoError(t, err)
	assert.Equal(t, "epic", v)

	_, err = c.DecodeValue(ctx, "Rank", "legendary")
	iss := issuesOf(t, err)
	assert.Equal(t, dataskema.CodeInvalidEnum, iss[0].Code)

	var raw any
	require.NoError(t, json.Unmarshal([]byte(npcVariantJSON), &raw))
	v, err = c.DecodeValue(ctx, "NpcVariant", raw)
	require.NoError(t, err)
	rec, ok := v.(*dataskema.Record)
	require.True(t, ok)
	out, err := c.EncodeValue(ctx, "NpcVariant", rec)
	require.NoError(t, err)
	assert.Equal(t, npcVariantJSON, string(out))
}

func TestDecode_CanceledContext(t *testing.T) {
	c := fixtureCodec(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.DecodeBytes(ctx, "NpcVariant", []byte(npcVariantJSON))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIssues_ErrorSummary(t *testing.T) {
	iss := dataskema.Issues{
		{Path: "/a", Code: dataskema.CodeRequired},
		{Path: "/b", Code: dataskema.CodeInvalidType},
		{Path: "/c", Code: dataskema.CodePattern},
		{Path: "/d", Code: dataskema.CodeOverflow},
	}
	assert.Equal(t, "required at /a; invalid_type at /b; pattern at /c; ... (total 4)", iss.Error())
	assert.True(t, iss.Has(dataskema.CodePattern))
	assert.False(t, iss.Has(dataskema.CodeTruncated))
}
