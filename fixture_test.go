package dataskema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reoring/dataskema"
	"github.com/reoring/dataskema/schema"
)

const rowIDPattern = `^oracle_rollable\.row:[a-z][a-z0-9_]*(/[a-z][a-z0-9_]*)+\.\d+$`

// fixtureRegistry declares a small Datasworn-shaped schema: an NPC variant
// whose rank is a string enum, an oracle table with ordered rows, a union
// keyed by "type" and a holder with a keyed collection.
func fixtureRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	reg.MustDefine("Rank", schema.Enum("troublesome", "dangerous", "formidable", "extreme", "epic"))
	reg.MustDefine("NpcVariant", schema.NewObject("NpcVariant").
		Required("_id", schema.String()).
		Required("description", schema.String()).
		Required("name", schema.String()).
		Required("nature", schema.String()).
		Required("rank", schema.Ref("Rank")).
		Optional("_comment", schema.String()).
		Optional("summary", schema.String()).
		Build())
	reg.MustDefine("DiceRange", schema.NewObject("DiceRange").
		Required("min", schema.Int(schema.KindInt16)).
		Required("max", schema.Int(schema.KindInt16)).
		Build())
	reg.MustDefine("Row", schema.NewObject("Row").
		Required("roll", schema.Ref("DiceRange").AsNullable()).
		Required("text", schema.String()).
		Optional("_id", schema.String().WithPattern(rowIDPattern)).
		Optional("weight", schema.Float()).
		Build())
	reg.MustDefine("OracleTable", schema.NewObject("OracleTable").
		Required("_id", schema.String().WithPattern(`^oracle_rollable:[a-z][a-z0-9_]*(/[a-z][a-z0-9_]*)+$`)).
		Required("dice", schema.String()).
		Required("name", schema.String()).
		Required("rows", schema.ArrayOf(schema.Ref("Row"))).
		Optional("tags", schema.MapOf(schema.Any())).
		Optional("updated", schema.Timestamp()).
		Build())

	base := schema.NewObject("EntityBase").
		Required("name", schema.String()).
		Optional("summary", schema.String()).
		Object()
	reg.MustDefine("Entity", schema.NewUnion("Entity", "type").
		Variant("npc", schema.NewObject("").Extend(base).Required("rank", schema.Ref("Rank")).Object()).
		Variant("oracle", schema.NewObject("").Extend(base).Required("dice", schema.String()).Object()).
		Build())
	reg.MustDefine("Holder", schema.NewObject("Holder").
		Required("item", schema.Ref("Entity")).
		Optional("items", schema.MapOf(schema.Ref("Entity"))).
		Optional("count", schema.Int(schema.KindUint8)).
		Build())
	reg.MustDefine("MaybeRange", schema.Ref("DiceRange").AsNullable())
	return reg
}

func fixtureCodec(t *testing.T) *dataskema.Codec {
	t.Helper()
	c, err := dataskema.NewCodec(fixtureRegistry())
	require.NoError(t, err)
	return c
}

const (
	npcVariantJSON = `{"_id":"npc_variant.example","description":"d","name":"N","nature":"minion","rank":"troublesome"}`

	oracleTableJSON = `{"_id":"oracle_rollable:starforged/core/action","dice":"1d100","name":"Action","rows":[` +
		`{"roll":{"min":1,"max":33},"text":"Scheme"},` +
		`{"roll":{"min":34,"max":66},"text":"Clash"},` +
		`{"roll":{"min":67,"max":100},"text":"Weaken"}]}`
)

func issuesOf(t *testing.T, err error) dataskema.Issues {
	t.Helper()
	require.Error(t, err)
	iss, ok := dataskema.AsIssues(err)
	require.True(t, ok, "expected Issues, got %T: %v", err, err)
	return iss
}
