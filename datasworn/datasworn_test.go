package datasworn_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/dataskema"
	"github.com/reoring/dataskema/datasworn"
	"github.com/reoring/dataskema/schema"
)

const sourceInfo = `{"authors":[{"name":"Shawn Tomkin"}],"date":"2022-05-06","license":"https://creativecommons.org/licenses/by/4.0","title":"Ironsworn: Starforged Rulebook","url":"https://ironswornrpg.com"}`

const npcJSON = `{"_id":"npc:starforged/core/chiton","_source":` + sourceInfo + `,` +
	`"drives":["Protect the nest"],"features":["Insect-like creatures"],"name":"Chiton","nature":"Creature","rank":2,` +
	`"tactics":["Swarm"],"text":"A chiton.","type":"npc",` +
	`"variants":{"chiton_queen":{"_id":"npc.variant:starforged/core/chiton.chiton_queen","description":"The queen.","name":"Chiton Queen","nature":"Creature","rank":4}}}`

const moveJSON = `{"roll_type":"action_roll","_id":"move:starforged/adventure/face_danger","_source":` + sourceInfo + `,` +
	`"allow_momentum_burn":true,"name":"Face Danger",` +
	`"outcomes":{"miss":{"text":"You fail."},"strong_hit":{"text":"You succeed."},"weak_hit":{"text":"You succeed, at a cost."}},` +
	`"text":"When you attempt something risky...",` +
	`"trigger":{"conditions":[{"method":"player_choice","roll_options":[{"using":"stat","stat":"edge"},{"using":"stat","stat":"heart"}]}],"text":"When you attempt something risky..."},` +
	`"type":"move"}`

func codec(t *testing.T) *dataskema.Codec {
	t.Helper()
	c, err := dataskema.NewCodec(datasworn.Registry())
	require.NoError(t, err)
	return c
}

func TestRegistry_Families(t *testing.T) {
	reg := datasworn.Registry()
	require.True(t, reg.Frozen())
	assert.Same(t, reg, datasworn.Registry())

	for _, name := range []string{datasworn.Npc, datasworn.NpcVariant, datasworn.Asset, datasworn.Truth, datasworn.Rarity, datasworn.DelveSiteTheme, datasworn.MoveCategory,
		datasworn.DelveSite, datasworn.DelveSiteDomain, datasworn.AtlasCollection, datasworn.AtlasEntry} {
		_, ok := reg.Object(name)
		assert.True(t, ok, name)
	}

	cases := []struct {
		family, tag string
		literals    []string
	}{
		{datasworn.RulesPackage, "type", []string{"expansion", "ruleset"}},
		{datasworn.Move, "roll_type", []string{"action_roll", "no_roll", "progress_roll", "special_track"}},
		{datasworn.OracleRollable, "oracle_type", []string{"column_text", "column_text2", "column_text3", "table_text", "table_text2", "table_text3"}},
		{datasworn.ActionRollOption, "using", []string{"asset_control", "asset_option", "attached_asset_control", "attached_asset_option", "condition_meter", "custom", "stat"}},
		{datasworn.AssetControlField, "field_type", []string{"card_flip", "checkbox", "condition_meter", "select_enhancement"}},
	}
	for _, tc := range cases {
		u, ok := reg.Union(tc.family)
		require.True(t, ok, tc.family)
		assert.Equal(t, tc.tag, u.Tag, tc.family)
		assert.Equal(t, tc.literals, u.Literals(), tc.family)
	}

	v, ok := reg.Variant(datasworn.Move, "action_roll")
	require.True(t, ok)
	assert.Equal(t, "MoveActionRoll", v.Name)
	_, declared := v.Field("roll_type")
	assert.False(t, declared)
	assert.Equal(t, 0, v.Position("_id"))

	rank, _ := reg.Lookup(datasworn.ChallengeRank)
	assert.Equal(t, schema.KindUint8, rank.Kind)
}

func TestNpc_RoundTrip(t *testing.T) {
	c := codec(t)
	ctx := context.Background()

	rec, err := c.DecodeBytes(ctx, datasworn.Npc, []byte(npcJSON))
	require.NoError(t, err)
	rank, _ := rec.Int("rank")
	assert.Equal(t, int64(2), rank)
	assert.False(t, rec.Has("summary"))

	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, npcJSON, string(out))

	require.NoError(t, c.Validate(ctx, rec))
}

func TestNpc_ChildIDMismatch(t *testing.T) {
	c := codec(t)
	ctx := context.Background()

	in := strings.Replace(npcJSON, `chiton.chiton_queen"`, `chiton.queen"`, 1)
	rec, err := c.DecodeBytes(ctx, datasworn.Npc, []byte(in))
	require.NoError(t, err)

	err = c.Validate(ctx, rec)
	require.Error(t, err)
	iss, ok := dataskema.AsIssues(err)
	require.True(t, ok)
	require.Len(t, iss, 1)
	assert.Equal(t, dataskema.CodeIDMismatch, iss[0].Code)
	assert.Equal(t, "/variants/chiton_queen/_id", iss[0].Path)
	assert.Equal(t, "npc.variant:starforged/core/chiton.chiton_queen", iss[0].String("expected"))
}

func TestNpc_RankRange(t *testing.T) {
	c := codec(t)
	in := strings.Replace(npcJSON, `"rank":2`, `"rank":300`, 1)
	_, err := c.DecodeBytes(context.Background(), datasworn.Npc, []byte(in))
	iss, ok := dataskema.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, dataskema.CodeOverflow, iss[0].Code)
	assert.Equal(t, "/rank", iss[0].Path)
}

func TestNpc_PatternChecks(t *testing.T) {
	c := codec(t)
	ctx := context.Background()
	in := strings.Replace(npcJSON, `"npc:starforged/core/chiton"`, `"npc_variant.example"`, 1)

	rec, err := c.DecodeBytes(ctx, datasworn.Npc, []byte(in))
	require.NoError(t, err)
	err = c.Validate(ctx, rec)
	iss, ok := dataskema.AsIssues(err)
	require.True(t, ok)
	assert.True(t, iss.Has(dataskema.CodePattern))
	assert.Equal(t, "/_id", iss[0].Path)

	_, err = c.DecodeBytes(ctx, datasworn.Npc, []byte(in), dataskema.WithPatterns(dataskema.PatternEnforce))
	iss, ok = dataskema.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, dataskema.CodePattern, iss[0].Code)
}

func TestMove_ActionRoll(t *testing.T) {
	c := codec(t)
	ctx := context.Background()

	rec, err := c.DecodeBytes(ctx, datasworn.Move, []byte(moveJSON))
	require.NoError(t, err)
	assert.Equal(t, "MoveActionRoll", rec.TypeName())
	trig, ok := rec.Record("trigger")
	require.True(t, ok)
	conds, _ := trig.Sequence("conditions")
	require.Len(t, conds, 1)
	opts, _ := conds[0].(*dataskema.Record).Sequence("roll_options")
	require.Len(t, opts, 2)
	assert.Equal(t, "ActionRollOptionStat", opts[0].(*dataskema.Record).TypeName())

	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, moveJSON, string(out))
	require.NoError(t, c.Validate(ctx, rec))
}

func TestMove_NestedUnknownVariant(t *testing.T) {
	c := codec(t)
	in := strings.Replace(moveJSON, `{"using":"stat","stat":"heart"}`, `{"using":"dice_pool","stat":"heart"}`, 1)
	_, err := c.DecodeBytes(context.Background(), datasworn.Move, []byte(in))
	iss, ok := dataskema.AsIssues(err)
	require.True(t, ok)
	require.Len(t, iss, 1)
	assert.Equal(t, dataskema.CodeDiscriminatorUnknown, iss[0].Code)
	assert.Equal(t, "/trigger/conditions/0/roll_options/1/using", iss[0].Path)
	assert.Equal(t, "unknown variant: 'dice_pool'", iss[0].Hint)
}

func TestRulesPackage_UnknownType(t *testing.T) {
	c := codec(t)
	_, err := c.DecodeBytes(context.Background(), datasworn.RulesPackage, []byte(`{"type":"bogus_unknown_type","_id":"starforged"}`))
	iss, ok := dataskema.AsIssues(err)
	require.True(t, ok)
	require.Len(t, iss, 1)
	assert.Equal(t, dataskema.CodeDiscriminatorUnknown, iss[0].Code)
	assert.Equal(t, "/type", iss[0].Path)
}

func TestRulesPackage_Expansion(t *testing.T) {
	c := codec(t)
	ctx := context.Background()
	in := `{"type":"expansion","_id":"delve","datasworn_version":"0.1.0","ruleset":"classic",` +
		`"rarities":{"ayethins_wings":{"_id":"rarity:delve/ayethins_wings","_source":` + sourceInfo + `,"asset":"asset:classic/companion/raven","description":"A raven.","name":"Ayethin's Wings","type":"rarity","xp_cost":3}}}`
	rec, err := c.DecodeBytes(ctx, datasworn.RulesPackage, []byte(in))
	require.NoError(t, err)
	assert.Equal(t, "RulesPackageExpansion", rec.TypeName())

	rarities, ok := rec.Collection("rarities")
	require.True(t, ok)
	require.Contains(t, rarities, "ayethins_wings")

	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
	require.NoError(t, c.Validate(ctx, rec))
}

func TestNpc_YAML(t *testing.T) {
	c := codec(t)
	ctx := context.Background()
	doc := `
_id: npc:starforged/core/chiton
_source:
  authors:
    - name: Shawn Tomkin
  date: "2022-05-06"
  license: https://creativecommons.org/licenses/by/4.0
  title: "Ironsworn: Starforged Rulebook"
  url: https://ironswornrpg.com
drives: [Protect the nest]
features: [Insect-like creatures]
name: Chiton
nature: Creature
rank: 2
tactics: [Swarm]
text: A chiton.
type: npc
variants:
  chiton_queen:
    _id: npc.variant:starforged/core/chiton.chiton_queen
    description: The queen.
    name: Chiton Queen
    nature: Creature
    rank: 4
`
	rec, err := c.DecodeYAML(ctx, datasworn.Npc, []byte(doc))
	require.NoError(t, err)
	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, npcJSON, string(out))
}

const delveExpansionJSON = `{"type":"expansion","_id":"delve","datasworn_version":"0.1.0","ruleset":"classic",` +
	`"atlas":{"ironlands":{"_id":"atlas_collection:delve/ironlands","_source":` + sourceInfo + `,"name":"Ironlands","type":"atlas_collection",` +
	`"contents":{"hinterlands":{"_id":"atlas_entry:delve/ironlands/hinterlands","_source":` + sourceInfo + `,"description":"Wild lands.","features":["Rugged hills"],"name":"Hinterlands","type":"atlas_entry","quest_starter":"A lost caravan."}}}},` +
	`"delve_sites":{"alvas_rest":{"_id":"delve_site:delve/alvas_rest","_source":` + sourceInfo + `,` +
	`"denizens":[{"frequency":"very_common","roll":{"max":27,"min":1},"npc":"npc:delve/ironlands/bandit"},{"frequency":"unforeseen","roll":{"max":100,"min":100},"name":"Something old"}],` +
	`"description":"A ruined barrow.","domain":"delve_site_domain:delve/barrow","name":"Alva's Rest","rank":3,"theme":"delve_site_theme:delve/haunted","type":"delve_site",` +
	`"extra_card":"delve_site_domain:delve/ice_reach","region":"atlas_entry:delve/ironlands/hinterlands"}},` +
	`"site_domains":{"barrow":{"_id":"delve_site_domain:delve/barrow","_source":` + sourceInfo + `,` +
	`"dangers":[{"_id":"delve_site_domain.danger:delve/barrow.0","roll":{"max":33,"min":31},"text":"Ancient trap."}],` +
	`"features":[{"_id":"delve_site_domain.feature:delve/barrow.0","roll":{"max":43,"min":21},"text":"Burial chamber."}],` +
	`"name":"Barrow","summary":"A burial place.","type":"delve_site_domain"}}}`

func TestRulesPackage_DelveSitesAndAtlas(t *testing.T) {
	c := codec(t)
	ctx := context.Background()

	rec, err := c.DecodeBytes(ctx, datasworn.RulesPackage, []byte(delveExpansionJSON))
	require.NoError(t, err)

	sites, ok := rec.Collection("delve_sites")
	require.True(t, ok)
	site := sites["alvas_rest"].(*dataskema.Record)
	assert.Equal(t, datasworn.DelveSite, site.TypeName())
	denizens, _ := site.Sequence("denizens")
	require.Len(t, denizens, 2)
	assert.Equal(t, "DelveSiteDenizen", denizens[0].(*dataskema.Record).TypeName())

	domains, ok := rec.Collection("site_domains")
	require.True(t, ok)
	assert.Equal(t, datasworn.DelveSiteDomain, domains["barrow"].(*dataskema.Record).TypeName())

	atlas, ok := rec.Collection("atlas")
	require.True(t, ok)
	assert.Equal(t, datasworn.AtlasCollection, atlas["ironlands"].(*dataskema.Record).TypeName())

	out, err := c.Encode(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, delveExpansionJSON, string(out))
	require.NoError(t, c.Validate(ctx, rec))
}

func TestRulesPackage_DelveChildIDs(t *testing.T) {
	c := codec(t)
	ctx := context.Background()

	in := strings.Replace(delveExpansionJSON, `"delve_site_domain.feature:delve/barrow.0"`, `"delve_site_domain.feature:delve/barrow.1"`, 1)
	in = strings.Replace(in, `"atlas_entry:delve/ironlands/hinterlands","_source"`, `"atlas_entry:delve/ironlands/lowlands","_source"`, 1)
	rec, err := c.DecodeBytes(ctx, datasworn.RulesPackage, []byte(in))
	require.NoError(t, err)

	iss, ok := dataskema.AsIssues(c.Validate(ctx, rec))
	require.True(t, ok)
	require.Len(t, iss, 2)
	assert.Equal(t, "/atlas/ironlands/contents/hinterlands/_id", iss[0].Path)
	assert.Equal(t, "atlas_entry:delve/ironlands/hinterlands", iss[0].String("expected"))
	assert.Equal(t, "/site_domains/barrow/features/0/_id", iss[1].Path)
	assert.Equal(t, "delve_site_domain.feature:delve/barrow.0", iss[1].String("expected"))
}

func TestCodec_ConcurrentUse(t *testing.T) {
	c := codec(t)
	ctx := context.Background()
	bad := strings.Replace(npcJSON, `"rank":2`, `"rank":300`, 1)

	const workers = 16
	errs := make(chan error, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := c.DecodeBytes(ctx, datasworn.Npc, []byte(npcJSON))
			if err != nil {
				errs <- err
				return
			}
			out, err := c.Encode(ctx, rec)
			if err != nil {
				errs <- err
				return
			}
			if string(out) != npcJSON {
				errs <- assert.AnError
				return
			}
			if err := c.Validate(ctx, rec); err != nil {
				errs <- err
				return
			}
			_, err = c.DecodeBytes(ctx, datasworn.Npc, []byte(bad))
			if iss, ok := dataskema.AsIssues(err); !ok || iss[0].Code != dataskema.CodeOverflow {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
