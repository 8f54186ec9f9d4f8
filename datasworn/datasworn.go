// Package datasworn embeds the Datasworn descriptor set and exposes it as a
// frozen schema registry.
package datasworn

import (
	_ "embed"
	"sync"

	"github.com/reoring/dataskema/schema"
	"github.com/reoring/dataskema/schema/jtd"
)

//go:embed datasworn.jtd.yaml
var document []byte

// Top-level definition names.
const (
	RulesPackage           = "RulesPackage"
	Rules                  = "Rules"
	SourceInfo             = "SourceInfo"
	OracleRollable         = "OracleRollable"
	EmbeddedOracleRollable = "EmbeddedOracleRollable"
	OracleCollection       = "OracleCollection"
	Move                   = "Move"
	EmbeddedMove           = "EmbeddedMove"
	MoveCategory           = "MoveCategory"
	ActionRollOption       = "ActionRollOption"
	Asset                  = "Asset"
	AssetAbility           = "AssetAbility"
	AssetCollection        = "AssetCollection"
	AssetControlField      = "AssetControlField"
	AssetOptionField       = "AssetOptionField"
	Npc                    = "Npc"
	NpcVariant             = "NpcVariant"
	NpcCollection          = "NpcCollection"
	Truth                  = "Truth"
	TruthOption            = "TruthOption"
	Rarity                 = "Rarity"
	DelveSiteTheme         = "DelveSiteTheme"
	DelveSiteDomain        = "DelveSiteDomain"
	DelveSite              = "DelveSite"
	AtlasCollection        = "AtlasCollection"
	AtlasEntry             = "AtlasEntry"
	ChallengeRank          = "ChallengeRank"
)

var (
	once    sync.Once
	reg     *schema.Registry
	loadErr error
)

// Document returns the embedded JTD document.
func Document() []byte { return document }

// Load parses the embedded document into a new frozen registry.
func Load() (*schema.Registry, error) { return jtd.Load(document) }

// Registry returns the shared registry, loading it on first use. The
// embedded document is fixed, so a load failure is a build defect and panics.
func Registry() *schema.Registry {
	once.Do(func() { reg, loadErr = Load() })
	if loadErr != nil {
		panic("datasworn: embedded schema: " + loadErr.Error())
	}
	return reg
}
