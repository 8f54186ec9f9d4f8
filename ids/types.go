package ids

// Datasworn type ids.
const (
	AtlasEntry      = "atlas_entry"
	Npc             = "npc"
	OracleRollable  = "oracle_rollable"
	Asset           = "asset"
	Move            = "move"
	AtlasCollection = "atlas_collection"
	NpcCollection   = "npc_collection"
	OracleColl      = "oracle_collection"
	AssetCollection = "asset_collection"
	MoveCategory    = "move_category"
	DelveSite       = "delve_site"
	DelveSiteDomain = "delve_site_domain"
	DelveSiteTheme  = "delve_site_theme"
	Rarity          = "rarity"
	Truth           = "truth"
)

// Collectables can be stored in a collection's contents.
var Collectables = []string{AtlasEntry, Npc, OracleRollable, Asset, Move}

// Collections hold collectables and nested collections of their own type.
var Collections = []string{AtlasCollection, NpcCollection, OracleColl, AssetCollection, MoveCategory}

// NonCollectables are primary types addressed directly below their package.
var NonCollectables = []string{DelveSite, DelveSiteDomain, DelveSiteTheme, Rarity, Truth}

var collectedBy = map[string]string{
	AssetCollection: Asset,
	MoveCategory:    Move,
	AtlasCollection: AtlasEntry,
	NpcCollection:   Npc,
	OracleColl:      OracleRollable,
}

var embedTypes = map[string][]string{
	Asset:           {"ability"},
	"ability":       {Move, OracleRollable},
	Truth:           {"option"},
	"option":        {OracleRollable},
	Move:            {OracleRollable},
	OracleRollable:  {"row"},
	DelveSite:       {"denizen"},
	DelveSiteDomain: {"feature", "danger"},
	DelveSiteTheme:  {"feature", "danger"},
	Npc:             {"variant"},
}

// CollectedBy returns the collectable type stored in a collection type, or "".
func CollectedBy(collection string) string { return collectedBy[collection] }

// EmbedTypes lists the types a type may embed.
func EmbedTypes(typ string) []string { return embedTypes[typ] }

// CanEmbed reports whether parent may embed child. Types outside the
// Datasworn tables embed anything.
func CanEmbed(parent, child string) bool {
	allowed, known := embedTypes[parent]
	if !known {
		return !isKnown(parent)
	}
	for _, a := range allowed {
		if a == child {
			return true
		}
	}
	return false
}

func isKnown(t string) bool {
	for _, set := range [][]string{Collectables, Collections, NonCollectables} {
		for _, s := range set {
			if s == t {
				return true
			}
		}
	}
	return false
}
