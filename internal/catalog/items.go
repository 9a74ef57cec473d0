// Package catalog holds the static game-data lookup tables: item display
// names, breeding growth data and saddler recipes. Everything here is loaded
// once and never mutated at runtime.
package catalog

// Items maps item identifiers to display names, grouped by category for the
// meta endpoint. Trimmed to the trade goods the calculators work with; extend
// as needed.
var Items = map[string]map[string]string{
	"Bags": {
		"T4_BAG": "Adept's Bag",
		"T5_BAG": "Expert's Bag",
		"T6_BAG": "Master's Bag",
		"T7_BAG": "Grandmaster's Bag",
		"T8_BAG": "Elder's Bag",
	},
	"Capes": {
		"T4_CAPE": "Adept's Cape",
		"T5_CAPE": "Expert's Cape",
		"T6_CAPE": "Master's Cape",
		"T7_CAPE": "Grandmaster's Cape",
		"T8_CAPE": "Elder's Cape",
	},
	"Resources": {
		"T4_ORE":     "Iron Ore",
		"T5_ORE":     "Titanium Ore",
		"T6_ORE":     "Runite Ore",
		"T4_PLANKS":  "Chestnut Planks",
		"T5_PLANKS":  "Bloodoak Planks",
		"T6_PLANKS":  "Ashenbark Planks",
		"T7_PLANKS":  "Whitewood Planks",
		"T8_PLANKS":  "Elderwood Planks",
		"T4_LEATHER": "Worked Leather",
		"T5_LEATHER": "Cured Leather",
		"T6_LEATHER": "Hardened Leather",
		"T7_LEATHER": "Reinforced Leather",
		"T8_LEATHER": "Fortified Leather",
	},
	"Mounts": {
		"T4_MOUNT_HORSE": "Adept's Riding Horse",
		"T5_MOUNT_HORSE": "Expert's Riding Horse",
		"T6_MOUNT_HORSE": "Master's Riding Horse",
		"T7_MOUNT_HORSE": "Grandmaster's Riding Horse",
		"T8_MOUNT_HORSE": "Elder's Riding Horse",
		"T4_MOUNT_OX":    "Adept's Transport Ox",
		"T5_MOUNT_OX":    "Expert's Transport Ox",
		"T6_MOUNT_OX":    "Master's Transport Ox",
		"T7_MOUNT_OX":    "Grandmaster's Transport Ox",
		"T8_MOUNT_OX":    "Elder's Transport Ox",
	},
	"Farm": {
		"T1_CARROT":  "Carrot",
		"T2_BEAN":    "Bean",
		"T3_WHEAT":   "Wheat",
		"T4_TURNIP":  "Turnip",
		"T5_CABBAGE": "Cabbage",
		"T6_POTATO":  "Potato",
		"T7_CORN":    "Corn",
		"T8_PUMPKIN": "Pumpkin",
	},
}

var flatItems = buildFlatItems()

func buildFlatItems() map[string]string {
	flat := make(map[string]string)
	for _, category := range Items {
		for id, name := range category {
			flat[id] = name
		}
	}
	return flat
}

// ItemName returns the display name for an item, falling back to the raw
// identifier for anything not in the catalog.
func ItemName(itemID string) string {
	if name, ok := flatItems[itemID]; ok {
		return name
	}
	return itemID
}

// AllItems returns the flat id-to-name catalog.
func AllItems() map[string]string {
	out := make(map[string]string, len(flatItems))
	for id, name := range flatItems {
		out[id] = name
	}
	return out
}
