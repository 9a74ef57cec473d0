package catalog

import "fmt"

// BreedingData holds the per-tier growth constants for farm animals.
type BreedingData struct {
	Tier                   int
	BaseGrowHours          float64
	PremiumGrowHours       float64
	TotalFood              int
	BaseOffspringChance    float64
	FocusedOffspringChance float64
}

// breedingTable carries the verified growth data for tiers 3-8.
var breedingTable = map[int]BreedingData{
	3: {Tier: 3, BaseGrowHours: 44, PremiumGrowHours: 22, TotalFood: 10, BaseOffspringChance: 0.75, FocusedOffspringChance: 1.00},
	4: {Tier: 4, BaseGrowHours: 92, PremiumGrowHours: 46, TotalFood: 30, BaseOffspringChance: 0.79, FocusedOffspringChance: 1.05},
	5: {Tier: 5, BaseGrowHours: 140, PremiumGrowHours: 70, TotalFood: 90, BaseOffspringChance: 0.81, FocusedOffspringChance: 1.05},
	6: {Tier: 6, BaseGrowHours: 188, PremiumGrowHours: 94, TotalFood: 272, BaseOffspringChance: 0.82, FocusedOffspringChance: 1.04},
	7: {Tier: 7, BaseGrowHours: 236, PremiumGrowHours: 118, TotalFood: 805, BaseOffspringChance: 0.84, FocusedOffspringChance: 1.04},
	8: {Tier: 8, BaseGrowHours: 284, PremiumGrowHours: 142, TotalFood: 2367, BaseOffspringChance: 0.85, FocusedOffspringChance: 1.03},
}

// GrowHours returns the growth time for the account's premium status.
func (d BreedingData) GrowHours(premium bool) float64 {
	if premium {
		return d.PremiumGrowHours
	}
	return d.BaseGrowHours
}

// OffspringChance returns the breeding chance, focus-assisted or base.
func (d BreedingData) OffspringChance(focused bool) float64 {
	if focused {
		return d.FocusedOffspringChance
	}
	return d.BaseOffspringChance
}

// Material is one (item, quantity) requirement of a saddler recipe.
type Material struct {
	ItemID   string
	Quantity int
}

// MountRecipe maps a craftable mount to its grown animal and materials.
type MountRecipe struct {
	Animal    string
	Materials []Material
	Name      string
}

var mountRecipes = map[string]MountRecipe{
	"T4_MOUNT_HORSE": {Animal: "T4_FARM_HORSE_GROWN", Materials: []Material{{"T4_LEATHER", 20}}, Name: "Adept's Riding Horse"},
	"T5_MOUNT_HORSE": {Animal: "T5_FARM_HORSE_GROWN", Materials: []Material{{"T5_LEATHER", 25}}, Name: "Expert's Riding Horse"},
	"T6_MOUNT_HORSE": {Animal: "T6_FARM_HORSE_GROWN", Materials: []Material{{"T6_LEATHER", 30}}, Name: "Master's Riding Horse"},
	"T7_MOUNT_HORSE": {Animal: "T7_FARM_HORSE_GROWN", Materials: []Material{{"T7_LEATHER", 35}}, Name: "Grandmaster's Riding Horse"},
	"T8_MOUNT_HORSE": {Animal: "T8_FARM_HORSE_GROWN", Materials: []Material{{"T8_LEATHER", 40}}, Name: "Elder's Riding Horse"},
	"T4_MOUNT_OX":    {Animal: "T4_FARM_OX_GROWN", Materials: []Material{{"T4_PLANKS", 20}}, Name: "Adept's Transport Ox"},
	"T5_MOUNT_OX":    {Animal: "T5_FARM_OX_GROWN", Materials: []Material{{"T5_PLANKS", 25}}, Name: "Expert's Transport Ox"},
	"T6_MOUNT_OX":    {Animal: "T6_FARM_OX_GROWN", Materials: []Material{{"T6_PLANKS", 30}}, Name: "Master's Transport Ox"},
	"T7_MOUNT_OX":    {Animal: "T7_FARM_OX_GROWN", Materials: []Material{{"T7_PLANKS", 30}}, Name: "Grandmaster's Transport Ox"},
	"T8_MOUNT_OX":    {Animal: "T8_FARM_OX_GROWN", Materials: []Material{{"T8_PLANKS", 35}}, Name: "Elder's Transport Ox"},
}

var foodItems = map[string]string{
	"T1_CARROT":  "Carrot",
	"T2_BEAN":    "Bean",
	"T3_WHEAT":   "Wheat",
	"T4_TURNIP":  "Turnip",
	"T5_CABBAGE": "Cabbage",
	"T6_POTATO":  "Potato",
	"T7_CORN":    "Corn",
	"T8_PUMPKIN": "Pumpkin",
}

// BreedingForTier returns the growth table row for a tier.
func BreedingForTier(tier int) (BreedingData, bool) {
	d, ok := breedingTable[tier]
	return d, ok
}

// MountID builds the canonical mount identifier for a type and tier,
// e.g. ("HORSE", 5) -> "T5_MOUNT_HORSE".
func MountID(mountType string, tier int) string {
	return fmt.Sprintf("T%d_MOUNT_%s", tier, mountType)
}

// RecipeFor returns the saddler recipe for a mount identifier.
func RecipeFor(mountID string) (MountRecipe, bool) {
	r, ok := mountRecipes[mountID]
	return r, ok
}

// KnownFeedItem reports whether itemID is a farmable food item.
func KnownFeedItem(itemID string) bool {
	_, ok := foodItems[itemID]
	return ok
}
