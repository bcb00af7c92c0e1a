package augments

// DefaultDefinitions is the built-in catalog used when no augments.json is configured.
func DefaultDefinitions() []Definition {
	return []Definition{
		{ID: "old_speed_boots", Name: "Old Speed Boots", Tier: TierBronze, Weight: 10, Effect: SpeedBoost(0.1), Unlock: Exclusive()},
		{ID: "old_spring_boots", Name: "Old Spring Boots", Tier: TierBronze, Weight: 10, Effect: JumpBoost(0.1), Unlock: Exclusive()},
		{ID: "sunscreen", Name: "Sunscreen", Tier: TierBronze, Weight: 10, Effect: SunResist(0.9), Unlock: Exclusive()},
		{ID: "silver_dice", Name: "Silver Dice", Tier: TierBronze, Weight: 9, Effect: Wildcard(TierSilver), Unlock: Exclusive()},

		{ID: "strong_speed_boots", Name: "Strong Speed Boots", Tier: TierSilver, Weight: 8, Effect: SpeedBoost(0.2), Unlock: Exclusive()},
		{ID: "strong_spring_boots", Name: "Strong Spring Boots", Tier: TierSilver, Weight: 8, Effect: JumpBoost(0.2), Unlock: Exclusive()},
		{ID: "double_jump", Name: "Double Jump", Tier: TierSilver, Weight: 8, Effect: MaxJumps(2), Unlock: Exclusive()},
		{ID: "gold_dice", Name: "Gold Dice", Tier: TierSilver, Weight: 7, Effect: Wildcard(TierGold), Unlock: Exclusive()},

		{ID: "triple_jump", Name: "Triple Jump", Tier: TierGold, Weight: 6, Effect: MaxJumps(3), Unlock: Requires("double_jump")},
		{ID: "rubber_man", Name: "Rubber Man", Tier: TierGold, Weight: 6, Effect: ElectricResist(0.8), Unlock: Exclusive()},
		{ID: "bronze_skin", Name: "Bronze Skin", Tier: TierGold, Weight: 6, Effect: SunResist(0.8), Unlock: Exclusive()},

		{ID: "quadra_jump", Name: "Quadra Jump", Tier: TierUnique, Weight: 3, Effect: MaxJumps(4), Unlock: Requires("triple_jump")},
		{ID: "cloud_keeper", Name: "Cloud Keeper", Tier: TierUnique, Weight: 3, Effect: Companion(), Unlock: Exclusive()},
	}
}

// DefaultCatalog builds the built-in catalog. It cannot fail.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultDefinitions())
	if err != nil {
		panic(err)
	}
	return c
}
