package rankdomain

// DefaultTierNames and DefaultRequirements describe the stock ladder. Role
// handles are deployment specific and come from configuration.
var (
	DefaultTierNames    = []string{"Bronze", "Iron", "Steel", "Mithril", "Adamant", "Rune", "Dragon", "Torva"}
	DefaultRequirements = []int64{1, 250, 500, 1_000, 2_500, 5_000, 10_000, 25_000}
)

// FillDefaults completes tiers positionally from the stock ladder: a tier
// with no name or no requirement takes the stock value at its index.
// Tiers beyond the stock ladder are returned unchanged.
func FillDefaults(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	for i := range out {
		if i >= len(DefaultTierNames) {
			break
		}
		if out[i].Name == "" {
			out[i].Name = DefaultTierNames[i]
		}
		if out[i].Requirement == 0 {
			out[i].Requirement = DefaultRequirements[i]
		}
	}
	return out
}
