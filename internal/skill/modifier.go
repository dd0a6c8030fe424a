package skill

import "strings"

// Tier is the magnitude classification of a skill's effect.
type Tier string

const (
	TierSmall     Tier = "Small"
	TierMedium    Tier = "Medium"
	TierBig       Tier = "Big"
	TierBigII     Tier = "Big II"
	TierMassive   Tier = "Massive"
	TierUnworldly Tier = "Unworldly"
	TierAncestral Tier = "Ancestral"
	// TierUnknown is returned for an empty description.
	TierUnknown Tier = "unknown"
)

var tierKeywords = []struct {
	keywords []string
	tier     Tier
}{
	{[]string{"small", "slight"}, TierSmall},
	{[]string{"medium"}, TierMedium},
	// "big ii" must be tested before "big", which it contains.
	{[]string{"big ii", "big 2"}, TierBigII},
	{[]string{"big", "large"}, TierBig},
	{[]string{"massive"}, TierMassive},
	{[]string{"unworldly"}, TierUnworldly},
	{[]string{"ancestral"}, TierAncestral},
}

// Classify maps a skill description onto a Tier using the first keyword group
// that appears in it. Descriptions with no keyword default to TierSmall.
func Classify(description string) Tier {
	if description == "" {
		return TierUnknown
	}
	text := strings.ToLower(description)
	for _, group := range tierKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(text, kw) {
				return group.tier
			}
		}
	}
	return TierSmall
}
