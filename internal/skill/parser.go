package skill

import (
	"regexp"
	"strings"
)

// Unknown marks a name component the heuristic could not resolve.
const Unknown = "unknown"

// ParsedName is a skill name split into its element and skill type.
type ParsedName struct {
	Element   string `json:"element"`
	SkillType string `json:"skillType"`
	// Guessed is set when no name pattern matched and the result came from
	// vocabulary scanning.
	Guessed bool `json:"-"`
}

type namePattern struct {
	re *regexp.Regexp
	// typeOnly patterns also feed ExtractSkillType.
	typeOnly bool
}

// Evaluated in order; first match wins.
var namePatterns = []namePattern{
	{re: regexp.MustCompile(`^([A-Za-z]+)'s\s+([A-Za-z\s]+)$`), typeOnly: true},
	{re: regexp.MustCompile(`^([A-Za-z]+)\s+([A-Za-z\s]+)$`), typeOnly: true},
	{re: regexp.MustCompile(`^([A-Za-z]+)([A-Z][a-z\s]+)$`)},
}

var romanSuffix = regexp.MustCompile(`(?i)\s+(II|III|IV|V|VI|VII|VIII|IX|X)$`)

var entityDecoder = strings.NewReplacer(
	"&#039;", "'",
	"&#39;", "'",
	"&quot;", `"`,
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
)

var elements = []string{"fire", "water", "earth", "wind", "light", "dark"}

var skillTypes = []string{
	"Might", "Aegis", "Stamina", "Enmity", "Critical", "Verity", "Celere",
	"Trium", "Primacy", "Fandango", "Devastation", "Dual-Edge", "Restraint",
	"Spearhead", "Sapience", "Sentence", "Glory", "Mystery", "Excelsior",
	"Arts", "Strike", "Healing", "Grace", "Majesty", "Bladeshield", "Heroism",
	"Encouragement", "Auspice", "Precocity",
}

// Level bonus granted by a trailing roman numeral on a skill name. Every
// numeral romanSuffix strips has an entry; V and above share the top bonus.
var suffixBonus = map[string]int{
	"II":   5,
	"III":  10,
	"IV":   15,
	"V":    20,
	"VI":   20,
	"VII":  20,
	"VIII": 20,
	"IX":   20,
	"X":    20,
}

// MaxSkillLevel caps AdjustLevelForSuffix.
const MaxSkillLevel = 20

// DecodeEntities replaces the HTML entities found in scraped skill names.
func DecodeEntities(s string) string {
	return entityDecoder.Replace(s)
}

// ParseName splits raw into element and skill type.
//
// Postcondition: ok is false when raw is empty or when neither an element nor a
// known skill type can be found in it.
func ParseName(raw string) (ParsedName, bool) {
	if raw == "" {
		return ParsedName{}, false
	}
	name := DecodeEntities(raw)

	for _, p := range namePatterns {
		if m := p.re.FindStringSubmatch(name); m != nil {
			return ParsedName{
				Element:   strings.ToLower(m[1]),
				SkillType: strings.TrimSpace(m[2]),
			}, true
		}
	}
	return guessName(name)
}

func guessName(name string) (ParsedName, bool) {
	lower := strings.ToLower(name)
	out := ParsedName{Element: Unknown, SkillType: Unknown, Guessed: true}
	for _, e := range elements {
		if strings.Contains(lower, e) {
			out.Element = e
			break
		}
	}
	for _, t := range skillTypes {
		if strings.Contains(lower, strings.ToLower(t)) {
			out.SkillType = t
			break
		}
	}
	if out.Element == Unknown && out.SkillType == Unknown {
		return ParsedName{}, false
	}
	return out, true
}

// ExtractSkillType returns the canonical skill type of raw with any trailing
// roman numeral removed, e.g. "Fire's Might II" yields "Might". Only the
// possessive and space-separated forms are recognised.
func ExtractSkillType(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	name := DecodeEntities(raw)

	for _, p := range namePatterns {
		if !p.typeOnly {
			continue
		}
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		t := romanSuffix.ReplaceAllString(strings.TrimSpace(m[2]), "")
		if t == "" {
			return "", false
		}
		return t, true
	}
	return "", false
}

// AdjustLevelForSuffix raises base by the bonus of the last roman numeral word
// in raw (II +5, III +10, IV +15, V through X +20), capped at MaxSkillLevel.
// Names without a numeral word return base unchanged.
func AdjustLevelForSuffix(raw string, base int) int {
	words := strings.Fields(DecodeEntities(raw))
	// The first word is the element; a numeral can only follow it.
	for i := len(words) - 1; i > 0; i-- {
		if bonus, ok := suffixBonus[words[i]]; ok {
			return min(base+bonus, MaxSkillLevel)
		}
	}
	return base
}
