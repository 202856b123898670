package moderation

import "regexp"

// Pattern categories, in evaluation order.
const (
	CategoryThreat     = "threats"
	CategoryDeathWish  = "death_wishes"
	CategorySelfHarm   = "self_harm"
	CategoryHarassment = "harassment"
	CategoryHateSpeech = "hate_speech"
	CategorySexual     = "sexual_harassment"
)

// PatternEntry is one blocklist rule: a category tag plus a compiled pattern.
// Entries are evaluated in declaration order and the first match wins, so
// diagnostics are deterministic.
type PatternEntry struct {
	Category string
	Source   string
	re       *regexp.Regexp
}

// MatchResult reports a blocklist decision. Pattern is a safe prefix of the
// matched rule's source, suitable for diagnostics; the message text itself is
// never part of the result.
type MatchResult struct {
	Blocked  bool
	Category string
	Pattern  string
}

// patternPrefixLen bounds how much of a pattern source is exposed in logs.
const patternPrefixLen = 50

// Blocklist is the zero-latency hard-block layer. All patterns target
// normalized text (see Normalize): lowercase, no punctuation except
// apostrophes, contractions expanded, character runs collapsed.
type Blocklist struct {
	entries []PatternEntry
}

func entry(category, source string) PatternEntry {
	return PatternEntry{
		Category: category,
		Source:   source,
		re:       regexp.MustCompile(source),
	}
}

// NewBlocklist returns the default blocklist.
func NewBlocklist() *Blocklist {
	return &Blocklist{entries: defaultEntries()}
}

func defaultEntries() []PatternEntry {
	return []PatternEntry{
		// Threats & violence.
		entry(CategoryThreat, `\bi\s+(will|am going to|am gonna|wanna|gonna|want to|would like to)\s+(kill|hurt|stab|shoot|murder|beat|attack|slap|punch|strangle|destroy|end)\s+(you|u|him|her|them)\b`),
		entry(CategoryThreat, `\bi\s+will\s+hurt\s+you`),
		entry(CategoryThreat, `\b(kill|hurt|stab|shoot|murder|strangle)\s+(you|u)\b`),

		// Death wishes.
		entry(CategoryDeathWish, `\bhope\s+(you|u|they|he|she)\s+die`),
		entry(CategoryDeathWish, `\bgo\s+die\b`),
		entry(CategoryDeathWish, `\bdie\s*die\b`),
		entry(CategoryDeathWish, `\b(die){2,}\b`),
		entry(CategoryDeathWish, `\bjust\s+die\b`),
		entry(CategoryDeathWish, `\bplease\s+die\b`),
		entry(CategoryDeathWish, `\byou\s+deserve\s+to\s+die\b`),
		entry(CategoryDeathWish, `\byou\s+should\s+(just\s+)?die\b`),
		entry(CategoryDeathWish, `\btime\s+to\s+die\b`),
		entry(CategoryDeathWish, `\byou\s+must\s+die\b`),
		entry(CategoryDeathWish, `\byou\s+(need|have)\s+to\s+die\b`),
		entry(CategoryDeathWish, `\byou\s+will\s+die\b`),
		entry(CategoryDeathWish, `\bgo(nna|ing\s+to)\s+die\b`),

		// Directed suicide baiting.
		entry(CategorySelfHarm, `kill\s*(your\s*self|yourself|urself|ur\s*self)`),
		entry(CategorySelfHarm, `\bkys\b`),
		entry(CategorySelfHarm, `why\s+(do not|don't|dont|wont|will not)\s+you\s+(just\s+)?kill\s+(yourself|your\s*self|urself)`),
		entry(CategorySelfHarm, `\bgo\s+(kill|hang|hurt|cut)\s+(yourself|your\s*self|urself)\b`),
		entry(CategorySelfHarm, `you\s+should\s+(just\s+)?(kill\s+yourself|kys|end\s+(it|your\s*life))`),

		// Self-harm encouragement.
		entry(CategorySelfHarm, `\bcut\s+(yourself|your\s*self|urself|your\s+wrists?)\b`),
		entry(CategorySelfHarm, `\bdrink\s+bleach\b`),
		entry(CategorySelfHarm, `\bjump\s+off\s+(a|the)\b`),
		entry(CategorySelfHarm, `\bend\s+(your|ur)\s+(life|it)\b`),
		entry(CategorySelfHarm, `\bno\s*one\s+(would|will)\s+(care|miss|notice)\s+if\s+you\s+(died|were\s+gone|killed\s+yourself)`),

		// Harassment / directed vulgarity.
		entry(CategoryHarassment, `\byou\s+(fucking|fuckin|fking|fkn)\s+(suck|bitch|cunt|whore|slut|idiot|retard|moron|loser|piece)`),
		entry(CategoryHarassment, `\byou\s+suck\b`),
		entry(CategoryHarassment, `\bfuck\s*(you|u|off|yo|yourself|urself)\b`),
		entry(CategoryHarassment, `\bstfu\b`),
		entry(CategoryHarassment, `\bpiece\s+of\s+shit\b`),
		entry(CategoryHarassment, `\bkill\s+yourself\b`),
		entry(CategoryHarassment, `\b(you\s+are|you\s*re|ur)\s+(a\s+)?(worthless|pathetic|disgusting|trash|garbage|waste)\b`),
		entry(CategoryHarassment, `\bnobody\s+(loves|likes|cares\s+about)\s+(you|u)\b`),
		entry(CategoryHarassment, `\byou\s+are\s+(nothing|a\s+joke|useless)\b`),

		// Slurs & hate speech, tolerant of common leetspeak substitutions.
		entry(CategoryHateSpeech, `n+[i1!]+g+[e3]*r+s?\b`),
		entry(CategoryHateSpeech, `f+[a@]+g+[o0]*t+s?\b`),
		entry(CategoryHateSpeech, `\bk+[i1!]+k+e+s?\b`),
		entry(CategoryHateSpeech, `\btr+[a@]+nn+(y|ie|ies)\b`),
		entry(CategoryHateSpeech, `\bch+[i1!]+nk+s?\b`),
		entry(CategoryHateSpeech, `\bsp+[i1!]+c+s?\b`),
		entry(CategoryHateSpeech, `\bwetback`),
		entry(CategoryHateSpeech, `\bcoon(s)?\b`),
		entry(CategoryHateSpeech, `n[i1!]gg(a|er|ers|as)\b`),
		entry(CategoryHateSpeech, `\bret+a+r+d+(s|ed)?\b`),

		// Sexual harassment.
		entry(CategorySexual, `\b(send|show)\s*(me\s*)?(nudes|tits|dick\s*pic|boobs|ass\s*pic)`),
		entry(CategorySexual, `\b(want|wanna|gonna)\s+(to\s+)?(rape|fuck|grope)\s+(you|u|her|him)\b`),
	}
}

// Check evaluates the normalized text against every entry in order and
// short-circuits on the first match. No network I/O; this is the first and
// cheapest line of defense.
func (b *Blocklist) Check(normalizedText string) MatchResult {
	for _, e := range b.entries {
		if e.re.MatchString(normalizedText) {
			pattern := e.Source
			if len(pattern) > patternPrefixLen {
				pattern = pattern[:patternPrefixLen]
			}
			return MatchResult{Blocked: true, Category: e.Category, Pattern: pattern}
		}
	}
	return MatchResult{}
}

// Len reports the number of configured entries.
func (b *Blocklist) Len() int { return len(b.entries) }
