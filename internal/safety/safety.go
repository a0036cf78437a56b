package safety

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// defaultBlocklist is the baseline toxicity word list; operators extend it
// through configuration.
var defaultBlocklist = []string{
	"hate", "stupid", "idiot", "moron", "dumb", "fuck", "shit", "damn",
}

// Gate is the final validation step before a reply may be dispatched. It
// never errors: a reply either comes back cleaned up, or is refused and the
// caller suppresses the response.
type Gate struct {
	maxLength int
	minLength int
	blocklist []string
}

func NewGate(maxLength, minLength int, blocklist []string) *Gate {
	if maxLength <= 0 {
		maxLength = 280
	}
	if minLength < 0 {
		minLength = 0
	}
	if len(blocklist) == 0 {
		blocklist = defaultBlocklist
	}
	lowered := make([]string, len(blocklist))
	for i, w := range blocklist {
		lowered[i] = strings.ToLower(w)
	}
	return &Gate{
		maxLength: maxLength,
		minLength: minLength,
		blocklist: lowered,
	}
}

// Check validates and cleans a candidate reply. ok is false when the text is
// empty after cleanup or contains blocked words.
func (g *Gate) Check(text string) (clean string, ok bool) {
	clean = strings.TrimSpace(text)

	// Strip markdown emphasis the generator tends to produce.
	clean = strings.ReplaceAll(clean, "**", "")
	clean = strings.ReplaceAll(clean, "*", "")

	// The generator sometimes hallucinates URLs; replace them with a
	// placeholder the curation team fills in.
	clean = urlPattern.ReplaceAllString(clean, "[LINK]")
	clean = strings.TrimSpace(clean)

	if clean == "" {
		return "", false
	}

	if len(clean) > g.maxLength && g.maxLength > 3 {
		// Cut on a rune boundary so a multi-byte character straddling the
		// limit is dropped whole instead of split.
		cut := g.maxLength - 3
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		clean = clean[:cut] + "..."
	}
	if len(clean) < g.minLength {
		clean = clean + " Feel free to reach out if you have more questions!"
	}

	lowered := strings.ToLower(clean)
	for _, word := range g.blocklist {
		if containsWord(lowered, word) {
			return "", false
		}
	}

	return clean, true
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
