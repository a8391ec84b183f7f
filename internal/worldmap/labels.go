package worldmap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/polymath-app/polymath/internal/embedding"
	"github.com/polymath-app/polymath/internal/logging"
	"github.com/polymath-app/polymath/internal/store"
)

var labelStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "with": true, "about": true,
	"my": true, "your": true, "our": true, "is": true, "are": true, "was": true,
	"how": true, "what": true, "why": true, "when": true, "notes": true,
	"note": true, "re": true, "new": true,
}

// labelFor picks a cluster label from the most frequent non-stopword in its
// members' titles. Ties break alphabetically so the same member set always
// yields the same label. Falls back to a numbered district when the titles
// have no usable words.
func labelFor(members []*store.Item, clusterIndex int) string {
	counts := make(map[string]int)
	for _, it := range members {
		for _, word := range strings.Fields(strings.ToLower(it.Title)) {
			word = strings.Trim(word, ".,!?;:'\"()[]{}")
			if len(word) < 3 || labelStopwords[word] {
				continue
			}
			counts[word]++
		}
	}

	if len(counts) == 0 {
		return fmt.Sprintf("District %d", clusterIndex+1)
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	return capitalize(words[0])
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Generator produces a short text completion. *embedding.Client satisfies it.
type Generator interface {
	Generate(prompt string) (string, error)
}

// maxGeneratedLabel rejects responses where the model rambled instead of
// answering with a name
const maxGeneratedLabel = 40

// RefineLabels rewrites each city's frequency-derived label with a generated
// theme name based on its member titles. Per-city failures keep the existing
// label; a provider outage stops further calls so a downed service isn't hit
// once per city.
func RefineLabels(m *Map, titles map[string]string, gen Generator) {
	for i := range m.Cities {
		city := &m.Cities[i]

		var memberTitles []string
		for _, ref := range city.Members {
			if t := titles[ref.Key()]; t != "" {
				memberTitles = append(memberTitles, t)
			}
			if len(memberTitles) == 10 {
				break
			}
		}
		if len(memberTitles) == 0 {
			continue
		}

		prompt := fmt.Sprintf(
			"These note titles belong to one theme:\n- %s\n\nName the theme in one or two words. Reply with the name only.",
			strings.Join(memberTitles, "\n- "))
		name, err := gen.Generate(prompt)
		if err != nil {
			logging.Warn("worldmap", "label generation failed for %s: %v", city.ID, err)
			if errors.Is(err, embedding.ErrUnavailable) {
				return
			}
			continue
		}
		if name = cleanLabel(name); name != "" {
			city.Label = name
		}
	}
}

// cleanLabel normalizes a generated label to a single short line. Returns ""
// (keep the frequency label) when the response is unusable.
func cleanLabel(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'.`)
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxGeneratedLabel {
		return ""
	}
	return s
}
