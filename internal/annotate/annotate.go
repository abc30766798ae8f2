// Package annotate scans final note text for hashtag, mention, and link
// occurrences with code-point accurate offsets.
package annotate

import (
	"regexp"
	"sort"

	"github.com/starford/othala/internal/models"
)

var (
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	mentionRe = regexp.MustCompile(`@(\w+)`)
	linkRe    = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+[^\s<>"{}|\\^` + "`" + `\[\].,!?;:)]`)
)

// Extract returns every hashtag, mention, and link in text, ordered by
// position. Start/End cover the whole match including its sigil; Text is
// the tag or mention name without the sigil (for links, the URL itself).
// Matches overlapping a placeholder span are discarded: placeholders are
// not user text, whatever their token happens to contain.
func Extract(text string, placeholders []models.AttachmentBinding) []models.Annotation {
	if text == "" {
		return nil
	}
	toRune := runeOffsets(text)

	var out []models.Annotation
	collect := func(re *regexp.Regexp, kind models.AnnotationKind, group bool) {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := toRune[m[0]], toRune[m[1]]
			if overlapsPlaceholder(start, end, placeholders) {
				continue
			}
			matched := text[m[0]:m[1]]
			if group {
				matched = text[m[2]:m[3]]
			}
			out = append(out, models.Annotation{Kind: kind, Text: matched, Start: start, End: end})
		}
	}

	collect(hashtagRe, models.AnnotationHashtag, true)
	collect(mentionRe, models.AnnotationMention, true)
	collect(linkRe, models.AnnotationLink, false)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func overlapsPlaceholder(start, end int, placeholders []models.AttachmentBinding) bool {
	for _, p := range placeholders {
		if start < p.Start+p.Length && p.Start < end {
			return true
		}
	}
	return false
}

// runeOffsets maps every byte offset of text (plus one past the end) to its
// code-point offset, so regexp byte indices translate to rune positions.
func runeOffsets(text string) map[int]int {
	m := make(map[int]int, len(text)+1)
	runes := 0
	for i := range text {
		m[i] = runes
		runes++
	}
	m[len(text)] = runes
	return m
}
