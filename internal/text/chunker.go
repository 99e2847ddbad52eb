package text

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the soft size cap for a single article chunk, counted
// in runes so Korean prose packs as densely as ASCII.
const DefaultMaxChars = 1000

var headingRe = regexp.MustCompile(`(?m)^#{1,3}\s`)

// SplitArticle splits rendered article text into retrieval-sized passages.
//
// The text is first cut at level 1-3 heading boundaries. Sections that fit
// under maxChars pass through as-is (trimmed). Oversized sections are
// sub-split on blank-line paragraphs, greedily packing consecutive paragraphs
// until the next one would overflow the cap. The cap is soft: a single
// paragraph longer than maxChars is kept whole rather than truncated.
//
// Splitting is deterministic, so re-chunking unchanged text yields identical
// boundaries and ordinal-derived chunk ids stay stable across re-indexing.
func SplitArticle(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	for _, section := range splitSections(text) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		if utf8.RuneCountInString(section) <= maxChars {
			chunks = append(chunks, section)
			continue
		}

		chunks = append(chunks, packParagraphs(section, maxChars)...)
	}

	return chunks
}

// splitSections cuts text at H1-H3 heading markers, keeping each heading
// attached to the body that follows it.
func splitSections(text string) []string {
	locs := headingRe.FindAllStringIndex(text, -1)

	var sections []string
	last := 0
	for _, loc := range locs {
		if loc[0] > last {
			sections = append(sections, text[last:loc[0]])
		}
		last = loc[0]
	}
	if last < len(text) {
		sections = append(sections, text[last:])
	}
	return sections
}

// packParagraphs greedily accumulates blank-line-delimited paragraphs into
// chunks of at most maxChars. A lone paragraph over the cap becomes its own
// chunk untouched.
func packParagraphs(section string, maxChars int) []string {
	paragraphs := strings.Split(section, "\n\n")

	var chunks []string
	var acc strings.Builder
	accRunes := 0

	flush := func() {
		if acc.Len() > 0 {
			chunks = append(chunks, acc.String())
			acc.Reset()
			accRunes = 0
		}
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		paraRunes := utf8.RuneCountInString(para)
		if paraRunes > maxChars {
			flush()
			chunks = append(chunks, para)
			continue
		}

		if accRunes > 0 && accRunes+paraRunes+2 > maxChars {
			flush()
		}
		if acc.Len() > 0 {
			acc.WriteString("\n\n")
			accRunes += 2
		}
		acc.WriteString(para)
		accRunes += paraRunes
	}
	flush()

	return chunks
}
