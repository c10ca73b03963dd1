// cmd/stockwatch/formatter.go
package main

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const codeFence = "```"

// Tier names used in posted messages.
const (
	TierIncluded = "Included Stock"
	TierFiltered = "Filtered Stock"
)

// FormatBlock renders lines as one or more Discord messages, each a fenced
// code block no longer than MaxMessageLength. A non-empty title is put in
// bold above every block.
func FormatBlock(title string, lines []string) []string {
	prefix := ""
	if title != "" {
		prefix = fmt.Sprintf("**%s:**\n", title)
	}
	open := prefix + codeFence + "\n"
	budget := MaxMessageLength - utf8.RuneCountInString(open) - utf8.RuneCountInString("\n"+codeFence)

	var messages []string
	for _, chunk := range chunkLines(lines, budget) {
		messages = append(messages, open+strings.Join(chunk, "\n")+"\n"+codeFence)
	}
	return messages
}

// chunkLines groups lines so the newline-joined length of each group stays
// within budget runes. Lines longer than budget are split.
func chunkLines(lines []string, budget int) [][]string {
	var (
		chunks  [][]string
		current []string
		size    int
	)
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, current)
			current, size = nil, 0
		}
	}

	for _, line := range lines {
		for _, piece := range splitRunes(line, budget) {
			n := utf8.RuneCountInString(piece)
			extra := n
			if len(current) > 0 {
				extra++
			}
			if size+extra > budget {
				flush()
				extra = n
			}
			current = append(current, piece)
			size += extra
		}
	}
	flush()
	return chunks
}

func splitRunes(s string, max int) []string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return []string{s}
	}
	var out []string
	runes := []rune(s)
	for len(runes) > max {
		out = append(out, string(runes[:max]))
		runes = runes[max:]
	}
	return append(out, string(runes))
}

// FormatKeywordAlert builds the mention sent when watch-words show up in tier.
func FormatKeywordAlert(mention, tier string, words []string) string {
	return fmt.Sprintf("%s Keyword(s) found in %s: %s", mention, tier, strings.Join(words, ", "))
}

// FormatSnapshot renders a raw snapshot with a blank line between sections.
func FormatSnapshot(s Snapshot) []string {
	lines := make([]string, 0, len(s)+len(s.Headers()))
	for i, line := range s {
		if i > 0 && IsHeader(line) {
			lines = append(lines, "")
		}
		lines = append(lines, line)
	}
	return lines
}

// FormatKeywordList renders the reply to the list command.
func FormatKeywordList(words []string) string {
	if len(words) == 0 {
		return "No keywords set."
	}
	var b strings.Builder
	b.WriteString("Current keywords:")
	for _, w := range words {
		b.WriteString("\n- ")
		b.WriteString(w)
	}
	return b.String()
}
