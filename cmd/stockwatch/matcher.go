package main

import "strings"

// MatchKeywords returns the watch-words, in their own order, that occur as a
// case-sensitive substring of at least one line.
func MatchKeywords(words, lines []string) []string {
	var found []string
	for _, word := range words {
		for _, line := range lines {
			if strings.Contains(line, word) {
				found = append(found, word)
				break
			}
		}
	}
	return found
}
