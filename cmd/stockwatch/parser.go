// cmd/stockwatch/parser.go
package main

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// Snapshot is the ordered list of stock lines produced by one scrape. Header
// lines look like "== SEED STOCK ==", item lines like "Carrot x5".
type Snapshot []string

// String joins the lines with newlines.
func (s Snapshot) String() string {
	return strings.Join(s, "\n")
}

// Headers returns the header lines in page order.
func (s Snapshot) Headers() []string {
	var out []string
	for _, line := range s {
		if IsHeader(line) {
			out = append(out, line)
		}
	}
	return out
}

// IsHeader reports whether line is a section header.
func IsHeader(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "==")
}

// HeaderLine decorates a section name.
func HeaderLine(name string) string {
	return "== " + name + " =="
}

var (
	countToken = regexp.MustCompile(`x\d+`)
	countOnly  = regexp.MustCompile(`^x\d+$`)
)

// ParseStock extracts the stock sections from page markup. Every element
// matching headingSelector starts a section; its items are the list entries
// of the nearest enclosing div.
func ParseStock(r io.Reader, headingSelector string) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	snapshot := Snapshot{}
	doc.Find(headingSelector).Each(func(_ int, heading *goquery.Selection) {
		snapshot = append(snapshot, HeaderLine(cleanText(heading.Text())))

		container := heading.ParentsFiltered("div").First()
		if container.Length() == 0 {
			return
		}

		container.Find("li").Each(func(_ int, item *goquery.Selection) {
			spans := item.Find("span")
			if spans.Length() == 0 {
				return
			}
			parts := spans.Map(func(_ int, span *goquery.Selection) string {
				return strings.TrimSpace(span.Text())
			})
			text := NormalizeCounts(cleanText(strings.Join(parts, " ")))
			if text != "" {
				snapshot = append(snapshot, text)
			}
		})
	})

	return snapshot, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// NormalizeCounts separates quantity suffixes from the item name and drops
// repeated copies of the same suffix: "Carrotx3x3" becomes "Carrot x3".
// Applying it twice gives the same result as applying it once.
func NormalizeCounts(s string) string {
	tokens := strings.Fields(spaceCounts(s))

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		out = append(out, tok)
		if !countOnly.MatchString(tok) {
			continue
		}
		// Everything up to the last repeat of this suffix is a duplicate.
		for j := len(tokens) - 1; j > i; j-- {
			if tokens[j] == tok {
				i = j
				break
			}
		}
	}
	return strings.Join(out, " ")
}

// spaceCounts inserts a space before every x<digits> run that is glued to
// the previous character.
func spaceCounts(s string) string {
	locs := countToken.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(locs))
	last := 0
	for _, loc := range locs {
		b.WriteString(s[last:loc[0]])
		if loc[0] > 0 {
			r, _ := utf8.DecodeLastRuneInString(s[:loc[0]])
			if !unicode.IsSpace(r) {
				b.WriteByte(' ')
			}
		}
		last = loc[0]
	}
	b.WriteString(s[last:])
	return b.String()
}

// ParseStockCounts turns item lines into a name to count map. Headers, blank
// lines and lines without a " x<count>" suffix are skipped.
func ParseStockCounts(lines []string) map[string]int {
	counts := make(map[string]int)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "==") {
			continue
		}
		idx := strings.LastIndex(line, " x")
		if idx < 0 {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(line[idx+2:]))
		if err != nil {
			continue
		}
		counts[strings.TrimSpace(line[:idx])] = count
	}
	return counts
}
