package crawler

import "strings"

// blacklist holds whole words and single characters removed by CleanContent.
var blacklist = map[string]bool{
	"and": true, "with": true, "or": true,
	";": true, ":": true, ".": true, ",": true, "'": true, "\"": true, "!": true, "-": true,
	"{": true, "}": true, "[": true, "]": true, "<": true, ">": true,
	"\\": true, "%": true, "$": true,
}

// ExtractStrings trims every line of content, drops blank lines and joins the
// rest with single spaces.
func ExtractStrings(content string) string {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return strings.Join(result, " ")
}

// CleanContent drops blacklisted words, strips blacklisted characters from
// the remaining words and lower-cases them. Words left empty are dropped.
func CleanContent(content string) string {
	words := strings.Split(content, " ")
	cleaned := make([]string, 0, len(words))
	for _, word := range words {
		if blacklist[word] {
			continue
		}
		var b strings.Builder
		for _, r := range word {
			if !blacklist[string(r)] {
				b.WriteRune(r)
			}
		}
		if b.Len() == 0 {
			continue
		}
		cleaned = append(cleaned, strings.ToLower(b.String()))
	}
	return strings.Join(cleaned, " ")
}
