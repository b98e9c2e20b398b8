package quest

import (
	"regexp"
	"strings"
)

var (
	pingOnlyPattern  = regexp.MustCompile(`^(<@&?\d+>\s*)+$`)
	codeFencePattern = regexp.MustCompile("^```\\w*\n")
	titlePattern     = regexp.MustCompile(`\[\s*(.+)\s*\]`)
)

// IsCandidate reports whether a post looks like a game posting.
// One-line posts and posts made only of mentions are skipped.
func IsCandidate(content string) bool {
	if !strings.Contains(content, "\n") {
		return false
	}
	return !pingOnlyPattern.MatchString(content)
}

// ParseTitle extracts the bracketed title from the first line of a posting.
// A posting opening with a code fence is read from its second line.
func ParseTitle(content string) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	firstLine := lines[0]
	if codeFencePattern.MatchString(content) && len(lines) > 1 {
		firstLine = lines[1]
	}

	match := titlePattern.FindStringSubmatch(firstLine)
	if match == nil {
		return "", false
	}

	title := strings.TrimSpace(match[1])
	return title, title != ""
}

// cleanReply turns a prompt reply into a title.
func cleanReply(content string) string {
	return strings.Trim(content, " []")
}
