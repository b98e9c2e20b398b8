package rewards

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Levels accepted on the second line of a submission.
const (
	MinLevel = 1
	MaxLevel = 20
)

var levelPattern = regexp.MustCompile(`\p{Nd}+`)

// Template is the parsed header of a reward submission post.
type Template struct {
	Title  string
	Levels []int
}

// TemplateError describes why a post was rejected.
// Reason is shown to the author and may be empty.
type TemplateError struct {
	Reason string
}

func (e *TemplateError) Error() string {
	if e.Reason == "" {
		return ErrInvalidTemplate.Error()
	}
	return ErrInvalidTemplate.Error() + ": " + e.Reason
}

func (e *TemplateError) Unwrap() error {
	return ErrInvalidTemplate
}

// ParseTemplate validates a post against the submission template:
//
//	QUEST TITLE
//	Levels: X, Y, Z...
//
//	More info and submission details
//
// Any run of decimal digits on the second line counts as a level,
// including digits from scripts other than ASCII.
func ParseTemplate(content string) (*Template, error) {
	lines := splitLines(content)
	if len(lines) < 2 {
		return nil, &TemplateError{}
	}

	title := strings.TrimSpace(lines[0])
	if title == "" {
		return nil, &TemplateError{Reason: "Missing quest title."}
	}

	raw := levelPattern.FindAllString(lines[1], -1)
	levels := make([]int, 0, len(raw))
	valid := len(raw) > 0

	for _, digits := range raw {
		level := parseDigits(digits)
		if level < MinLevel || level > MaxLevel {
			valid = false
		}
		levels = append(levels, level)
	}

	if !valid {
		return nil, &TemplateError{Reason: "Invalid levels: [" + strings.Join(raw, ", ") + "]"}
	}

	return &Template{Title: title, Levels: levels}, nil
}

// parseDigits converts a run of decimal digits of any script.
// Values past MaxLevel are clamped to MaxLevel+1 so huge runs stay out of range.
func parseDigits(digits string) int {
	value := 0
	for _, r := range digits {
		value = value*10 + digitValue(r)
		if value > MaxLevel {
			return MaxLevel + 1
		}
	}
	return value
}

// digitValue returns the value of a Unicode decimal digit.
// Decimal digits are encoded in runs of ten starting at zero.
func digitValue(r rune) int {
	if r >= '0' && r <= '9' {
		return int(r - '0')
	}

	for _, rng := range unicode.Nd.R16 {
		if lo, hi := rune(rng.Lo), rune(rng.Hi); r >= lo && r <= hi {
			return int((r-lo)/rune(rng.Stride)) % 10
		}
	}
	for _, rng := range unicode.Nd.R32 {
		if lo, hi := rune(rng.Lo), rune(rng.Hi); r >= lo && r <= hi {
			return int((r-lo)/rune(rng.Stride)) % 10
		}
	}
	return 0
}

// splitLines splits on every Unicode line boundary and drops the empty tail
// left by a trailing line break. "\r\n" counts as a single break.
func splitLines(s string) []string {
	var lines []string
	start := 0

	for i, r := range s {
		if i < start {
			continue
		}

		switch r {
		case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
			lines = append(lines, s[start:i])
			start = i + utf8.RuneLen(r)
		case '\r':
			lines = append(lines, s[start:i])
			start = i + 1
			if strings.HasPrefix(s[start:], "\n") {
				start++
			}
		}
	}

	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
