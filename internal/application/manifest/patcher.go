package manifest

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/relicta-tech/nextversion/internal/fileutil"
)

// MatchMode selects how a manifest key is compared to the wanted keywords.
// Comparison is always case-insensitive and on whole keys.
type MatchMode int

const (
	// MatchPrefix matches an unindented key, as in Makefile or setup.cfg.
	MatchPrefix MatchMode = iota
	// MatchContains matches the keyword anywhere in the key part of the line,
	// which allows indentation and surrounding quotes.
	MatchContains
)

// String returns the string representation of the match mode.
func (m MatchMode) String() string {
	if m == MatchContains {
		return "contains"
	}
	return "prefix"
}

// assignment is a "key = value" or "key: value" line split into parts.
// valueStart and valueEnd delimit the value inside the line, excluding quotes.
type assignment struct {
	key        string
	valueStart int
	valueEnd   int
	quote      byte
}

func (a assignment) value(line string) string {
	return line[a.valueStart:a.valueEnd]
}

func (a assignment) replace(line, newValue string) string {
	return line[:a.valueStart] + newValue + line[a.valueEnd:]
}

// parseAssignment splits line on the first '=' (or ':' when there is none)
// and locates the value. A value opening with a quote runs to the matching
// quote; an unquoted value runs to the first blank, ',', ';' or '#'.
func parseAssignment(line string) (assignment, bool) {
	sep := strings.IndexByte(line, '=')
	if sep < 0 {
		sep = strings.IndexByte(line, ':')
	}
	if sep < 0 {
		return assignment{}, false
	}

	rhs := line[sep+1:]
	start := sep + 1 + len(rhs) - len(strings.TrimLeft(rhs, " \t"))
	if start >= len(line) {
		return assignment{}, false
	}

	a := assignment{key: line[:sep]}
	switch q := line[start]; q {
	case '"', '\'':
		end := strings.IndexByte(line[start+1:], q)
		if end < 0 {
			return assignment{}, false
		}
		a.quote = q
		a.valueStart = start + 1
		a.valueEnd = start + 1 + end
	default:
		end := strings.IndexAny(line[start:], " \t,;#")
		if end < 0 {
			end = len(line) - start
		}
		a.valueStart = start
		a.valueEnd = start + end
	}
	if a.valueStart == a.valueEnd && a.quote == 0 {
		return assignment{}, false
	}
	return a, true
}

// isComment reports whether line is a comment in any supported manifest syntax.
func isComment(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") || strings.HasPrefix(trimmed, "//")
}

// keyMatches reports whether key names one of keywords under mode.
func keyMatches(key string, mode MatchMode, keywords []string) bool {
	fold := cases.Fold()
	switch mode {
	case MatchPrefix:
		// Trailing blanks and make assignment operators (:= ?= += !=) are not part of the key.
		k := fold.String(strings.TrimRight(key, " \t:?+!"))
		for _, kw := range keywords {
			if k == fold.String(kw) {
				return true
			}
		}
	case MatchContains:
		k := fold.String(key)
		for _, kw := range keywords {
			if containsWord(k, fold.String(kw)) {
				return true
			}
		}
	}
	return false
}

// containsWord reports whether word occurs in s delimited by non-word bytes.
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; ; {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		offset = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b == '-' || b == '.' ||
		('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// PatchVersion replaces the value of the first non-comment line whose key
// matches one of keywords with newVersion, keeping the original quote character and every
// other byte of the file. It returns false, leaving the file untouched, when
// no line matches.
func PatchVersion(path, newVersion string, match MatchMode, keywords ...string) (bool, error) {
	return patchAssignment(path, newVersion, func(_ int, a assignment) bool {
		return keyMatches(a.key, match, keywords)
	})
}

// ScanVersion returns the value of the first non-comment line whose key
// matches one of keywords, without quotes. found is false when no line matches.
func ScanVersion(path string, match MatchMode, keywords ...string) (value string, found bool, err error) {
	err = fileutil.ScanLines(path, func(_ int, line string) bool {
		if isComment(line) {
			return true
		}
		a, ok := parseAssignment(line)
		if !ok || !keyMatches(a.key, match, keywords) {
			return true
		}
		value, found = a.value(line), true
		return false
	})
	return value, found, err
}

// patchAssignment rewrites the value of the first assignment line accepted by
// selector. Comment lines are never offered to selector.
func patchAssignment(path, newVersion string, selector func(lineNo int, a assignment) bool) (bool, error) {
	return fileutil.RewriteLines(path, func(lineNo int, line string) (string, bool) {
		if isComment(line) {
			return "", false
		}
		a, ok := parseAssignment(line)
		if !ok || !selector(lineNo, a) {
			return "", false
		}
		return a.replace(line, newVersion), true
	})
}
