// Package changes classifies commit messages under the Conventional Commits grammar.
package changes

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/relicta-tech/nextversion/internal/domain/version"
)

// Footer tokens that mark a breaking change. Matching is case-sensitive.
const (
	BreakingChangeFooter       = "BREAKING CHANGE:"
	BreakingChangeHyphenFooter = "BREAKING-CHANGE:"

	mergePrefix   = "Merge"
	featurePrefix = "feat"
	breakingBang  = "!:"
)

var lineSeparator = regexp.MustCompile(`\r\n|\r|\n`)

// FooterWarning reports a footer that looks like a breaking-change marker but
// does not match its exact spelling, so it was not counted as breaking.
type FooterWarning struct {
	// Keyword is the offending footer token as written in the commit.
	Keyword string
	// Header is the first line of the commit carrying the footer.
	Header string
}

// Verdict is the classification of a single commit message.
type Verdict struct {
	Header   string
	Merge    bool
	Breaking bool
	Feature  bool
	Warnings []FooterWarning
}

// Bump returns the severity implied by this commit alone.
func (v Verdict) Bump() version.BumpType {
	switch {
	case v.Merge:
		return version.BumpNone
	case v.Breaking:
		return version.BumpMajor
	case v.Feature:
		return version.BumpMinor
	default:
		return version.BumpPatch
	}
}

// Analysis is the aggregate classification of a commit list.
type Analysis struct {
	Bump     version.BumpType
	Total    int
	Merges   int
	Breaking []string
	Features []string
	Warnings []FooterWarning
}

// Classify maps commit messages to the bump severity they require:
// any breaking commit yields major, else any feature yields minor, else patch.
// An empty list yields patch. Messages starting with "Merge" are ignored.
func Classify(commits []string) version.BumpType {
	return Analyze(commits).Bump
}

// Analyze classifies every commit and returns the decision with its evidence.
func Analyze(commits []string) Analysis {
	a := Analysis{Bump: version.BumpPatch, Total: len(commits)}

	hasBreaking, hasFeature := false, false
	for _, msg := range commits {
		v := ClassifyCommit(msg)
		if v.Merge {
			a.Merges++
			continue
		}
		a.Warnings = append(a.Warnings, v.Warnings...)
		if v.Breaking {
			hasBreaking = true
			a.Breaking = append(a.Breaking, v.Header)
		}
		if v.Feature {
			hasFeature = true
			a.Features = append(a.Features, v.Header)
		}
	}

	switch {
	case hasBreaking:
		a.Bump = version.BumpMajor
	case hasFeature:
		a.Bump = version.BumpMinor
	}
	return a
}

// ClassifyCommit classifies a single raw commit message.
func ClassifyCommit(msg string) Verdict {
	lines := lineSeparator.Split(msg, -1)
	v := Verdict{Header: lines[0]}

	if strings.HasPrefix(msg, mergePrefix) {
		v.Merge = true
		return v
	}

	v.Feature = strings.HasPrefix(v.Header, featurePrefix)
	v.Breaking = strings.Contains(v.Header, breakingBang)

	fold := cases.Fold()
	for _, line := range lines {
		if strings.HasPrefix(line, BreakingChangeFooter) || strings.HasPrefix(line, BreakingChangeHyphenFooter) {
			v.Breaking = true
			continue
		}
		folded := fold.String(line)
		if strings.HasPrefix(folded, strings.ToLower(BreakingChangeFooter)) ||
			strings.HasPrefix(folded, strings.ToLower(BreakingChangeHyphenFooter)) {
			v.Warnings = append(v.Warnings, FooterWarning{
				Keyword: leadingRunes(line, len(BreakingChangeFooter)),
				Header:  v.Header,
			})
		}
	}
	return v
}

func leadingRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
