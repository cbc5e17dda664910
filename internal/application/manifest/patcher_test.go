package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		line      string
		wantOK    bool
		wantKey   string
		wantValue string
		wantQuote byte
	}{
		{line: "VERSION = 1.2.3", wantOK: true, wantKey: "VERSION ", wantValue: "1.2.3"},
		{line: "VERSION := 1.2.3 # release", wantOK: true, wantKey: "VERSION :", wantValue: "1.2.3"},
		{line: "version: 0.1.0", wantOK: true, wantKey: "version", wantValue: "0.1.0"},
		{line: `    version="1.0.0",`, wantOK: true, wantKey: "    version", wantValue: "1.0.0", wantQuote: '"'},
		{line: `  "version": "2.0.0",`, wantOK: true, wantKey: `  "version"`, wantValue: "2.0.0", wantQuote: '"'},
		{line: "version = 'x.y'", wantOK: true, wantKey: "version ", wantValue: "x.y", wantQuote: '\''},
		{line: `version = ""`, wantOK: true, wantKey: "version ", wantValue: "", wantQuote: '"'},
		{line: "version=1.0.0;", wantOK: true, wantKey: "version", wantValue: "1.0.0"},
		{line: "version =", wantOK: false},
		{line: "version = ,", wantOK: false},
		{line: `version = "unterminated`, wantOK: false},
		{line: "no separator here", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			a, ok := parseAssignment(tt.line)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantKey, a.key)
			assert.Equal(t, tt.wantValue, a.value(tt.line))
			assert.Equal(t, tt.wantQuote, a.quote)
		})
	}
}

func TestKeyMatches(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		mode     MatchMode
		keywords []string
		want     bool
	}{
		{"prefix exact", "version", MatchPrefix, []string{"version"}, true},
		{"prefix case-insensitive", "VERSION ", MatchPrefix, []string{"version"}, true},
		{"prefix make operator", "VERSION ?", MatchPrefix, []string{"version"}, true},
		{"prefix rejects indentation", "  version", MatchPrefix, []string{"version"}, false},
		{"prefix rejects longer key", "version_scheme", MatchPrefix, []string{"version"}, false},
		{"contains indented", "    version", MatchContains, []string{"version"}, true},
		{"contains quoted", `  "version"`, MatchContains, []string{`"version"`}, true},
		{"contains rejects camel case", "kotlinVersion", MatchContains, []string{"version"}, false},
		{"contains rejects dotted", "systemProp.version", MatchContains, []string{"version"}, false},
		{"contains rejects suffix", "version_code", MatchContains, []string{"version"}, false},
		{"any keyword", "release", MatchPrefix, []string{"version", "release"}, true},
		{"empty keyword", "version", MatchContains, []string{""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keyMatches(tt.key, tt.mode, tt.keywords))
		})
	}
}

func TestMatchModeString(t *testing.T) {
	assert.Equal(t, "prefix", MatchPrefix.String())
	assert.Equal(t, "contains", MatchContains.String())
}

func TestPatchVersion(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		mode     MatchMode
		keywords []string
		want     string
		changed  bool
	}{
		{
			name:     "makefile keeps other lines",
			content:  "NAME = app\nVERSION = 0.1.0\n\nbuild:\n\tgo build -ldflags \"-X main.version=$(VERSION)\"\n",
			mode:     MatchPrefix,
			keywords: []string{"version"},
			want:     "NAME = app\nVERSION = 0.2.0\n\nbuild:\n\tgo build -ldflags \"-X main.version=$(VERSION)\"\n",
			changed:  true,
		},
		{
			name:     "quotes preserved",
			content:  "version = '0.1.0'\n",
			mode:     MatchPrefix,
			keywords: []string{"version"},
			want:     "version = '0.2.0'\n",
			changed:  true,
		},
		{
			name:     "trailing comment preserved",
			content:  "version=0.1.0 # bumped by ci\r\n",
			mode:     MatchContains,
			keywords: []string{"version"},
			want:     "version=0.2.0 # bumped by ci\r\n",
			changed:  true,
		},
		{
			name:     "first match only",
			content:  "version=0.1.0\nversion=9.9.9\n",
			mode:     MatchContains,
			keywords: []string{"version"},
			want:     "version=0.2.0\nversion=9.9.9\n",
			changed:  true,
		},
		{
			name:     "hash comment skipped",
			content:  "# version: 0.0.1 was the first drop\nversion=0.1.0\n",
			mode:     MatchContains,
			keywords: []string{"version"},
			want:     "# version: 0.0.1 was the first drop\nversion=0.2.0\n",
			changed:  true,
		},
		{
			name:     "bang and slash comments skipped",
			content:  "! version=0.0.1\n    // version = \"0.0.2\"\n    version = \"0.1.0\"\n",
			mode:     MatchContains,
			keywords: []string{"version"},
			want:     "! version=0.0.1\n    // version = \"0.0.2\"\n    version = \"0.2.0\"\n",
			changed:  true,
		},
		{
			name:     "only comments",
			content:  "# version=0.1.0\n",
			mode:     MatchContains,
			keywords: []string{"version"},
			want:     "# version=0.1.0\n",
		},
		{
			name:     "similar keys untouched",
			content:  "kotlinVersion=1.9.0\nversionCode=3\n",
			mode:     MatchContains,
			keywords: []string{"version"},
			want:     "kotlinVersion=1.9.0\nversionCode=3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "manifest", tt.content)

			changed, err := PatchVersion(path, "0.2.0", tt.mode, tt.keywords...)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, readFile(t, path))
		})
	}
}

func TestPatchVersion_Idempotent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "setup.cfg", "[metadata]\nname = pkg\nversion = 1.0.0\n")

	for i := 0; i < 2; i++ {
		changed, err := PatchVersion(path, "1.1.0", MatchPrefix, "version")
		require.NoError(t, err)
		assert.True(t, changed)
	}
	assert.Equal(t, "[metadata]\nname = pkg\nversion = 1.1.0\n", readFile(t, path))
}

func TestPatchVersion_MissingFile(t *testing.T) {
	_, err := PatchVersion(filepath.Join(t.TempDir(), "Makefile"), "1.0.0", MatchPrefix, "version")
	assert.True(t, os.IsNotExist(err))
}

func TestScanVersion_SkipsComments(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gradle.properties", "# version: 0.0.1\nversion=1.4.0\n")

	value, found, err := ScanVersion(path, MatchContains, "version")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1.4.0", value)
}

func TestScanVersion(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Makefile", "# VERSION is set below\nVERSION ?= \"3.4.5\"\n")

	value, found, err := ScanVersion(path, MatchPrefix, "version")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "3.4.5", value)

	value, found, err = ScanVersion(path, MatchPrefix, "release")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}
