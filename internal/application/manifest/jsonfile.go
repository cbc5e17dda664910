package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	rperrors "github.com/relicta-tech/nextversion/internal/errors"
	"github.com/relicta-tech/nextversion/internal/fileutil"
)

const jsonVersionKey = "version"

// jsonVersion is the top-level "version" property of a JSON manifest.
type jsonVersion struct {
	value string
	found bool
	// line is 1-based; column and width delimit the quoted value in that line.
	line   int
	column int
	width  int
}

// readJSONVersion returns the top-level "version" string of a JSON manifest,
// or "" when the property is absent.
func readJSONVersion(op, path string) (string, error) {
	loc, err := locateJSONVersion(op, path)
	if err != nil {
		return "", err
	}
	return loc.value, nil
}

// locateJSONVersion finds the top-level "version" property of path. Nested
// objects are skipped whole, so a "version" key inside them is never reported.
func locateJSONVersion(op, path string) (jsonVersion, error) {
	data, err := fileutil.ReadFileLimited(path, maxManifestSize)
	if err != nil {
		return jsonVersion{}, readFailure(op, path, err)
	}

	loc, err := findJSONVersion(data)
	if err != nil {
		return jsonVersion{}, rperrors.Wrap(err, rperrors.KindValidation, op, "failed to parse "+filepath.Base(path))
	}
	return loc, nil
}

func findJSONVersion(data []byte) (jsonVersion, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return jsonVersion{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return jsonVersion{}, errors.New("top-level value is not an object")
	}

	var loc jsonVersion
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return jsonVersion{}, err
		}
		key, _ := tok.(string)
		keyEnd := int(dec.InputOffset())

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return jsonVersion{}, err
		}
		if key != jsonVersionKey {
			continue
		}
		// Later duplicates win, as with json.Unmarshal.
		if string(raw) == "null" {
			loc = jsonVersion{}
			continue
		}

		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return jsonVersion{}, fmt.Errorf("version is not a string: %w", err)
		}
		end := int(dec.InputOffset())
		start := bytes.Index(data[keyEnd:end], raw)
		if start < 0 {
			return jsonVersion{}, errors.New("cannot locate version value")
		}
		line, column := lineColumn(data, keyEnd+start)
		loc = jsonVersion{value: value, found: true, line: line, column: column, width: len(raw)}
	}

	if _, err := dec.Token(); err != nil {
		return jsonVersion{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return jsonVersion{}, errors.New("unexpected data after top-level object")
	}
	return loc, nil
}

// lineColumn converts a byte offset to a 1-based line and a 0-based column,
// counting LF, CRLF and lone CR as terminators like fileutil.RewriteLines.
func lineColumn(data []byte, offset int) (line, column int) {
	line, lineStart := 1, 0
	for i := 0; i < offset; i++ {
		switch data[i] {
		case '\n':
			line, lineStart = line+1, i+1
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				continue
			}
			line, lineStart = line+1, i+1
		}
	}
	return line, offset - lineStart
}

// patchJSONVersion replaces the value located by loc, keeping every other byte.
func patchJSONVersion(path string, loc jsonVersion, newVersion string) (bool, error) {
	return fileutil.RewriteLines(path, func(lineNo int, line string) (string, bool) {
		end := loc.column + loc.width
		if lineNo != loc.line || end > len(line) || line[loc.column] != '"' {
			return "", false
		}
		return line[:loc.column] + `"` + newVersion + `"` + line[end:], true
	})
}
