// Package podfile provides functionality for reading pod declarations from a Podfile.
package podfile

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"strings"

	"go.trai.ch/zerr"

	"github.com/anthr76/podlock/internal/hash"
	"github.com/anthr76/podlock/internal/requirement"
)

// DefaultPodfile is the default manifest name.
const DefaultPodfile = "Podfile"

// Podfile contains the pod declarations parsed from a Podfile.
type Podfile struct {
	// Pods lists each declared pod in file order. A pod declared more than
	// once (e.g. in two targets) keeps its first declaration.
	Pods []requirement.Requirement

	// Checksum is the SHA-1 of the file contents.
	Checksum string
}

var (
	podPattern  = regexp.MustCompile(`^\s*pod\s+['"]([^'"]+)['"]\s*(.*)$`)
	argPattern  = regexp.MustCompile(`(?::(\w+)\s*=>\s*|(\w+):\s*)?['"]([^'"]*)['"]`)
	listPattern = regexp.MustCompile(`\[[^\]]*\]`)
)

// sourceKeys are the options that replace the spec repo as a pod's source.
var sourceKeys = map[string]bool{"path": true, "git": true, "podspec": true}

// gitKeys qualify a :git source.
var gitKeys = map[string]bool{"tag": true, "branch": true, "commit": true}

// Parse reads and parses a Podfile.
func Parse(path string) (*Podfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "reading Podfile"), "path", path)
	}

	pf, err := ParseBytes(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return pf, nil
}

// ParseBytes parses Podfile contents.
func ParseBytes(data []byte) (*Podfile, error) {
	pf := &Podfile{Checksum: hash.PodfileChecksum(data)}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())

		m := podPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		req, err := parsePod(m[1], m[2])
		if err != nil {
			return nil, zerr.With(err, "line", lineNo)
		}
		if seen[req.Name] {
			continue
		}
		seen[req.Name] = true
		pf.Pods = append(pf.Pods, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, zerr.Wrap(err, "scanning Podfile")
	}

	return pf, nil
}

func parsePod(name, args string) (requirement.Requirement, error) {
	args = listPattern.ReplaceAllString(args, "")

	var (
		versions  []string
		external  string
		sourceKey string
		gitOpts   []requirement.SourceOption
	)
	for _, m := range argPattern.FindAllStringSubmatch(args, -1) {
		key := m[1] + m[2]
		switch {
		case key == "":
			versions = append(versions, strings.TrimSpace(m[3]))
		case sourceKeys[key] && external == "":
			external, sourceKey = m[3], key
		case gitKeys[key]:
			gitOpts = append(gitOpts, requirement.SourceOption{Key: key, Value: m[3]})
		}
	}

	if external != "" {
		req := requirement.Requirement{Name: name, External: external}
		if sourceKey == "git" {
			req.SourceOptions = gitOpts
		}
		return req, nil
	}
	if len(versions) == 0 {
		return requirement.Parse(name)
	}
	return requirement.Parse(name + " (" + strings.Join(versions, ", ") + ")")
}

// stripComment drops a trailing Ruby comment, ignoring '#' inside quotes.
func stripComment(line string) string {
	var quote rune
	for i, c := range line {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

// Lookup returns the declaration for name.
func (pf *Podfile) Lookup(name string) (requirement.Requirement, bool) {
	for _, r := range pf.Pods {
		if r.Name == name {
			return r, true
		}
	}
	return requirement.Requirement{}, false
}
