package lxc

import (
	"regexp"
	"strings"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
)

// parseList splits lxc-ls output into container names, keeping order.
// Names never contain whitespace, so both one-per-line and columnar output
// are accepted.
func parseList(out []byte) []string {
	return strings.Fields(string(out))
}

// parseInfo turns "Key Name: value" lines into an Info map. Exact duplicate
// lines are dropped first; a remaining duplicate key keeps the last value.
func parseInfo(name string, lines []string) (domain.Info, error) {
	seen := make(map[string]bool, len(lines))
	info := domain.Info{}

	for _, line := range lines {
		if seen[line] {
			continue
		}
		seen[line] = true

		if strings.TrimSpace(line) == "" {
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			return nil, domain.NewError(domain.MalformedInfoLine, name, "malformed info line %q", line)
		}
		key := strings.TrimLeft(line[:idx], " \t")
		value := strings.TrimLeft(line[idx+1:], " \t")

		key = strings.ToLower(strings.Replace(key, " ", "_", -1))
		info[key] = value
	}
	return info, nil
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// scrubCheckConfig strips color codes and spaces from lxc-checkconfig output.
func scrubCheckConfig(out []byte) []string {
	lines := strings.Split(string(out), "\n")
	for i, line := range lines {
		line = ansiEscape.ReplaceAllString(line, "")
		lines[i] = strings.Replace(line, " ", "", -1)
	}
	return lines
}

func splitLines(out []byte) []string {
	s := strings.TrimRight(string(out), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
