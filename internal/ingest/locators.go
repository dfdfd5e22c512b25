package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"clipper/internal/services"
)

// ReadLocators loads a locator list, one per line. A missing file is a
// setup error.
func ReadLocators(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "ingest", "read locators", fmt.Sprintf("locator list %s does not exist", path), err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "read locators", fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NormalizeLocators(lines), nil
}

// NormalizeLocators trims entries, drops blanks and # comments, and removes
// duplicates while keeping first-seen order.
func NormalizeLocators(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		locator := strings.TrimSpace(line)
		if locator == "" || strings.HasPrefix(locator, "#") {
			continue
		}
		if _, dup := seen[locator]; dup {
			continue
		}
		seen[locator] = struct{}{}
		out = append(out, locator)
	}
	return out
}
