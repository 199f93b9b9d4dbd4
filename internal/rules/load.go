package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFileName is the base name hosts look for among their input files.
const ConfigFileName = "unwanted_method_calls"

// DefaultConfigFile is the conventional rule file name.
const DefaultConfigFile = ConfigFileName + ".json"

// FindConfigFile returns the first path whose base name is the rule file
// name with a supported extension, or "" when none is.
func FindConfigFile(paths []string) string {
	for _, p := range paths {
		base := filepath.Base(p)
		if strings.TrimSuffix(base, filepath.Ext(base)) != ConfigFileName {
			continue
		}
		if _, err := FormatFromPath(p); err == nil {
			return p
		}
	}
	return ""
}

// DiscoverConfigFile searches dirs in order for a rule file.
// Unreadable directories are skipped.
func DiscoverConfigFile(dirs ...string) string {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		paths := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
		if found := FindConfigFile(paths); found != "" {
			return found
		}
	}
	return ""
}

// DiscoverUpward searches start and its parents for a rule file, stopping
// after the first directory that holds a go.mod.
func DiscoverUpward(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		if found := DiscoverConfigFile(dir); found != "" {
			return found
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadFile reads and compiles the rule file at path.
// An empty path means no configuration: the result is an empty set.
func LoadFile(path string) (*RuleSet, error) {
	if path == "" {
		return Build(nil)
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	rs, err := BuildFormat(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rs.source = path
	return rs, nil
}
