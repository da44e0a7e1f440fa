// Package presets loads and saves named keyword rule sets. Text presets use
// the desktop app's "[SITES]" / "[APPS]" section format; YAML, JSON and TOML
// presets carry a top-level "sites" key holding a list or a comma separated
// string.
package presets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/studywith/focuslink/internal/focus/common/utils"
)

const (
	sectionSites = "[SITES]"
	sectionApps  = "[APPS]"
)

// ErrNotFound is returned when no preset file exists for a name.
var ErrNotFound = errors.New("preset not found")

// ErrUnsupported is returned for files whose extension is not a preset format.
var ErrUnsupported = errors.New("unsupported preset format")

// supportedExts is also the lookup order for LoadByName.
var supportedExts = []string{".txt", ".yaml", ".yml", ".json", ".toml"}

// Preset is a named keyword rule set loaded from disk.
type Preset struct {
	Name  string
	Path  string
	Sites []string
}

// LoadFile loads a single preset, picking the parser by extension.
func LoadFile(path string) (Preset, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ext := strings.ToLower(filepath.Ext(path))

	var (
		sites []string
		err   error
	)
	switch ext {
	case ".txt":
		sites, err = loadText(path)
	case ".yaml", ".yml", ".json", ".toml":
		sites, err = loadStructured(path, ext)
	default:
		return Preset{}, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	if err != nil {
		return Preset{}, err
	}
	return Preset{Name: name, Path: path, Sites: sites}, nil
}

// LoadDirectory loads every supported preset in dir (not recursive), keyed
// by name. When two files share a name the first in supportedExts order wins.
func LoadDirectory(dir string) (map[string]Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read preset dir %s: %w", dir, err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return extRank(entries[i].Name()) < extRank(entries[j].Name())
	})

	out := make(map[string]Preset)
	for _, e := range entries {
		if e.IsDir() || extRank(e.Name()) == len(supportedExts) {
			continue
		}
		p, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("error parsing preset file %s: %w", e.Name(), err)
		}
		if _, dup := out[p.Name]; !dup {
			out[p.Name] = p
		}
	}
	return out, nil
}

// Resolve returns the path of the preset called name in dir.
func Resolve(dir, name string) (string, error) {
	for _, ext := range supportedExts {
		path := filepath.Join(dir, name+ext)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNotFound, name, dir)
}

// SaveText writes sites as dir/name.txt in the section format and returns
// the path. The [APPS] section is written empty.
func SaveText(dir, name string, sites []string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid preset name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create preset dir: %w", err)
	}
	path := filepath.Join(dir, name+".txt")
	var b strings.Builder
	b.WriteString(sectionSites + "\n")
	b.WriteString(strings.Join(sites, ", ") + "\n\n")
	b.WriteString(sectionApps + "\n\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write preset %s: %w", path, err)
	}
	return path, nil
}

func extRank(name string) int {
	ext := strings.ToLower(filepath.Ext(name))
	for i, e := range supportedExts {
		if e == ext {
			return i
		}
	}
	return len(supportedExts)
}

func loadText(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseText(f)
}

// parseText collects the lines of the [SITES] section, up to [APPS] or EOF,
// and splits them on commas. A file without a [SITES] section has no sites.
func parseText(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	inSites := false
	var sites []string
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.EqualFold(trimmed, sectionSites):
			inSites = true
			continue
		case strings.EqualFold(trimmed, sectionApps):
			inSites = false
			continue
		}
		if inSites {
			sites = append(sites, utils.SplitSites(trimmed)...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if sites == nil {
		sites = []string{}
	}
	return sites, nil
}

func loadStructured(path, ext string) ([]string, error) {
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load preset file %s: %w", path, err)
	}
	return toSites(k.Get("sites")), nil
}

// toSites converts a raw koanf value (string or []any of strings) into a
// trimmed site list, skipping empty and non-string elements.
func toSites(val any) []string {
	switch v := val.(type) {
	case string:
		return utils.SplitSites(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
