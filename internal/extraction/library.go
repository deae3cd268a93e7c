package extraction

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// maxLibraryFileSize bounds pattern library files.
const maxLibraryFileSize = 256 * 1024

// libraryFile is the on-disk shape of a pattern library.
//
//	kinds:
//	  - kind: theme
//	    triggers: [theme, topic, vibe]
//	    generic: true
//	    labels: [Theme, Vibe]
type libraryFile struct {
	// Replace discards the built-in rules instead of overlaying them.
	Replace bool        `yaml:"replace"`
	Kinds   []KindRules `yaml:"kinds"`
}

// ParseLibrary compiles a YAML library. Kinds present in data replace the
// built-in rules for that kind; other kinds keep their defaults unless the
// file sets replace: true.
func ParseLibrary(data []byte) (*Library, error) {
	var f libraryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse library: %w", err)
	}
	if f.Replace && len(f.Kinds) == 0 {
		return nil, fmt.Errorf("parse library: replace set but no kinds defined")
	}

	var rules []KindRules
	if f.Replace {
		rules = f.Kinds
	} else {
		rules = overlayRules(DefaultRules(), f.Kinds)
	}

	lib, err := NewLibrary(rules)
	if err != nil {
		return nil, fmt.Errorf("compile library: %w", err)
	}
	return lib, nil
}

// LoadLibrary reads and compiles the library file at path.
func LoadLibrary(path string) (*Library, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat library: %w", err)
	}
	if info.Size() > maxLibraryFileSize {
		return nil, fmt.Errorf("library file too large: %d bytes (max %d)", info.Size(), maxLibraryFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}
	return ParseLibrary(data)
}

// MarshalLibrary renders l in the file format ParseLibrary reads.
func MarshalLibrary(l *Library) ([]byte, error) {
	return yaml.Marshal(libraryFile{Replace: true, Kinds: l.Rules()})
}

func overlayRules(base, over []KindRules) []KindRules {
	byKind := make(map[FieldKind]int, len(base))
	out := make([]KindRules, len(base))
	copy(out, base)
	for i, r := range out {
		byKind[r.Kind] = i
	}

	for _, r := range over {
		if k := ParseKind(string(r.Kind)); k != KindNone {
			r.Kind = k
		}
		if i, ok := byKind[r.Kind]; ok {
			out[i] = r
			continue
		}
		// Unknown kinds fall through so NewLibrary reports them.
		out = append(out, r)
	}
	return out
}
