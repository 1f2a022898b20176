package artifact

import (
	"fmt"
	"strconv"
	"strings"
)

// AliasLatest selects the highest registered version.
const AliasLatest = "latest"

// Identifier names one artifact version: "name", "name:latest" or "name:vN".
type Identifier struct {
	Name string
	// Version is the pinned version, or -1 for latest.
	Version int
}

// ParseIdentifier parses "name[:alias]".
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	name, alias, hasAlias := strings.Cut(s, ":")
	if name == "" {
		return Identifier{}, fmt.Errorf("empty artifact name in %q", s)
	}
	if !hasAlias || alias == AliasLatest {
		return Identifier{Name: name, Version: -1}, nil
	}

	digits, ok := strings.CutPrefix(alias, "v")
	if !ok {
		return Identifier{}, fmt.Errorf("unknown alias %q (want %q or vN)", alias, AliasLatest)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return Identifier{}, fmt.Errorf("invalid version %q", alias)
	}
	return Identifier{Name: name, Version: n}, nil
}

func (id Identifier) String() string {
	if id.Version < 0 {
		return id.Name + ":" + AliasLatest
	}
	return fmt.Sprintf("%s:v%d", id.Name, id.Version)
}
