package importer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrUnknownKind           = errors.New("unknown geometry source")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

// Kind tags the geometry source representation.
type Kind string

const (
	Native      Kind = "native"
	Legacy      Kind = "legacy"
	Interchange Kind = "interchange"
)

var kindAliases = map[string]Kind{
	"native":           Native,
	"geant4":           Native,
	"geomgeant4":       Native,
	"legacy":           Legacy,
	"vmc":              Legacy,
	"vmctogeant4":      Legacy,
	"geomvmctogeant4":  Legacy,
	"interchange":      Interchange,
	"root":             Interchange,
	"roottogeant4":     Interchange,
	"geomroottogeant4": Interchange,
}

// ParseKind resolves a tag or one of its aliases, case-insensitively.
func ParseKind(tag string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, tag)
	}
	return k, nil
}

// KindTags returns every accepted tag, sorted.
func KindTags() []string {
	out := make([]string, 0, len(kindAliases))
	for tag := range kindAliases {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Capabilities lists the import paths available in this build.
type Capabilities struct {
	Native      bool `yaml:"native"`
	Legacy      bool `yaml:"legacy"`
	Interchange bool `yaml:"interchange"`
}

// AllCapabilities enables every import path.
func AllCapabilities() Capabilities {
	return Capabilities{Native: true, Legacy: true, Interchange: true}
}

// Has reports whether k is enabled.
func (c Capabilities) Has(k Kind) bool {
	switch k {
	case Native:
		return c.Native
	case Legacy:
		return c.Legacy
	case Interchange:
		return c.Interchange
	default:
		return false
	}
}

// New returns the strategy for k. Unknown kinds and disabled capabilities fail.
func New(k Kind, caps Capabilities, logger *zap.Logger) (Strategy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	k, err := ParseKind(string(k))
	if err != nil {
		return nil, err
	}
	if !caps.Has(k) {
		return nil, fmt.Errorf("%w: %s import", ErrCapabilityUnavailable, k)
	}
	switch k {
	case Legacy:
		return newLegacyStrategy(logger), nil
	case Interchange:
		return newInterchangeStrategy(logger), nil
	default:
		return newNativeStrategy(logger), nil
	}
}
