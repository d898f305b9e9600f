package fsbridge

import "strings"

// RouteDecision is the outcome of mapping a (path, operation) pair. When
// Routed is false, Path is the original path unchanged and the caller must
// fall back to its default implementation; the router never forwards an
// unrouted path to a backend.
type RouteDecision struct {
	Routed bool
	Path   string
}

// Mapper decides whether an operation on a path is redirected to the
// backend and what the path resolves to there.
//
// Decide must be a pure function of its inputs for a fixed configuration.
// The operation tag is an opaque string of the form <namespace>.<verb> with
// an optional .src/.dst role suffix for dual-path operations, so the same
// path may resolve differently per operation.
type Mapper interface {
	Decide(path, op string) RouteDecision
}

// MapperFunc adapts a plain function to the Mapper interface, enabling
// operation-aware routing (e.g. writes and reads resolved to different
// subtrees).
type MapperFunc func(path, op string) RouteDecision

func (f MapperFunc) Decide(path, op string) RouteDecision { return f(path, op) }

// Identity returns a mapper that routes every non-empty path unchanged.
func Identity() Mapper {
	return MapperFunc(func(path, _ string) RouteDecision {
		if path == "" {
			return RouteDecision{Path: path}
		}
		return RouteDecision{Routed: true, Path: path}
	})
}

// PrefixRule maps one local path prefix to a backend prefix.
type PrefixRule struct {
	Local  string `json:"local" yaml:"local"`
	Remote string `json:"remote" yaml:"remote"`
}

type prefixMapper struct {
	rules []PrefixRule
}

// NewPrefixMapper builds a mapper from an ordered prefix table. Rules are
// tried in the given order and the first whose Local is a prefix of the
// path wins: the prefix is stripped, any leading separator on the remainder
// and trailing separator on Remote are trimmed, and the two are joined. An
// empty Remote resolves to the bare remainder. A path matching no rule is
// not routed.
func NewPrefixMapper(rules []PrefixRule) Mapper {
	return &prefixMapper{rules: rules}
}

func (m *prefixMapper) Decide(path, _ string) RouteDecision {
	if path == "" {
		return RouteDecision{Path: path}
	}
	for _, r := range m.rules {
		if !strings.HasPrefix(path, r.Local) {
			continue
		}
		rel := strings.TrimLeft(path[len(r.Local):], "/")
		remote := strings.TrimRight(r.Remote, "/")
		if remote == "" {
			return RouteDecision{Routed: true, Path: rel}
		}
		return RouteDecision{Routed: true, Path: remote + "/" + rel}
	}
	return RouteDecision{Path: path}
}
