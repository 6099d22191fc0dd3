package matching

import (
	"path"
	"strings"

	"github.com/viant/docrag/matching/option"
)

// Manager decides which corpus files are indexed using gitignore-style rules.
type Manager struct {
	options    *option.Options
	exclusions []rule
	inclusions []rule
}

// New creates a new exclusion manager with the given options
func New(opts ...option.Option) *Manager {
	options := option.Build(opts...)
	return &Manager{
		options:    options,
		exclusions: parseRules(options.Exclusions),
		inclusions: parseRules(options.Inclusions),
	}
}

// Allows reports whether the slash separated path relative to the corpus root should be indexed.
func (m *Manager) Allows(relPath string, size int64) bool {
	return !m.IsExcluded(relPath, size)
}

// IsExcluded checks if a path should be excluded based on the patterns and size limit.
func (m *Manager) IsExcluded(relPath string, size int64) bool {
	if m.options.MaxFileSize > 0 && size > m.options.MaxFileSize {
		return true
	}
	segments := splitPath(relPath)
	if len(segments) == 0 {
		return true
	}
	if len(m.inclusions) > 0 {
		included := false
		for _, r := range m.inclusions {
			if !r.negate && r.matches(segments) {
				included = true
				break
			}
		}
		if !included {
			return true
		}
	}
	excluded := false
	for _, r := range m.exclusions {
		if r.matches(segments) {
			excluded = !r.negate
		}
	}
	return excluded
}

// IsExcludedDir reports whether a directory, and so everything below it, is excluded.
func (m *Manager) IsExcludedDir(relPath string) bool {
	segments := splitPath(relPath)
	if len(segments) == 0 {
		return false
	}
	excluded := false
	for _, r := range m.exclusions {
		if r.matchesDir(segments) {
			excluded = !r.negate
		}
	}
	return excluded
}

type rule struct {
	segments []string
	negate   bool
	dirOnly  bool
	anchored bool
}

func parseRules(patterns []string) []rule {
	var rules []rule
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}
		r := rule{}
		if strings.HasPrefix(pattern, "!") {
			r.negate = true
			pattern = pattern[1:]
		}
		if strings.HasSuffix(pattern, "/") {
			r.dirOnly = true
			pattern = strings.TrimRight(pattern, "/")
		}
		if strings.HasPrefix(pattern, "/") {
			r.anchored = true
			pattern = strings.TrimLeft(pattern, "/")
		}
		if strings.Contains(pattern, "/") {
			r.anchored = true
		}
		if pattern == "" {
			continue
		}
		r.segments = strings.Split(pattern, "/")
		rules = append(rules, r)
	}
	return rules
}

// matches tests the file path and each of its parent directories.
func (r rule) matches(segments []string) bool {
	if !r.dirOnly && r.matchAt(segments) {
		return true
	}
	return r.matchesParent(segments)
}

func (r rule) matchesDir(segments []string) bool {
	return r.matchAt(segments) || r.matchesParent(segments)
}

func (r rule) matchesParent(segments []string) bool {
	for i := 1; i < len(segments); i++ {
		if r.matchAt(segments[:i]) {
			return true
		}
	}
	return false
}

func (r rule) matchAt(segments []string) bool {
	if r.anchored {
		return matchSegments(r.segments, segments)
	}
	for start := range segments {
		if matchSegments(r.segments, segments[start:]) {
			return true
		}
	}
	return false
}

// matchSegments matches glob segments where "**" spans zero or more path segments.
func matchSegments(pattern, segments []string) bool {
	if len(pattern) == 0 {
		return len(segments) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(segments); i++ {
			if matchSegments(pattern[1:], segments[i:]) {
				return true
			}
		}
		return false
	}
	if len(segments) == 0 {
		return false
	}
	if ok, _ := path.Match(pattern[0], segments[0]); !ok {
		return false
	}
	return matchSegments(pattern[1:], segments[1:])
}

func splitPath(relPath string) []string {
	relPath = strings.Trim(strings.ReplaceAll(relPath, "\\", "/"), "/")
	if relPath == "" {
		return nil
	}
	var out []string
	for _, segment := range strings.Split(relPath, "/") {
		if segment == "" || segment == "." {
			continue
		}
		out = append(out, segment)
	}
	return out
}
