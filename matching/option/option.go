package option

import (
	"bufio"
	"io"
	"strings"
)

// Options holds the corpus file rules.
type Options struct {
	Exclusions  []string
	Inclusions  []string
	MaxFileSize int64
}

// Option mutates Options.
type Option func(*Options)

// Build applies opts; without any exclusion option the default patterns apply.
func Build(opts ...Option) *Options {
	ret := &Options{}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.Exclusions == nil {
		ret.Exclusions = DefaultPatterns()
	}
	return ret
}

// Corpus maps corpus settings to options. Configured exclusions extend DefaultPatterns.
func Corpus(include, exclude []string, maxSize int64) []Option {
	var ret []Option
	if len(include) > 0 {
		ret = append(ret, WithInclusionPatterns(include...))
	}
	if len(exclude) > 0 {
		ret = append(ret, WithDefaultExclusionPatterns(), WithExclusionPatterns(exclude...))
	}
	if maxSize > 0 {
		ret = append(ret, WithMaxIndexableSize(maxSize))
	}
	return ret
}

// WithExclusionPatterns appends gitignore-style exclusion patterns.
func WithExclusionPatterns(patterns ...string) Option {
	return func(o *Options) { o.Exclusions = append(o.Exclusions, patterns...) }
}

// WithInclusionPatterns restricts the corpus to files matching any pattern.
func WithInclusionPatterns(patterns ...string) Option {
	return func(o *Options) { o.Inclusions = append(o.Inclusions, patterns...) }
}

// WithMaxIndexableSize skips files larger than size bytes.
func WithMaxIndexableSize(size int64) Option {
	return func(o *Options) { o.MaxFileSize = size }
}

// WithIgnoreFile appends the patterns of an ignore file such as .docragignore.
func WithIgnoreFile(reader io.Reader) Option {
	return func(o *Options) {
		if patterns := ParseIgnore(reader); len(patterns) > 0 {
			o.Exclusions = append(o.Exclusions, patterns...)
		}
	}
}

// WithDefaultExclusionPatterns appends DefaultPatterns.
func WithDefaultExclusionPatterns() Option {
	return func(o *Options) { o.Exclusions = append(o.Exclusions, DefaultPatterns()...) }
}

// DefaultPatterns returns paths that never hold corpus documents: VCS and editor folders,
// office lock files and OS metadata.
func DefaultPatterns() []string {
	return []string{
		".git/", ".svn/", ".idea/", ".vscode/", "node_modules/", "__MACOSX/",
		".DS_Store", "Thumbs.db", "desktop.ini",
		"~$*", ".~lock.*", "*.swp", "*.tmp", "*.bak",
		".docragignore",
	}
}

// ParseIgnore returns the non-blank, non-comment lines of reader.
func ParseIgnore(reader io.Reader) []string {
	var patterns []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
