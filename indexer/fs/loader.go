package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"

	"github.com/viant/docrag/document"
	"github.com/viant/docrag/indexer/fs/extractor"
	"github.com/viant/docrag/matching"
	"github.com/viant/docrag/matching/option"
)

// IgnoreFile holds corpus-level exclusion patterns at the root.
const IgnoreFile = ".docragignore"

// ErrInvalidPath is returned when an upload category or filename escapes the corpus root.
var ErrInvalidPath = errors.New("invalid document path")

// Filter narrows corpus traversal. Empty fields match everything.
type Filter struct {
	// Category matches the document category or any of its ancestors.
	Category string
	// Filename matches the document base name exactly.
	Filename string
}

func (f Filter) normalize() Filter {
	return Filter{Category: CleanCategory(f.Category), Filename: strings.TrimSpace(f.Filename)}
}

func (f Filter) matchesCategory(category string) bool {
	return f.Category == "" || category == f.Category || strings.HasPrefix(category, f.Category+"/")
}

// mayContain reports whether documents under dir can satisfy the category filter.
func (f Filter) mayContain(dir string) bool {
	if f.Category == "" || dir == "" {
		return true
	}
	return f.matchesCategory(dir) || strings.HasPrefix(f.Category, dir+"/")
}

// Loader reads corpus documents stored under a root location. Each directory below the
// root is a category; nested directories form slash separated categories.
type Loader struct {
	root         string
	fs           Service
	extractor    *extractor.Factory
	matchOptions []option.Option
	logf         func(format string, args ...any)
}

// LoaderOption configures Loader.
type LoaderOption func(*Loader)

// WithFS sets the storage service.
func WithFS(svc Service) LoaderOption {
	return func(l *Loader) { l.fs = svc }
}

// WithExtractor sets the text extractor factory.
func WithExtractor(factory *extractor.Factory) LoaderOption {
	return func(l *Loader) { l.extractor = factory }
}

// WithMatchOptions adds include/exclude patterns and the size limit.
func WithMatchOptions(opts ...option.Option) LoaderOption {
	return func(l *Loader) { l.matchOptions = append(l.matchOptions, opts...) }
}

// WithLogf sets the logger.
func WithLogf(fn func(format string, args ...any)) LoaderOption {
	return func(l *Loader) { l.logf = fn }
}

// NewLoader creates a loader rooted at root (local path or URL).
func NewLoader(root string, opts ...LoaderOption) *Loader {
	l := &Loader{root: normalizeRoot(root), logf: log.Printf}
	for _, opt := range opts {
		opt(l)
	}
	if l.fs == nil {
		l.fs = NewAFS()
	}
	if l.extractor == nil {
		l.extractor = extractor.NewFactory()
	}
	return l
}

// Root returns the normalized corpus root URL.
func (l *Loader) Root() string { return l.root }

// Extract converts raw file content into text using the loader's extractor.
func (l *Loader) Extract(filename string, data []byte) (string, error) {
	return l.extractor.Extract(filename, data)
}

// Documents lazily walks the corpus depth-first. Files are downloaded and extracted only
// when the consumer asks for the next document.
func (l *Loader) Documents(ctx context.Context, filter Filter) iter.Seq2[document.Document, error] {
	filter = filter.normalize()
	return func(yield func(document.Document, error) bool) {
		matcher, err := l.matcher(ctx)
		if err != nil {
			yield(document.Document{}, err)
			return
		}
		type dir struct {
			location string
			rel      string
		}
		stack := []dir{{location: l.root}}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				yield(document.Document{}, err)
				return
			}
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			objects, err := l.fs.List(ctx, current.location)
			if err != nil {
				yield(document.Document{}, fmt.Errorf("list %s: %w", current.location, err))
				return
			}
			files, dirs := l.partition(current.location, objects)
			for _, object := range files {
				rel := path.Join(current.rel, object.Name())
				if !filter.matchesCategory(current.rel) || (filter.Filename != "" && object.Name() != filter.Filename) {
					continue
				}
				if !l.extractor.Supports(object.Name()) || matcher.IsExcluded(rel, object.Size()) {
					continue
				}
				doc, ok := l.load(ctx, object, current.rel)
				if !ok {
					continue
				}
				if !yield(doc, nil) {
					return
				}
			}
			for i := len(dirs) - 1; i >= 0; i-- {
				rel := path.Join(current.rel, dirs[i].Name())
				if !filter.mayContain(rel) || matcher.IsExcludedDir(rel) {
					continue
				}
				stack = append(stack, dir{location: url.Join(current.location, dirs[i].Name()), rel: rel})
			}
		}
	}
}

// Load collects every document matching filter.
func (l *Loader) Load(ctx context.Context, filter Filter) ([]document.Document, error) {
	var docs []document.Document
	for doc, err := range l.Documents(ctx, filter) {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Save stores an uploaded file under root/category/filename and returns its URL.
func (l *Loader) Save(ctx context.Context, category, filename string, data []byte) (string, error) {
	category, filename, err := validateUpload(category, filename)
	if err != nil {
		return "", err
	}
	location := url.Join(l.root, path.Join(category, filename))
	if err := l.fs.Upload(ctx, location, data); err != nil {
		return "", fmt.Errorf("save %s: %w", location, err)
	}
	return location, nil
}

func (l *Loader) load(ctx context.Context, object storage.Object, category string) (document.Document, bool) {
	data, err := l.fs.Download(ctx, object)
	if err != nil {
		l.logf("corpus skip file=%s category=%s err=%v", object.Name(), category, err)
		return document.Document{}, false
	}
	text, err := l.extractor.Extract(object.Name(), data)
	if err != nil {
		l.logf("corpus skip file=%s category=%s err=%v", object.Name(), category, err)
		return document.Document{}, false
	}
	if strings.TrimSpace(text) == "" {
		l.logf("corpus skip file=%s category=%s err=no text", object.Name(), category)
		return document.Document{}, false
	}
	return document.Document{Filename: object.Name(), Category: category, Content: text}, true
}

func (l *Loader) partition(location string, objects []storage.Object) (files, dirs []storage.Object) {
	for _, object := range objects {
		if object.IsDir() {
			if sameLocation(object.URL(), location) {
				continue
			}
			dirs = append(dirs, object)
			continue
		}
		files = append(files, object)
	}
	byName := func(items []storage.Object) {
		sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })
	}
	byName(files)
	byName(dirs)
	return files, dirs
}

func (l *Loader) matcher(ctx context.Context) (*matching.Manager, error) {
	opts := append([]option.Option{option.WithDefaultExclusionPatterns()}, l.matchOptions...)
	ignoreURL := url.Join(l.root, IgnoreFile)
	exists, err := l.fs.Exists(ctx, ignoreURL)
	if err != nil {
		return nil, err
	}
	if exists {
		data, err := l.fs.Read(ctx, ignoreURL)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ignoreURL, err)
		}
		opts = append(opts, option.WithIgnoreFile(bytes.NewReader(data)))
	}
	return matching.New(opts...), nil
}

func validateUpload(category, filename string) (string, string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return "", "", fmt.Errorf("%w: filename %q", ErrInvalidPath, filename)
	}
	raw := strings.ReplaceAll(strings.TrimSpace(category), `\`, "/")
	if strings.HasPrefix(raw, "/") || filepath.IsAbs(raw) || strings.Contains(raw, ":") {
		return "", "", fmt.Errorf("%w: category %q", ErrInvalidPath, category)
	}
	for _, segment := range strings.Split(raw, "/") {
		if segment == ".." {
			return "", "", fmt.Errorf("%w: category %q", ErrInvalidPath, category)
		}
	}
	cleaned := CleanCategory(raw)
	if cleaned == "" {
		return "", "", fmt.Errorf("%w: category %q", ErrInvalidPath, category)
	}
	return cleaned, filename, nil
}

// CleanCategory normalizes a slash separated category; the root category is empty.
func CleanCategory(category string) string {
	category = strings.Trim(strings.ReplaceAll(strings.TrimSpace(category), `\`, "/"), "/")
	if category == "" {
		return ""
	}
	cleaned := path.Clean(category)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

func sameLocation(a, b string) bool {
	return strings.TrimRight(url.Path(a), "/") == strings.TrimRight(url.Path(b), "/")
}

func normalizeRoot(root string) string {
	if root == "" {
		root = "."
	}
	if url.Scheme(root, "") == "" {
		if url.IsRelative(root) {
			if abs, err := filepath.Abs(root); err == nil {
				root = abs
			}
		}
		root = url.ToFileURL(root)
	}
	return strings.TrimRight(root, "/")
}
