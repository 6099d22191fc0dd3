package matching

import (
	"strings"
	"testing"

	"github.com/viant/docrag/matching/option"
)

func TestManager_IsExcluded_Table(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		size     int64
		options  []option.Option
		excluded bool
	}{
		{
			name:     "suffix glob excluded",
			path:     "hr/policies/draft_old.docx",
			size:     1,
			options:  []option.Option{option.WithExclusionPatterns("**/*_old.docx")},
			excluded: true,
		},
		{
			name:     "suffix glob not matching",
			path:     "hr/policies/leave.docx",
			size:     1,
			options:  []option.Option{option.WithExclusionPatterns("**/*_old.docx")},
			excluded: false,
		},
		{
			name: "include pdf then exclude drafts",
			path: "finance/report.pdf",
			size: 1,
			options: []option.Option{
				option.WithInclusionPatterns("*.pdf"),
				option.WithExclusionPatterns("draft-*"),
			},
			excluded: false,
		},
		{
			name: "include pdf then exclude drafts (draft file)",
			path: "finance/draft-report.pdf",
			size: 1,
			options: []option.Option{
				option.WithInclusionPatterns("*.pdf"),
				option.WithExclusionPatterns("draft-*"),
			},
			excluded: true,
		},
		{
			name:     "include pdf excludes text",
			path:     "finance/readme.txt",
			size:     1,
			options:  []option.Option{option.WithInclusionPatterns("*.pdf")},
			excluded: true,
		},
		{
			name:     "directory pattern with slash",
			path:     "legal/archive/2019/contract.pdf",
			size:     1,
			options:  []option.Option{option.WithExclusionPatterns("archive/")},
			excluded: true,
		},
		{
			name:     "directory pattern does not match file of same name",
			path:     "legal/archive",
			size:     1,
			options:  []option.Option{option.WithExclusionPatterns("archive/")},
			excluded: false,
		},
		{
			name:     "dir glob with /** matches nested",
			path:     "a/private/b/c.txt",
			size:     1,
			options:  []option.Option{option.WithExclusionPatterns("**/private/**")},
			excluded: true,
		},
		{
			name:     "office lock file excluded by default",
			path:     "hr/~$leave.docx",
			size:     1,
			excluded: true,
		},
		{
			name:     "default keeps documents",
			path:     "hr/leave.docx",
			size:     1,
			excluded: false,
		},
		{
			name:     "max size excludes",
			path:     "big.pdf",
			size:     101,
			options:  []option.Option{option.WithMaxIndexableSize(100)},
			excluded: true,
		},
		{
			name:     "max size allows smaller",
			path:     "small.pdf",
			size:     99,
			options:  []option.Option{option.WithMaxIndexableSize(100)},
			excluded: false,
		},
		{
			name:     "empty path excluded",
			path:     "/",
			size:     1,
			excluded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.options...)
			if got := m.IsExcluded(tt.path, tt.size); got != tt.excluded {
				t.Fatalf("IsExcluded(%q)=%v want %v", tt.path, got, tt.excluded)
			}
			if m.Allows(tt.path, tt.size) == tt.excluded {
				t.Fatalf("Allows(%q) disagrees with IsExcluded", tt.path)
			}
		})
	}
}

func TestManager_IsExcluded_WithIgnoreFile(t *testing.T) {
	ignore := strings.NewReader(`
# comment
*.log
dist/
!keep.log
/build
tmp/
docs/*.md
**/cache/**

`)
	m := New(option.WithIgnoreFile(ignore))

	cases := []struct {
		path     string
		excluded bool
	}{
		{path: "app/debug.log", excluded: true},
		{path: "app/keep.log", excluded: false},
		{path: "app/dist/main.txt", excluded: true},
		{path: "app/main.txt", excluded: false},
		{path: "build/app.txt", excluded: true},
		{path: "dir/build/app.txt", excluded: false},
		{path: "tmp/file.txt", excluded: true},
		{path: "dir/tmp/file.txt", excluded: true},
		{path: "docs/readme.md", excluded: true},
		{path: "dir/docs/readme.md", excluded: false},
		{path: "dir/cache/file.bin", excluded: true},
	}

	for _, tc := range cases {
		if got := m.IsExcluded(tc.path, 1); got != tc.excluded {
			t.Fatalf("IsExcluded(%q)=%v want %v", tc.path, got, tc.excluded)
		}
	}
}

func TestManager_IsExcludedDir(t *testing.T) {
	m := New(option.WithExclusionPatterns("archive/", "/build"))
	cases := []struct {
		path     string
		excluded bool
	}{
		{path: "archive", excluded: true},
		{path: "legal/archive", excluded: true},
		{path: "build", excluded: true},
		{path: "legal/build", excluded: false},
		{path: "legal", excluded: false},
		{path: ".git", excluded: false},
	}
	for _, tc := range cases {
		if got := m.IsExcludedDir(tc.path); got != tc.excluded {
			t.Fatalf("IsExcludedDir(%q)=%v want %v", tc.path, got, tc.excluded)
		}
	}
}
