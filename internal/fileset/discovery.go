package fileset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery finds the files of a file set: paths under the root matching
// the pattern and none of the excludes.
type Discovery struct {
	rootDir  string
	include  []compiledPattern
	excludes []compiledPattern
}

// NewDiscovery compiles the pattern and excludes. Patterns are matched
// against slash-separated paths relative to rootDir.
func NewDiscovery(rootDir, pattern string, excludes []string) (*Discovery, error) {
	d := &Discovery{rootDir: rootDir}

	if pattern == "" {
		return nil, fmt.Errorf("empty file pattern")
	}
	cp, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	d.include = append(d.include, cp)

	for _, p := range excludes {
		if p == "" {
			continue
		}
		cp, err := compile(p)
		if err != nil {
			return nil, err
		}
		d.excludes = append(d.excludes, cp)
	}

	return d, nil
}

func compile(pattern string) (compiledPattern, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return compiledPattern{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return compiledPattern{pattern: pattern, glob: g}, nil
}

// Discover walks the root and returns the matching files as sorted,
// slash-separated relative paths.
func (d *Discovery) Discover() ([]string, error) {
	files := []string{}

	err := filepath.WalkDir(d.rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		// Normalize path separators for glob matching
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if d.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Matches(relPath) {
			files = append(files, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Root returns the directory paths are relative to.
func (d *Discovery) Root() string {
	return d.rootDir
}

// Matches reports whether a relative slash path belongs to the set.
func (d *Discovery) Matches(relPath string) bool {
	return !d.shouldIgnore(relPath) && matchesAnyPattern(relPath, d.include)
}

// Excluded reports whether a relative slash path, file or directory, is
// excluded from the set.
func (d *Discovery) Excluded(relPath string) bool {
	return d.shouldIgnore(relPath)
}

// shouldIgnore checks if a path matches any exclude pattern.
func (d *Discovery) shouldIgnore(relPath string) bool {
	if matchesAnyPattern(relPath, d.excludes) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "node_modules" should match pattern "node_modules/**"
	return matchesAnyPattern(relPath+"/**", d.excludes)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Special handling: if path is in root (no slash), also try matching against
	// patterns with **/ prefix removed. This makes "**/*.js" match both "app.js"
	// and "lib/app.js" as users would expect.
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}
