// Package analysis derives the heuristic signals RepoLens scores from a
// cloned worktree.
package analysis

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Structure grades the top-level layout of a repository
type Structure string

// Structure grades
const (
	StructureBasic    Structure = "basic"
	StructureModerate Structure = "moderate"
	StructureClean    Structure = "clean"
)

// minReadmeBytes is the trimmed README size below which it counts as a stub
const minReadmeBytes = 50

// Signals is the input to scoring
type Signals struct {
	Files         int       `json:"files"`
	Structure     Structure `json:"structure"`
	Readme        bool      `json:"readme"`
	ReadmeContent bool      `json:"readme_content"`
	Tests         bool      `json:"tests"`
	Commits       int       `json:"commits"`
	Stars         int       `json:"stars"`
	Language      string    `json:"language"`
}

// Readme describes the root README
type Readme struct {
	Present     bool
	Substantial bool
}

var testDirs = map[string]bool{
	"tests":     true,
	"__tests__": true,
	"test":      true,
	"spec":      true,
}

var testFileSuffixes = []string{
	"_test.py",
	".test.js", ".spec.js",
	".test.ts", ".spec.ts",
	"_test.go", "_test.rs",
}

var testConfigs = map[string]bool{
	"pytest.ini":       true,
	"tox.ini":          true,
	"jest.config.js":   true,
	"jest.config.ts":   true,
	"vitest.config.ts": true,
	"mocha.opts":       true,
	"phpunit.xml":      true,
}

// Collect gathers every filesystem signal and returns the file list it
// was computed from. Commits, stars and the hosted language come from the
// GitHub API and are left for the caller.
func Collect(fs billy.Filesystem) (Signals, []string, error) {
	files, err := ListFiles(fs)
	if err != nil {
		return Signals{}, nil, err
	}

	readme := DetectReadme(fs, files)
	return Signals{
		Files:         len(files),
		Structure:     DetectStructure(files),
		Readme:        readme.Present,
		ReadmeContent: readme.Substantial,
		Tests:         DetectTests(files),
	}, files, nil
}

// ListFiles returns every regular file as a sorted slash-separated path
// relative to the root. The .git directory is skipped.
func ListFiles(fs billy.Filesystem) ([]string, error) {
	var files []string
	err := util.Walk(fs, "", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			files = append(files, strings.TrimPrefix(filepath.ToSlash(p), "/"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// DetectReadme looks for README or README.* in the repository root
func DetectReadme(fs billy.Filesystem, files []string) Readme {
	var r Readme
	for _, f := range files {
		if strings.Contains(f, "/") {
			continue
		}
		name := strings.ToLower(f)
		if name != "readme" && !strings.HasPrefix(name, "readme.") {
			continue
		}

		r.Present = true
		if readmeIsSubstantial(fs, f) {
			r.Substantial = true
			break
		}
	}
	return r
}

func readmeIsSubstantial(fs billy.Filesystem, name string) bool {
	f, err := fs.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, 64*1024))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) >= minReadmeBytes
}

// DetectTests reports whether the repository has a test directory, test
// files or a test runner config
func DetectTests(files []string) bool {
	for _, f := range files {
		parts := strings.Split(f, "/")
		for _, dir := range parts[:len(parts)-1] {
			if testDirs[strings.ToLower(dir)] {
				return true
			}
		}

		name := strings.ToLower(parts[len(parts)-1])
		if testConfigs[name] {
			return true
		}
		if strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py") {
			return true
		}
		for _, suffix := range testFileSuffixes {
			if strings.HasSuffix(name, suffix) {
				return true
			}
		}
	}
	return false
}

// DetectStructure grades the layout by the presence of src/, tests/ and
// docs/ plus the overall file count
func DetectStructure(files []string) Structure {
	dirs := make(map[string]bool)
	for _, f := range files {
		if i := strings.Index(f, "/"); i > 0 {
			dirs[f[:i]] = true
		}
	}

	score := 0
	for _, d := range []string{"src", "tests", "docs"} {
		if dirs[d] {
			score++
		}
	}
	if len(files) > 10 {
		score++
	}

	switch {
	case score >= 3:
		return StructureClean
	case score == 2:
		return StructureModerate
	}
	return StructureBasic
}

// Title returns the structure grade with an upper-case first letter
func (s Structure) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}
