package analysis

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var longReadme = "# Project\n\nThis project does something useful. Install it with make and run it.\n"

func newFS(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestListFiles(t *testing.T) {
	fs := newFS(t, map[string]string{
		"README.md":       "hi",
		"src/main.go":     "package main",
		"src/util/a.go":   "package util",
		".git/HEAD":       "ref: refs/heads/main",
		".github/ci.yaml": "on: push",
	})

	files, err := ListFiles(fs)
	require.NoError(t, err)
	assert.Equal(t, []string{
		".github/ci.yaml",
		"README.md",
		"src/main.go",
		"src/util/a.go",
	}, files)
}

func TestListFilesEmpty(t *testing.T) {
	files, err := ListFiles(memfs.New())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDetectReadme(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		expected Readme
	}{
		{
			name:     "substantial markdown readme",
			files:    map[string]string{"README.md": longReadme},
			expected: Readme{Present: true, Substantial: true},
		},
		{
			name:     "bare readme lowercase",
			files:    map[string]string{"readme": longReadme},
			expected: Readme{Present: true, Substantial: true},
		},
		{
			name:     "stub readme",
			files:    map[string]string{"README.rst": "   todo   \n\n"},
			expected: Readme{Present: true},
		},
		{
			name:     "whitespace does not count",
			files:    map[string]string{"README.md": strings.Repeat(" ", 40) + strings.Repeat("x", 49) + "\n\n\n"},
			expected: Readme{Present: true},
		},
		{
			name:     "nested readme ignored",
			files:    map[string]string{"docs/README.md": longReadme},
			expected: Readme{},
		},
		{
			name:     "readme-like names ignored",
			files:    map[string]string{"READMEFIRST.txt": longReadme},
			expected: Readme{},
		},
		{
			name: "any substantial root readme wins",
			files: map[string]string{
				"README":    "short",
				"README.md": longReadme,
			},
			expected: Readme{Present: true, Substantial: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFS(t, tt.files)
			files, err := ListFiles(fs)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, DetectReadme(fs, files))
		})
	}
}

func TestDetectTests(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected bool
	}{
		{name: "tests dir", files: []string{"tests/test_api.txt"}, expected: true},
		{name: "nested spec dir", files: []string{"app/Spec/model.rb"}, expected: true},
		{name: "jest dir", files: []string{"src/__tests__/a.js"}, expected: true},
		{name: "go test file", files: []string{"pkg/server_test.go"}, expected: true},
		{name: "python prefix", files: []string{"pkg/test_models.py"}, expected: true},
		{name: "python suffix", files: []string{"pkg/models_test.py"}, expected: true},
		{name: "ts spec", files: []string{"src/app.spec.ts"}, expected: true},
		{name: "runner config", files: []string{"pytest.ini"}, expected: true},
		{name: "phpunit config nested", files: []string{"backend/phpunit.xml"}, expected: true},
		{name: "file named test is not a dir", files: []string{"src/test"}, expected: false},
		{name: "no tests", files: []string{"main.go", "README.md", "src/testing.go"}, expected: false},
		{name: "empty", files: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectTests(tt.files))
		})
	}
}

func TestDetectStructure(t *testing.T) {
	many := make([]string, 0, 11)
	for i := 0; i < 11; i++ {
		many = append(many, "file"+string(rune('a'+i))+".txt")
	}

	tests := []struct {
		name     string
		files    []string
		expected Structure
	}{
		{name: "empty", files: nil, expected: StructureBasic},
		{name: "src only", files: []string{"src/a.go"}, expected: StructureBasic},
		{name: "src and docs", files: []string{"src/a.go", "docs/b.md"}, expected: StructureModerate},
		{name: "src tests docs", files: []string{"src/a.go", "tests/a.go", "docs/b.md"}, expected: StructureClean},
		{name: "many files and tests", files: append([]string{"tests/a.go"}, many...), expected: StructureModerate},
		{name: "root file named src", files: []string{"src", "docs"}, expected: StructureBasic},
		{name: "nested src does not count", files: []string{"app/src/a.go", "app/docs/a.md"}, expected: StructureBasic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectStructure(tt.files))
		})
	}
}

func TestCollect(t *testing.T) {
	fs := newFS(t, map[string]string{
		"README.md":       longReadme,
		"src/main.go":     "package main",
		"tests/main_test": "x",
		"docs/index.md":   "docs",
	})

	signals, files, err := Collect(fs)
	require.NoError(t, err)
	assert.Len(t, files, 4)
	assert.Equal(t, Signals{
		Files:         4,
		Structure:     StructureClean,
		Readme:        true,
		ReadmeContent: true,
		Tests:         true,
	}, signals)
}

func TestStructureTitle(t *testing.T) {
	assert.Equal(t, "Clean", StructureClean.Title())
	assert.Equal(t, "Basic", StructureBasic.Title())
	assert.Equal(t, "", Structure("").Title())
}
