package analysis

import (
	"io"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/src-d/enry/v2"
)

// languageSampleBytes bounds how much of each file enry inspects
const languageSampleBytes = 16 * 1024

// DetectLanguage returns the programming language with the most bytes in
// the worktree, or "" when none is recognised. Vendored, documentation,
// dotfile and configuration paths are ignored.
func DetectLanguage(fs billy.Filesystem, files []string) string {
	sizes := make(map[string]int64)

	for _, f := range files {
		if enry.IsVendor(f) || enry.IsDocumentation(f) || enry.IsDotFile(f) || enry.IsConfiguration(f) {
			continue
		}

		content, size, err := sample(fs, f)
		if err != nil || size == 0 {
			continue
		}

		lang := enry.GetLanguage(path.Base(f), content)
		if lang == "" || enry.GetLanguageType(lang) != enry.Programming {
			continue
		}
		sizes[lang] += size
	}

	langs := make([]string, 0, len(sizes))
	for lang := range sizes {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		if sizes[langs[i]] != sizes[langs[j]] {
			return sizes[langs[i]] > sizes[langs[j]]
		}
		return langs[i] < langs[j]
	})

	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}

func sample(fs billy.Filesystem, name string) ([]byte, int64, error) {
	info, err := fs.Stat(name)
	if err != nil {
		return nil, 0, err
	}

	f, err := fs.Open(name)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, languageSampleBytes))
	if err != nil {
		return nil, 0, err
	}
	return content, info.Size(), nil
}
