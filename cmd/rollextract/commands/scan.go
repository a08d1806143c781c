package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/adverant/nexus/electoralroll-worker/internal/extraction"
)

// rollFile is one part file of an assembly constituency
type rollFile struct {
	Path string
	Name string
	Part int
}

// scanRollFiles returns the files in dir accepted by m, ordered by part.
func scanRollFiles(dir string, m *extraction.RollFileMatcher) ([]rollFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []rollFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		part, ok := m.Match(e.Name())
		if !ok {
			continue
		}
		files = append(files, rollFile{Path: filepath.Join(dir, e.Name()), Name: e.Name(), Part: part})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Part != files[j].Part {
			return files[i].Part < files[j].Part
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}
