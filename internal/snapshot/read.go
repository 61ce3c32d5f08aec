package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"jira-charts/internal/analysis"

	"github.com/rs/zerolog/log"
)

// Run describes one snapshot directory under the charts root.
type Run struct {
	Folder      string `json:"folder"`
	Complete    bool   `json:"complete"`
	TotalIssues int    `json:"total_issues"`
}

// ValidFolder reports whether name is a snapshot timestamp and safe to join onto the root.
func ValidFolder(name string) bool {
	return folderPattern.MatchString(name)
}

// Dir resolves a snapshot folder under root.
func Dir(root, folder string) (string, error) {
	if !ValidFolder(folder) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	return filepath.Join(root, folder), nil
}

func readJSON(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		return fmt.Errorf("snapshot: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("snapshot: decode %s: %w", name, err)
	}
	return nil
}

// ReadIndex loads the index of a completed snapshot.
func ReadIndex(dir string) (*Index, error) {
	var idx Index
	if err := readJSON(dir, indexFile, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// ReadChartData loads the chart data document of a snapshot.
func ReadChartData(dir string) (*ChartData, error) {
	var cd ChartData
	if err := readJSON(dir, chartDataFile, &cd); err != nil {
		return nil, err
	}
	return &cd, nil
}

// ReadKeyIndex loads the issue keys behind the charts of a snapshot.
func ReadKeyIndex(dir string) (analysis.KeyIndex, error) {
	var idx analysis.KeyIndex
	if err := readJSON(dir, keyIndexFile, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// List returns the snapshots under root, newest first. A missing root yields no runs.
func List(root string) ([]Run, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Run{}, nil
		}
		return nil, fmt.Errorf("snapshot: list %s: %w", root, err)
	}

	runs := make([]Run, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !ValidFolder(e.Name()) {
			continue
		}
		run := Run{Folder: e.Name()}
		idx, err := ReadIndex(filepath.Join(root, e.Name()))
		if err == nil {
			run.Complete = true
			run.TotalIssues = idx.TotalIssues
		} else if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("folder", e.Name()).Msg("Unreadable snapshot index")
		}
		runs = append(runs, run)
	}

	// Timestamps sort lexically
	slices.SortFunc(runs, func(a, b Run) int {
		return strings.Compare(b.Folder, a.Folder)
	})
	return runs, nil
}

