package report

import (
	"fmt"
	"os"
	"path/filepath"
)

const reportMode os.FileMode = 0o644

// Sink writes rendered workbooks below a root directory. Relative report
// directories are resolved against the root; absolute ones are used as is.
type Sink struct {
	root string
}

func NewSink(root string) *Sink {
	if root == "" {
		root = "."
	}
	return &Sink{root: root}
}

func (s *Sink) Root() string {
	return s.root
}

func (s *Sink) Resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(s.root, dir)
}

// Write renders wb and stores it at dir/fileName, replacing any previous
// file. The write goes through a temp file in the same directory so readers
// never observe a partial spreadsheet.
func (s *Sink) Write(wb *Workbook, dir, fileName string) (string, error) {
	target := s.Resolve(dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	f, err := Render(wb)
	if err != nil {
		return "", err
	}
	defer f.Close()

	tmp, err := os.CreateTemp(target, ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(reportMode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("chmod report: %w", err)
	}
	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("write report: %w", err)
	}
	path := filepath.Join(target, fileName)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("replace report: %w", err)
	}
	return path, nil
}
