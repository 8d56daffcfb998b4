package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// tempMarker is embedded in temporary file names created by ReplaceFile.
const tempMarker = ".trim-"

// ListAudioFiles lists supported audio files directly inside dir, sorted by name.
// Hidden files, including leftovers from an interrupted ReplaceFile, are skipped.
func ListAudioFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputDir, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputDir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if IsSupported(name) {
			files = append(files, filepath.Join(dir, name))
		}
	}

	sort.Strings(files)
	return files, nil
}

// ReplaceFile atomically replaces path with the output of write.
//
// write receives the path of a temporary sibling file with the same extension
// and must fully produce the new content there. Only after write succeeds is
// the temporary file synced and renamed over path, so readers see either the
// old file or the complete new one. On failure the temporary file is removed
// and path is left untouched.
func ReplaceFile(path string, write func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	f, err := os.CreateTemp(dir, "."+stem+tempMarker+"*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if info, err := os.Stat(path); err == nil {
		if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
			return fmt.Errorf("copy permissions: %w", err)
		}
	}

	if err := write(tmpPath); err != nil {
		return err
	}

	if err := syncFile(tmpPath); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true

	// Persist the rename itself; not every platform supports syncing directories.
	_ = syncFile(dir)
	return nil
}

func syncFile(path string) error {
	f, err := os.Open(path) // #nosec G304 - path is created by ReplaceFile
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
