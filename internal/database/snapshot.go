package database

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	dberrors "loopwatch/internal/infrastructure/errors"
	"loopwatch/internal/infrastructure/logging"
)

// Source names a live database file and how to reach it. The live files
// are locked by their owners while in use, so analysis always runs
// against a snapshot taken by Snapshotter.
type Source struct {
	Name        string // snapshot file name, e.g. "knowledgeC.db"
	LivePath    string // absolute path after home expansion
	Instruction string // what the user should do when the file is unreadable
}

// KnownSources returns the source databases this tool understands, with
// live paths resolved against the given home directory.
func KnownSources(home string) []Source {
	return []Source{
		{
			Name:        "knowledgeC.db",
			LivePath:    filepath.Join(home, "Library", "Application Support", "Knowledge", "knowledgeC.db"),
			Instruction: "grant Full Disk Access to your terminal in System Settings > Privacy & Security",
		},
		{
			Name:        "safari_history.db",
			LivePath:    filepath.Join(home, "Library", "Safari", "History.db"),
			Instruction: "grant Full Disk Access to your terminal in System Settings > Privacy & Security",
		},
		{
			Name:        "chrome_history.db",
			LivePath:    filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "History"),
			Instruction: "close Chrome or install Chrome before taking a snapshot",
		},
		{
			Name:        "firefox_history.db",
			LivePath:    firefoxPlacesPath(home),
			Instruction: "close Firefox or install Firefox before taking a snapshot",
		},
	}
}

// firefoxPlacesPath finds the places.sqlite of the default Firefox
// profile, or returns the profile directory glob target when no profile
// exists so the snapshot error names a real location.
func firefoxPlacesPath(home string) string {
	profilesDir := filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	matches, err := filepath.Glob(filepath.Join(profilesDir, "*.default*", "places.sqlite"))
	if err == nil && len(matches) > 0 {
		return matches[0]
	}
	return filepath.Join(profilesDir, "default", "places.sqlite")
}

// Snapshotter copies live source databases into the data directory.
type Snapshotter struct {
	dataDir string
	logger  logging.Logger
}

// NewSnapshotter creates a snapshotter writing into dataDir.
func NewSnapshotter(dataDir string, logger logging.Logger) *Snapshotter {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Snapshotter{dataDir: dataDir, logger: logger}
}

// Snapshot copies one source into the data directory and returns the
// snapshot path. A missing or unreadable live file yields a not-found
// error carrying the source's remediation instruction.
func (s *Snapshotter) Snapshot(src Source) (string, error) {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return "", dberrors.New("Snapshot", fmt.Errorf("create data dir: %w", err), dberrors.ErrCodeWrite)
	}

	in, err := os.Open(src.LivePath)
	if err != nil {
		return "", dberrors.HandleSourceMissing("Snapshot", src.LivePath, src.Instruction)
	}
	defer in.Close()

	dst := filepath.Join(s.dataDir, src.Name)
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", dberrors.New("Snapshot", fmt.Errorf("create snapshot: %w", err), dberrors.ErrCodeWrite)
	}

	written, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return "", dberrors.NewWithContext("Snapshot", fmt.Errorf("copy snapshot: %w", err),
			dberrors.ErrCodeWrite, map[string]string{"source": src.LivePath})
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", dberrors.New("Snapshot", fmt.Errorf("finalize snapshot: %w", err), dberrors.ErrCodeWrite)
	}

	s.logger.Info("Snapshotted source database", "source", src.LivePath, "snapshot", dst, "bytes", written)
	return dst, nil
}

// SnapshotAll copies every available source, skipping the ones whose
// live file is absent. It returns the paths written and the sources
// skipped. An error is returned only when a present source fails to copy.
func (s *Snapshotter) SnapshotAll(sources []Source) (written []string, skipped []Source, err error) {
	for _, src := range sources {
		path, copyErr := s.Snapshot(src)
		if copyErr != nil {
			if dberrors.IsNotFound(copyErr) {
				s.logger.Warn("Source unavailable, skipping", "source", src.LivePath)
				skipped = append(skipped, src)
				continue
			}
			return written, skipped, copyErr
		}
		written = append(written, path)
	}
	return written, skipped, nil
}
