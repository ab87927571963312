package artifact

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
	"github.com/webhookd/backup-relay/cmd/internal/constants"
)

type (
	// Artifact describes one backup archive in the backup folder
	Artifact struct {
		Name    string
		Size    int64
		ModTime time.Time
	}

	// Store manages the backup folder that backup archives are placed in.
	// Artifacts accumulate there, a retention policy is deliberately not part
	// of this store.
	Store struct {
		fs     afero.Fs
		folder string
	}
)

// NewStore returns a store over the given backup folder, a nil fs defaults to
// the operating system's
func NewStore(fs afero.Fs, folder string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if folder == "" {
		folder = constants.DefaultBackupFolder
	}

	return &Store{
		fs:     fs,
		folder: folder,
	}
}

// Ensure creates the backup folder if it does not exist yet
func (s *Store) Ensure() error {
	if err := s.fs.MkdirAll(s.folder, 0755); err != nil {
		return fmt.Errorf("could not create backup folder: %w", err)
	}

	return nil
}

// Folder returns the backup folder path
func (s *Store) Folder() string {
	return s.folder
}

// NextArchivePath returns the path for the archive of the next backup cycle.
// Archive names have one-second resolution, cycles triggered within the same
// second get a counting suffix so no artifact gets overwritten.
func (s *Store) NextArchivePath(extension string) string {
	name := constants.ArchiveBaseName + "-" + time.Now().Format("20060102-150405")

	path := filepath.Join(s.folder, name+extension)
	for i := 1; ; i++ {
		if _, err := s.fs.Stat(path); err != nil {
			return path
		}
		path = filepath.Join(s.folder, fmt.Sprintf("%s-%d%s", name, i, extension))
	}
}

// List returns the artifacts in the backup folder, newest first
func (s *Store) List() ([]Artifact, error) {
	infos, err := afero.ReadDir(s.fs, s.folder)
	if err != nil {
		return nil, err
	}

	var result []Artifact
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		result = append(result, Artifact{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ModTime.After(result[j].ModTime)
	})

	return result, nil
}
