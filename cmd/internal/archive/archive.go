package archive

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type (
	// Artifact is the compressed archive produced by one backup cycle
	Artifact struct {
		Path string
		Size int64
	}

	// Archiver compresses a source folder into an archive at the destination
	// path, the concrete compression tool is swappable
	Archiver interface {
		// Archive compresses src into an archive at dst and returns the
		// resulting artifact
		Archive(ctx context.Context, src string, dst string) (*Artifact, error)
		// Extension returns the file extension of produced archives
		Extension() string
	}
)

// New returns an archiver for the given method
func New(log *zap.SugaredLogger, method string) (Archiver, error) {
	switch method {
	case "7z":
		return newSevenZip(log), nil
	case "targz":
		return newTarGz(), nil
	default:
		return nil, fmt.Errorf("unsupported archiver method: %s", method)
	}
}
