package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/mholt/archiver/v3"
)

// TarGz archives a folder in-process without depending on an external tool
type TarGz struct{}

func newTarGz() *TarGz {
	return &TarGz{}
}

func (t *TarGz) Archive(ctx context.Context, src string, dst string) (*Artifact, error) {
	done := make(chan error, 1)

	go func() {
		done <- archiver.NewTarGz().Archive([]string{src}, dst)
	}()

	// the archiving library does not support cancellation, on expiry the
	// archiving goroutine is abandoned and the partial archive is removed
	// once it has finished writing
	select {
	case <-ctx.Done():
		go func() {
			<-done
			_ = os.Remove(dst)
		}()
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("error creating archive: %w", err)
		}
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, fmt.Errorf("archive was not created at %s: %w", dst, err)
	}

	return &Artifact{
		Path: dst,
		Size: info.Size(),
	}, nil
}

func (t *TarGz) Extension() string {
	return ".tar.gz"
}
