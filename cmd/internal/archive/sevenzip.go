package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/webhookd/backup-relay/cmd/internal/utils"
	"go.uber.org/zap"
)

const (
	sevenZipCmd = "7z"
	// maximum compression, trading cpu time for upload size
	sevenZipCompressionLevel = "-mx=9"
)

// SevenZip archives a folder by shelling out to the 7z command line tool
type SevenZip struct {
	log      *zap.SugaredLogger
	executor *utils.CmdExecutor
}

func newSevenZip(log *zap.SugaredLogger) *SevenZip {
	return &SevenZip{
		log:      log,
		executor: utils.NewExecutor(log),
	}
}

func (s *SevenZip) Archive(ctx context.Context, src string, dst string) (*Artifact, error) {
	out, err := s.executor.ExecuteCommandWithOutput(ctx, sevenZipCmd, nil, "a", dst, src, sevenZipCompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("error creating archive: %w, output: %s", err, out)
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

func (s *SevenZip) Extension() string {
	return ".7z"
}
