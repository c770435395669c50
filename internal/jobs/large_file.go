package jobs

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/yungbote/batchcore-backend/internal/batch"
)

const largeFileChunk = 1 << 20

// LargeFileProcessingJob generates a file of the requested size, checksums
// it, runs a byte transform over it and cleans up. It exists to exercise the
// pipeline under sustained IO; every loop honors cooperative stop.
func LargeFileProcessingJob(deps Deps) *batch.JobDefinition {
	log := deps.Log.With("job", "largeFileProcessingJob")

	return &batch.JobDefinition{
		Name: "largeFileProcessingJob",
		ParameterKeys: []batch.ParameterKey{
			{Name: "fileSizeMB", Type: batch.ParamLong},
		},
		Steps: []batch.StepDefinition{
			{
				Name: "generateFile",
				Handler: func(sc *batch.StepContext) error {
					sizeMB := sc.Params.LongOr("fileSizeMB", 100)
					if sizeMB < 1 {
						sizeMB = 1
					}
					path := filepath.Join(deps.WorkDir, fmt.Sprintf("large_%d.dat", sc.Execution.ID))
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("create data file: %w", err)
					}
					defer f.Close()

					w := bufio.NewWriterSize(f, largeFileChunk)
					rng := rand.New(rand.NewSource(sc.Execution.ID))
					chunk := make([]byte, largeFileChunk)
					for i := int64(0); i < sizeMB; i++ {
						if sc.StopRequested() {
							return batch.ErrStopped
						}
						rng.Read(chunk)
						if _, err := w.Write(chunk); err != nil {
							return fmt.Errorf("write data chunk: %w", err)
						}
						sc.IncrementWrite(1)
					}
					if err := w.Flush(); err != nil {
						return fmt.Errorf("flush data file: %w", err)
					}
					sc.Context().PutString("filePath", path)
					sc.Context().PutLong("fileSize", sizeMB*largeFileChunk)
					return nil
				},
			},
			{
				Name: "processFile",
				Handler: func(sc *batch.StepContext) error {
					path, _ := sc.Context().GetString("filePath")
					f, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("open data file: %w", err)
					}
					defer f.Close()

					h := md5.New()
					chunk := make([]byte, largeFileChunk)
					for {
						if sc.StopRequested() {
							return batch.ErrStopped
						}
						n, err := f.Read(chunk)
						if n > 0 {
							h.Write(chunk[:n])
							sc.IncrementRead(1)
						}
						if err == io.EOF {
							break
						}
						if err != nil {
							return fmt.Errorf("read data file: %w", err)
						}
					}
					sc.Context().PutString("checksum", hex.EncodeToString(h.Sum(nil)))
					return nil
				},
			},
			{
				Name: "transformFile",
				Handler: func(sc *batch.StepContext) error {
					path, _ := sc.Context().GetString("filePath")
					outPath := path + ".xor"
					in, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("open data file: %w", err)
					}
					defer in.Close()
					out, err := os.Create(outPath)
					if err != nil {
						return fmt.Errorf("create transformed file: %w", err)
					}
					defer out.Close()

					w := bufio.NewWriterSize(out, largeFileChunk)
					chunk := make([]byte, largeFileChunk)
					for {
						if sc.StopRequested() {
							return batch.ErrStopped
						}
						n, err := in.Read(chunk)
						if n > 0 {
							for i := 0; i < n; i++ {
								chunk[i] ^= 0x5A
							}
							if _, werr := w.Write(chunk[:n]); werr != nil {
								return fmt.Errorf("write transformed chunk: %w", werr)
							}
							sc.IncrementWrite(1)
						}
						if err == io.EOF {
							break
						}
						if err != nil {
							return fmt.Errorf("read data file: %w", err)
						}
					}
					if err := w.Flush(); err != nil {
						return fmt.Errorf("flush transformed file: %w", err)
					}
					sc.Context().PutString("transformedPath", outPath)
					return nil
				},
			},
			{
				Name: "cleanupFiles",
				Handler: func(sc *batch.StepContext) error {
					for _, key := range []string{"filePath", "transformedPath"} {
						path, _ := sc.Context().GetString(key)
						if path == "" {
							continue
						}
						if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
							log.Warn("Failed to remove scratch file", "path", path, "error", err)
						}
					}
					return nil
				},
			},
		},
	}
}
