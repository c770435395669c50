package jobs

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yungbote/batchcore-backend/internal/batch"
	"github.com/yungbote/batchcore-backend/internal/streaming"
	"github.com/yungbote/batchcore-backend/internal/types"
)

var computeStatuses = []string{"ACTIVE", "INACTIVE", "PENDING"}

// ComputeIntensiveFileJob generates an employee data file, aggregates it
// (streaming into the database, or legacy in-memory), then proves the file
// round-trips through encrypt/compress/decompress intact.
func ComputeIntensiveFileJob(deps Deps) *batch.JobDefinition {
	log := deps.Log.With("job", "computeIntensiveFileJob")

	return &batch.JobDefinition{
		Name: "computeIntensiveFileJob",
		ParameterKeys: []batch.ParameterKey{
			{Name: "recordCount", Type: batch.ParamLong},
			{Name: "streamToDb", Type: batch.ParamBool},
			{Name: "flushSize", Type: batch.ParamLong},
			{Name: "aggregationDepth", Type: batch.ParamLong},
		},
		Steps: []batch.StepDefinition{
			{
				Name: "generateDataFile",
				Handler: func(sc *batch.StepContext) error {
					recordCount := sc.Params.LongOr("recordCount", 100000)
					if recordCount < 1 {
						recordCount = 1
					}
					path := filepath.Join(deps.WorkDir, fmt.Sprintf("employees_%d.jsonl", sc.Execution.ID))
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("create data file: %w", err)
					}
					defer f.Close()

					w := bufio.NewWriterSize(f, 1<<20)
					for i := int64(0); i < recordCount; i++ {
						if i%10000 == 0 && sc.StopRequested() {
							return batch.ErrStopped
						}
						salary := 30000 + i%70000
						fmt.Fprintf(w,
							`{"department":"DEPT_%d","region":"REGION_%d","status":"%s","employee":{"salary":%d,"bonus":%.1f},"metrics":{"hoursWorked":%d}}`+"\n",
							i%50,
							i%10,
							computeStatuses[i%3],
							salary,
							float64(salary)/10,
							160+i%40,
						)
						sc.IncrementWrite(1)
					}
					if err := w.Flush(); err != nil {
						return fmt.Errorf("flush data file: %w", err)
					}
					sc.Context().PutString("dataFilePath", path)
					sc.Context().PutLong("recordCount", recordCount)
					return nil
				},
			},
			{
				Name: "parseAndAggregate",
				Handler: func(sc *batch.StepContext) error {
					path, _ := sc.Context().GetString("dataFilePath")
					f, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("open data file: %w", err)
					}
					defer f.Close()
					src := streaming.NewLineSource(f)

					if sc.Params.BoolOr("streamToDb", true) {
						return streamAggregate(sc, deps, src)
					}
					return legacyAggregate(sc, src)
				},
			},
			{
				Name: "encryptFile",
				Handler: func(sc *batch.StepContext) error {
					path, _ := sc.Context().GetString("dataFilePath")
					plain, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read data file: %w", err)
					}
					digest := sha256.Sum256(plain)
					sc.Context().PutString("plainChecksum", hex.EncodeToString(digest[:]))

					key := make([]byte, 32)
					if _, err := rand.Read(key); err != nil {
						return fmt.Errorf("generate key: %w", err)
					}
					block, err := aes.NewCipher(key)
					if err != nil {
						return fmt.Errorf("init cipher: %w", err)
					}
					gcm, err := cipher.NewGCM(block)
					if err != nil {
						return fmt.Errorf("init gcm: %w", err)
					}
					nonce := make([]byte, gcm.NonceSize())
					if _, err := rand.Read(nonce); err != nil {
						return fmt.Errorf("generate nonce: %w", err)
					}
					sealed := gcm.Seal(nonce, nonce, plain, nil)

					encPath := path + ".enc"
					if err := os.WriteFile(encPath, sealed, 0o600); err != nil {
						return fmt.Errorf("write encrypted file: %w", err)
					}
					sc.Context().PutString("encryptedPath", encPath)
					sc.Context().PutString("keyHex", hex.EncodeToString(key))
					sc.IncrementWrite(1)
					return nil
				},
			},
			{
				Name: "compressFile",
				Handler: func(sc *batch.StepContext) error {
					encPath, _ := sc.Context().GetString("encryptedPath")
					sealed, err := os.ReadFile(encPath)
					if err != nil {
						return fmt.Errorf("read encrypted file: %w", err)
					}
					var buf bytes.Buffer
					zw := gzip.NewWriter(&buf)
					if _, err := zw.Write(sealed); err != nil {
						return fmt.Errorf("compress: %w", err)
					}
					if err := zw.Close(); err != nil {
						return fmt.Errorf("finish compression: %w", err)
					}
					gzPath := encPath + ".gz"
					if err := os.WriteFile(gzPath, buf.Bytes(), 0o600); err != nil {
						return fmt.Errorf("write compressed file: %w", err)
					}
					sc.Context().PutString("compressedPath", gzPath)
					sc.Context().PutLong("compressedSize", int64(buf.Len()))
					sc.IncrementWrite(1)
					return nil
				},
			},
			{
				Name: "decompressAndVerify",
				Handler: func(sc *batch.StepContext) error {
					gzPath, _ := sc.Context().GetString("compressedPath")
					keyHex, _ := sc.Context().GetString("keyHex")
					wantChecksum, _ := sc.Context().GetString("plainChecksum")

					raw, err := os.ReadFile(gzPath)
					if err != nil {
						return fmt.Errorf("read compressed file: %w", err)
					}
					zr, err := gzip.NewReader(bytes.NewReader(raw))
					if err != nil {
						return fmt.Errorf("open gzip stream: %w", err)
					}
					sealed, err := io.ReadAll(zr)
					if err != nil {
						return fmt.Errorf("decompress: %w", err)
					}
					if err := zr.Close(); err != nil {
						return fmt.Errorf("close gzip stream: %w", err)
					}

					key, err := hex.DecodeString(keyHex)
					if err != nil {
						return fmt.Errorf("decode key: %w", err)
					}
					block, err := aes.NewCipher(key)
					if err != nil {
						return fmt.Errorf("init cipher: %w", err)
					}
					gcm, err := cipher.NewGCM(block)
					if err != nil {
						return fmt.Errorf("init gcm: %w", err)
					}
					if len(sealed) < gcm.NonceSize() {
						return fmt.Errorf("encrypted payload too short")
					}
					plain, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
					if err != nil {
						return fmt.Errorf("decrypt: %w", err)
					}
					digest := sha256.Sum256(plain)
					if hex.EncodeToString(digest[:]) != wantChecksum {
						return fmt.Errorf("checksum mismatch after round trip")
					}
					sc.Context().PutBool("verified", true)
					sc.IncrementRead(1)
					return nil
				},
			},
			{
				Name: "cleanupFiles",
				Handler: func(sc *batch.StepContext) error {
					for _, key := range []string{"dataFilePath", "encryptedPath", "compressedPath"} {
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

func streamAggregate(sc *batch.StepContext, deps Deps, src streaming.Source) error {
	depth := int(sc.Params.LongOr("aggregationDepth", 1))
	flushSize := int(sc.Params.LongOr("flushSize", 1000))
	agg := streaming.NewAggregator(deps.Aggregations, deps.Log, depth, flushSize)

	// the stop probe hits the store, so sample it
	var polls int64
	stop := func() bool {
		polls++
		if polls%1000 != 0 {
			return false
		}
		return sc.StopRequested()
	}

	stats, err := agg.Run(sc.Ctx, sc.Execution.ID, src, stop)
	sc.IncrementRead(stats.RecordsProcessed)
	sc.IncrementSkip(stats.ParseErrors)
	sc.Context().PutLong("recordsParsed", stats.RecordsProcessed)
	sc.Context().PutLong("parseErrors", stats.ParseErrors)
	sc.Context().PutLong("flushes", int64(stats.Flushes))
	if errors.Is(err, streaming.ErrStopRequested) {
		return batch.ErrStopped
	}
	if err != nil {
		return fmt.Errorf("streaming aggregation: %w", err)
	}

	groups, err := deps.Aggregations.CountDistinctGroups(sc.Ctx, nil, sc.Execution.ID, types.AggregationByDepartment)
	if err != nil {
		return fmt.Errorf("count aggregation groups: %w", err)
	}
	sc.Context().PutLong("distinctDepartments", groups)
	return nil
}

// legacyAggregate keeps every group in memory and writes nothing. It exists
// for comparison runs against the streaming path.
func legacyAggregate(sc *batch.StepContext, src streaming.Source) error {
	departments := map[string]int64{}
	var parsed, parseErrors int64
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, streaming.ErrBadRecord) {
			parseErrors++
			continue
		}
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		departments[rec.Department]++
		parsed++
		if parsed%10000 == 0 && sc.StopRequested() {
			return batch.ErrStopped
		}
	}
	sc.IncrementRead(parsed)
	sc.IncrementSkip(parseErrors)
	sc.Context().PutLong("recordsParsed", parsed)
	sc.Context().PutLong("parseErrors", parseErrors)
	sc.Context().PutLong("distinctDepartments", int64(len(departments)))
	return nil
}
