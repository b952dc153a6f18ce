// Copyright 2025 James Ross
package monitor

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/trafficflow/trafficflow/internal/obs"
)

// RecordStore is an append-only, per-queue record file with
// record-count-triggered rotation. Rotated files are zstd-compressed in place before handoff to
// an archive exporter.
type RecordStore struct {
	mu          sync.Mutex
	dir         string
	rotateAfter int
	queues      map[string]*queueFile
	onRotate    func(queue, archivedPath string)
}

// OnRotate registers fn to run after a queue's current file is rotated and
// compressed, passing the finished .ndjson.zst path. Used to hand the file
// off to an archive exporter (S3Archiver.UploadRotatedFile).
func (s *RecordStore) OnRotate(fn func(queue, archivedPath string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRotate = fn
}

type queueFile struct {
	file  *os.File
	count int
}

// NewRecordStore creates a store rooted at dir, creating it if needed.
func NewRecordStore(dir string, rotateAfter int) (*RecordStore, error) {
	if rotateAfter <= 0 {
		rotateAfter = 10_000
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("monitor: create record dir: %w", err)
	}
	return &RecordStore{dir: dir, rotateAfter: rotateAfter, queues: make(map[string]*queueFile)}, nil
}

// Append stamps payload into an envelope and appends it as one NDJSON line
// to the named queue's current record file, rotating if the file has
// reached RotateAfterRecords.
func (s *RecordStore) Append(queue string, payload []byte) (Record, error) {
	rec := newRecord(queue, payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	qf, err := s.currentLocked(queue)
	if err != nil {
		return Record{}, err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("monitor: marshal record: %w", err)
	}
	if _, err := qf.file.Write(append(line, '\n')); err != nil {
		return Record{}, fmt.Errorf("monitor: write record: %w", err)
	}
	qf.count++
	obs.RecordStoreSize.WithLabelValues(queue).Set(float64(qf.count))

	if qf.count >= s.rotateAfter {
		if err := s.rotateLocked(queue, qf); err != nil {
			return Record{}, err
		}
	}

	return rec, nil
}

func (s *RecordStore) currentLocked(queue string) (*queueFile, error) {
	if qf, ok := s.queues[queue]; ok {
		return qf, nil
	}

	queueDir := filepath.Join(s.dir, queue)
	if err := os.MkdirAll(queueDir, 0o755); err != nil {
		return nil, fmt.Errorf("monitor: create queue dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(queueDir, "current.ndjson"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("monitor: open current record file: %w", err)
	}

	qf := &queueFile{file: f}
	s.queues[queue] = qf
	return qf, nil
}

// rotateLocked closes the queue's current file, zstd-compresses it under a
// timestamped name, and opens a fresh current.ndjson. Caller holds s.mu.
func (s *RecordStore) rotateLocked(queue string, qf *queueFile) error {
	currentPath := qf.file.Name()
	if err := qf.file.Close(); err != nil {
		return fmt.Errorf("monitor: close rotated file: %w", err)
	}

	archivedPath := filepath.Join(filepath.Dir(currentPath),
		fmt.Sprintf("records-%d.ndjson.zst", time.Now().UnixNano()))
	if err := compressFile(currentPath, archivedPath); err != nil {
		return err
	}
	if err := os.Remove(currentPath); err != nil {
		return fmt.Errorf("monitor: remove rotated source file: %w", err)
	}

	f, err := os.OpenFile(currentPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("monitor: reopen current record file: %w", err)
	}
	qf.file = f
	qf.count = 0
	obs.RecordStoreSize.WithLabelValues(queue).Set(0)

	if s.onRotate != nil {
		onRotate, archived := s.onRotate, archivedPath
		go onRotate(queue, archived)
	}
	return nil
}

func compressFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("monitor: open file to compress: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("monitor: create compressed file: %w", err)
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return fmt.Errorf("monitor: create zstd writer: %w", err)
	}
	defer enc.Close()

	if _, err := bufio.NewReader(src).WriteTo(enc); err != nil {
		return fmt.Errorf("monitor: compress file: %w", err)
	}
	return nil
}

// Close flushes and closes every open queue file.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, qf := range s.queues {
		if err := qf.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
