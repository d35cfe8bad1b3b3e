// Package logging configures the process logger: stdout always, plus an
// optional size-capped log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const (
	defaultMaxSize = 10 << 20 // 10 MiB
	defaultBackups = 3
)

// Setup points the stdlib logger at stdout plus the configured log file.
// Returns a closer for the file writer; callers defer it in main.
func Setup(logFile string) (func() error, error) {
	out := io.Writer(os.Stdout)
	closer := func() error { return nil }

	if logFile != "" {
		fw, err := NewFileWriter(logFile, defaultMaxSize, defaultBackups)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, fw)
		closer = fw.Close
	}

	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lshortfile)
	return closer, nil
}

// FileWriter appends to a log file, rotating it aside once it exceeds the
// size cap. Rotated files get numeric suffixes, oldest dropped past the
// backup limit.
type FileWriter struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	backups int
	file    *os.File
	written int64
}

func NewFileWriter(path string, maxSize int64, backups int) (*FileWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if backups < 0 {
		backups = 0
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	w := &FileWriter{path: path, maxSize: maxSize, backups: backups, file: f}
	if stat, err := f.Stat(); err == nil {
		w.written = stat.Size()
	}
	return w, nil
}

func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	// An oversized single line still gets one write into a fresh file.
	if w.written > 0 && w.written+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *FileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	if w.backups == 0 {
		if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	} else {
		// Shift file.N → file.N+1, dropping the oldest, then move the live
		// file into slot 1.
		if err := os.Remove(backupName(w.path, w.backups)); err != nil && !os.IsNotExist(err) {
			return err
		}
		for i := w.backups - 1; i >= 1; i-- {
			src := backupName(w.path, i)
			if _, err := os.Stat(src); os.IsNotExist(err) {
				continue
			}
			if err := os.Rename(src, backupName(w.path, i+1)); err != nil {
				return err
			}
		}
		if err := os.Rename(w.path, backupName(w.path, 1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.written = 0
	return nil
}

func backupName(path string, idx int) string {
	return fmt.Sprintf("%s.%d", path, idx)
}
