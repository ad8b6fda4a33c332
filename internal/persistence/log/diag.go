// Package log persists sync diagnostics as compressed JSONL, one file per
// hour.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"runevale.gg/internal/sim/scene"
)

// DiagLogger implements scene.DiagSink on top of an hourly-rotated
// zstd-compressed JSONL file. Write failures are reported once through the
// operational logger and otherwise swallowed; diagnostics are best-effort
// and must never stall the scene loop.
type DiagLogger struct {
	baseDir string
	oplog   *stdlog.Logger

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	warned  bool
}

func NewDiagLogger(baseDir string, oplog *stdlog.Logger) *DiagLogger {
	return &DiagLogger{baseDir: baseDir, oplog: oplog}
}

func (l *DiagLogger) Record(e scene.DiagEntry) {
	if err := l.write(e); err != nil {
		l.mu.Lock()
		if !l.warned && l.oplog != nil {
			l.oplog.Printf("diag log: %v", err)
			l.warned = true
		}
		l.mu.Unlock()
	}
}

func (l *DiagLogger) write(e scene.DiagEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != l.curHour {
		if err := l.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *DiagLogger) rotateLocked(hour string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	path := filepath.Join(l.baseDir, fmt.Sprintf("diag-%s.jsonl.zst", hour))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 64*1024)
	l.curHour = hour
	return nil
}

func (l *DiagLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *DiagLogger) closeLocked() error {
	var first error
	if l.w != nil {
		_ = l.w.Flush()
	}
	if l.enc != nil {
		first = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	l.w = nil
	l.curHour = ""
	return first
}
