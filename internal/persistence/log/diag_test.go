package log

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"runevale.gg/internal/sim/scene"
)

func TestDiagLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewDiagLogger(dir, nil)

	entries := []scene.DiagEntry{
		{At: time.Unix(1_700_000_000, 0).UTC(), Kind: scene.DiagAnomaly, Detail: "capped"},
		{At: time.Unix(1_700_000_001, 0).UTC(), Kind: scene.DiagRejectedMove, PlayerID: "a"},
	}
	for _, e := range entries {
		l.Record(e)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "diag-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one diag file, got %v (%v)", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []scene.DiagEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e scene.DiagEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	if got[0].Kind != scene.DiagAnomaly || got[1].PlayerID != "a" {
		t.Fatalf("entries corrupted: %+v", got)
	}
}
