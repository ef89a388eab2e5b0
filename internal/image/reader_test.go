package image

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempImage(t *testing.T, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.img")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

func TestDetectKind(t *testing.T) {
	cases := map[string]Kind{
		"evidence.E01":  KindEWF,
		"evidence.ex01": KindEWF,
		"image.l01":     KindEWF,
		"disk.dd":       KindRaw,
		"disk.img":      KindRaw,
		"noext":         KindRaw,
	}
	for path, want := range cases {
		if got := detectKind(path); got != want {
			t.Errorf("detectKind(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("RAW"); err != nil || k != KindRaw {
		t.Errorf("ParseKind(RAW) = %v, %v", k, err)
	}
	if k, err := ParseKind(""); err != nil || k != KindAuto {
		t.Errorf("ParseKind(\"\") = %v, %v", k, err)
	}
	if _, err := ParseKind("vmdk"); err == nil {
		t.Error("ParseKind(vmdk) expected error, got nil")
	}
}

func TestReadRejectsBadArgs(t *testing.T) {
	data := make([]byte, 8192)
	path := writeTempImage(t, data)

	r, err := Open(path, KindRaw, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer r.Close()

	if _, err := r.Read(-1, 10); err == nil {
		t.Error("Read() with negative offset: expected error")
	}
	if _, err := r.Read(0, 0); err == nil {
		t.Error("Read() with zero length: expected error")
	}
	if _, err := r.Read(0, 2<<20); err == nil {
		t.Error("Read() with length > 1MiB: expected error")
	}
	if _, err := r.Read(100000, 100); err == nil {
		t.Error("Read() past EOF: expected short-read error")
	}
}

func TestReadAndPartitionOffset(t *testing.T) {
	data := make([]byte, 8192)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := writeTempImage(t, data)

	r, err := Open(path, KindRaw, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer r.Close()

	got, err := r.Read(0, 16)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if string(got) != string(data[:16]) {
		t.Errorf("Read(0,16) = %v, want %v", got, data[:16])
	}

	if err := r.SetPartitionOffset(100); err != nil {
		t.Fatalf("SetPartitionOffset() failed: %v", err)
	}
	got, err = r.Read(0, 16)
	if err != nil {
		t.Fatalf("Read() after partition offset failed: %v", err)
	}
	if string(got) != string(data[100:116]) {
		t.Errorf("Read(0,16) after offset = %v, want %v", got, data[100:116])
	}

	if err := r.SetPartitionOffset(-1); err == nil {
		t.Error("SetPartitionOffset(-1): expected error")
	}
}
