package upload

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const pngDataURI = "data:image/png;base64,ZmFrZS1wbmctYnl0ZXM="

func TestSave(t *testing.T) {
	saver, err := NewDiskSaver(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	url, err := saver.Save(pngDataURI)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("Unexpected URL: %s", url)
	}

	data, err := os.ReadFile(filepath.Join(saver.Dir, filepath.Base(url)))
	if err != nil {
		t.Fatalf("Stored file missing: %v", err)
	}
	if string(data) != "fake-png-bytes" {
		t.Errorf("Stored payload mismatch: %q", data)
	}
}

func TestSaveRejectsBadPayloads(t *testing.T) {
	saver, _ := NewDiskSaver(t.TempDir())

	tests := []struct {
		name    string
		payload string
	}{
		{"Not a data URI", "https://example.com/cat.png"},
		{"Missing base64 marker", "data:image/png,rawbytes"},
		{"Unsupported type", "data:application/pdf;base64,ZmFrZQ=="},
		{"Bad base64", "data:image/png;base64,!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := saver.Save(tt.payload); !errors.Is(err, ErrNotImage) {
				t.Errorf("Expected ErrNotImage, got %v", err)
			}
		})
	}
}
