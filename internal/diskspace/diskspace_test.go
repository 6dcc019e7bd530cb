package diskspace

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestAvailable(t *testing.T) {
	available, err := Available(t.TempDir())
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	if available <= 0 {
		t.Errorf("Expected positive free space, got %d", available)
	}
}

func TestCheckAvailableSpace(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		dir      string
		required int64
		margin   float64
		wantErr  bool
	}{
		{name: "small file", dir: dir, required: 1024, margin: 1.1},
		{name: "nothing required", dir: dir, required: 0, margin: 1.1},
		{name: "impossible size", dir: dir, required: math.MaxInt64 / 4, margin: 1.0, wantErr: true},
		{name: "unknown filesystem passes", dir: filepath.Join(dir, "missing", "deeper"), required: math.MaxInt64 / 4, margin: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAvailableSpace(tt.dir, tt.required, tt.margin)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckAvailableSpace() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !IsInsufficientSpaceError(err) {
				t.Errorf("Expected InsufficientSpaceError, got %T", err)
			}
		})
	}
}

func TestIsInsufficientSpaceError(t *testing.T) {
	spaceErr := &InsufficientSpaceError{Path: "/data", RequiredBytes: 2 << 20, AvailableBytes: 1 << 20}

	if !IsInsufficientSpaceError(spaceErr) {
		t.Error("Expected direct error to match")
	}
	if !IsInsufficientSpaceError(fmt.Errorf("saving upload: %w", spaceErr)) {
		t.Error("Expected wrapped error to match")
	}
	if IsInsufficientSpaceError(errors.New("other")) {
		t.Error("Expected unrelated error not to match")
	}
	if !strings.Contains(spaceErr.Error(), "need 2.00 MB, have 1.00 MB") {
		t.Errorf("Unexpected message: %s", spaceErr.Error())
	}
}
