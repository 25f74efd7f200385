package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
)

// compressedExt marks artifact files stored snappy-compressed.
const compressedExt = ".sz"

// WriteFile persists the compact dataset at path, atomically via a
// rename. Paths ending in .sz are snappy-compressed.
func WriteFile(path string, c Compact) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling dataset: %w", err)
	}
	if strings.HasSuffix(path, compressedExt) {
		data = snappy.Encode(nil, data)
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing artifact: %w", err)
	}
	return nil
}

// ReadFile loads a compact dataset written by WriteFile.
func ReadFile(path string) (Compact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Compact{}, err
	}
	if strings.HasSuffix(path, compressedExt) {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return Compact{}, fmt.Errorf("decompressing artifact: %w", err)
		}
	}
	return Unmarshal(data)
}
