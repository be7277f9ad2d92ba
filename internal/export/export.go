// Package export writes recovered certificates and private keys to an
// explicit output directory (spec §6, §9 redesign: no process-global
// export path).
package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteCert writes der as certs/<n>.crt under dir, creating the certs
// subdirectory if needed.
func WriteCert(dir string, n int, der []byte) error {
	return writeNumbered(dir, "certs", n, "crt", der)
}

// WriteKey writes der as keys/<n>.key under dir, creating the keys
// subdirectory if needed.
func WriteKey(dir string, n int, der []byte) error {
	return writeNumbered(dir, "keys", n, "key", der)
}

func writeNumbered(dir, subdir string, n int, ext string, data []byte) error {
	target := filepath.Join(dir, subdir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	path := filepath.Join(target, fmt.Sprintf("%d.%s", n, ext))
	return os.WriteFile(path, data, 0o644)
}
