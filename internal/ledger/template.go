package ledger

import (
	"errors"
	"fmt"
	"os"

	_ "embed"
)

// sampleLedger is a starter file for hand conversion of an existing ledger.
//
//go:embed sample_ledger.yaml
var sampleLedger string

// Template returns the commented starter ledger.
func Template() string {
	return sampleLedger
}

// WriteTemplate writes the starter ledger to path.
// Fails rather than overwrite an existing file.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing file %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(sampleLedger), 0o644); err != nil { //nolint:gosec // G306: a ledger template is not sensitive
		return fmt.Errorf("failed to write ledger template: %w", err)
	}
	return nil
}
