package domain

import (
	"fmt"
	"os"
	"path"
	"strings"
)

// Resolver canonicalizes dataset and result directory references.
//
// A resolved path uses forward slashes, contains no relative segments, and
// has environment variable references expanded. Case is preserved;
// uniqueness comparisons are exact on the resolved form. The resolver never
// touches the filesystem: whether a directory exists is the training
// system's concern.
type Resolver struct {
	env func(string) string
}

// NewResolver creates a Resolver that expands $VAR and ${VAR} references
// through the given lookup. A nil lookup disables expansion. Production
// callers pass os.Getenv; tests inject a map lookup.
func NewResolver(env func(string) string) *Resolver {
	return &Resolver{env: env}
}

// Normalize canonicalizes a path reference.
// It expands environment variables, converts backslashes to forward
// slashes, and resolves "." and ".." segments. Returns ErrMalformedPath for
// empty input, input containing NUL or control characters, or input that
// resolves to no named segment at all.
func (r *Resolver) Normalize(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: empty path", ErrMalformedPath)
	}

	if r.env != nil {
		p = os.Expand(p, r.env)
	}
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: path is empty after variable expansion", ErrMalformedPath)
	}

	for _, c := range p {
		if c < 0x20 || c == 0x7f {
			return "", fmt.Errorf("%w: control character in %q", ErrMalformedPath, p)
		}
	}

	normalized := path.Clean(strings.ReplaceAll(p, `\`, "/"))
	if normalized == "." || normalized == ".." {
		return "", fmt.Errorf("%w: %q resolves to no named segment", ErrMalformedPath, p)
	}

	return normalized, nil
}

// CheckUnique fails with ErrDuplicateResultPath when the candidate result
// path is already present in the given snapshot of registered result paths.
// Both the candidate and the snapshot entries are expected to be normalized.
func (r *Resolver) CheckUnique(candidate string, existing []string) error {
	for _, p := range existing {
		if p == candidate {
			return fmt.Errorf("%w: %s", ErrDuplicateResultPath, candidate)
		}
	}
	return nil
}
