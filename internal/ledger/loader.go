// Package ledger parses the legacy hand-maintained run ledger.
//
// The ledger is a YAML file with one entry per training run, listed in the
// order the runs were performed. Entries may carry the run numbers the old
// ledger used; numbered entries keep their ids on import, and a triplet's
// `upstream` field names the id of the doublet checkpoint it consumed. In
// an unnumbered ledger, `upstream` names the 1-based entry position instead
// and import assigns ids in file order, so references survive the move into
// the database either way.
package ledger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"trackreg/internal/log"
	"trackreg/internal/runs/domain"
)

// File is the root structure of a ledger file.
type File struct {
	Entries []Entry `yaml:"entries"`
}

// Entry is one run row from the legacy ledger, as written.
type Entry struct {
	ID       *int64 `yaml:"id"`       // ledger run number; all entries or none
	Stage    string `yaml:"stage"`    // "doublet" or "triplet"
	Size     string `yaml:"size"`     // "small", "med"/"medium", "large"; optional
	Graphs   *int64 `yaml:"graphs"`   // training graph count; optional
	Duration string `yaml:"duration"` // Go duration string, e.g. "6h30m"; optional
	Dataset  string `yaml:"dataset"`  // input dataset directory
	Result   string `yaml:"result"`   // result/checkpoint directory
	Upstream *int   `yaml:"upstream"` // consumed doublet (id, or entry number when unnumbered)
	Notes    string `yaml:"notes"`    // free-text notes; optional
}

// Load reads a ledger file from disk and parses it.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user-supplied ledger file
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	entries, err := Parse(data)
	if err != nil {
		return nil, err
	}

	log.Debug(log.CatLedger, "ledger parsed", "path", path, "entries", len(entries))
	return entries, nil
}

// Parse decodes and validates ledger YAML.
// Entries are checked in file order; error messages carry the 1-based entry
// number a reader sees in the file.
func Parse(data []byte) ([]Entry, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}

	if err := Validate(file.Entries); err != nil {
		return nil, err
	}

	return file.Entries, nil
}

// UpstreamIndexes resolves each entry's upstream reference to the index of
// the referenced entry. The map key is the dependent entry's index; the
// value always precedes it. Call only on entries that passed Parse.
func UpstreamIndexes(entries []Entry) map[int]int {
	idToIndex := make(map[int64]int, len(entries))
	for i, e := range entries {
		if e.ID != nil {
			idToIndex[*e.ID] = i
		}
	}

	indexes := make(map[int]int)
	for i, e := range entries {
		if e.Upstream == nil {
			continue
		}
		if e.ID != nil {
			indexes[i] = idToIndex[int64(*e.Upstream)]
		} else {
			indexes[i] = *e.Upstream - 1
		}
	}
	return indexes
}

// Validate applies the structural rules an importable ledger must satisfy.
// Parse runs it automatically; the import path runs it again on entries it
// receives so hand-built slices play by the same rules. Registry rules
// (path normalization, cross-ledger uniqueness) are applied during import;
// this pass exists to fail fast with entry numbers.
func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("ledger has no entries")
	}

	numbered := entries[0].ID != nil
	seenResults := make(map[string]int, len(entries))
	idToIndex := make(map[int64]int, len(entries))
	var prevID int64

	for i, e := range entries {
		n := i + 1

		if numbered != (e.ID != nil) {
			return fmt.Errorf("entry %d: ledger mixes numbered and unnumbered entries", n)
		}
		if e.ID != nil {
			if *e.ID <= 0 {
				return fmt.Errorf("entry %d: id %d is not positive", n, *e.ID)
			}
			if *e.ID <= prevID {
				return fmt.Errorf("entry %d: id %d does not increase (previous id %d)", n, *e.ID, prevID)
			}
			prevID = *e.ID
			idToIndex[*e.ID] = i
		}

		stage, err := domain.ParseStage(e.Stage)
		if err != nil {
			return fmt.Errorf("entry %d: %w", n, err)
		}

		if e.Size != "" {
			if _, err := domain.ParseSizeClass(e.Size); err != nil {
				return fmt.Errorf("entry %d: %w", n, err)
			}
		}

		if e.Duration != "" {
			if _, err := time.ParseDuration(e.Duration); err != nil {
				return fmt.Errorf("entry %d: invalid duration %q", n, e.Duration)
			}
		}

		if e.Graphs != nil && *e.Graphs < 0 {
			return fmt.Errorf("entry %d: negative graph count %d", n, *e.Graphs)
		}

		if strings.TrimSpace(e.Dataset) == "" {
			return fmt.Errorf("entry %d: missing dataset path", n)
		}
		if strings.TrimSpace(e.Result) == "" {
			return fmt.Errorf("entry %d: missing result path", n)
		}

		if prev, dup := seenResults[e.Result]; dup {
			return fmt.Errorf("entry %d: result path %q already used by entry %d", n, e.Result, prev)
		}
		seenResults[e.Result] = n

		if e.Upstream == nil {
			continue
		}
		if stage != domain.StageTriplet {
			return fmt.Errorf("entry %d: %s entries cannot reference an upstream", n, stage)
		}
		up := *e.Upstream

		var upIdx int
		if numbered {
			idx, ok := idToIndex[int64(up)]
			if !ok {
				return fmt.Errorf("entry %d: upstream %d does not match an earlier entry's id", n, up)
			}
			upIdx = idx
		} else {
			if up < 1 || up > len(entries) {
				return fmt.Errorf("entry %d: upstream %d is outside the ledger", n, up)
			}
			if up >= n {
				return fmt.Errorf("entry %d: upstream %d does not precede it", n, up)
			}
			upIdx = up - 1
		}
		if upStage := domain.Stage(entries[upIdx].Stage); upStage != domain.StageDoublet {
			return fmt.Errorf("entry %d: upstream %d is a %s run, not a doublet", n, up, upStage)
		}
	}

	return nil
}
