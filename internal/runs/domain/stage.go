package domain

import "fmt"

// Stage identifies which phase of the two-stage pipeline a run belongs to.
type Stage string

const (
	// StageDoublet is the first pipeline phase. Doublet runs never depend
	// on another run.
	StageDoublet Stage = "doublet"

	// StageTriplet is the second pipeline phase. A triplet run may depend
	// on exactly one doublet run's checkpoint.
	StageTriplet Stage = "triplet"
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// IsValid returns true if the stage is a recognized pipeline stage.
func (s Stage) IsValid() bool {
	switch s {
	case StageDoublet, StageTriplet:
		return true
	default:
		return false
	}
}

// ParseStage converts user input into a Stage.
// Returns an error for anything other than "doublet" or "triplet".
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.IsValid() {
		return "", fmt.Errorf("invalid stage %q (must be %q or %q)", s, StageDoublet, StageTriplet)
	}
	return stage, nil
}

// SizeClass is an advisory label describing the problem size of a run.
// It carries no semantics beyond filtering and display.
type SizeClass string

const (
	// SizeUnspecified means no size class was recorded.
	SizeUnspecified SizeClass = ""

	// SizeSmall labels small problem sizes.
	SizeSmall SizeClass = "small"

	// SizeMedium labels medium problem sizes.
	SizeMedium SizeClass = "medium"

	// SizeLarge labels large problem sizes.
	SizeLarge SizeClass = "large"
)

// String returns the string representation of the size class.
func (c SizeClass) String() string {
	return string(c)
}

// IsValid returns true if the size class is recognized or unspecified.
func (c SizeClass) IsValid() bool {
	switch c {
	case SizeUnspecified, SizeSmall, SizeMedium, SizeLarge:
		return true
	default:
		return false
	}
}

// ParseSizeClass converts user input into a SizeClass.
// The legacy ledger abbreviated medium as "med"; that spelling is accepted.
// An empty string parses to SizeUnspecified.
func ParseSizeClass(s string) (SizeClass, error) {
	if s == "med" {
		return SizeMedium, nil
	}
	class := SizeClass(s)
	if !class.IsValid() {
		return "", fmt.Errorf("invalid size class %q (must be %q, %q, or %q)", s, SizeSmall, SizeMedium, SizeLarge)
	}
	return class, nil
}
