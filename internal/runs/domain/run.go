// Package domain provides the pure domain layer for training runs with no
// infrastructure dependencies.
//
// This package follows Domain-Driven Design (DDD) principles:
//   - Contains only pure Go code with standard library imports
//   - Defines the Run entity with encapsulated state and behavior
//   - Defines the RunRepository interface for persistence abstraction
//   - Implements domain logic (path normalization, dependency linking,
//     lineage walks) alongside domain-specific error types
//
// The domain layer has no knowledge of infrastructure concerns (databases,
// file I/O, etc.). In particular the path resolver operates purely on path
// strings; whether a directory actually exists on storage is the training
// system's problem, not the registry's.
package domain

import (
	"strings"
	"time"
)

// Run represents a domain entity for one training execution.
// All fields are unexported to enforce encapsulation; use the constructor
// and getter methods to access data.
//
// Identity, stage, and both directory paths are fixed at creation. The
// remaining fields exist to be filled in as facts become known: graph count
// and duration arrive when training finishes, the upstream edge once the
// consumed doublet checkpoint is identified.
type Run struct {
	id        int64
	stage     Stage
	sizeClass SizeClass

	// Training facts, unknown until the run completes
	graphCount       *int64
	trainingDuration *time.Duration

	// Directory references, fixed at creation
	datasetPath string
	resultPath  string

	// Dependency edge (triplet runs only)
	upstreamID *int64

	notes string

	createdAt time.Time
	updatedAt time.Time
}

// NewRun creates a new Run for the given stage and directory references.
// The createdAt and updatedAt timestamps are set to the current time.
// The ID is left as zero; it will be assigned by the persistence layer.
// Both paths are stored as given; callers are expected to normalize them
// through the Resolver first.
func NewRun(stage Stage, datasetPath, resultPath string) *Run {
	now := time.Now()
	return &Run{
		id:               0,
		stage:            stage,
		sizeClass:        SizeUnspecified,
		graphCount:       nil,
		trainingDuration: nil,
		datasetPath:      datasetPath,
		resultPath:       resultPath,
		upstreamID:       nil,
		notes:            "",
		createdAt:        now,
		updatedAt:        now,
	}
}

// ReconstituteRun creates a Run from existing data, typically when hydrating
// from the database. All fields are provided explicitly.
func ReconstituteRun(
	id int64,
	stage Stage,
	sizeClass SizeClass,
	graphCount *int64,
	trainingDuration *time.Duration,
	datasetPath, resultPath string,
	upstreamID *int64,
	notes string,
	createdAt, updatedAt time.Time,
) *Run {
	return &Run{
		id:               id,
		stage:            stage,
		sizeClass:        sizeClass,
		graphCount:       graphCount,
		trainingDuration: trainingDuration,
		datasetPath:      datasetPath,
		resultPath:       resultPath,
		upstreamID:       upstreamID,
		notes:            notes,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// ID returns the database identifier for this run.
// Returns 0 for newly created runs that haven't been persisted.
func (r *Run) ID() int64 {
	return r.id
}

// Stage returns the pipeline stage this run belongs to.
func (r *Run) Stage() Stage {
	return r.stage
}

// SizeClass returns the advisory problem-size label for this run.
func (r *Run) SizeClass() SizeClass {
	return r.sizeClass
}

// GraphCount returns the number of training graphs, or nil if not yet known.
func (r *Run) GraphCount() *int64 {
	return r.graphCount
}

// TrainingDuration returns the elapsed training time, or nil if the run has
// not completed.
func (r *Run) TrainingDuration() *time.Duration {
	return r.trainingDuration
}

// DatasetPath returns the input dataset directory reference.
func (r *Run) DatasetPath() string {
	return r.datasetPath
}

// ResultPath returns the output checkpoint/result directory reference.
func (r *Run) ResultPath() string {
	return r.resultPath
}

// UpstreamID returns the id of the doublet run this run depends on, or nil
// if no dependency has been linked.
func (r *Run) UpstreamID() *int64 {
	return r.upstreamID
}

// Notes returns the free-text notes for this run.
func (r *Run) Notes() string {
	return r.notes
}

// CreatedAt returns when this run was registered.
func (r *Run) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns when this run was last updated.
func (r *Run) UpdatedAt() time.Time {
	return r.updatedAt
}

// IsLinked returns true if this run has an upstream dependency.
func (r *Run) IsLinked() bool {
	return r.upstreamID != nil
}

// IsCompleted returns true if a training duration has been recorded.
func (r *Run) IsCompleted() bool {
	return r.trainingDuration != nil
}

// SetSizeClass sets the advisory problem-size label.
func (r *Run) SetSizeClass(class SizeClass) {
	r.sizeClass = class
	r.updatedAt = time.Now()
}

// SetGraphCount records the number of training graphs.
func (r *Run) SetGraphCount(count int64) {
	r.graphCount = &count
	r.updatedAt = time.Now()
}

// Complete records the elapsed training time for this run.
// Completing a run twice overwrites the previous duration.
func (r *Run) Complete(duration time.Duration) {
	r.trainingDuration = &duration
	r.updatedAt = time.Now()
}

// SetNotes replaces the free-text notes.
func (r *Run) SetNotes(notes string) {
	r.notes = notes
	r.updatedAt = time.Now()
}

// AppendNote appends a line to the free-text notes.
func (r *Run) AppendNote(text string) {
	if r.notes == "" {
		r.notes = text
	} else {
		r.notes = strings.TrimRight(r.notes, "\n") + "\n" + text
	}
	r.updatedAt = time.Now()
}

// SetUpstream records the doublet run this run depends on.
// Stage and existence rules are enforced by the Linker, not here.
func (r *Run) SetUpstream(id int64) {
	r.upstreamID = &id
	r.updatedAt = time.Now()
}

// ClearUpstream removes the upstream dependency edge.
func (r *Run) ClearUpstream() {
	r.upstreamID = nil
	r.updatedAt = time.Now()
}

// SetID sets the database identifier for this run.
// This is typically called by the persistence layer after inserting a new run.
func (r *Run) SetID(id int64) {
	r.id = id
}
