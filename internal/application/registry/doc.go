// Package registry implements the application layer for the run registry.
//
// This package serves as a facade that composes the domain layer with
// infrastructure concerns:
//   - Registers, completes, and annotates run records
//   - Links triplet runs to the doublet runs they consume
//   - Walks provenance lineage, with an optional read-through cache
//   - Replays legacy ledger files as atomic import batches
//
// # Architecture
//
// The application layer depends on:
//   - Domain layer (internal/runs/domain): run entity, path resolver,
//     dependency linker, repository interfaces
//   - Infrastructure: SQLite repositories, ledger YAML parsing
//
// This separation keeps the domain layer free of I/O concerns so it can be
// tested in isolation.
//
// # Service
//
// Service is the main entry point. Every command surface operation maps to
// one Service method: Register, Complete, Update, Annotate, Reclassify,
// Link, Unlink, Get, List, Lineage, Purge, ImportLedger, ImportHistory.
//
// Operations either complete fully or leave the registry untouched.
// Registration with a declared upstream validates the upstream before the
// record is inserted, so a failed validation leaves no partial record
// behind. Ledger imports run inside a single transaction.
//
// Each operation is wrapped in an OpenTelemetry span named after the
// operation (op.register, op.link, ...). The default tracer is a noop, so
// untraced deployments pay nothing.
package registry
