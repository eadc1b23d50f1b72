// Package model defines the core data structures used throughout dupcheck.
//
// This package contains the following main types:
//   - Match: One duplicate candidate returned by the similarity workflow
//   - MatchRecord: Ordered mapping from sentence to its matches
//   - CheckReport: The state and result of a single duplicate-check run
//   - Summary: A condensed view of a CheckReport for terminals and tooling
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The workflow client, the pipeline, the report writers, and the
// history store all need these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
