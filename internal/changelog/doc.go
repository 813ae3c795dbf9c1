// Package changelog models Keep a Changelog Markdown documents.
//
// This package implements:
//   - CHANGELOG.md parsing into a Document tree (Parse, Inspect)
//   - Lossless serialization back to Markdown (Serialize)
//   - Creation of a minimal valid document (NewDocument)
//   - Tag and comparison-link helpers for monorepo and renamed tag prefixes
//   - Release and entry querying plus terminal display
//
// Every node keeps the raw source line it was parsed from together with the
// free-form lines that follow it. Untouched nodes are written back verbatim,
// so editing one release never reformats the rest of the file.
package changelog
