// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingestion parses source trees and extracts typed code segments.
//
// # Pipeline stage
//
// ingestion implements stage 2 of the analysis pipeline: given a project
// context built in stage 1, it walks the repository, parses each file with
// the appropriate language front-end, and emits model.CodeSegment values
// to a concurrency-safe SegmentCollector. Parsing runs on a bounded worker
// pool (default runtime.NumCPU); a file that fails to parse yields a
// diagnostic and zero segments without aborting the run.
//
// # Supported languages
//
// Tree-sitter backed front-ends exist for:
//   - TypeScript / TSX (and plain JavaScript)
//   - Java
//   - Python
//   - Rust
//
// A separate, non-AST front-end reads configuration and manifest files
// (package.json, Cargo.toml, pyproject.toml, requirements.txt, Pipfile,
// pom.xml, build.gradle, deno.json, go.mod) for the metadata reader in
// pkg/metadata.
//
// # Determinism
//
// Segment identifiers are content-addressed (file path + byte range +
// name hash), so two runs over unchanged input produce byte-identical
// segment sets regardless of worker count.
package ingestion
