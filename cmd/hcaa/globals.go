// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package main

// GlobalFlags carries the CLI flags that apply across every subcommand:
// output mode, color, and verbosity. Subcommands receive this by value
// rather than reaching into package-level flag state.
type GlobalFlags struct {
	// Quiet suppresses progress bars and informational log lines.
	Quiet bool

	// JSON requests machine-readable output instead of the human-readable
	// terminal report.
	JSON bool

	// NoColor disables ANSI color in terminal output.
	NoColor bool

	// Verbose is the number of times -v was repeated on the command line.
	Verbose int
}
