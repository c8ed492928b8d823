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

// Package main implements the hcaa CLI for running the hierarchical
// context-aware analysis pipeline against a project directory.
//
// Usage:
//
//	hcaa analyze [path]             Run the full six-stage analysis
//	hcaa analyze [path] --json      Emit the fused result as JSON
//	hcaa analyze [path] --no-grounding  Skip the optional LLM stage
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/hcaa/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		jsonOut     = flag.Bool("json", false, "Emit machine-readable JSON output")
		noColor     = flag.Bool("no-color", false, "Disable colored terminal output")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress progress output")
		verbose     = flag.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `hcaa - Hierarchical Context-Aware Analysis Core

Usage:
  hcaa <command> [options]

Commands:
  analyze   Run the six-stage analysis pipeline against a project

Global Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  hcaa analyze .
  hcaa analyze ./my-project --json
  hcaa analyze . --no-grounding

Environment Variables:
  OLLAMA_HOST         Ollama base URL (default: http://localhost:11434)
  OLLAMA_EMBED_MODEL   Ollama model name, when provider is ollama
  HCAA_LLM_API_KEY     API key for the openai/anthropic grounding providers

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("hcaa version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	globals := GlobalFlags{
		Quiet:   *quiet,
		JSON:    *jsonOut,
		NoColor: *noColor,
		Verbose: *verbose,
	}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "analyze":
		runAnalyze(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
