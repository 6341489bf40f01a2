// Package configs holds the configuration templates embedded in the docqa
// binary.
//
// The templates are written by:
//   - `docqa config init` at ~/.config/docqa/config.yaml (user template)
//   - `docqa config init --project` at .docqa.yaml in the working directory
//
// Configuration precedence (see internal/config Load):
//  1. Hardcoded defaults
//  2. User config (~/.config/docqa/config.yaml)
//  3. Project config (.docqa.yaml, or the file given with --config)
//  4. .env in the project root
//  5. Environment variables (DOCQA_*)
package configs

import _ "embed"

// UserConfigTemplate holds machine-level settings shared by every project:
// the embedding provider, the Ollama host and the default log level.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate holds settings that belong to one document
// collection: paths, chunking and query defaults.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
