// Package configs provides embedded configuration templates for codanna.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they are available in every distribution (source build, binary release,
// package manager install) without a separate data directory to locate.
//
// Templates:
//   - project-config.example.toml -> example codanna.toml for the project root
//   - user-config.example.toml -> example user config at
//     ~/.config/codanna/config.toml
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. Project config (codanna.toml / .codanna.toml)
//  3. User config (~/.config/codanna/config.toml)
//  4. Environment variables (CODANNA_*)
package configs

import _ "embed"

// ProjectConfigTemplate is the example project configuration for
// codanna.toml in the project root. Contains project-specific settings:
// enabled languages, workspace ignore patterns, fusion/vector tuning.
//
//go:embed project-config.example.toml
var ProjectConfigTemplate string

// UserConfigTemplate is the example user configuration for
// ~/.config/codanna/config.toml. Contains machine-specific settings: the
// embeddings provider, worker pool sizing, and server transport.
//
//go:embed user-config.example.toml
var UserConfigTemplate string
