// Package configs provides embedded configuration templates for songbook.
//
// Templates are embedded at build time so `songbook config init` works
// from any distribution. Configuration precedence (see internal/config Load):
//  1. Hardcoded defaults
//  2. User config (~/.config/songbook/config.yaml)
//  3. Library config (.songbook.yaml)
//  4. Environment variables (SONGBOOK_*)
package configs

import _ "embed"

// UserConfigTemplate is written by `songbook config init` to the user
// config path.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
