// Package configs holds the configuration template embedded into the
// amanrag binary.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (internal/config NewConfig)
//  2. User config (~/.config/amanrag/config.yaml)
//  3. Project config (.amanrag.yaml)
//  4. Environment variables (AMANRAG_*)
package configs

import _ "embed"

// ConfigTemplate is written by 'amanrag config init'. Every key it sets
// equals the built-in default, so an untouched file changes nothing.
//
//go:embed config.example.yaml
var ConfigTemplate string
