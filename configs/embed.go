// Package configs provides the embedded configuration template.
//
// The template is embedded at build time so `evidencemcp config init` works
// from source builds and binary releases alike. It mirrors the defaults in
// internal/config NewConfig(); edit both together.
package configs

import _ "embed"

// ConfigTemplate is written by `evidencemcp config init` to
// ~/.config/evidencemcp/config.yaml.
//
//go:embed config.example.yaml
var ConfigTemplate string
