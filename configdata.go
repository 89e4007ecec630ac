// configdata.go embeds the default daemon configuration. sigbridged
// copies [DefaultConfigTOML] into the data directory on first run so
// users edit a fully commented file instead of starting from nothing.

package sigbridge

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded
// at build time.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
