package assets

import _ "embed"

//go:embed towerctl.toml
var DefaultConfig string
