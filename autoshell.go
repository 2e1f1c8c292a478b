package autoshell

import _ "embed"

// Version is the release of this build, read from the VERSION file.
//
//go:embed VERSION
var Version string
