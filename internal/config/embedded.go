package config

// Embedded API keys injected at build time via ldflags.
// These serve as defaults and can be overridden by environment
// variables or config file.
//
// Build with:
//   go build -ldflags "-X 'github.com/93bx/vidsrc-stremio-addon/internal/config.EmbeddedSolverKey=xxx' \
//                      -X 'github.com/93bx/vidsrc-stremio-addon/internal/config.EmbeddedOMDBKey=yyy'"
var (
	EmbeddedSolverKey string
	EmbeddedOMDBKey   string
)
