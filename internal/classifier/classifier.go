// Package classifier decides what happens to every network request issued
// inside an automated browser session.
package classifier

import (
	"net/url"
	"path"
	"strings"
)

// Classification is the verdict for a single outbound request.
type Classification int

const (
	Allow Classification = iota
	Block
	Capture
)

func (c Classification) String() string {
	switch c {
	case Block:
		return "block"
	case Capture:
		return "capture"
	default:
		return "allow"
	}
}

// DefaultLabel is used when a captured URL has no usable path segment.
const DefaultLabel = "manifest"

// Config lists the target-specific matching rules.
type Config struct {
	Denylist []string
	Marker   string
}

// Classifier is a pure URL classifier. It holds no state besides its rules
// and is safe for concurrent use.
type Classifier struct {
	denylist []string
	marker   string
}

// New creates a Classifier. Empty denylist entries are ignored since they
// would match every URL.
func New(cfg Config) *Classifier {
	deny := make([]string, 0, len(cfg.Denylist))
	for _, d := range cfg.Denylist {
		if d != "" {
			deny = append(deny, d)
		}
	}
	return &Classifier{denylist: deny, marker: cfg.Marker}
}

// Classify returns Block for denylisted URLs, Capture for URLs carrying the
// manifest marker anywhere, and Allow otherwise. Block wins over Capture.
func (c *Classifier) Classify(rawURL string) Classification {
	for _, d := range c.denylist {
		if strings.Contains(rawURL, d) {
			return Block
		}
	}
	if c.marker != "" && strings.Contains(rawURL, c.marker) {
		return Capture
	}
	return Allow
}

// Label derives the capture label from the final path segment of rawURL,
// with the marker extension and anything following it removed.
// ".../hls/master.m3u8?t=1" yields "master".
func (c *Classifier) Label(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	seg := path.Base(strings.TrimRight(p, "/"))
	if c.marker != "" {
		if i := strings.Index(seg, c.marker); i >= 0 {
			seg = seg[:i]
		}
	}
	if seg == "" || seg == "." || seg == "/" {
		return DefaultLabel
	}
	return seg
}
