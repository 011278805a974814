package classifier

import "testing"

func newTestClassifier() *Classifier {
	return New(Config{
		Denylist: []string{"analytics", "ads", "social", "disable-devtool", "sV05kUlNvOdOxvtC", "histats"},
		Marker:   ".m3u8",
	})
}

func TestClassify_DenylistAlwaysBlocks(t *testing.T) {
	c := newTestClassifier()
	urls := []string{
		"https://www.google-analytics.com/collect",
		"https://cdn.example/ads/master.m3u8",
		"https://s10.histats.com/js15.js",
		"https://unpkg.com/disable-devtool@latest",
		"https://x.example/sV05kUlNvOdOxvtC/index.m3u8?x=1",
	}
	for _, u := range urls {
		if got := c.Classify(u); got != Block {
			t.Errorf("Classify(%q) = %v, want block", u, got)
		}
	}
}

func TestClassify_MarkerCaptures(t *testing.T) {
	c := newTestClassifier()
	urls := []string{
		"https://cdn.example/hls/master.m3u8",
		"https://cdn.example/hls/index.m3u8?token=abc",
		"https://cdn.example/play?src=stream.m3u8#t=0",
	}
	for _, u := range urls {
		if got := c.Classify(u); got != Capture {
			t.Errorf("Classify(%q) = %v, want capture", u, got)
		}
	}
}

func TestClassify_Allow(t *testing.T) {
	c := newTestClassifier()
	for _, u := range []string{"https://vidsrc.xyz/embed/movie/tt1", "https://cdn.example/seg-1.ts"} {
		if got := c.Classify(u); got != Allow {
			t.Errorf("Classify(%q) = %v, want allow", u, got)
		}
	}
}

func TestLabel(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example/hls/master.m3u8", "master"},
		{"https://cdn.example/hls/index.m3u8?token=abc", "index"},
		{"https://cdn.example/720p/playlist.m3u8/", "playlist"},
		{"https://cdn.example/.m3u8", DefaultLabel},
		{"cdn.example/v/list.m3u8?x", "list"},
	}
	for _, tt := range tests {
		if got := c.Label(tt.url); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.url, got, tt.want)
		}
		// deterministic
		if c.Label(tt.url) != c.Label(tt.url) {
			t.Errorf("Label(%q) not deterministic", tt.url)
		}
	}
}

func TestNew_IgnoresEmptyDenylistEntries(t *testing.T) {
	c := New(Config{Denylist: []string{""}, Marker: ".m3u8"})
	if got := c.Classify("https://cdn.example/a.m3u8"); got != Capture {
		t.Errorf("Classify() = %v, want capture", got)
	}
}
