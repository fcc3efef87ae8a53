package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/version"
)

// TestVersionCmd drives `asr version` through the cobra command tree and
// checks the exact first line plus the commit and build rows, for both a
// release build and the local-build defaults.
func TestVersionCmd(t *testing.T) {
	cases := []struct {
		name          string
		version       string
		commit        string
		date          string
		wantFirstLine string
	}{
		{"release build", "v2.1.0", "deadbeef", "2026-01-15", "asr version v2.1.0"},
		{"local build", "dev", "none", "unknown", "asr version dev"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orig, origC, origD := version.Version, version.Commit, version.Date
			t.Cleanup(func() {
				version.Version, version.Commit, version.Date = orig, origC, origD
			})
			version.Version, version.Commit, version.Date = tc.version, tc.commit, tc.date

			var buf bytes.Buffer
			root := newRootCmd()
			root.SetOut(&buf)
			root.SetErr(&buf)
			root.SetArgs([]string{"version"})
			if err := root.Execute(); err != nil {
				t.Fatalf("version command returned error: %v", err)
			}

			out := buf.String()
			lines := strings.Split(out, "\n")
			if lines[0] != tc.wantFirstLine {
				t.Errorf("first line: got %q; want %q", lines[0], tc.wantFirstLine)
			}
			if !strings.Contains(out, "commit: "+tc.commit) {
				t.Errorf("output missing commit row; got:\n%s", out)
			}
			if !strings.Contains(out, "built: "+tc.date) {
				t.Errorf("output missing built row; got:\n%s", out)
			}
		})
	}
}
