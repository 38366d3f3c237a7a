package shared

import (
	"os/exec"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCommand
	t.Cleanup(func() { getRuntime, startCommand = origRuntime, origStart })

	tc := []struct {
		goos    string
		wantBin string
		wantErr bool
	}{
		{goos: "darwin", wantBin: "open"},
		{goos: "linux", wantBin: "xdg-open"},
		{goos: "windows", wantBin: "rundll32"},
		{goos: "plan9", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			var started *exec.Cmd
			getRuntime = func() string { return tt.goos }
			startCommand = func(cmd *exec.Cmd) error { started = cmd; return nil }

			err := OpenBrowser("https://accounts.spotify.com/authorize")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for unsupported platform")
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenBrowser() error = %v", err)
			}
			if started == nil || len(started.Args) == 0 || started.Args[0] != tt.wantBin {
				t.Errorf("expected %s to be started, got %+v", tt.wantBin, started)
			}
		})
	}
}
