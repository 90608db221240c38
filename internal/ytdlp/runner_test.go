package ytdlp

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		cookieFile string
		args       []string
		wantName   string
		wantArgs   []string
	}{
		{
			name:     "no cookies",
			path:     "",
			args:     []string{"--flat-playlist", "https://www.youtube.com/playlist?list=PL1"},
			wantName: "yt-dlp",
			wantArgs: []string{"--no-warnings", "--flat-playlist", "https://www.youtube.com/playlist?list=PL1"},
		},
		{
			name:       "cookie file passed through",
			path:       "/usr/local/bin/yt-dlp",
			cookieFile: "/secrets/cookies.txt",
			args:       []string{"--skip-download"},
			wantName:   "/usr/local/bin/yt-dlp",
			wantArgs:   []string{"--no-warnings", "--cookies", "/secrets/cookies.txt", "--skip-download"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotName string
			var gotArgs []string
			r := NewRunner(tt.path, tt.cookieFile).WithExec(func(ctx context.Context, name string, args ...string) ([]byte, error) {
				gotName = name
				gotArgs = args
				return []byte("ok"), nil
			})

			out, err := r.Run(context.Background(), tt.args...)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if string(out) != "ok" {
				t.Errorf("Run() output = %q, want ok", out)
			}
			if gotName != tt.wantName {
				t.Errorf("Run() binary = %q, want %q", gotName, tt.wantName)
			}
			if !reflect.DeepEqual(gotArgs, tt.wantArgs) {
				t.Errorf("Run() args = %v, want %v", gotArgs, tt.wantArgs)
			}
		})
	}
}

func TestRunner_RunPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRunner("yt-dlp", "").WithExec(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, boom
	})

	if _, err := r.Run(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestExecCommand_NotInstalled(t *testing.T) {
	_, err := execCommand(context.Background(), "definitely-not-a-real-binary-ytrag")
	if !errors.Is(err, ErrNotInstalled) {
		t.Errorf("execCommand() error = %v, want ErrNotInstalled", err)
	}
}
