package transcript

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ytdl "github.com/kkdai/youtube/v2"

	"ytrag/internal/youtube"
)

type fakeVideoClient struct {
	video       *ytdl.Video
	videoErr    error
	transcripts map[string]ytdl.VideoTranscript
	transcriptE error
	stream      string
	streamSize  int64
	langsTried  []string
}

func (f *fakeVideoClient) GetVideoContext(_ context.Context, id string) (*ytdl.Video, error) {
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	if f.video != nil {
		return f.video, nil
	}
	return &ytdl.Video{ID: id}, nil
}

func (f *fakeVideoClient) GetTranscriptCtx(_ context.Context, _ *ytdl.Video, lang string) (ytdl.VideoTranscript, error) {
	f.langsTried = append(f.langsTried, lang)
	if t, ok := f.transcripts[lang]; ok {
		return t, nil
	}
	if f.transcriptE != nil {
		return nil, f.transcriptE
	}
	return nil, errors.New("no track")
}

func (f *fakeVideoClient) GetStreamContext(_ context.Context, _ *ytdl.Video, _ *ytdl.Format) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader(f.stream)), f.streamSize, nil
}

func TestCaptionProvider_Fetch(t *testing.T) {
	tests := []struct {
		name      string
		client    *fakeVideoClient
		want      string
		wantErr   error
		wantLangs []string
	}{
		{
			name: "first language",
			client: &fakeVideoClient{transcripts: map[string]ytdl.VideoTranscript{
				"en": {{Text: "hello"}, {Text: " "}, {Text: "world"}},
			}},
			want:      "hello world",
			wantLangs: []string{"en"},
		},
		{
			name: "falls through languages",
			client: &fakeVideoClient{transcripts: map[string]ytdl.VideoTranscript{
				"en-GB": {{Text: "cheerio"}},
			}},
			want:      "cheerio",
			wantLangs: []string{"en", "en-US", "en-GB"},
		},
		{
			name:    "captions disabled",
			client:  &fakeVideoClient{transcriptE: ytdl.ErrTranscriptDisabled},
			wantErr: ytdl.ErrTranscriptDisabled,
		},
		{
			name:    "private video",
			client:  &fakeVideoClient{videoErr: ytdl.ErrVideoPrivate},
			wantErr: ytdl.ErrVideoPrivate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewCaptionProvider(tt.client)
			got, err := p.Fetch(context.Background(), youtube.NewVideoRef("abc", ""))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Fetch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Fetch() = %q, want %q", got, tt.want)
			}
			if strings.Join(tt.client.langsTried, ",") != strings.Join(tt.wantLangs, ",") {
				t.Errorf("languages tried = %v, want %v", tt.client.langsTried, tt.wantLangs)
			}
		})
	}
}

func TestDescribeVideoError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ytdl.ErrVideoPrivate, "private"},
		{ytdl.ErrLoginRequired, "sign-in"},
		{&ytdl.ErrPlayabiltyStatus{Status: "UNPLAYABLE", Reason: "region locked"}, "region locked"},
		{errors.New("boom"), "failed to load video"},
	}
	for _, tt := range tests {
		got := describeVideoError(tt.err)
		if !strings.Contains(got.Error(), tt.want) {
			t.Errorf("describeVideoError(%v) = %q, want it to mention %q", tt.err, got, tt.want)
		}
		if !errors.Is(got, tt.err) {
			t.Errorf("describeVideoError(%v) does not wrap the original", tt.err)
		}
	}
}

const sampleVTT = `WEBVTT

00:00:00.000 --> 00:00:02.000
hello world

00:00:02.000 --> 00:00:04.000
hello world

00:00:04.000 --> 00:00:06.000
second line
`

type fakeRunner struct {
	files map[string]string
	err   error
	args  []string
}

func (f *fakeRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	var dir string
	for i, a := range args {
		if a == "--output" && i+1 < len(args) {
			dir = filepath.Dir(args[i+1])
		}
	}
	for name, content := range f.files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func TestSubtitleProvider_Fetch(t *testing.T) {
	tests := []struct {
		name    string
		runner  *fakeRunner
		want    string
		wantErr error
	}{
		{
			name:   "dedupes rolling lines",
			runner: &fakeRunner{files: map[string]string{"abc.en.vtt": sampleVTT}},
			want:   "hello world second line",
		},
		{
			name: "prefers plain english",
			runner: &fakeRunner{files: map[string]string{
				"abc.en-GB.vtt": "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nbritish\n",
				"abc.en.vtt":    "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nplain\n",
			}},
			want: "plain",
		},
		{
			name:    "no subtitle files",
			runner:  &fakeRunner{},
			wantErr: ErrNoTranscript,
		},
		{
			name:    "runner failure",
			runner:  &fakeRunner{err: errors.New("exit status 1")},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			p := NewSubtitleProvider(tt.runner, tmp)

			got, err := p.Fetch(context.Background(), youtube.NewVideoRef("abc", ""))

			entries, _ := os.ReadDir(tmp)
			if len(entries) != 0 {
				t.Errorf("temp dir not cleaned up: %d entries left", len(entries))
			}

			if tt.runner.err != nil || tt.wantErr != nil {
				if err == nil {
					t.Fatal("Fetch() expected error, got nil")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("Fetch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Fetch() = %q, want %q", got, tt.want)
			}
			if tt.runner.args[len(tt.runner.args)-1] != "https://www.youtube.com/watch?v=abc" {
				t.Errorf("last arg = %q, want video url", tt.runner.args[len(tt.runner.args)-1])
			}
		})
	}
}

type recordingTranscriber struct {
	path    string
	existed bool
	text    string
	err     error
}

func (r *recordingTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	r.path = path
	_, statErr := os.Stat(path)
	r.existed = statErr == nil
	return r.text, r.err
}

func audioVideo(formats ...ytdl.Format) *ytdl.Video {
	return &ytdl.Video{ID: "abc", Formats: formats}
}

func TestAudioProvider_Fetch(t *testing.T) {
	small := ytdl.Format{ItagNo: 249, MimeType: `audio/webm; codecs="opus"`, Bitrate: 50000, AudioChannels: 2, ContentLength: 1000}
	big := ytdl.Format{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioChannels: 2, ContentLength: 2000}
	video := ytdl.Format{ItagNo: 18, MimeType: `video/mp4; codecs="avc1"`, Bitrate: 10000, AudioChannels: 2}

	tests := []struct {
		name        string
		client      *fakeVideoClient
		transcriber *recordingTranscriber
		want        string
		wantErr     error
		wantExt     string
	}{
		{
			name:        "transcribes smallest audio stream",
			client:      &fakeVideoClient{video: audioVideo(big, small, video), stream: "opus bytes", streamSize: 10},
			transcriber: &recordingTranscriber{text: "spoken words"},
			want:        "spoken words",
			wantExt:     ".webm",
		},
		{
			name:        "no audio stream",
			client:      &fakeVideoClient{video: audioVideo(video)},
			transcriber: &recordingTranscriber{},
			wantErr:     nil,
		},
		{
			name:        "stream too large",
			client:      &fakeVideoClient{video: audioVideo(small), stream: "x", streamSize: MaxAudioBytes + 1},
			transcriber: &recordingTranscriber{},
			wantErr:     ErrAudioTooLarge,
		},
		{
			name:        "transcriber error",
			client:      &fakeVideoClient{video: audioVideo(small), stream: "bytes", streamSize: 5},
			transcriber: &recordingTranscriber{err: errors.New("quota")},
			wantErr:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			p := NewAudioProvider(tt.client, tt.transcriber, tmp)

			got, err := p.Fetch(context.Background(), youtube.NewVideoRef("abc", ""))

			entries, _ := os.ReadDir(tmp)
			if len(entries) != 0 {
				t.Errorf("temp dir not cleaned up: %d entries left", len(entries))
			}

			if tt.want == "" {
				if err == nil {
					t.Fatal("Fetch() expected error, got nil")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("Fetch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Fetch() = %q, want %q", got, tt.want)
			}
			if !tt.transcriber.existed {
				t.Error("audio file did not exist when transcriber ran")
			}
			if filepath.Ext(tt.transcriber.path) != tt.wantExt {
				t.Errorf("audio path = %q, want extension %q", tt.transcriber.path, tt.wantExt)
			}
		})
	}
}
