package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/codebuildervaibhav/video-transcription/internal/types"
)

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00"},
		{3725, "01:02:05"},
		{59.9, "00:00:59"},
		{1.5, "00:00:01"},
		{36000.999, "10:00:00"},
		{-3, "00:00:00"},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.in); got != tc.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatTimestampSRT(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{3725.4567, "01:02:05,456"},
		{1.5, "00:00:01,500"},
		{0.29, "00:00:00,290"},
		{59.9999, "00:00:59,999"},
	}
	for _, tc := range cases {
		if got := FormatTimestampSRT(tc.in); got != tc.want {
			t.Errorf("FormatTimestampSRT(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func helloResult() *types.TranscriptionResult {
	return &types.TranscriptionResult{
		Text:     "Hello world.",
		Language: "en",
		Segments: []types.Segment{{Start: 0.0, End: 1.5, Text: "Hello world."}},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestSaveArtifactsWritesThreeFormats(t *testing.T) {
	ls := NewLocalStorage(filepath.Join(t.TempDir(), "output"))

	names, err := ls.SaveArtifacts("clip", helloResult())
	if err != nil {
		t.Fatalf("SaveArtifacts() error = %v", err)
	}
	if names != (Artifacts{"clip_transcript.txt", "clip_with_timestamps.txt", "clip.srt"}) {
		t.Fatalf("names = %+v", names)
	}

	if got := readFile(t, ls.Path(names.Transcript)); got != "Hello world." {
		t.Fatalf("transcript = %q", got)
	}
	if got := readFile(t, ls.Path(names.WithTimestamps)); got != "[00:00:00 - 00:00:01] Hello world.\n" {
		t.Fatalf("timestamped = %q", got)
	}
	if got := readFile(t, ls.Path(names.Subtitles)); got != "1\n00:00:00,000 --> 00:00:01,500\nHello world.\n\n" {
		t.Fatalf("srt = %q", got)
	}
}

func TestSaveArtifactsOverwritesIdentically(t *testing.T) {
	ls := NewLocalStorage(t.TempDir())
	result := &types.TranscriptionResult{
		Text: "  first line second line  ",
		Segments: []types.Segment{
			{Start: 0, End: 2.25, Text: " first line "},
			{Start: 2.25, End: 3725.4567, Text: "second line"},
		},
	}

	if err := os.WriteFile(ls.Path("talk.srt"), []byte("stale content that is longer"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := ls.SaveArtifacts("talk", result)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	before := readFile(t, ls.Path(first.Subtitles))
	if _, err := ls.SaveArtifacts("talk", result); err != nil {
		t.Fatalf("second save: %v", err)
	}
	after := readFile(t, ls.Path(first.Subtitles))

	if before != after {
		t.Fatalf("rewrite changed content:\n%q\n%q", before, after)
	}
	want := "1\n00:00:00,000 --> 00:00:02,250\nfirst line\n\n2\n00:00:02,250 --> 01:02:05,456\nsecond line\n\n"
	if after != want {
		t.Fatalf("srt = %q, want %q", after, want)
	}
	if got := readFile(t, ls.Path(first.Transcript)); got != "first line second line" {
		t.Fatalf("transcript = %q", got)
	}
}

func TestRenderWithoutSegments(t *testing.T) {
	if got := RenderSRT(nil); len(got) != 0 {
		t.Fatalf("srt = %q, want empty", got)
	}
	if got := RenderTimestamped(nil); len(got) != 0 {
		t.Fatalf("timestamped = %q, want empty", got)
	}
}

func TestSaveArtifactsPropagatesWriteErrors(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ls := NewLocalStorage(blocker)
	if _, err := ls.SaveArtifacts("clip", helloResult()); err == nil {
		t.Fatal("expected error when output dir is a file")
	}
}

func TestRenderTimestampedTrimsText(t *testing.T) {
	got := RenderTimestamped([]types.Segment{{Start: 59.9, End: 61, Text: "\t spaced \n"}})
	if !bytes.Equal(got, []byte("[00:00:59 - 00:01:01] spaced\n")) {
		t.Fatalf("timestamped = %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"clip.mp4":              "clip.mp4",
		"../../etc/passwd.mp4":  "etc_passwd.mp4",
		`C:\videos\talk.MOV`:    "C_videos_talk.MOV",
		"My Clip (final).mkv":   "My_Clip_final.mkv",
		"café.webm":             "cafe.webm",
		"клип.mp4":              "video.mp4",
		".hidden.avi":           "hidden.avi",
		"spaces   inside  .flv": "spaces_inside.flv",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("clip.final.mp4"); got != "clip.final" {
		t.Fatalf("BaseName = %q", got)
	}
}
