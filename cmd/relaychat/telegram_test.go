package main

import (
	"testing"

	"github.com/morphlane/relaychat/internal/telegramapi"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/reset", "reset", true},
		{"/Undo", "undo", true},
		{"/mem@relay_bot", "mem", true},
		{"/start hello", "start", true},
		{"hello", "", false},
		{"/", "", false},
	}
	for _, tc := range cases {
		got, ok := parseCommand(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("parseCommand(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestVoiceFileID(t *testing.T) {
	t.Parallel()

	if got := voiceFileID(&telegramapi.Message{Voice: &telegramapi.Voice{FileID: "v1"}}); got != "v1" {
		t.Fatalf("voiceFileID(voice) = %q", got)
	}
	if got := voiceFileID(&telegramapi.Message{Audio: &telegramapi.Audio{FileID: "a1"}}); got != "a1" {
		t.Fatalf("voiceFileID(audio) = %q", got)
	}
	if got := voiceFileID(&telegramapi.Message{Text: "hi"}); got != "" {
		t.Fatalf("voiceFileID(text) = %q, want empty", got)
	}
}

func TestFileBaseName(t *testing.T) {
	t.Parallel()

	if got := fileBaseName("voice/file_12.oga"); got != "file_12.oga" {
		t.Fatalf("fileBaseName() = %q", got)
	}
	if got := fileBaseName(""); got != "voice.oga" {
		t.Fatalf("fileBaseName(empty) = %q", got)
	}
}
