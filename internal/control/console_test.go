package control

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smazurov/camwall/internal/capture"
)

type recorder struct {
	sent  []capture.Command
	state capture.State
}

func (r *recorder) Send(cmd capture.Command) { r.sent = append(r.sent, cmd) }
func (r *recorder) State() capture.State     { return r.state }
func (r *recorder) Devices() int             { return 3 }

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    capture.Command
		wantErr error
	}{
		{line: "all", want: capture.PreviewAll{}},
		{line: "  ALL ", want: capture.PreviewAll{}},
		{line: "one 2", want: capture.PreviewOne{Index: 2}},
		{line: "o 0", want: capture.PreviewOne{Index: 0}},
		{line: "back", want: capture.Back{}},
		{line: "exit", want: capture.Shutdown{}},
		{line: "one 3", wantErr: capture.ErrBadIndex},
		{line: "one -1", wantErr: capture.ErrBadIndex},
		{line: "all 1", wantErr: ErrUnknownCommand},
		{line: "zoom", wantErr: ErrUnknownCommand},
		{line: "", wantErr: ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line, 3)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseCommand(%q) error = %v, want %v", tt.line, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand(%q) error = %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}

	if _, err := ParseCommand("one x", 3); err == nil {
		t.Error("ParseCommand(one x) should fail")
	}
}

func TestConsoleRun(t *testing.T) {
	target := &recorder{state: capture.State{Mode: capture.ModePreviewAll, Selected: -1}}
	in := strings.NewReader("help\nstatus\none 1\none 9\nback\n\nquit\nall\n")
	var out bytes.Buffer

	if err := NewConsole(target, in, &out).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []capture.Command{capture.PreviewOne{Index: 1}, capture.Back{}, capture.Shutdown{}}
	if len(target.sent) != len(want) {
		t.Fatalf("sent %v, want %v", target.sent, want)
	}
	for i := range want {
		if target.sent[i] != want[i] {
			t.Errorf("command %d = %v, want %v", i, target.sent[i], want[i])
		}
	}

	text := out.String()
	for _, s := range []string{"one N", "preview_all (3 devices)", "error:"} {
		if !strings.Contains(text, s) {
			t.Errorf("output missing %q:\n%s", s, text)
		}
	}
}

func TestConsoleStopsAtEOF(t *testing.T) {
	target := &recorder{}
	if err := NewConsole(target, strings.NewReader("all"), &bytes.Buffer{}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(target.sent) != 1 {
		t.Errorf("sent %v, want one command", target.sent)
	}
}
