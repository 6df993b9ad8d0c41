package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestYesNo(t *testing.T) {
	cases := []struct {
		input     string
		want      bool
		cancelled bool
	}{
		{"yes\n", true, false},
		{"y\n", true, false},
		{"YES\n", true, false},
		{"no\n", false, false},
		{"N\n", false, false},
		{"exit\n", false, true},
		{"EXIT\n", false, true},
		{"  Exit  \n", false, true},
	}

	for _, tc := range cases {
		var out bytes.Buffer
		p := New(strings.NewReader(tc.input), &out)
		got, err := p.YesNo("Proceed?")
		if tc.cancelled {
			if !errors.Is(err, ErrCancelled) {
				t.Fatalf("YesNo(%q) error = %v, want ErrCancelled", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("YesNo(%q) unexpected error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("YesNo(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestYesNo_RepromptsOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("maybe\nok\nyes\n"), &out)

	got, err := p.YesNo("Proceed?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Fatal("expected final yes answer")
	}
	if n := strings.Count(out.String(), "Proceed?"); n != 3 {
		t.Fatalf("expected 3 prompts, saw %d in output %q", n, out.String())
	}
	if !strings.Contains(out.String(), "Please answer yes, no, or exit.") {
		t.Fatalf("missing re-prompt hint in output %q", out.String())
	}
}

func TestText(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("  /dev/sdb \n"), &out)

	got, err := p.Text("Target device:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/dev/sdb" {
		t.Fatalf("Text = %q, want /dev/sdb", got)
	}
}

func TestText_ExitCancels(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("Exit\n"), &out)

	if _, err := p.Text("Target device:"); !errors.Is(err, ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}
}

func TestText_SkipsEmptyLines(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("\n\n/home/user/os.iso\n"), &out)

	got, err := p.Text("Image:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/home/user/os.iso" {
		t.Fatalf("Text = %q, want /home/user/os.iso", got)
	}
}

func TestReadLine_EOF(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader(""), &out)

	if _, err := p.YesNo("Proceed?"); err == nil {
		t.Fatal("expected error on exhausted input")
	}
}
