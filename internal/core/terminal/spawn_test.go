package terminal

import (
	"testing"
)

func TestCustomCommandSubstitution(t *testing.T) {
	s := &Spawner{CustomCommand: "footerm --dir {cwd} -- {command}"}
	cmd := s.command(SpawnConfig{WorkingDir: "/home/u/proj", Command: "claude --resume abc"})

	if len(cmd.Args) != 3 || cmd.Args[0] != "bash" || cmd.Args[1] != "-c" {
		t.Fatalf("args = %v, want a bash -c wrapper", cmd.Args)
	}
	want := "footerm --dir /home/u/proj -- claude --resume abc"
	if cmd.Args[2] != want {
		t.Errorf("command line = %q, want %q", cmd.Args[2], want)
	}
}

func TestShellEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/plain/path", "'/plain/path'"},
		{"it's here", `'it'\''s here'`},
	}
	for _, tt := range tests {
		if got := shellEscape(tt.in); got != tt.want {
			t.Errorf("shellEscape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
