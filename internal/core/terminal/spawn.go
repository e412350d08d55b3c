// Package terminal opens a new terminal window running a shell command,
// used to hand a resumed session its own window.
package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Spawner spawns terminal windows. CustomCommand, when set, overrides
// detection; it is a shell line with {cwd} and {command} placeholders.
type Spawner struct {
	CustomCommand string
}

// SpawnConfig is the command to run and where to run it.
type SpawnConfig struct {
	WorkingDir string
	Command    string
}

// Spawn opens a new terminal window and runs the command. The spawned
// process is detached; errors only cover failing to start it.
func (s *Spawner) Spawn(cfg SpawnConfig) error {
	return s.command(cfg).Start()
}

// command builds the spawn invocation without starting it.
func (s *Spawner) command(cfg SpawnConfig) *exec.Cmd {
	if s.CustomCommand != "" {
		line := strings.ReplaceAll(s.CustomCommand, "{cwd}", cfg.WorkingDir)
		line = strings.ReplaceAll(line, "{command}", cfg.Command)
		return exec.Command("bash", "-c", line)
	}

	switch detectTerminal() {
	case "ghostty":
		return exec.Command("ghostty",
			"+new-window",
			"--working-directory="+cfg.WorkingDir,
			"-e", "bash", "-l", "-c", cfg.Command,
		)
	case "iterm":
		script := fmt.Sprintf(`
tell application "iTerm"
	create window with default profile
	tell current session of current window
		write text "cd %s && %s"
	end tell
end tell
`, shellEscape(cfg.WorkingDir), shellEscape(cfg.Command))
		return exec.Command("osascript", "-e", script)
	case "wezterm":
		return exec.Command("wezterm", "cli", "spawn",
			"--cwd", cfg.WorkingDir,
			"--", "bash", "-l", "-c", cfg.Command,
		)
	case "kitty":
		return exec.Command("kitty", "@", "launch",
			"--type=os-window",
			"--cwd="+cfg.WorkingDir,
			"bash", "-l", "-c", cfg.Command,
		)
	default:
		// macOS Terminal.app, also the last resort when nothing is detected.
		script := fmt.Sprintf(`
tell application "Terminal"
	do script "cd %s && %s"
	activate
end tell
`, shellEscape(cfg.WorkingDir), shellEscape(cfg.Command))
		return exec.Command("osascript", "-e", script)
	}
}

// detectTerminal identifies the running terminal, preferring the ambient
// TERM_PROGRAM over PATH probing.
func detectTerminal() string {
	switch os.Getenv("TERM_PROGRAM") {
	case "ghostty":
		return "ghostty"
	case "iTerm.app":
		return "iterm"
	case "Apple_Terminal":
		return "terminal"
	case "WezTerm":
		return "wezterm"
	case "kitty":
		return "kitty"
	}

	for _, name := range []string{"ghostty", "wezterm", "kitty"} {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return "terminal"
}

// shellEscape escapes a string for safe use in shell commands
func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
