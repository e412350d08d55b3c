package session

// ResolveWorkingDir picks the directory to start claude --resume in.
//
// Always the project path, never the last cwd: the CLI looks up resumable
// sessions by the directory it starts in, so launching from lastCwd would
// fail to find the session at all. The rendered resume prompt carries
// lastCwd instead.
func ResolveWorkingDir(projectPath, lastCwd string) string {
	return projectPath
}
