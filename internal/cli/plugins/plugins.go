// Package plugins runs external leavelogalone-<command> executables for commands
// that are not built in, the way git and kubectl do.
package plugins

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "leavelogalone-"

// BinaryEnv names the environment variable holding the path of the running
// leavelogalone binary, so a plugin can call back into it.
const BinaryEnv = "LEAVELOGALONE_BIN"

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// searchDirs lists the directories checked before PATH: the directory of the running
// binary, then ~/.leavelogalone/plugins.
func searchDirs() []string {
	var dirs []string
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".leavelogalone", "plugins"))
	}
	return dirs
}

// FindPlugin returns the path of the leavelogalone-<command> binary, looking in
// searchDirs and then PATH.
func FindPlugin(command string) (string, error) {
	name := Prefix + command
	for _, dir := range searchDirs() {
		if candidate := filepath.Join(dir, name); isExecutable(candidate) {
			return candidate, nil
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	return "", ErrPluginNotFound
}

// Execute runs the plugin on the process's standard streams and returns its exit
// code. A plugin that cannot be started yields 2.
func Execute(pluginPath string, args []string) int {
	cmd := exec.Command(pluginPath, args...) // #nosec G204 -- path comes from FindPlugin
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if self, err := os.Executable(); err == nil {
		cmd.Env = append(cmd.Env, BinaryEnv+"="+self)
	}

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	default:
		fmt.Fprintf(os.Stderr, "Error executing plugin: %v\n", err)
		return 2
	}
}

// FormatNotFoundError explains where a plugin for command would have to live.
func FormatNotFoundError(command string) string {
	name := Prefix + command

	var sb strings.Builder
	fmt.Fprintf(&sb, "unknown command %q for \"leavelogalone\"\n\n", command)
	sb.WriteString("If this is a plugin, install the binary as one of:\n")
	fmt.Fprintf(&sb, "  - %s in the same directory as leavelogalone\n", name)
	fmt.Fprintf(&sb, "  - ~/.leavelogalone/plugins/%s\n", name)
	fmt.Fprintf(&sb, "  - %s anywhere in your PATH\n", name)
	sb.WriteString("\nRun 'leavelogalone --help' for usage.")
	return sb.String()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0o111 != 0
}
