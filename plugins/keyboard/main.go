// Package main is a key plugin that types each sent key into the focused
// window, via AppleScript on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request is the key event read from stdin.
type Request struct {
	Event    string          `json:"event"`
	Label    string          `json:"label"`
	Slot     int             `json:"slot"`
	Distance float64         `json:"distance"`
	Config   json.RawMessage `json:"config"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional "config" object from plugin.json.
type Config struct {
	// Uppercase types labels in upper case.
	Uppercase bool `json:"uppercase"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}
	writeResponse(handle(req, runtime.GOOS, run))
}

func handle(req Request, goos string, runner func(name string, args ...string) error) error {
	if req.Event != "key" {
		return fmt.Errorf("unknown event: %s", req.Event)
	}
	if req.Label == "" {
		return fmt.Errorf("label is required")
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	key := req.Label
	if cfg.Uppercase {
		key = strings.ToUpper(key)
	}

	name, args, err := typeCommand(goos, key)
	if err != nil {
		return err
	}
	return runner(name, args...)
}

// typeCommand returns the command that types key on goos.
func typeCommand(goos, key string) (string, []string, error) {
	switch goos {
	case "darwin":
		escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(key)
		script := fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, escaped)
		return "osascript", []string{"-e", script}, nil
	case "linux":
		return "xdotool", []string{"type", "--", key}, nil
	default:
		return "", nil, fmt.Errorf("typing is not supported on %s", goos)
	}
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
