// Package prompt builds the system prompt that frames every model request.
//
// The prompt pins the response contract the parser relies on (the COMMAND:
// and EXPLANATION: lines) and describes the local environment so the model
// can pick commands that actually run here. Users may supply their own
// template via config; it is rendered with the same context variables.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cbroglie/mustache"
)

const defaultTemplate = `You are a command-line assistant. Generate a shell command for the user's request.

Format your response EXACTLY as:
COMMAND: <the exact command to run>
EXPLANATION: <brief one-line explanation>

Context:
- OS: {{os}}
- Shell: {{shell}}
- Working directory: {{cwd}}

Rules:
- Output exactly one command (use && or ; for multi-step operations)
- The command must be valid for the specified OS and shell
- Prefer common, portable commands when possible
- Keep explanation to one concise line
- Never include dangerous commands (rm -rf /, etc) without explicit confirmation flags
- If the request is ambiguous, make a reasonable assumption and note it in the explanation`

// BuildSystem renders the system prompt. A non-empty custom template
// replaces the built-in one; both see the {{os}}, {{shell}} and {{cwd}}
// context variables. Values are substituted verbatim, no HTML escaping.
func BuildSystem(custom string) (string, error) {
	tmpl := defaultTemplate
	if custom != "" {
		tmpl = custom
	}
	rendered, err := mustache.RenderRaw(tmpl, true, contextVars())
	if err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return rendered, nil
}

func contextVars() map[string]string {
	return map[string]string{
		"os":    osDescription(),
		"shell": shellName(),
		"cwd":   workingDir(),
	}
}

func osDescription() string {
	return fmt.Sprintf("%s (%s)", runtime.GOOS, runtime.GOARCH)
}

func shellName() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return "unknown"
	}
	return filepath.Base(shell)
}

func workingDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return cwd
}
