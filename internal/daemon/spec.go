package daemon

import "strings"

// Mode selects how a CommandSpec is carried out
type Mode int

const (
	// ModeDirect runs a single process
	ModeDirect Mode = iota
	// ModeChain runs each step in order and stops at the first failure.
	// No shell is involved.
	ModeChain
	// ModeNotice runs nothing; Message is the whole output
	ModeNotice
)

func (m Mode) String() string {
	switch m {
	case ModeChain:
		return "chain"
	case ModeNotice:
		return "notice"
	default:
		return "direct"
	}
}

// CommandSpec is the resolved, platform-specific form of an Action
type CommandSpec struct {
	Mode    Mode
	Steps   [][]string
	Message string
}

func direct(argv ...string) CommandSpec {
	return CommandSpec{Mode: ModeDirect, Steps: [][]string{argv}}
}

func chain(steps ...[]string) CommandSpec {
	return CommandSpec{Mode: ModeChain, Steps: steps}
}

func notice(message string) CommandSpec {
	return CommandSpec{Mode: ModeNotice, Message: message}
}

// Argv renders the spec as one token list for display and logging.
// Chains are joined with "&&"; notices render as an echo.
func (s CommandSpec) Argv() []string {
	if s.Mode == ModeNotice {
		return []string{"echo", s.Message}
	}

	var argv []string
	for i, step := range s.Steps {
		if i > 0 {
			argv = append(argv, "&&")
		}
		argv = append(argv, step...)
	}
	return argv
}

func (s CommandSpec) String() string {
	return strings.Join(s.Argv(), " ")
}

// Empty reports whether the spec carries nothing to run or print
func (s CommandSpec) Empty() bool {
	if s.Mode == ModeNotice {
		return s.Message == ""
	}
	if len(s.Steps) == 0 {
		return true
	}
	for _, step := range s.Steps {
		if len(step) == 0 {
			return true
		}
	}
	return false
}
