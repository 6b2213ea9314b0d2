package daemon

import "fmt"

// Verb is what to do to a unit
type Verb int

const (
	Status Verb = iota
	Start
	Stop
	Restart
	Enable
	Disable
)

var verbNames = [...]string{"status", "start", "stop", "restart", "enable", "disable"}

func (v Verb) String() string {
	if v < 0 || int(v) >= len(verbNames) {
		return fmt.Sprintf("verb(%d)", int(v))
	}
	return verbNames[v]
}

// Target is the unit an action applies to
type Target int

const (
	Service Target = iota
	Socket
)

func (t Target) String() string {
	if t == Socket {
		return "socket"
	}
	return "service"
}

// Action is a logical operation on the Docker daemon or its socket unit
type Action struct {
	Verb   Verb
	Target Target
}

// Valid reports whether the action is one of the eleven declared actions.
// Socket restart is not one of them.
func (a Action) Valid() bool {
	if a.Verb < Status || a.Verb > Disable {
		return false
	}
	if a.Target != Service && a.Target != Socket {
		return false
	}
	return !(a.Target == Socket && a.Verb == Restart)
}

func (a Action) String() string {
	return a.Target.String() + " " + a.Verb.String()
}

// Actions returns the eleven declared actions, the six service actions first
func Actions() []Action {
	actions := make([]Action, 0, 11)
	for _, t := range []Target{Service, Socket} {
		for v := Status; v <= Disable; v++ {
			a := Action{Verb: v, Target: t}
			if a.Valid() {
				actions = append(actions, a)
			}
		}
	}
	return actions
}

// ParseVerb maps a command-line verb to a Verb
func ParseVerb(s string) (Verb, error) {
	for i, name := range verbNames {
		if name == s {
			return Verb(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}
