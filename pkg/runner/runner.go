// Package runner owns the process lifecycle: serve until the context ends,
// then drain the engine under a deadline so active calls and the transcript
// store close out before exit.
package runner

import (
	"bytes"
	"os"

	"github.com/dimiro1/banner"
)

// State tracks where the process is in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateServing
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateServing:
		return "serving"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Drainer releases a component's resources. The engine's Drain closes the
// HTTP surface, active media streams, and the transcript store, in that
// order.
type Drainer interface {
	Drain() error
}

const Version = "dev"

func PrintBanner() {
	tpl := "{{ .Title \"VOICEBRIDGE\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}
