package timeinfo

import (
	"github.com/iotaledger/time-beacon/pkg/vm"
)

// Transition is the kind of state change a transaction applies to a time info cell.
type Transition uint8

const (
	TransitionCreate Transition = iota
	TransitionUpdate
)

func (t Transition) String() string {
	if t == TransitionUpdate {
		return "Update"
	}

	return "Create"
}

// ClassifyTransition returns TransitionUpdate if any consumed cell is bound to the executing script.
func ClassifyTransition(ctx *vm.Context) Transition {
	for _, typeHash := range ctx.TypeHashes(vm.SourceInput) {
		if typeHash != nil && *typeHash == ctx.ScriptHash() {
			return TransitionUpdate
		}
	}

	return TransitionCreate
}

// Script is the type script guarding a time info cell.
type Script struct{}

// NewScript creates a new Script.
func NewScript() *Script {
	return &Script{}
}

// Execute validates the script group of a time info cell.
func (s *Script) Execute(ctx *vm.Context) error {
	if ClassifyTransition(ctx) == TransitionUpdate {
		return update(ctx)
	}

	return create(ctx)
}

var _ vm.Program = new(Script)
