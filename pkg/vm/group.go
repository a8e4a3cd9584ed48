package vm

import (
	"fmt"

	"github.com/iotaledger/time-beacon/pkg/ledger"
)

// GroupKind tells whether a script group runs a lock script or a type script.
type GroupKind uint8

const (
	GroupKindLock GroupKind = iota
	GroupKindType
)

func (g GroupKind) String() string {
	if g == GroupKindLock {
		return "lock"
	}

	return "type"
}

// ScriptGroup is the set of cells of a transaction bound to the same script. The script runs once per group.
type ScriptGroup struct {
	Kind          GroupKind
	Script        *ledger.Script
	ScriptHash    ledger.ScriptHash
	InputIndices  []int
	OutputIndices []int
}

func (g *ScriptGroup) String() string {
	if len(g.InputIndices) > 0 {
		return fmt.Sprintf("input %s script %d", g.Kind, g.InputIndices[0])
	}
	if len(g.OutputIndices) > 0 {
		return fmt.Sprintf("output %s script %d", g.Kind, g.OutputIndices[0])
	}

	return fmt.Sprintf("%s script %s", g.Kind, g.ScriptHash)
}

// ScriptGroups collects the lock groups of all inputs followed by the type groups of all inputs and outputs,
// each in order of first appearance.
func ScriptGroups(tx *ledger.ResolvedTransaction) []*ScriptGroup {
	lockGroups := newGroupCollector(GroupKindLock)
	typeGroups := newGroupCollector(GroupKindType)

	for i, input := range tx.ResolvedInputs {
		if input.Output.Lock != nil {
			lockGroup := lockGroups.add(input.Output.Lock)
			lockGroup.InputIndices = append(lockGroup.InputIndices, i)
		}

		if input.Output.Type != nil {
			group := typeGroups.add(input.Output.Type)
			group.InputIndices = append(group.InputIndices, i)
		}
	}

	for i, output := range tx.Transaction.Outputs {
		if output.Type != nil {
			group := typeGroups.add(output.Type)
			group.OutputIndices = append(group.OutputIndices, i)
		}
	}

	return append(lockGroups.groups, typeGroups.groups...)
}

type groupCollector struct {
	kind   GroupKind
	index  map[ledger.ScriptHash]*ScriptGroup
	groups []*ScriptGroup
}

func newGroupCollector(kind GroupKind) *groupCollector {
	return &groupCollector{
		kind:  kind,
		index: make(map[ledger.ScriptHash]*ScriptGroup),
	}
}

func (g *groupCollector) add(script *ledger.Script) *ScriptGroup {
	scriptHash := script.Hash()
	if group, exists := g.index[scriptHash]; exists {
		return group
	}

	group := &ScriptGroup{
		Kind:       g.kind,
		Script:     script,
		ScriptHash: scriptHash,
	}
	g.index[scriptHash] = group
	g.groups = append(g.groups, group)

	return group
}
