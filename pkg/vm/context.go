package vm

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/time-beacon/pkg/ledger"
)

// Context is the read-only view a Program gets on the transaction it validates and on its own script.
type Context struct {
	tx    *ledger.ResolvedTransaction
	group *ScriptGroup
}

// NewContext creates the Context for the given script group of the transaction.
func NewContext(tx *ledger.ResolvedTransaction, group *ScriptGroup) *Context {
	return &Context{
		tx:    tx,
		group: group,
	}
}

// Script returns the script that is currently executing.
func (c *Context) Script() *ledger.Script {
	return c.group.Script
}

// ScriptHash returns the identity of the script that is currently executing.
func (c *Context) ScriptHash() ledger.ScriptHash {
	return c.group.ScriptHash
}

// Args returns the arguments of the script that is currently executing.
func (c *Context) Args() []byte {
	return c.group.Script.Args
}

// TransactionHash returns the hash of the transaction under validation.
func (c *Context) TransactionHash() ledger.TransactionHash {
	return c.tx.Hash()
}

// Len returns the number of cells in the given source.
func (c *Context) Len(source Source) int {
	switch source {
	case SourceInput:
		return len(c.tx.ResolvedInputs)
	case SourceOutput:
		return len(c.tx.Transaction.Outputs)
	case SourceCellDep:
		return len(c.tx.ResolvedCellDeps)
	case SourceGroupInput:
		return len(c.group.InputIndices)
	case SourceGroupOutput:
		return len(c.group.OutputIndices)
	default:
		return 0
	}
}

// LoadCell returns the cell at the given index of the source.
func (c *Context) LoadCell(index int, source Source) (*ledger.CellOutput, error) {
	cell, _, err := c.loadCellAndData(index, source)

	return cell, err
}

// LoadCellData returns the data of the cell at the given index of the source.
func (c *Context) LoadCellData(index int, source Source) ([]byte, error) {
	_, data, err := c.loadCellAndData(index, source)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// LoadCellTypeHash returns the hash of the type script of the cell at the given index of the source. The
// boolean is false if the cell has no type script.
func (c *Context) LoadCellTypeHash(index int, source Source) (ledger.ScriptHash, bool, error) {
	cell, err := c.LoadCell(index, source)
	if err != nil {
		return ledger.EmptyScriptHash, false, err
	}

	typeHash, hasType := cell.TypeHash()

	return typeHash, hasType, nil
}

// LoadInputSince returns the since of the input at the given index of the source.
func (c *Context) LoadInputSince(index int, source Source) (ledger.Since, error) {
	if !source.IsInput() {
		return ledger.NoSince, ierrors.Wrapf(ErrItemMissing, "since is not available for source %s", source)
	}

	txIndex, err := c.resolveIndex(index, source)
	if err != nil {
		return ledger.NoSince, err
	}

	if txIndex >= len(c.tx.Transaction.Inputs) {
		return ledger.NoSince, ierrors.Wrapf(ErrIndexOutOfBound, "input %d has no since", txIndex)
	}

	return c.tx.Transaction.Inputs[txIndex].Since, nil
}

// TypeHashes returns the type hash of every cell of the source, nil for cells without type script.
func (c *Context) TypeHashes(source Source) []*ledger.ScriptHash {
	typeHashes := make([]*ledger.ScriptHash, c.Len(source))
	for i := range typeHashes {
		cell, err := c.LoadCell(i, source)
		if err != nil || cell == nil {
			continue
		}

		if typeHash, hasType := cell.TypeHash(); hasType {
			typeHashes[i] = &typeHash
		}
	}

	return typeHashes
}

// CountCellsWithTypeHash returns the number of cells of the source bound to the given type script.
func (c *Context) CountCellsWithTypeHash(typeHash ledger.ScriptHash, source Source) int {
	return len(lo.Filter(c.TypeHashes(source), func(candidate *ledger.ScriptHash) bool {
		return candidate != nil && *candidate == typeHash
	}))
}

// FindCellWithTypeHash returns the index of the first cell of the source bound to the given type script.
// It fails with ErrItemMissing if there is no such cell.
func (c *Context) FindCellWithTypeHash(typeHash ledger.ScriptHash, source Source) (int, error) {
	for i, candidate := range c.TypeHashes(source) {
		if candidate != nil && *candidate == typeHash {
			return i, nil
		}
	}

	return 0, ierrors.Wrapf(ErrItemMissing, "no %s cell with type hash %s", source, typeHash)
}

// LoadCellDataWithTypeHash returns the data of the first cell of the source bound to the given type script.
func (c *Context) LoadCellDataWithTypeHash(typeHash ledger.ScriptHash, source Source) ([]byte, error) {
	index, err := c.FindCellWithTypeHash(typeHash, source)
	if err != nil {
		return nil, err
	}

	return c.LoadCellData(index, source)
}

// InputTypeArgs returns the args of the type script of the first input bound to the given type script.
func (c *Context) InputTypeArgs(typeHash ledger.ScriptHash) ([]byte, error) {
	index, err := c.FindCellWithTypeHash(typeHash, SourceInput)
	if err != nil {
		return nil, err
	}

	cell, err := c.LoadCell(index, SourceInput)
	if err != nil {
		return nil, err
	}

	return cell.Type.Args, nil
}

// InputSincesWithTypeHash returns the since of every input bound to the given type script.
func (c *Context) InputSincesWithTypeHash(typeHash ledger.ScriptHash) ([]ledger.Since, error) {
	sinces := make([]ledger.Since, 0, 1)
	for i, candidate := range c.TypeHashes(SourceInput) {
		if candidate == nil || *candidate != typeHash {
			continue
		}

		since, err := c.LoadInputSince(i, SourceInput)
		if err != nil {
			return nil, err
		}
		sinces = append(sinces, since)
	}

	return sinces, nil
}

func (c *Context) loadCellAndData(index int, source Source) (*ledger.CellOutput, []byte, error) {
	txIndex, err := c.resolveIndex(index, source)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case source.IsInput():
		cellMeta := c.tx.ResolvedInputs[txIndex]

		return cellMeta.Output, cellMeta.Data, nil
	case source.IsOutput():
		if txIndex >= len(c.tx.Transaction.OutputsData) {
			return nil, nil, ierrors.Wrapf(ErrIndexOutOfBound, "output %d has no data", txIndex)
		}

		return c.tx.Transaction.Outputs[txIndex], c.tx.Transaction.OutputsData[txIndex], nil
	default:
		cellMeta := c.tx.ResolvedCellDeps[txIndex]

		return cellMeta.Output, cellMeta.Data, nil
	}
}

// resolveIndex maps an index of the source to an index into the transaction.
func (c *Context) resolveIndex(index int, source Source) (int, error) {
	if index < 0 || index >= c.Len(source) {
		return 0, ierrors.Wrapf(ErrIndexOutOfBound, "index %d of %s", index, source)
	}

	switch source {
	case SourceGroupInput:
		return c.group.InputIndices[index], nil
	case SourceGroupOutput:
		return c.group.OutputIndices[index], nil
	case SourceInput, SourceOutput, SourceCellDep:
		return index, nil
	default:
		return 0, ierrors.Wrapf(ErrItemMissing, "unknown source %d", source)
	}
}
