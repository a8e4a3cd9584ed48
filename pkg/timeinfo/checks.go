package timeinfo

import (
	"bytes"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/time-beacon/pkg/vm"
)

// requireExactlyOne fails unless exactly one cell of the source is bound to the executing script.
func requireExactlyOne(ctx *vm.Context, source vm.Source) error {
	if count := ctx.CountCellsWithTypeHash(ctx.ScriptHash(), source); count != 1 {
		return ierrors.Wrapf(cardinalityError(source), "expected exactly one %s cell, found %d", source, count)
	}

	return nil
}

// requireNonEmptyArgument fails if the executing script has no args.
func requireNonEmptyArgument(ctx *vm.Context) error {
	if len(ctx.Args()) == 0 {
		return ierrors.Wrap(ErrInvalidArgument, "script args are empty")
	}

	return nil
}

// requireArgumentContinuity fails unless the consumed record carries the args of the executing script.
func requireArgumentContinuity(ctx *vm.Context) error {
	if err := requireNonEmptyArgument(ctx); err != nil {
		return err
	}

	inputArgs, err := ctx.InputTypeArgs(ctx.ScriptHash())
	if err != nil {
		return missingCellError(err, vm.SourceInput)
	}

	if len(inputArgs) == 0 {
		return ierrors.Wrap(ErrInvalidArgument, "input args are empty")
	}
	if !bytes.Equal(inputArgs, ctx.Args()) {
		return ierrors.Wrap(ErrInvalidArgument, "input args differ from script args")
	}

	return nil
}

// loadRecord decodes the record bound to the executing script in the source.
func loadRecord(ctx *vm.Context, source vm.Source) (*Record, error) {
	data, err := ctx.LoadCellDataWithTypeHash(ctx.ScriptHash(), source)
	if err != nil {
		return nil, missingCellError(err, source)
	}

	return RecordFromBytes(data)
}

// missingCellError turns a missing cell into the rejection of the side it is missing on.
func missingCellError(err error, source vm.Source) error {
	if !ierrors.Is(err, vm.ErrItemMissing) {
		return err
	}

	return ierrors.Wrap(cardinalityError(source), err.Error())
}

func cardinalityError(source vm.Source) error {
	switch {
	case source.IsInput():
		return ErrInvalidInput
	case source.IsOutput():
		return ErrInvalidOutput
	default:
		return vm.ErrItemMissing
	}
}
