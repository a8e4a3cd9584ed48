package timeinfo

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/time-beacon/pkg/vm"
)

// create validates the creation of a time info cell. The initial timestamp is not constrained.
func create(ctx *vm.Context) error {
	if err := requireExactlyOne(ctx, vm.SourceOutput); err != nil {
		return err
	}

	if err := requireNonEmptyArgument(ctx); err != nil {
		return err
	}

	record, err := loadRecord(ctx, vm.SourceOutput)
	if err != nil {
		return err
	}

	if record.Slot() >= SlotCount {
		return ierrors.Wrapf(ErrInvalidTimeIndex, "slot %d exceeds slot count %d", record.Slot(), SlotCount)
	}

	return nil
}
