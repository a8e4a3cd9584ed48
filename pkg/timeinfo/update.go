package timeinfo

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/time-beacon/pkg/vm"
)

// update validates the transition of a time info cell into its successor.
func update(ctx *vm.Context) error {
	if err := requireExactlyOne(ctx, vm.SourceInput); err != nil {
		return err
	}
	if err := requireExactlyOne(ctx, vm.SourceOutput); err != nil {
		return err
	}

	if err := requireArgumentContinuity(ctx); err != nil {
		return err
	}

	lastRecord, err := loadRecord(ctx, vm.SourceInput)
	if err != nil {
		return err
	}
	currentRecord, err := loadRecord(ctx, vm.SourceOutput)
	if err != nil {
		return err
	}

	if !TimestampInWindow(lastRecord.Timestamp(), currentRecord.Timestamp()) {
		lowerExclusive, upperInclusive := AcceptanceWindow(lastRecord.Timestamp())

		return ierrors.Wrapf(ErrInvalidTimestamp, "timestamp %d outside of (%d, %d]", currentRecord.Timestamp(), lowerExclusive, upperInclusive)
	}

	if err = checkSince(ctx, lastRecord.Timestamp()); err != nil {
		return err
	}

	if currentRecord.Slot() != lastRecord.Slot() {
		return ierrors.Wrapf(ErrInvalidTimeIndex, "slot changed from %d to %d", lastRecord.Slot(), currentRecord.Slot())
	}

	return nil
}

// checkSince requires every consumed time info cell to be locked until one slot after the end of the round
// that started with the last timestamp.
func checkSince(ctx *vm.Context, last uint32) error {
	sinces, err := ctx.InputSincesWithTypeHash(ctx.ScriptHash())
	if err != nil {
		return err
	}

	requiredSince := RequiredSince(last)
	for _, since := range sinces {
		if since != requiredSince {
			return ierrors.Wrapf(ErrInvalidTimeSince, "since %#x differs from required %#x", uint64(since), uint64(requiredSince))
		}
	}

	return nil
}
