package timeinfo

import "github.com/iotaledger/time-beacon/pkg/ledger"

const (
	// SlotCount is the number of time info cells that take turns within a round.
	SlotCount = 12

	// SlotInterval is the time in seconds between the updates of two consecutive slots.
	SlotInterval = 60

	// RoundDuration is the time in seconds it takes until every slot was updated once.
	RoundDuration = SlotCount * SlotInterval

	// RecordLength is the length of the data of a time info cell.
	RecordLength = 5

	// AbsoluteTimestampFlag marks the since of a consumed time info cell as an absolute timestamp lock.
	AbsoluteTimestampFlag = ledger.AbsoluteTimestampFlag
)
