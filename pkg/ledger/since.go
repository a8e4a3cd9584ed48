package ledger

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/stringify"
)

// Since constrains the earliest point at which a CellInput may be consumed.
//
// Layout: bit 63 selects relative (1) or absolute (0) mode, bits 61-62 select the metric
// (00 block number, 01 epoch, 10 timestamp in seconds) and the low 56 bits hold the value.
type Since uint64

// SinceMetric is the unit a Since value is expressed in.
type SinceMetric uint8

const (
	SinceMetricBlockNumber SinceMetric = iota
	SinceMetricEpoch
	SinceMetricTimestamp
)

const (
	SinceRelativeFlag uint64 = 1 << 63

	// AbsoluteTimestampFlag marks a Since as an absolute timestamp lock.
	AbsoluteTimestampFlag uint64 = uint64(SinceMetricTimestamp) << sinceMetricShift

	sinceMetricShift         = 61
	sinceMetricMask   uint64 = 0b11 << sinceMetricShift
	sinceReservedMask uint64 = 0xff << 56 &^ (SinceRelativeFlag | sinceMetricMask)
	sinceValueMask    uint64 = 1<<56 - 1
)

// NoSince is the unconstrained Since.
const NoSince Since = 0

// NewAbsoluteTimestampSince returns a Since that unlocks once the ledger time reached the given seconds.
func NewAbsoluteTimestampSince(seconds uint64) Since {
	return Since(AbsoluteTimestampFlag | seconds&sinceValueMask)
}

func (s Since) IsRelative() bool {
	return uint64(s)&SinceRelativeFlag != 0
}

func (s Since) Metric() SinceMetric {
	return SinceMetric((uint64(s) & sinceMetricMask) >> sinceMetricShift)
}

func (s Since) Value() uint64 {
	return uint64(s) & sinceValueMask
}

// Validate checks that the reserved bits are unset and the metric is known.
func (s Since) Validate() error {
	if uint64(s)&sinceReservedMask != 0 {
		return ierrors.Wrapf(ErrInvalidSince, "reserved bits set in %#x", uint64(s))
	}
	if s.Metric() > SinceMetricTimestamp {
		return ierrors.Wrapf(ErrInvalidSince, "unknown metric in %#x", uint64(s))
	}

	return nil
}

// UnlockedAt reports whether an absolute timestamp lock has expired at the given ledger time.
// Locks in any other mode are reported as unlocked, their enforcement is outside of this ledger.
func (s Since) UnlockedAt(timestamp uint64) bool {
	if s == NoSince || s.IsRelative() || s.Metric() != SinceMetricTimestamp {
		return true
	}

	return s.Value() <= timestamp
}

func (s Since) String() string {
	return stringify.Struct("Since",
		stringify.NewStructField("Relative", s.IsRelative()),
		stringify.NewStructField("Metric", uint8(s.Metric())),
		stringify.NewStructField("Value", s.Value()),
	)
}
