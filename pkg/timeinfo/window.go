package timeinfo

import "github.com/iotaledger/time-beacon/pkg/ledger"

// AcceptanceWindow returns the bounds of the timestamps an update of a record with the given last timestamp
// may claim: lower exclusive, upper inclusive.
func AcceptanceWindow(last uint32) (lowerExclusive uint64, upperInclusive uint64) {
	return uint64(last) + RoundDuration, uint64(last) + 2*RoundDuration
}

// TimestampInWindow reports whether current lies within the acceptance window of last.
func TimestampInWindow(last uint32, current uint32) bool {
	lowerExclusive, upperInclusive := AcceptanceWindow(last)

	return uint64(current) > lowerExclusive && uint64(current) <= upperInclusive
}

// RequiredSince returns the since every consumed time info cell with the given last timestamp must carry.
func RequiredSince(last uint32) ledger.Since {
	return ledger.Since(AbsoluteTimestampFlag + uint64(last) + RoundDuration + SlotInterval)
}
