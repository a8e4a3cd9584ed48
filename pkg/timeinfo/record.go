package timeinfo

import (
	"encoding/binary"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/stringify"
)

// Record is the data of a time info cell: the slot it occupies within a round and the timestamp it claims.
type Record struct {
	slot      uint8
	timestamp uint32
}

// NewRecord creates a new Record.
func NewRecord(slot uint8, timestamp uint32) *Record {
	return &Record{
		slot:      slot,
		timestamp: timestamp,
	}
}

// RecordFromBytes decodes a Record. Only the length is checked.
func RecordFromBytes(data []byte) (*Record, error) {
	if len(data) != RecordLength {
		return nil, ierrors.Wrapf(ErrInvalidCellData, "expected %d bytes, got %d", RecordLength, len(data))
	}

	return NewRecord(data[0], binary.BigEndian.Uint32(data[1:])), nil
}

// Slot returns the slot index of the Record.
func (r *Record) Slot() uint8 {
	return r.slot
}

// Timestamp returns the timestamp in seconds the Record claims.
func (r *Record) Timestamp() uint32 {
	return r.timestamp
}

// Bytes encodes the Record as slot byte followed by the big-endian timestamp.
func (r *Record) Bytes() []byte {
	data := make([]byte, RecordLength)
	data[0] = r.slot
	binary.BigEndian.PutUint32(data[1:], r.timestamp)

	return data
}

func (r *Record) String() string {
	return stringify.Struct("Record",
		stringify.NewStructField("Slot", r.slot),
		stringify.NewStructField("Timestamp", r.timestamp),
	)
}
