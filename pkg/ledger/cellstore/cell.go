package cellstore

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2"
	"github.com/iotaledger/hive.go/serializer/v2/byteutils"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
	"github.com/iotaledger/time-beacon/pkg/ledger"
)

func prefixedOutPointKey(prefix byte, outPoint ledger.OutPoint) []byte {
	return byteutils.ConcatBytes([]byte{prefix}, outPoint.Bytes())
}

func cellKey(outPoint ledger.OutPoint) []byte {
	return prefixedOutPointKey(StoreKeyPrefixCell, outPoint)
}

func unspentKey(outPoint ledger.OutPoint) []byte {
	return prefixedOutPointKey(StoreKeyPrefixCellUnspent, outPoint)
}

func spentKey(outPoint ledger.OutPoint) []byte {
	return prefixedOutPointKey(StoreKeyPrefixCellSpent, outPoint)
}

func outPointFromKey(key []byte) (ledger.OutPoint, error) {
	// Skip 1 byte prefix.
	outPoint, _, err := ledger.OutPointFromBytes(key[1:])

	return outPoint, err
}

func cellValue(cell *ledger.CellMeta) ([]byte, error) {
	outputBytes, err := cell.Output.Bytes()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to encode cell output")
	}

	byteBuffer := stream.NewByteBuffer()

	if err = stream.WriteBytesWithSize(byteBuffer, outputBytes, serializer.SeriLengthPrefixTypeAsUint32); err != nil {
		return nil, ierrors.Wrap(err, "unable to write cell output")
	}
	if err = stream.WriteBytesWithSize(byteBuffer, cell.Data, serializer.SeriLengthPrefixTypeAsUint32); err != nil {
		return nil, ierrors.Wrap(err, "unable to write cell data")
	}

	return byteBuffer.Bytes()
}

func cellFromKeyAndValue(key []byte, value []byte) (*ledger.CellMeta, error) {
	outPoint, err := outPointFromKey(key)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read out point")
	}

	valueReader := stream.NewByteReader(value)

	outputBytes, err := stream.ReadBytesWithSize(valueReader, serializer.SeriLengthPrefixTypeAsUint32)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read cell output")
	}
	output, err := ledger.CellOutputFromBytes(outputBytes)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to decode cell output")
	}
	data, err := stream.ReadBytesWithSize(valueReader, serializer.SeriLengthPrefixTypeAsUint32)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read cell data")
	}

	return &ledger.CellMeta{
		OutPoint: outPoint,
		Output:   output,
		Data:     data,
	}, nil
}

// Spent records which transaction consumed a cell and when.
type Spent struct {
	OutPoint        ledger.OutPoint
	SpentBy         ledger.TransactionHash
	LedgerTimeSpent uint64
}

func spentValue(spent *Spent) []byte {
	byteBuffer := stream.NewByteBuffer(ledger.HashLength + serializer.UInt64ByteSize)

	// There can't be any errors.
	_ = stream.Write(byteBuffer, spent.SpentBy)
	_ = stream.Write(byteBuffer, spent.LedgerTimeSpent)

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func spentFromKeyAndValue(key []byte, value []byte) (*Spent, error) {
	outPoint, err := outPointFromKey(key)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read out point")
	}

	valueReader := stream.NewByteReader(value)

	spent := &Spent{OutPoint: outPoint}
	if spent.SpentBy, err = stream.Read[ledger.TransactionHash](valueReader); err != nil {
		return nil, ierrors.Wrap(err, "unable to read spending transaction")
	}
	if spent.LedgerTimeSpent, err = stream.Read[uint64](valueReader); err != nil {
		return nil, ierrors.Wrap(err, "unable to read ledger time")
	}

	return spent, nil
}
