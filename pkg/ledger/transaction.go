package ledger

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2"
	"github.com/iotaledger/hive.go/serializer/v2/byteutils"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
	"github.com/iotaledger/hive.go/stringify"
)

// TransactionHash identifies a Transaction.
type TransactionHash [HashLength]byte

func (t TransactionHash) ToHex() string {
	return "0x" + hex.EncodeToString(t[:])
}

func (t TransactionHash) String() string {
	return t.ToHex()
}

// OutPointLength is the length of an encoded OutPoint.
const OutPointLength = HashLength + serializer.UInt32ByteSize

// OutPoint references a cell by the transaction that created it and its output index.
type OutPoint struct {
	TxHash TransactionHash
	Index  uint32
}

// NewOutPoint creates a new OutPoint.
func NewOutPoint(txHash TransactionHash, index uint32) OutPoint {
	return OutPoint{TxHash: txHash, Index: index}
}

// Bytes returns the fixed size encoding of the OutPoint.
func (o OutPoint) Bytes() []byte {
	indexBytes := make([]byte, serializer.UInt32ByteSize)
	binary.LittleEndian.PutUint32(indexBytes, o.Index)

	return byteutils.ConcatBytes(o.TxHash[:], indexBytes)
}

// OutPointFromBytes parses an OutPoint from its fixed size encoding.
func OutPointFromBytes(b []byte) (OutPoint, int, error) {
	if len(b) < OutPointLength {
		return OutPoint{}, 0, ierrors.Errorf("invalid length for out point, expected %d bytes, got %d", OutPointLength, len(b))
	}

	var outPoint OutPoint
	copy(outPoint.TxHash[:], b[:HashLength])
	outPoint.Index = binary.LittleEndian.Uint32(b[HashLength:OutPointLength])

	return outPoint, OutPointLength, nil
}

func (o OutPoint) String() string {
	return stringify.Struct("OutPoint",
		stringify.NewStructField("TxHash", o.TxHash),
		stringify.NewStructField("Index", o.Index),
	)
}

// CellOutput describes the cell a Transaction produces. Its data lives in Transaction.OutputsData.
type CellOutput struct {
	Capacity uint64
	Lock     *Script
	Type     *Script
}

// TypeHash returns the hash of the bound type script, if any.
func (c *CellOutput) TypeHash() (ScriptHash, bool) {
	if c.Type == nil {
		return EmptyScriptHash, false
	}

	return c.Type.Hash(), true
}

// LockHash returns the hash of the lock script.
func (c *CellOutput) LockHash() ScriptHash {
	if c.Lock == nil {
		return EmptyScriptHash
	}

	return c.Lock.Hash()
}

// Bytes returns the canonical encoding of the CellOutput.
func (c *CellOutput) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := stream.Write(byteBuffer, c.Capacity); err != nil {
		return nil, ierrors.Wrap(err, "failed to write capacity")
	}
	if err := writeOptionalScript(byteBuffer, c.Lock); err != nil {
		return nil, ierrors.Wrap(err, "failed to write lock script")
	}
	if err := writeOptionalScript(byteBuffer, c.Type); err != nil {
		return nil, ierrors.Wrap(err, "failed to write type script")
	}

	return byteBuffer.Bytes()
}

// CellOutputFromBytes parses a CellOutput from its canonical encoding.
func CellOutputFromBytes(b []byte) (*CellOutput, error) {
	reader := stream.NewByteReader(b)

	capacity, err := stream.Read[uint64](reader)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to read capacity")
	}
	lock, err := readOptionalScript(reader)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to read lock script")
	}
	typeScript, err := readOptionalScript(reader)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to read type script")
	}

	return &CellOutput{Capacity: capacity, Lock: lock, Type: typeScript}, nil
}

func writeOptionalScript(byteBuffer *stream.ByteBuffer, script *Script) error {
	if script == nil {
		return stream.WriteBytesWithSize(byteBuffer, nil, serializer.SeriLengthPrefixTypeAsUint32)
	}

	scriptBytes, err := script.Bytes()
	if err != nil {
		return err
	}

	return stream.WriteBytesWithSize(byteBuffer, scriptBytes, serializer.SeriLengthPrefixTypeAsUint32)
}

func readOptionalScript(reader *stream.ByteReader) (*Script, error) {
	scriptBytes, err := stream.ReadBytesWithSize(reader, serializer.SeriLengthPrefixTypeAsUint32)
	if err != nil {
		return nil, err
	}
	if len(scriptBytes) == 0 {
		return nil, nil
	}

	script, _, err := ScriptFromBytes(scriptBytes)

	return script, err
}

// CellInput consumes the cell at PreviousOutput, not before the point in time encoded in Since.
type CellInput struct {
	PreviousOutput OutPoint
	Since          Since
}

// NewCellInput creates a new CellInput.
func NewCellInput(previousOutput OutPoint, since Since) *CellInput {
	return &CellInput{PreviousOutput: previousOutput, Since: since}
}

// DepType tells whether a CellDep points at code or at a group of deps.
type DepType byte

const (
	DepTypeCode DepType = iota
	DepTypeDepGroup
)

// CellDep references a live cell that is read, not consumed, by a Transaction.
type CellDep struct {
	OutPoint OutPoint
	DepType  DepType
}

// Transaction consumes Inputs and produces Outputs.
type Transaction struct {
	Version     uint32
	CellDeps    []*CellDep
	Inputs      []*CellInput
	Outputs     []*CellOutput
	OutputsData [][]byte
	Witnesses   [][]byte
}

// Bytes returns the canonical encoding of the Transaction without its witnesses.
func (t *Transaction) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer()

	if err := stream.Write(byteBuffer, t.Version); err != nil {
		return nil, ierrors.Wrap(err, "failed to write version")
	}

	if err := stream.WriteCollection(byteBuffer, serializer.SeriLengthPrefixTypeAsUint32, func() (elementsCount int, err error) {
		for _, cellDep := range t.CellDeps {
			if err = stream.WriteBytes(byteBuffer, cellDep.OutPoint.Bytes()); err != nil {
				return 0, err
			}
			if err = stream.Write(byteBuffer, byte(cellDep.DepType)); err != nil {
				return 0, err
			}
		}

		return len(t.CellDeps), nil
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to write cell deps")
	}

	if err := stream.WriteCollection(byteBuffer, serializer.SeriLengthPrefixTypeAsUint32, func() (elementsCount int, err error) {
		for _, input := range t.Inputs {
			if err = stream.WriteBytes(byteBuffer, input.PreviousOutput.Bytes()); err != nil {
				return 0, err
			}
			if err = stream.Write(byteBuffer, uint64(input.Since)); err != nil {
				return 0, err
			}
		}

		return len(t.Inputs), nil
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to write inputs")
	}

	if err := stream.WriteCollection(byteBuffer, serializer.SeriLengthPrefixTypeAsUint32, func() (elementsCount int, err error) {
		for _, output := range t.Outputs {
			outputBytes, outputErr := output.Bytes()
			if outputErr != nil {
				return 0, outputErr
			}
			if err = stream.WriteBytesWithSize(byteBuffer, outputBytes, serializer.SeriLengthPrefixTypeAsUint32); err != nil {
				return 0, err
			}
		}

		return len(t.Outputs), nil
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to write outputs")
	}

	if err := stream.WriteCollection(byteBuffer, serializer.SeriLengthPrefixTypeAsUint32, func() (elementsCount int, err error) {
		for _, data := range t.OutputsData {
			if err = stream.WriteBytesWithSize(byteBuffer, data, serializer.SeriLengthPrefixTypeAsUint32); err != nil {
				return 0, err
			}
		}

		return len(t.OutputsData), nil
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to write outputs data")
	}

	return byteBuffer.Bytes()
}

// Hash returns the blake2b-256 hash of the canonical encoding.
func (t *Transaction) Hash() TransactionHash {
	return blake2b.Sum256(lo.PanicOnErr(t.Bytes()))
}

// OutPoint returns the OutPoint of the output at the given index.
func (t *Transaction) OutPoint(index uint32) OutPoint {
	return NewOutPoint(t.Hash(), index)
}

// SyntacticallyValid checks the structural constraints that do not depend on resolved inputs.
func (t *Transaction) SyntacticallyValid() error {
	if len(t.Inputs) == 0 {
		return ierrors.Wrap(ErrMalformedTransaction, "transaction has no inputs")
	}
	if len(t.Outputs) != len(t.OutputsData) {
		return ierrors.Wrapf(ErrMalformedTransaction, "outputs count %d differs from outputs data count %d", len(t.Outputs), len(t.OutputsData))
	}

	for i, cellDep := range t.CellDeps {
		if cellDep == nil {
			return ierrors.Wrapf(ErrMalformedTransaction, "cell dep %d is missing", i)
		}
	}

	seen := make(map[OutPoint]struct{}, len(t.Inputs))
	for i, input := range t.Inputs {
		if input == nil {
			return ierrors.Wrapf(ErrMalformedTransaction, "input %d is missing", i)
		}
		if _, exists := seen[input.PreviousOutput]; exists {
			return ierrors.Wrapf(ErrMalformedTransaction, "input %d spends %s twice", i, input.PreviousOutput)
		}
		seen[input.PreviousOutput] = struct{}{}
	}

	for i, output := range t.Outputs {
		if output == nil || output.Lock == nil {
			return ierrors.Wrapf(ErrMalformedTransaction, "output %d has no lock script", i)
		}
	}

	return nil
}
