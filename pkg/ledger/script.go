package ledger

import (
	"bytes"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
	"github.com/iotaledger/hive.go/stringify"
)

// HashLength is the length of a ScriptHash and a TransactionHash.
const HashLength = blake2b.Size256

// ScriptHash identifies the script that governs a cell.
type ScriptHash [HashLength]byte

// EmptyScriptHash is the zero value of a ScriptHash.
var EmptyScriptHash = ScriptHash{}

// ScriptHashFromBytes parses a ScriptHash from the given bytes.
func ScriptHashFromBytes(b []byte) (ScriptHash, int, error) {
	var hash ScriptHash
	if len(b) < HashLength {
		return hash, 0, ierrors.Errorf("invalid length for script hash, expected at least %d bytes, got %d", HashLength, len(b))
	}
	copy(hash[:], b)

	return hash, HashLength, nil
}

func (h ScriptHash) Bytes() ([]byte, error) {
	return h[:], nil
}

func (h ScriptHash) ToHex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h ScriptHash) String() string {
	return h.ToHex()
}

// HashType defines how the CodeHash of a Script is matched against deployed code.
type HashType byte

const (
	HashTypeData HashType = iota
	HashTypeType
	HashTypeData1
)

func (h HashType) String() string {
	switch h {
	case HashTypeData:
		return "data"
	case HashTypeType:
		return "type"
	case HashTypeData1:
		return "data1"
	default:
		return "unknown"
	}
}

// Script is a program reference together with the arguments it is instantiated with.
type Script struct {
	CodeHash ScriptHash
	HashType HashType
	Args     []byte
}

// NewScript creates a new Script.
func NewScript(codeHash ScriptHash, hashType HashType, args []byte) *Script {
	return &Script{
		CodeHash: codeHash,
		HashType: hashType,
		Args:     args,
	}
}

// Bytes returns the canonical encoding of the Script.
func (s *Script) Bytes() ([]byte, error) {
	byteBuffer := stream.NewByteBuffer(HashLength + serializer.OneByte + serializer.UInt32ByteSize + len(s.Args))

	if err := stream.Write(byteBuffer, s.CodeHash); err != nil {
		return nil, ierrors.Wrap(err, "failed to write code hash")
	}
	if err := stream.Write(byteBuffer, byte(s.HashType)); err != nil {
		return nil, ierrors.Wrap(err, "failed to write hash type")
	}
	if err := stream.WriteBytesWithSize(byteBuffer, s.Args, serializer.SeriLengthPrefixTypeAsUint32); err != nil {
		return nil, ierrors.Wrap(err, "failed to write args")
	}

	return byteBuffer.Bytes()
}

// ScriptFromBytes parses a Script from its canonical encoding.
func ScriptFromBytes(b []byte) (*Script, int, error) {
	reader := stream.NewByteReader(b)

	codeHash, err := stream.Read[ScriptHash](reader)
	if err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read code hash")
	}
	hashType, err := stream.Read[byte](reader)
	if err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read hash type")
	}
	args, err := stream.ReadBytesWithSize(reader, serializer.SeriLengthPrefixTypeAsUint32)
	if err != nil {
		return nil, 0, ierrors.Wrap(err, "failed to read args")
	}

	return NewScript(codeHash, HashType(hashType), args), HashLength + serializer.OneByte + serializer.UInt32ByteSize + len(args), nil
}

// Hash returns the blake2b-256 hash of the canonical encoding. It is the identity of every cell bound to this Script.
func (s *Script) Hash() ScriptHash {
	return blake2b.Sum256(lo.PanicOnErr(s.Bytes()))
}

// Equal reports whether both scripts carry the same code reference and arguments.
func (s *Script) Equal(other *Script) bool {
	if s == nil || other == nil {
		return s == other
	}

	return s.CodeHash == other.CodeHash && s.HashType == other.HashType && bytes.Equal(s.Args, other.Args)
}

func (s *Script) String() string {
	return stringify.Struct("Script",
		stringify.NewStructField("CodeHash", s.CodeHash),
		stringify.NewStructField("HashType", s.HashType.String()),
		stringify.NewStructField("Args", hex.EncodeToString(s.Args)),
	)
}
