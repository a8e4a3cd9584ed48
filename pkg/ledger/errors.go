package ledger

import "github.com/iotaledger/hive.go/ierrors"

var (
	ErrMalformedTransaction = ierrors.New("malformed transaction")
	ErrUnresolvedInput      = ierrors.New("input could not be resolved")
	ErrInvalidSince         = ierrors.New("invalid since")
)
