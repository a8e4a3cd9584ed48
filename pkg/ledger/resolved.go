package ledger

import "github.com/iotaledger/hive.go/ierrors"

// CellMeta is a live cell as seen by a Transaction consuming or depending on it.
type CellMeta struct {
	OutPoint OutPoint
	Output   *CellOutput
	Data     []byte
}

// ResolvedTransaction is a Transaction together with the cells its inputs and cell deps point at.
// It is a read-only view: nothing that validates it may modify it.
type ResolvedTransaction struct {
	Transaction      *Transaction
	ResolvedInputs   []*CellMeta
	ResolvedCellDeps []*CellMeta
}

// NewResolvedTransaction checks that every input is resolved and returns the view.
func NewResolvedTransaction(tx *Transaction, inputs []*CellMeta, cellDeps []*CellMeta) (*ResolvedTransaction, error) {
	resolvedTx := &ResolvedTransaction{
		Transaction:      tx,
		ResolvedInputs:   inputs,
		ResolvedCellDeps: cellDeps,
	}

	if err := resolvedTx.SyntacticallyValid(); err != nil {
		return nil, err
	}

	return resolvedTx, nil
}

// SyntacticallyValid checks the Transaction and that every input and cell dep is resolved to a cell.
func (r *ResolvedTransaction) SyntacticallyValid() error {
	if r.Transaction == nil {
		return ierrors.Wrap(ErrMalformedTransaction, "transaction is missing")
	}
	if err := r.Transaction.SyntacticallyValid(); err != nil {
		return err
	}

	if len(r.ResolvedInputs) != len(r.Transaction.Inputs) {
		return ierrors.Wrapf(ErrUnresolvedInput, "%d inputs, %d resolved", len(r.Transaction.Inputs), len(r.ResolvedInputs))
	}
	for i, input := range r.ResolvedInputs {
		if input == nil || input.Output == nil {
			return ierrors.Wrapf(ErrUnresolvedInput, "input %d", i)
		}
	}

	if len(r.ResolvedCellDeps) != len(r.Transaction.CellDeps) {
		return ierrors.Wrapf(ErrUnresolvedInput, "%d cell deps, %d resolved", len(r.Transaction.CellDeps), len(r.ResolvedCellDeps))
	}
	for i, cellDep := range r.ResolvedCellDeps {
		if cellDep == nil || cellDep.Output == nil {
			return ierrors.Wrapf(ErrUnresolvedInput, "cell dep %d", i)
		}
	}

	return nil
}

// Hash returns the hash of the underlying Transaction.
func (r *ResolvedTransaction) Hash() TransactionHash {
	return r.Transaction.Hash()
}
