package cellstore

import (
	"encoding/binary"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/time-beacon/pkg/ledger"
)

var (
	// ErrCellNotFound is returned if a referenced cell was never stored.
	ErrCellNotFound = ierrors.New("cell not found")
	// ErrCellSpent is returned if a referenced cell was already consumed.
	ErrCellSpent = ierrors.New("cell already spent")
	// ErrImmatureInput is returned if the since of an input is not satisfied yet.
	ErrImmatureInput = ierrors.New("input is locked by since")
	// ErrLedgerTimeRegression is returned if a block timestamp lies before the current ledger time.
	ErrLedgerTimeRegression = ierrors.New("ledger time must not decrease")
)

// CellConsumer is a function that consumes a cell.
// Returning false from this function indicates to abort the iteration.
type CellConsumer func(cell *ledger.CellMeta) bool

// Manager keeps the set of live cells and applies transactions to it.
type Manager struct {
	store     kvstore.KVStore
	storeLock syncutils.RWMutex

	logger log.Logger
}

// New creates a new Manager on top of the given store.
func New(store kvstore.KVStore, opts ...options.Option[Manager]) *Manager {
	return options.Apply(&Manager{
		store: store,
	}, opts)
}

// KVStore returns the underlying KVStore.
func (m *Manager) KVStore() kvstore.KVStore {
	return m.store
}

// LedgerTime returns the timestamp of the last applied block.
func (m *Manager) LedgerTime() (uint64, error) {
	m.storeLock.RLock()
	defer m.storeLock.RUnlock()

	return m.ledgerTimeWithoutLocking()
}

func (m *Manager) ledgerTimeWithoutLocking() (uint64, error) {
	value, err := m.store.Get([]byte{StoreKeyPrefixLedgerTime})
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return 0, nil
		}

		return 0, ierrors.Wrap(err, "unable to read ledger time")
	}

	if len(value) != 8 {
		return 0, ierrors.Errorf("invalid ledger time length %d", len(value))
	}

	return binary.LittleEndian.Uint64(value), nil
}

// AddGenesisCell stores a live cell that was not created by a transaction.
func (m *Manager) AddGenesisCell(cell *ledger.CellMeta) error {
	m.storeLock.Lock()
	defer m.storeLock.Unlock()

	mutations, err := m.store.Batched()
	if err != nil {
		return err
	}

	if err = storeCell(cell, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	return mutations.Commit()
}

// ReadCell returns the cell at the out point, whether it is spent or not.
func (m *Manager) ReadCell(outPoint ledger.OutPoint) (*ledger.CellMeta, error) {
	m.storeLock.RLock()
	defer m.storeLock.RUnlock()

	return m.readCellWithoutLocking(outPoint)
}

func (m *Manager) readCellWithoutLocking(outPoint ledger.OutPoint) (*ledger.CellMeta, error) {
	key := cellKey(outPoint)

	value, err := m.store.Get(key)
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ierrors.Wrapf(ErrCellNotFound, "out point %s", outPoint)
		}

		return nil, err
	}

	return cellFromKeyAndValue(key, value)
}

// ReadSpent returns the spent record of the cell at the out point.
func (m *Manager) ReadSpent(outPoint ledger.OutPoint) (*Spent, error) {
	m.storeLock.RLock()
	defer m.storeLock.RUnlock()

	key := spentKey(outPoint)

	value, err := m.store.Get(key)
	if err != nil {
		return nil, err
	}

	return spentFromKeyAndValue(key, value)
}

// IsUnspent reports whether the cell at the out point is live.
func (m *Manager) IsUnspent(outPoint ledger.OutPoint) (bool, error) {
	m.storeLock.RLock()
	defer m.storeLock.RUnlock()

	return m.store.Has(unspentKey(outPoint))
}

// ForEachUnspentCell iterates over all live cells.
func (m *Manager) ForEachUnspentCell(consumer CellConsumer) error {
	m.storeLock.RLock()
	defer m.storeLock.RUnlock()

	var outPoints []ledger.OutPoint
	var innerErr error
	if err := m.store.IterateKeys([]byte{StoreKeyPrefixCellUnspent}, func(key kvstore.Key) bool {
		outPoint, err := outPointFromKey(key)
		if err != nil {
			innerErr = err

			return false
		}
		outPoints = append(outPoints, outPoint)

		return true
	}); err != nil {
		return err
	}
	if innerErr != nil {
		return innerErr
	}

	for _, outPoint := range outPoints {
		cell, err := m.readCellWithoutLocking(outPoint)
		if err != nil {
			return err
		}

		if !consumer(cell) {
			break
		}
	}

	return nil
}

// UnspentCellsWithTypeHash returns the live cells bound to the given type script.
func (m *Manager) UnspentCellsWithTypeHash(typeHash ledger.ScriptHash) ([]*ledger.CellMeta, error) {
	var cells []*ledger.CellMeta
	if err := m.ForEachUnspentCell(func(cell *ledger.CellMeta) bool {
		if cellTypeHash, hasType := cell.Output.TypeHash(); hasType && cellTypeHash == typeHash {
			cells = append(cells, cell)
		}

		return true
	}); err != nil {
		return nil, err
	}

	return cells, nil
}

// Resolve looks up the live cells the inputs and cell deps of the transaction reference.
func (m *Manager) Resolve(tx *ledger.Transaction) (*ledger.ResolvedTransaction, error) {
	m.storeLock.RLock()
	defer m.storeLock.RUnlock()

	return m.resolveWithoutLocking(tx)
}

func (m *Manager) resolveWithoutLocking(tx *ledger.Transaction) (*ledger.ResolvedTransaction, error) {
	inputs := make([]*ledger.CellMeta, len(tx.Inputs))
	for i, input := range tx.Inputs {
		cell, err := m.liveCellWithoutLocking(input.PreviousOutput)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to resolve input %d", i)
		}
		inputs[i] = cell
	}

	cellDeps := make([]*ledger.CellMeta, len(tx.CellDeps))
	for i, cellDep := range tx.CellDeps {
		cell, err := m.liveCellWithoutLocking(cellDep.OutPoint)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to resolve cell dep %d", i)
		}
		cellDeps[i] = cell
	}

	return ledger.NewResolvedTransaction(tx, inputs, cellDeps)
}

func (m *Manager) liveCellWithoutLocking(outPoint ledger.OutPoint) (*ledger.CellMeta, error) {
	unspent, err := m.store.Has(unspentKey(outPoint))
	if err != nil {
		return nil, err
	}

	if !unspent {
		if has, hasErr := m.store.Has(cellKey(outPoint)); hasErr == nil && has {
			return nil, ierrors.Wrapf(ErrCellSpent, "out point %s", outPoint)
		}

		return nil, ierrors.Wrapf(ErrCellNotFound, "out point %s", outPoint)
	}

	return m.readCellWithoutLocking(outPoint)
}

// Apply consumes the inputs and stores the outputs of an already verified transaction in a block with the given
// timestamp. Either all changes are applied or none.
func (m *Manager) Apply(tx *ledger.ResolvedTransaction, blockTimestamp uint64) error {
	m.storeLock.Lock()
	defer m.storeLock.Unlock()

	ledgerTime, err := m.ledgerTimeWithoutLocking()
	if err != nil {
		return err
	}
	if blockTimestamp < ledgerTime {
		return ierrors.Wrapf(ErrLedgerTimeRegression, "block timestamp %d, ledger time %d", blockTimestamp, ledgerTime)
	}

	for i, input := range tx.Transaction.Inputs {
		if err = input.Since.Validate(); err != nil {
			return ierrors.Wrapf(err, "input %d", i)
		}
		if !input.Since.UnlockedAt(blockTimestamp) {
			return ierrors.Wrapf(ErrImmatureInput, "input %d unlocks at %d, block timestamp %d", i, input.Since.Value(), blockTimestamp)
		}
	}

	// the inputs might have been spent since the transaction was resolved
	if _, err = m.resolveWithoutLocking(tx.Transaction); err != nil {
		return err
	}

	txHash := tx.Hash()

	mutations, err := m.store.Batched()
	if err != nil {
		return err
	}

	for _, input := range tx.Transaction.Inputs {
		if err = markAsSpent(&Spent{
			OutPoint:        input.PreviousOutput,
			SpentBy:         txHash,
			LedgerTimeSpent: blockTimestamp,
		}, mutations); err != nil {
			mutations.Cancel()

			return err
		}
	}

	for i, output := range tx.Transaction.Outputs {
		if err = storeCell(&ledger.CellMeta{
			OutPoint: ledger.NewOutPoint(txHash, uint32(i)),
			Output:   output,
			Data:     tx.Transaction.OutputsData[i],
		}, mutations); err != nil {
			mutations.Cancel()

			return err
		}
	}

	timeBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(timeBytes, blockTimestamp)
	if err = mutations.Set([]byte{StoreKeyPrefixLedgerTime}, timeBytes); err != nil {
		mutations.Cancel()

		return err
	}

	if err = mutations.Commit(); err != nil {
		return ierrors.Wrap(err, "unable to commit transaction")
	}

	if m.logger != nil {
		m.logger.LogTrace("transaction applied", "tx", txHash, "inputs", len(tx.Transaction.Inputs), "outputs", len(tx.Transaction.Outputs), "ledgerTime", blockTimestamp)
	}

	return nil
}

func storeCell(cell *ledger.CellMeta, mutations kvstore.BatchedMutations) error {
	value, err := cellValue(cell)
	if err != nil {
		return err
	}

	if err = mutations.Set(cellKey(cell.OutPoint), value); err != nil {
		return err
	}

	return mutations.Set(unspentKey(cell.OutPoint), []byte{})
}

func markAsSpent(spent *Spent, mutations kvstore.BatchedMutations) error {
	if err := mutations.Delete(unspentKey(spent.OutPoint)); err != nil {
		return err
	}

	return mutations.Set(spentKey(spent.OutPoint), spentValue(spent))
}

// WithLogger derives the logger of the Manager from the given logger.
func WithLogger(logger log.Logger) options.Option[Manager] {
	return func(m *Manager) {
		m.logger = logger.NewChildLogger("CellStore")
	}
}
