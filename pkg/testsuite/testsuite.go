package testsuite

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/time-beacon/pkg/ledger"
	"github.com/iotaledger/time-beacon/pkg/ledger/cellstore"
	"github.com/iotaledger/time-beacon/pkg/metrics"
	"github.com/iotaledger/time-beacon/pkg/vm"
)

// AlwaysSuccessProgram is the name the always succeeding lock program is deployed under.
const AlwaysSuccessProgram = "always_success"

// TestSuite deploys programs and cells into an in-memory cell store and verifies transactions against them.
type TestSuite struct {
	Testing *testing.T

	Logger   log.Logger
	Store    *cellstore.Manager
	Verifier *vm.Verifier
	Metrics  *metrics.VerifierMetrics

	deployments     *shrinkingmap.ShrinkingMap[string, *ledger.CellMeta]
	deploymentOrder []string
	cellCounter     uint32

	optsDefaultCapacity uint64
	optsWorkerCount     int
}

// NewTestSuite creates a new TestSuite with the always succeeding lock program deployed.
func NewTestSuite(testingT *testing.T, opts ...options.Option[TestSuite]) *TestSuite {
	return options.Apply(&TestSuite{
		Testing:             testingT,
		Logger:              log.NewLogger(),
		Metrics:             metrics.NewVerifierMetrics("testsuite"),
		deployments:         shrinkingmap.New[string, *ledger.CellMeta](),
		optsDefaultCapacity: 1000,
		optsWorkerCount:     2,
	}, opts, func(t *TestSuite) {
		t.Store = cellstore.New(mapdb.NewMapDB(), cellstore.WithLogger(t.Logger))
		t.Verifier = vm.NewVerifier(t.Logger, vm.WithMetrics(t.Metrics), vm.WithWorkerCount(t.optsWorkerCount))

		t.DeployProgram(AlwaysSuccessProgram, vm.AlwaysSuccess)
	})
}

// DeployProgram stores a code cell for the program and registers the program under the hash of the cell data.
func (t *TestSuite) DeployProgram(name string, program vm.Program) ledger.ScriptHash {
	codeHash := ledger.ScriptHash(blake2b.Sum256([]byte(name)))

	cell := &ledger.CellMeta{
		OutPoint: t.nextGenesisOutPoint(),
		Output: &ledger.CellOutput{
			Capacity: t.optsDefaultCapacity,
			Lock:     ledger.NewScript(ledger.EmptyScriptHash, ledger.HashTypeData, nil),
		},
		Data: []byte(name),
	}
	require.NoError(t.Testing, t.Store.AddGenesisCell(cell))

	t.Verifier.Register(codeHash, program)
	if t.deployments.Set(name, cell) {
		t.deploymentOrder = append(t.deploymentOrder, name)
	}

	return codeHash
}

// Script returns a script running the deployed program with the given args.
func (t *TestSuite) Script(programName string, args []byte) *ledger.Script {
	deployment, exists := t.deployments.Get(programName)
	require.Truef(t.Testing, exists, "program %s is not deployed", programName)

	return ledger.NewScript(blake2b.Sum256(deployment.Data), ledger.HashTypeData1, args)
}

// AlwaysSuccessLock returns the lock every cell of the TestSuite is guarded by.
func (t *TestSuite) AlwaysSuccessLock() *ledger.Script {
	return t.Script(AlwaysSuccessProgram, nil)
}

// CellDeps returns a cell dep for every deployed program.
func (t *TestSuite) CellDeps() []*ledger.CellDep {
	cellDeps := make([]*ledger.CellDep, 0, t.deployments.Size())
	for _, name := range t.deploymentOrder {
		if deployment, exists := t.deployments.Get(name); exists {
			cellDeps = append(cellDeps, &ledger.CellDep{OutPoint: deployment.OutPoint, DepType: ledger.DepTypeCode})
		}
	}

	return cellDeps
}

// CreateCell stores a live cell guarded by the always succeeding lock.
func (t *TestSuite) CreateCell(typeScript *ledger.Script, data []byte) ledger.OutPoint {
	cell := &ledger.CellMeta{
		OutPoint: t.nextGenesisOutPoint(),
		Output:   t.Output(typeScript),
		Data:     data,
	}
	require.NoError(t.Testing, t.Store.AddGenesisCell(cell))

	return cell.OutPoint
}

// Output returns a cell output guarded by the always succeeding lock.
func (t *TestSuite) Output(typeScript *ledger.Script) *ledger.CellOutput {
	return &ledger.CellOutput{
		Capacity: t.optsDefaultCapacity,
		Lock:     t.AlwaysSuccessLock(),
		Type:     typeScript,
	}
}

// Transaction builds a transaction that depends on every deployed program.
func (t *TestSuite) Transaction(inputs []*ledger.CellInput, outputs []*ledger.CellOutput, outputsData [][]byte) *ledger.Transaction {
	return &ledger.Transaction{
		CellDeps:    t.CellDeps(),
		Inputs:      inputs,
		Outputs:     outputs,
		OutputsData: outputsData,
	}
}

// Resolve resolves the transaction against the cell store.
func (t *TestSuite) Resolve(tx *ledger.Transaction) *ledger.ResolvedTransaction {
	resolvedTx, err := t.Store.Resolve(tx)
	require.NoError(t.Testing, err)

	return resolvedTx
}

// Verify resolves and verifies the transaction.
func (t *TestSuite) Verify(tx *ledger.Transaction) error {
	return t.Verifier.Verify(t.Resolve(tx))
}

// AssertAccepted requires the transaction to pass verification.
func (t *TestSuite) AssertAccepted(tx *ledger.Transaction) {
	require.NoError(t.Testing, t.Verify(tx))
}

// AssertRejected requires the transaction to be rejected with the expected error by a type script group.
func (t *TestSuite) AssertRejected(tx *ledger.Transaction, expectedErr error) {
	err := t.Verify(tx)
	require.ErrorIs(t.Testing, err, expectedErr)

	var scriptErr *vm.ScriptError
	require.True(t.Testing, ierrors.As(err, &scriptErr))
	require.Equal(t.Testing, vm.GroupKindType, scriptErr.Group.Kind)
	require.Equal(t.Testing, vm.ExitCode(expectedErr), vm.ExitCode(err))
}

// Commit verifies the transaction and applies it in a block with the given timestamp.
func (t *TestSuite) Commit(tx *ledger.Transaction, blockTimestamp uint64) {
	resolvedTx := t.Resolve(tx)
	require.NoError(t.Testing, t.Verifier.Verify(resolvedTx))
	require.NoError(t.Testing, t.Store.Apply(resolvedTx, blockTimestamp))
}

func (t *TestSuite) nextGenesisOutPoint() ledger.OutPoint {
	t.cellCounter++

	seed := make([]byte, 4)
	binary.LittleEndian.PutUint32(seed, t.cellCounter)

	return ledger.NewOutPoint(blake2b.Sum256(append([]byte("genesis"), seed...)), 0)
}

// WithDefaultCapacity sets the capacity of the cells the TestSuite creates.
func WithDefaultCapacity(capacity uint64) options.Option[TestSuite] {
	return func(t *TestSuite) {
		t.optsDefaultCapacity = capacity
	}
}

// WithWorkerCount sets the number of workers of the Verifier.
func WithWorkerCount(workerCount int) options.Option[TestSuite] {
	return func(t *TestSuite) {
		t.optsWorkerCount = workerCount
	}
}
