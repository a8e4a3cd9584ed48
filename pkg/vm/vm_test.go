package vm_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/time-beacon/pkg/ledger"
	"github.com/iotaledger/time-beacon/pkg/metrics"
	"github.com/iotaledger/time-beacon/pkg/vm"
)

var (
	alwaysSuccessCodeHash = ledger.ScriptHash{0xa1}
	alwaysFailureCodeHash = ledger.ScriptHash{0xa2}
	recordingCodeHash     = ledger.ScriptHash{0xb2}
	errRejected           = vm.NewCodedError(42, "rejected")
)

type framework struct {
	lock     *ledger.Script
	typeA    *ledger.Script
	typeB    *ledger.Script
	tx       *ledger.ResolvedTransaction
	verifier *vm.Verifier
	metrics  *metrics.VerifierMetrics
	contexts []*vm.Context
	mutex    sync.Mutex
}

func newFramework(t *testing.T, recording vm.Program) *framework {
	f := &framework{
		lock:    ledger.NewScript(alwaysSuccessCodeHash, ledger.HashTypeData1, nil),
		typeA:   ledger.NewScript(recordingCodeHash, ledger.HashTypeData1, []byte("a")),
		typeB:   ledger.NewScript(recordingCodeHash, ledger.HashTypeData1, []byte("b")),
		metrics: metrics.NewVerifierMetrics("test"),
	}

	tx := &ledger.Transaction{
		Inputs: []*ledger.CellInput{
			ledger.NewCellInput(ledger.NewOutPoint(ledger.TransactionHash{1}, 0), ledger.NewAbsoluteTimestampSince(10)),
			ledger.NewCellInput(ledger.NewOutPoint(ledger.TransactionHash{1}, 1), ledger.NoSince),
			ledger.NewCellInput(ledger.NewOutPoint(ledger.TransactionHash{1}, 2), ledger.NewAbsoluteTimestampSince(30)),
		},
		Outputs: []*ledger.CellOutput{
			{Lock: f.lock, Type: f.typeB},
			{Lock: f.lock, Type: f.typeA},
		},
		OutputsData: [][]byte{[]byte("out-b"), []byte("out-a")},
	}

	inputs := []*ledger.CellMeta{
		{OutPoint: tx.Inputs[0].PreviousOutput, Output: &ledger.CellOutput{Lock: f.lock, Type: f.typeA}, Data: []byte("in-a-0")},
		{OutPoint: tx.Inputs[1].PreviousOutput, Output: &ledger.CellOutput{Lock: f.lock}, Data: []byte("plain")},
		{OutPoint: tx.Inputs[2].PreviousOutput, Output: &ledger.CellOutput{Lock: f.lock, Type: f.typeA}, Data: []byte("in-a-2")},
	}

	resolvedTx, err := ledger.NewResolvedTransaction(tx, inputs, nil)
	require.NoError(t, err)
	f.tx = resolvedTx

	f.verifier = vm.NewVerifier(log.NewLogger(), vm.WithMetrics(f.metrics), vm.WithWorkerCount(2))
	f.verifier.Register(alwaysSuccessCodeHash, vm.AlwaysSuccess)
	f.verifier.Register(alwaysFailureCodeHash, vm.AlwaysFailure)
	f.verifier.Register(recordingCodeHash, vm.ProgramFunc(func(ctx *vm.Context) error {
		f.mutex.Lock()
		f.contexts = append(f.contexts, ctx)
		f.mutex.Unlock()

		return recording.Execute(ctx)
	}))

	return f
}

func TestScriptGroups(t *testing.T) {
	f := newFramework(t, vm.AlwaysSuccess)

	groups := vm.ScriptGroups(f.tx)
	require.Len(t, groups, 3)

	require.Equal(t, vm.GroupKindLock, groups[0].Kind)
	require.Equal(t, []int{0, 1, 2}, groups[0].InputIndices)
	require.Empty(t, groups[0].OutputIndices)

	require.Equal(t, vm.GroupKindType, groups[1].Kind)
	require.Equal(t, f.typeA.Hash(), groups[1].ScriptHash)
	require.Equal(t, []int{0, 2}, groups[1].InputIndices)
	require.Equal(t, []int{1}, groups[1].OutputIndices)

	require.Equal(t, vm.GroupKindType, groups[2].Kind)
	require.Equal(t, f.typeB.Hash(), groups[2].ScriptHash)
	require.Empty(t, groups[2].InputIndices)
	require.Equal(t, []int{0}, groups[2].OutputIndices)
}

func TestContext_Queries(t *testing.T) {
	f := newFramework(t, vm.AlwaysSuccess)
	require.NoError(t, f.verifier.Verify(f.tx))
	require.Len(t, f.contexts, 2)

	ctx := f.contexts[0]
	require.Equal(t, f.tx.Hash(), ctx.TransactionHash())
	require.Equal(t, f.typeA.Hash(), ctx.ScriptHash())
	require.Equal(t, []byte("a"), ctx.Args())
	require.True(t, f.typeA.Equal(ctx.Script()))

	require.Equal(t, 3, ctx.Len(vm.SourceInput))
	require.Equal(t, 2, ctx.Len(vm.SourceOutput))
	require.Equal(t, 2, ctx.Len(vm.SourceGroupInput))
	require.Equal(t, 1, ctx.Len(vm.SourceGroupOutput))
	require.Equal(t, 0, ctx.Len(vm.SourceCellDep))

	require.Equal(t, 2, ctx.CountCellsWithTypeHash(ctx.ScriptHash(), vm.SourceInput))
	require.Equal(t, 1, ctx.CountCellsWithTypeHash(ctx.ScriptHash(), vm.SourceOutput))
	require.Equal(t, 1, ctx.CountCellsWithTypeHash(f.typeB.Hash(), vm.SourceOutput))

	index, err := ctx.FindCellWithTypeHash(ctx.ScriptHash(), vm.SourceOutput)
	require.NoError(t, err)
	require.Equal(t, 1, index)

	data, err := ctx.LoadCellDataWithTypeHash(ctx.ScriptHash(), vm.SourceInput)
	require.NoError(t, err)
	require.Equal(t, []byte("in-a-0"), data)

	data, err = ctx.LoadCellData(1, vm.SourceGroupInput)
	require.NoError(t, err)
	require.Equal(t, []byte("in-a-2"), data)

	args, err := ctx.InputTypeArgs(ctx.ScriptHash())
	require.NoError(t, err)
	require.Equal(t, []byte("a"), args)

	sinces, err := ctx.InputSincesWithTypeHash(ctx.ScriptHash())
	require.NoError(t, err)
	require.Equal(t, []ledger.Since{ledger.NewAbsoluteTimestampSince(10), ledger.NewAbsoluteTimestampSince(30)}, sinces)

	typeHash, hasType, err := ctx.LoadCellTypeHash(1, vm.SourceInput)
	require.NoError(t, err)
	require.False(t, hasType)
	require.Equal(t, ledger.EmptyScriptHash, typeHash)

	typeHashes := ctx.TypeHashes(vm.SourceInput)
	require.Len(t, typeHashes, 3)
	require.Nil(t, typeHashes[1])
}

func TestContext_Errors(t *testing.T) {
	f := newFramework(t, vm.AlwaysSuccess)
	require.NoError(t, f.verifier.Verify(f.tx))

	ctx := f.contexts[1]

	_, err := ctx.FindCellWithTypeHash(ctx.ScriptHash(), vm.SourceInput)
	require.ErrorIs(t, err, vm.ErrItemMissing)
	require.EqualValues(t, 2, vm.ExitCode(err))

	_, err = ctx.InputTypeArgs(ctx.ScriptHash())
	require.ErrorIs(t, err, vm.ErrItemMissing)

	_, err = ctx.LoadCell(3, vm.SourceInput)
	require.ErrorIs(t, err, vm.ErrIndexOutOfBound)
	require.EqualValues(t, 1, vm.ExitCode(err))

	_, err = ctx.LoadCell(-1, vm.SourceOutput)
	require.ErrorIs(t, err, vm.ErrIndexOutOfBound)

	_, err = ctx.LoadCellData(0, vm.SourceGroupInput)
	require.ErrorIs(t, err, vm.ErrIndexOutOfBound)

	_, err = ctx.LoadInputSince(0, vm.SourceOutput)
	require.ErrorIs(t, err, vm.ErrItemMissing)
}

func TestVerifier_Rejection(t *testing.T) {
	f := newFramework(t, vm.ProgramFunc(func(ctx *vm.Context) error {
		if string(ctx.Args()) == "b" {
			return ierrors.Wrap(errRejected, "group b")
		}

		return nil
	}))

	err := f.verifier.Verify(f.tx)
	require.ErrorIs(t, err, errRejected)
	require.EqualValues(t, 42, vm.ExitCode(err))

	var scriptErr *vm.ScriptError
	require.True(t, ierrors.As(err, &scriptErr))
	require.Equal(t, f.typeB.Hash(), scriptErr.Group.ScriptHash)
	require.Contains(t, scriptErr.Error(), "ValidationFailure(42) by output type script 0")

	require.EqualValues(t, 0, f.metrics.Accepted.Load())
	require.EqualValues(t, 1, f.metrics.Rejected.Load())
	require.EqualValues(t, 3, f.metrics.ExecutedGroups.Load())
}

func TestVerifier_LockRejection(t *testing.T) {
	f := newFramework(t, vm.AlwaysSuccess)
	f.tx.ResolvedInputs[1].Output.Lock = ledger.NewScript(alwaysFailureCodeHash, ledger.HashTypeData1, nil)

	err := f.verifier.Verify(f.tx)
	require.ErrorIs(t, err, vm.ErrUnknownExitState)
	require.EqualValues(t, -1, vm.ExitCode(err))

	var scriptErr *vm.ScriptError
	require.True(t, ierrors.As(err, &scriptErr))
	require.Equal(t, vm.GroupKindLock, scriptErr.Group.Kind)
	require.Contains(t, scriptErr.Error(), "by input lock script 1")

	// lock groups run before any type group
	require.Empty(t, f.contexts)
}

func TestVerifier_AlteredView(t *testing.T) {
	f := newFramework(t, vm.ProgramFunc(func(ctx *vm.Context) error {
		_, err := ctx.LoadCellData(1, vm.SourceOutput)

		return err
	}))
	require.NoError(t, f.verifier.Verify(f.tx))

	f.tx.Transaction.Outputs = append(f.tx.Transaction.Outputs, &ledger.CellOutput{Lock: f.lock, Type: f.typeA})
	require.ErrorIs(t, f.verifier.Verify(f.tx), ledger.ErrMalformedTransaction)

	f.tx.Transaction.OutputsData = append(f.tx.Transaction.OutputsData, nil)
	f.tx.ResolvedInputs = f.tx.ResolvedInputs[:2]
	require.ErrorIs(t, f.verifier.Verify(f.tx), ledger.ErrUnresolvedInput)

	f.tx.ResolvedInputs = append(f.tx.ResolvedInputs, nil)
	require.ErrorIs(t, f.verifier.Verify(f.tx), ledger.ErrUnresolvedInput)

	f.tx.Transaction.CellDeps = []*ledger.CellDep{nil}
	require.ErrorIs(t, f.verifier.Verify(f.tx), ledger.ErrMalformedTransaction)

	require.EqualValues(t, 1, f.metrics.Accepted.Load())
	require.EqualValues(t, 4, f.metrics.Rejected.Load())
}

func TestContext_AlteredView(t *testing.T) {
	f := newFramework(t, vm.AlwaysSuccess)
	require.NoError(t, f.verifier.Verify(f.tx))

	ctx := f.contexts[0]
	f.tx.Transaction.Outputs = append(f.tx.Transaction.Outputs, &ledger.CellOutput{Lock: f.lock, Type: f.typeA})
	f.tx.Transaction.Inputs = f.tx.Transaction.Inputs[:2]

	_, err := ctx.LoadCellData(2, vm.SourceOutput)
	require.ErrorIs(t, err, vm.ErrIndexOutOfBound)

	_, err = ctx.LoadInputSince(1, vm.SourceGroupInput)
	require.ErrorIs(t, err, vm.ErrIndexOutOfBound)

	require.Equal(t, 1, ctx.CountCellsWithTypeHash(ctx.ScriptHash(), vm.SourceOutput))
}

func TestVerifier_ProgramNotFound(t *testing.T) {
	f := newFramework(t, vm.AlwaysSuccess)
	f.tx.Transaction.Outputs[0].Type = ledger.NewScript(ledger.ScriptHash{0xff}, ledger.HashTypeType, nil)

	err := f.verifier.Verify(f.tx)
	require.ErrorIs(t, err, vm.ErrProgramNotFound)
	require.EqualValues(t, -1, vm.ExitCode(err))

	_, exists := f.verifier.Program(ledger.ScriptHash{0xff})
	require.False(t, exists)
}

func TestVerifier_VerifyBatch(t *testing.T) {
	f := newFramework(t, vm.ProgramFunc(func(ctx *vm.Context) error {
		if ctx.Len(vm.SourceGroupInput) > 0 {
			return nil
		}

		return errRejected
	}))

	otherTx, err := ledger.NewResolvedTransaction(&ledger.Transaction{
		Inputs:      f.tx.Transaction.Inputs[1:2],
		Outputs:     []*ledger.CellOutput{{Lock: f.lock}},
		OutputsData: [][]byte{nil},
	}, f.tx.ResolvedInputs[1:2], nil)
	require.NoError(t, err)

	verdicts := f.verifier.VerifyBatch(context.Background(), []*ledger.ResolvedTransaction{f.tx, otherTx, f.tx, otherTx})
	require.Len(t, verdicts, 4)
	require.ErrorIs(t, verdicts[0], errRejected)
	require.NoError(t, verdicts[1])
	require.ErrorIs(t, verdicts[2], errRejected)
	require.NoError(t, verdicts[3])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, verdict := range f.verifier.VerifyBatch(ctx, []*ledger.ResolvedTransaction{otherTx, otherTx}) {
		require.ErrorIs(t, verdict, context.Canceled)
	}
}

func TestExitCode(t *testing.T) {
	require.EqualValues(t, 0, vm.ExitCode(nil))
	require.EqualValues(t, -1, vm.ExitCode(ierrors.New("plain")))
	require.EqualValues(t, 4, vm.ExitCode(ierrors.Wrap(vm.ErrEncoding, "wrapped")))
	require.EqualValues(t, 3, vm.ExitCode(&vm.ScriptError{Group: &vm.ScriptGroup{}, Err: vm.ErrLengthNotEnough}))
}
