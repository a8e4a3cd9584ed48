package vm

import (
	"context"
	"sync"

	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/workerpool"
	"github.com/iotaledger/time-beacon/pkg/ledger"
	"github.com/iotaledger/time-beacon/pkg/metrics"
)

// Verifier runs the registered programs over the script groups of resolved transactions.
type Verifier struct {
	log.Logger

	programs *shrinkingmap.ShrinkingMap[ledger.ScriptHash, Program]
	metrics  *metrics.VerifierMetrics

	optsWorkerCount int
}

// NewVerifier creates a new Verifier.
func NewVerifier(logger log.Logger, opts ...options.Option[Verifier]) *Verifier {
	return options.Apply(&Verifier{
		Logger:          logger.NewChildLogger("Verifier"),
		programs:        shrinkingmap.New[ledger.ScriptHash, Program](),
		optsWorkerCount: 4,
	}, opts)
}

// Register binds a program to the code hash scripts reference it by.
func (v *Verifier) Register(codeHash ledger.ScriptHash, program Program) {
	v.programs.Set(codeHash, program)
}

// Program returns the program registered for the code hash.
func (v *Verifier) Program(codeHash ledger.ScriptHash) (Program, bool) {
	return v.programs.Get(codeHash)
}

// Verify executes every script group of the transaction. The first rejecting group aborts the verification and
// is returned as a *ScriptError. A view that is no longer syntactically valid is rejected before any program runs.
func (v *Verifier) Verify(tx *ledger.ResolvedTransaction) error {
	if err := tx.SyntacticallyValid(); err != nil {
		v.LogDebug("malformed transaction rejected", "err", err)
		if v.metrics != nil {
			v.metrics.TrackRejected(ExitCode(err))
		}

		return err
	}

	txHash := tx.Hash()

	for _, group := range ScriptGroups(tx) {
		if err := v.executeGroup(tx, group); err != nil {
			v.LogDebug("transaction rejected", "tx", txHash, "group", group, "exitCode", ExitCode(err), "err", err)
			if v.metrics != nil {
				v.metrics.TrackRejected(ExitCode(err))
			}

			return &ScriptError{Group: group, Err: err}
		}
	}

	v.LogTrace("transaction accepted", "tx", txHash)
	if v.metrics != nil {
		v.metrics.TrackAccepted()
	}

	return nil
}

// VerifyBatch verifies independent transactions in parallel and returns their verdicts in input order.
func (v *Verifier) VerifyBatch(ctx context.Context, txs []*ledger.ResolvedTransaction) []error {
	verdicts := make([]error, len(txs))

	wp := workerpool.New("VerifyBatch", workerpool.WithWorkerCount(v.optsWorkerCount)).Start()
	defer wp.Shutdown()

	var wg sync.WaitGroup
	for i, tx := range txs {
		if ctx.Err() != nil {
			verdicts[i] = ctx.Err()

			continue
		}

		wg.Add(1)
		wp.Submit(func() {
			defer wg.Done()

			verdicts[i] = v.Verify(tx)
		})
	}
	wg.Wait()

	return verdicts
}

func (v *Verifier) executeGroup(tx *ledger.ResolvedTransaction, group *ScriptGroup) error {
	program, exists := v.programs.Get(group.Script.CodeHash)
	if !exists {
		return ierrors.Wrapf(ErrProgramNotFound, "code hash %s", group.Script.CodeHash)
	}

	if v.metrics != nil {
		v.metrics.TrackGroupExecuted()
	}

	return program.Execute(NewContext(tx, group))
}

// WithMetrics tracks the verdicts of the Verifier in the given metrics.
func WithMetrics(verifierMetrics *metrics.VerifierMetrics) options.Option[Verifier] {
	return func(v *Verifier) {
		v.metrics = verifierMetrics
	}
}

// WithWorkerCount sets the number of workers VerifyBatch uses.
func WithWorkerCount(workerCount int) options.Option[Verifier] {
	return func(v *Verifier) {
		v.optsWorkerCount = workerCount
	}
}
