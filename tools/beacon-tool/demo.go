package main

import (
	"fmt"

	flag "github.com/spf13/pflag"
	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/time-beacon/pkg/ledger"
	"github.com/iotaledger/time-beacon/pkg/ledger/cellstore"
	"github.com/iotaledger/time-beacon/pkg/metrics"
	"github.com/iotaledger/time-beacon/pkg/timeinfo"
	"github.com/iotaledger/time-beacon/pkg/vm"
)

// network is an in-memory cell store with the always succeeding lock and the time info type script deployed.
type network struct {
	store    *cellstore.Manager
	verifier *vm.Verifier
	metrics  *metrics.VerifierMetrics

	lock     *ledger.Script
	timeInfo ledger.ScriptHash
	cellDeps []*ledger.CellDep
}

func newNetwork(logger log.Logger, workerCount int) (*network, error) {
	n := &network{
		store:   cellstore.New(mapdb.NewMapDB(), cellstore.WithLogger(logger)),
		metrics: metrics.NewVerifierMetrics("beacon"),
	}
	n.verifier = vm.NewVerifier(logger, vm.WithMetrics(n.metrics), vm.WithWorkerCount(workerCount))

	lockHash, err := n.deploy(0, "always_success", vm.AlwaysSuccess)
	if err != nil {
		return nil, err
	}
	n.lock = ledger.NewScript(lockHash, ledger.HashTypeData1, nil)

	if n.timeInfo, err = n.deploy(1, "time_info_type_script", timeinfo.NewScript()); err != nil {
		return nil, err
	}

	return n, nil
}

func (n *network) deploy(index uint32, name string, program vm.Program) (ledger.ScriptHash, error) {
	cell := &ledger.CellMeta{
		OutPoint: ledger.NewOutPoint(ledger.TransactionHash{}, index),
		Output:   &ledger.CellOutput{Capacity: 1000, Lock: ledger.NewScript(ledger.EmptyScriptHash, ledger.HashTypeData, nil)},
		Data:     []byte(name),
	}
	if err := n.store.AddGenesisCell(cell); err != nil {
		return ledger.EmptyScriptHash, ierrors.Wrapf(err, "unable to deploy %s", name)
	}

	codeHash := ledger.ScriptHash(blake2b.Sum256(cell.Data))
	n.verifier.Register(codeHash, program)
	n.cellDeps = append(n.cellDeps, &ledger.CellDep{OutPoint: cell.OutPoint, DepType: ledger.DepTypeCode})

	return codeHash, nil
}

func (n *network) output(typeScript *ledger.Script) *ledger.CellOutput {
	return &ledger.CellOutput{Capacity: 1000, Lock: n.lock, Type: typeScript}
}

func (n *network) commit(tx *ledger.Transaction, blockTimestamp uint64) error {
	resolvedTx, err := n.store.Resolve(tx)
	if err != nil {
		return err
	}

	if err = n.verifier.Verify(resolvedTx); err != nil {
		return err
	}

	return n.store.Apply(resolvedTx, blockTimestamp)
}

func demo(args []string) error {
	flags := flag.NewFlagSet("demo", flag.ContinueOnError)
	start := flags.Uint32("start", 1000, "the timestamp of the created record")
	slot := flags.Uint8("slot", 0, "the slot of the created record")
	rounds := flags.Int("rounds", 3, "the number of updates to apply")
	workerCount := flags.Int("workers", 2, "the number of verifier workers")
	if err := flags.Parse(args); err != nil {
		return err
	}

	logger := log.NewLogger()
	n, err := newNetwork(logger, *workerCount)
	if err != nil {
		return err
	}

	funding := &ledger.CellMeta{
		OutPoint: ledger.NewOutPoint(ledger.TransactionHash{0xff}, 0),
		Output:   n.output(nil),
	}
	if err = n.store.AddGenesisCell(funding); err != nil {
		return err
	}

	typeScript := ledger.NewScript(n.timeInfo, ledger.HashTypeData1, funding.OutPoint.Bytes())
	record := timeinfo.NewRecord(*slot, *start)

	createTx := &ledger.Transaction{
		CellDeps:    n.cellDeps,
		Inputs:      []*ledger.CellInput{ledger.NewCellInput(funding.OutPoint, ledger.NoSince)},
		Outputs:     []*ledger.CellOutput{n.output(typeScript)},
		OutputsData: [][]byte{record.Bytes()},
	}
	if err = n.commit(createTx, uint64(*start)); err != nil {
		return ierrors.Wrap(err, "unable to create time info cell")
	}
	fmt.Printf("created  %s at %s\n", record, createTx.OutPoint(0))

	outPoint := createTx.OutPoint(0)
	for i := 0; i < *rounds; i++ {
		_, upperInclusive := timeinfo.AcceptanceWindow(record.Timestamp())
		since := timeinfo.RequiredSince(record.Timestamp())
		next := timeinfo.NewRecord(record.Slot(), uint32(upperInclusive))

		updateTx := &ledger.Transaction{
			CellDeps:    n.cellDeps,
			Inputs:      []*ledger.CellInput{ledger.NewCellInput(outPoint, since)},
			Outputs:     []*ledger.CellOutput{n.output(typeScript)},
			OutputsData: [][]byte{next.Bytes()},
		}
		if err = n.commit(updateTx, since.Value()); err != nil {
			return ierrors.Wrapf(err, "unable to apply update %d", i)
		}
		fmt.Printf("updated  %s at %s (since %d)\n", next, updateTx.OutPoint(0), since.Value())

		record, outPoint = next, updateTx.OutPoint(0)
	}

	cells, err := n.store.UnspentCellsWithTypeHash(typeScript.Hash())
	if err != nil {
		return err
	}
	fmt.Printf("live time info cells: %d, accepted transactions: %d\n", len(cells), n.metrics.Accepted.Load())

	return nil
}
