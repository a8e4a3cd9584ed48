package timeinfo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/time-beacon/pkg/ledger"
	"github.com/iotaledger/time-beacon/pkg/testsuite"
	"github.com/iotaledger/time-beacon/pkg/timeinfo"
	"github.com/iotaledger/time-beacon/pkg/vm"
)

func TestCreate_Success(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	for slot := uint8(0); slot < timeinfo.SlotCount; slot++ {
		for _, timestamp := range []uint32{0, 1000, 1_700_000_000, 1<<32 - 1} {
			ts.AssertAccepted(ts.CreateTimeInfo(timeinfo.NewRecord(slot, timestamp)).Transaction)
		}
	}
}

func TestCreate_InvalidTimeIndex(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	ts.AssertAccepted(ts.CreateTimeInfo(timeinfo.NewRecord(11, 1000)).Transaction)
	ts.AssertRejected(ts.CreateTimeInfo(timeinfo.NewRecord(12, 1000)).Transaction, timeinfo.ErrInvalidTimeIndex)
	ts.AssertRejected(ts.CreateTimeInfo(timeinfo.NewRecord(255, 1000)).Transaction, timeinfo.ErrInvalidTimeIndex)
}

func TestCreate_InvalidOutput(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	creation := ts.CreateTimeInfo(timeinfo.NewRecord(0, 1000))
	tx := creation.Transaction
	tx.Outputs = append(tx.Outputs, ts.Output(creation.TypeScript))
	tx.OutputsData = append(tx.OutputsData, timeinfo.NewRecord(1, 1000).Bytes())

	ts.AssertRejected(tx, timeinfo.ErrInvalidOutput)
}

func TestCreate_InvalidArgument(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	funding := ts.CreateCell(nil, nil)
	tx := ts.Transaction(
		[]*ledger.CellInput{ledger.NewCellInput(funding, ledger.NoSince)},
		[]*ledger.CellOutput{ts.Output(ts.TimeInfoScript(nil))},
		[][]byte{timeinfo.NewRecord(0, 1000).Bytes()},
	)

	ts.AssertRejected(tx, timeinfo.ErrInvalidArgument)
}

func TestCreate_InvalidCellData(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	for _, data := range [][]byte{{}, {0x00, 0x00, 0x00, 0x03}, {0x00, 0x00, 0x00, 0x03, 0xe8, 0x00}} {
		creation := ts.CreateTimeInfo(timeinfo.NewRecord(0, 1000))
		creation.Transaction.OutputsData[0] = data

		ts.AssertRejected(creation.Transaction, timeinfo.ErrInvalidCellData)
	}
}

func TestCreate_Scenario(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	creation := ts.CreateTimeInfo(timeinfo.NewRecord(1, 1_700_000_000))
	require.Len(t, creation.Transaction.Inputs, 1)
	require.Len(t, creation.Transaction.Outputs, 1)
	require.NotEmpty(t, creation.TypeScript.Args)

	ts.AssertAccepted(creation.Transaction)
}

func TestCreate_IgnoresCapacity(t *testing.T) {
	ts := testsuite.NewTestSuite(t, testsuite.WithDefaultCapacity(61))

	creation := ts.CreateTimeInfo(timeinfo.NewRecord(2, 1000))
	require.EqualValues(t, 61, creation.Transaction.Outputs[0].Capacity)

	ts.AssertAccepted(creation.Transaction)
}

func TestUpdate_Scenarios(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	outPoint, _ := ts.CreateTimeInfoCell([]byte("allocation"), timeinfo.NewRecord(0, 1000))

	// scenario B
	tx := ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(0, 1800))
	require.Equal(t, ledger.Since(uint64(1)<<62+1780), tx.Inputs[0].Since)
	ts.AssertAccepted(tx)

	// scenario C
	ts.AssertRejected(ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(0, 1720)), timeinfo.ErrInvalidTimestamp)
}

func TestUpdate_TimestampWindow(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	outPoint, _ := ts.CreateTimeInfoCell([]byte("allocation"), timeinfo.NewRecord(3, 1000))

	for _, current := range []uint32{1721, 1800, 2440} {
		ts.AssertAccepted(ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(3, current)))
	}

	for _, current := range []uint32{0, 999, 1000, 1720, 2441, 1 << 31} {
		ts.AssertRejected(ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(3, current)), timeinfo.ErrInvalidTimestamp)
	}
}

func TestUpdate_InvalidTimeSince(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	outPoint, _ := ts.CreateTimeInfoCell([]byte("allocation"), timeinfo.NewRecord(0, 1000))
	record := timeinfo.NewRecord(0, 1800)
	required := timeinfo.RequiredSince(1000)

	ts.AssertAccepted(ts.UpdateTimeInfoWithSince(outPoint, required, record))

	for _, since := range []ledger.Since{required - 1, required + 1, ledger.NoSince, ledger.Since(1780), ledger.Since(uint64(1)<<63 | 1780)} {
		ts.AssertRejected(ts.UpdateTimeInfoWithSince(outPoint, since, record), timeinfo.ErrInvalidTimeSince)
	}
}

func TestUpdate_InvalidTimeIndex(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	outPoint, _ := ts.CreateTimeInfoCell([]byte("allocation"), timeinfo.NewRecord(0, 1000))

	ts.AssertRejected(ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(1, 1800)), timeinfo.ErrInvalidTimeIndex)
	ts.AssertRejected(ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(11, 1800)), timeinfo.ErrInvalidTimeIndex)

	// an earlier check wins if the timestamp is invalid as well
	ts.AssertRejected(ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(1, 1720)), timeinfo.ErrInvalidTimestamp)
}

func TestUpdate_CheckOrder(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	outPoint, _ := ts.CreateTimeInfoCell([]byte("allocation"), timeinfo.NewRecord(0, 1000))
	badSince := timeinfo.RequiredSince(1000) + 1

	tests := []struct {
		name   string
		since  ledger.Since
		record *timeinfo.Record
		err    error
	}{
		{
			name:   "timestamp before since",
			since:  badSince,
			record: timeinfo.NewRecord(0, 1720),
			err:    timeinfo.ErrInvalidTimestamp,
		},
		{
			name:   "timestamp before since and slot",
			since:  badSince,
			record: timeinfo.NewRecord(1, 2441),
			err:    timeinfo.ErrInvalidTimestamp,
		},
		{
			name:   "since before slot",
			since:  badSince,
			record: timeinfo.NewRecord(1, 1800),
			err:    timeinfo.ErrInvalidTimeSince,
		},
		{
			name:   "slot",
			since:  timeinfo.RequiredSince(1000),
			record: timeinfo.NewRecord(1, 1800),
			err:    timeinfo.ErrInvalidTimeIndex,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ts.AssertRejected(ts.UpdateTimeInfoWithSince(outPoint, test.since, test.record), test.err)
		})
	}
}

func TestCreate_CheckOrder(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	funding := ts.CreateCell(nil, nil)
	typeScript := ts.TimeInfoScript(nil)
	tx := ts.Transaction(
		[]*ledger.CellInput{ledger.NewCellInput(funding, ledger.NoSince)},
		[]*ledger.CellOutput{ts.Output(typeScript), ts.Output(typeScript)},
		[][]byte{timeinfo.NewRecord(0, 1000).Bytes(), timeinfo.NewRecord(12, 1000).Bytes()},
	)

	// cardinality is checked before the args and the record
	ts.AssertRejected(tx, timeinfo.ErrInvalidOutput)

	// args are checked before the record
	tx.Outputs, tx.OutputsData = tx.Outputs[:1], [][]byte{{0x0c}}
	ts.AssertRejected(tx, timeinfo.ErrInvalidArgument)
}

func TestUpdate_InvalidCellData(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	outPoint, _ := ts.CreateTimeInfoCell([]byte("allocation"), timeinfo.NewRecord(0, 1000))
	tx := ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(0, 1800))
	tx.OutputsData[0] = tx.OutputsData[0][:4]
	ts.AssertRejected(tx, timeinfo.ErrInvalidCellData)

	typeScript := ts.TimeInfoScript([]byte("broken"))
	brokenOutPoint := ts.CreateCell(typeScript, []byte{0x00, 0x00})
	ts.AssertRejected(ts.UpdateTimeInfoWithSince(brokenOutPoint, timeinfo.RequiredSince(0), timeinfo.NewRecord(0, 800)), timeinfo.ErrInvalidCellData)
}

func TestUpdate_InvalidInput(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	record := timeinfo.NewRecord(0, 1000)
	first, typeScript := ts.CreateTimeInfoCell([]byte("allocation"), record)
	second := ts.CreateCell(typeScript, record.Bytes())

	tx := ts.Transaction(
		[]*ledger.CellInput{
			ledger.NewCellInput(first, timeinfo.RequiredSince(1000)),
			ledger.NewCellInput(second, timeinfo.RequiredSince(1000)),
		},
		[]*ledger.CellOutput{ts.Output(typeScript)},
		[][]byte{timeinfo.NewRecord(0, 1800).Bytes()},
	)

	ts.AssertRejected(tx, timeinfo.ErrInvalidInput)
}

func TestUpdate_InvalidOutput(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	outPoint, typeScript := ts.CreateTimeInfoCell([]byte("allocation"), timeinfo.NewRecord(0, 1000))

	// the record is destroyed
	destroy := ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(0, 1800))
	destroy.Outputs[0] = ts.Output(nil)
	ts.AssertRejected(destroy, timeinfo.ErrInvalidOutput)

	// the record is duplicated
	duplicate := ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(0, 1800))
	duplicate.Outputs = append(duplicate.Outputs, ts.Output(typeScript))
	duplicate.OutputsData = append(duplicate.OutputsData, timeinfo.NewRecord(0, 1800).Bytes())
	ts.AssertRejected(duplicate, timeinfo.ErrInvalidOutput)

	// the successor is bound to different args, which makes it a different identity
	substitute := ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(0, 1800))
	substitute.Outputs[0] = ts.Output(ts.TimeInfoScript([]byte("other allocation")))
	ts.AssertRejected(substitute, timeinfo.ErrInvalidOutput)
}

func TestUpdate_EmptyArgs(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	outPoint, _ := ts.CreateTimeInfoCell(nil, timeinfo.NewRecord(0, 1000))

	ts.AssertRejected(ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(0, 1800)), timeinfo.ErrInvalidArgument)
}

func TestUpdate_Idempotent(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	outPoint, _ := ts.CreateTimeInfoCell([]byte("allocation"), timeinfo.NewRecord(0, 1000))
	resolvedTx := ts.Resolve(ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(0, 1720)))

	first := ts.Verifier.Verify(resolvedTx)
	second := ts.Verifier.Verify(resolvedTx)
	require.ErrorIs(t, first, timeinfo.ErrInvalidTimestamp)
	require.ErrorIs(t, second, timeinfo.ErrInvalidTimestamp)
	require.Equal(t, first.Error(), second.Error())
}

func TestLifecycle(t *testing.T) {
	ts := testsuite.NewTestSuite(t)

	creation := ts.CreateTimeInfo(timeinfo.NewRecord(5, 1000))
	ts.Commit(creation.Transaction, 1000)
	outPoint := creation.Transaction.OutPoint(0)

	for round := uint32(1); round <= 3; round++ {
		current := 1000 + round*(timeinfo.RoundDuration+timeinfo.SlotInterval)
		tx := ts.UpdateTimeInfo(outPoint, timeinfo.NewRecord(5, current))

		// the ledger refuses the update before the since expired
		resolvedTx := ts.Resolve(tx)
		require.NoError(t, ts.Verifier.Verify(resolvedTx))
		require.Error(t, ts.Store.Apply(resolvedTx, tx.Inputs[0].Since.Value()-1))

		ts.Commit(tx, tx.Inputs[0].Since.Value())
		outPoint = tx.OutPoint(0)
	}

	cells, err := ts.Store.UnspentCellsWithTypeHash(creation.TypeScript.Hash())
	require.NoError(t, err)
	require.Len(t, cells, 1)

	record, err := timeinfo.RecordFromBytes(cells[0].Data)
	require.NoError(t, err)
	require.EqualValues(t, 5, record.Slot())
	require.EqualValues(t, 1000+3*(timeinfo.RoundDuration+timeinfo.SlotInterval), record.Timestamp())

	require.EqualValues(t, 7, ts.Metrics.Accepted.Load())
	require.EqualValues(t, 0, vm.ExitCode(nil))
}
