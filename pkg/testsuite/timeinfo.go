package testsuite

import (
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/time-beacon/pkg/ledger"
	"github.com/iotaledger/time-beacon/pkg/timeinfo"
)

// TimeInfoProgram is the name the time info type script is deployed under.
const TimeInfoProgram = "time_info_type_script"

// TimeInfoCreation is a transaction creating a time info cell, together with the script that guards it.
type TimeInfoCreation struct {
	Transaction *ledger.Transaction
	TypeScript  *ledger.Script
}

// DeployTimeInfo deploys the time info type script if it was not deployed yet.
func (t *TestSuite) DeployTimeInfo() {
	if _, exists := t.deployments.Get(TimeInfoProgram); !exists {
		t.DeployProgram(TimeInfoProgram, timeinfo.NewScript())
	}
}

// TimeInfoScript returns the time info type script with the given args.
func (t *TestSuite) TimeInfoScript(args []byte) *ledger.Script {
	t.DeployTimeInfo()

	return t.Script(TimeInfoProgram, args)
}

// CreateTimeInfo builds a transaction that consumes a fresh plain cell and creates a time info cell bound to the
// out point of that cell.
func (t *TestSuite) CreateTimeInfo(record *timeinfo.Record) *TimeInfoCreation {
	funding := t.CreateCell(nil, nil)
	typeScript := t.TimeInfoScript(funding.Bytes())

	return &TimeInfoCreation{
		Transaction: t.Transaction(
			[]*ledger.CellInput{ledger.NewCellInput(funding, ledger.NoSince)},
			[]*ledger.CellOutput{t.Output(typeScript)},
			[][]byte{record.Bytes()},
		),
		TypeScript: typeScript,
	}
}

// CreateTimeInfoCell stores a live time info cell without a creating transaction.
func (t *TestSuite) CreateTimeInfoCell(args []byte, record *timeinfo.Record) (ledger.OutPoint, *ledger.Script) {
	typeScript := t.TimeInfoScript(args)

	return t.CreateCell(typeScript, record.Bytes()), typeScript
}

// UpdateTimeInfo builds a transaction that consumes the time info cell with the since the update rule requires
// and produces its successor with the given record.
func (t *TestSuite) UpdateTimeInfo(outPoint ledger.OutPoint, record *timeinfo.Record) *ledger.Transaction {
	cell, err := t.Store.ReadCell(outPoint)
	require.NoError(t.Testing, err)

	last, err := timeinfo.RecordFromBytes(cell.Data)
	require.NoError(t.Testing, err)

	return t.UpdateTimeInfoWithSince(outPoint, timeinfo.RequiredSince(last.Timestamp()), record)
}

// UpdateTimeInfoWithSince builds a transaction that consumes the time info cell with the given since.
func (t *TestSuite) UpdateTimeInfoWithSince(outPoint ledger.OutPoint, since ledger.Since, record *timeinfo.Record) *ledger.Transaction {
	cell, err := t.Store.ReadCell(outPoint)
	require.NoError(t.Testing, err)

	return t.Transaction(
		[]*ledger.CellInput{ledger.NewCellInput(outPoint, since)},
		[]*ledger.CellOutput{t.Output(cell.Output.Type)},
		[][]byte{record.Bytes()},
	)
}
