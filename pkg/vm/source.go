package vm

// Source selects which cells of a transaction a query looks at.
type Source uint8

const (
	SourceInput Source = iota
	SourceOutput
	SourceCellDep
	// SourceGroupInput only covers the inputs of the currently executing script group.
	SourceGroupInput
	// SourceGroupOutput only covers the outputs of the currently executing script group.
	SourceGroupOutput
)

func (s Source) String() string {
	switch s {
	case SourceInput:
		return "Input"
	case SourceOutput:
		return "Output"
	case SourceCellDep:
		return "CellDep"
	case SourceGroupInput:
		return "GroupInput"
	case SourceGroupOutput:
		return "GroupOutput"
	default:
		return "Unknown"
	}
}

// IsInput reports whether the source covers consumed cells.
func (s Source) IsInput() bool {
	return s == SourceInput || s == SourceGroupInput
}

// IsOutput reports whether the source covers produced cells.
func (s Source) IsOutput() bool {
	return s == SourceOutput || s == SourceGroupOutput
}
