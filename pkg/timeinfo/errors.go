package timeinfo

import (
	"github.com/iotaledger/time-beacon/pkg/vm"
)

// Rejections of the time info script. The exit codes are part of the deployed contract.
var (
	ErrInvalidArgument  = vm.NewCodedError(54, "invalid time info args")
	ErrInvalidCellData  = vm.NewCodedError(55, "invalid time info cell data")
	ErrInvalidInput     = vm.NewCodedError(56, "invalid time info input")
	ErrInvalidOutput    = vm.NewCodedError(57, "invalid time info output")
	ErrInvalidTimeSince = vm.NewCodedError(58, "invalid time info since")
	ErrInvalidTimestamp = vm.NewCodedError(59, "invalid time info timestamp")
	ErrInvalidTimeIndex = vm.NewCodedError(60, "invalid time info index")
)
