package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/time-beacon/pkg/timeinfo"
	"github.com/iotaledger/time-beacon/pkg/vm"
)

const usage = `usage: beacon-tool <command> [flags]

commands:
  encode   encode a time info record
  decode   decode the hex data of a time info cell
  window   print the acceptance window and the required since for a last timestamp
  demo     create a time info cell and update it in an in-memory cell store
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "encode":
		err = encode(os.Args[2:])
	case "decode":
		err = decode(os.Args[2:])
	case "window":
		err = window(os.Args[2:])
	case "demo":
		err = demo(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		if exitCode := vm.ExitCode(err); exitCode > 0 {
			os.Exit(int(exitCode))
		}
		os.Exit(1)
	}
}

func encode(args []string) error {
	flags := flag.NewFlagSet("encode", flag.ContinueOnError)
	slot := flags.Uint8("slot", 0, "the slot of the record")
	timestamp := flags.Uint32("timestamp", 0, "the timestamp in seconds the record claims")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *slot >= timeinfo.SlotCount {
		return ierrors.Wrapf(timeinfo.ErrInvalidTimeIndex, "slot %d", *slot)
	}

	fmt.Println(hex.EncodeToString(timeinfo.NewRecord(*slot, *timestamp).Bytes()))

	return nil
}

func decode(args []string) error {
	flags := flag.NewFlagSet("decode", flag.ContinueOnError)
	data := flags.String("data", "", "the hex encoded cell data")
	if err := flags.Parse(args); err != nil {
		return err
	}

	dataBytes, err := hex.DecodeString(strings.TrimPrefix(*data, "0x"))
	if err != nil {
		return ierrors.Wrap(err, "invalid hex data")
	}

	record, err := timeinfo.RecordFromBytes(dataBytes)
	if err != nil {
		return err
	}

	fmt.Printf("slot:      %d\ntimestamp: %d\n", record.Slot(), record.Timestamp())

	return nil
}

func window(args []string) error {
	flags := flag.NewFlagSet("window", flag.ContinueOnError)
	last := flags.Uint32("last", 0, "the timestamp of the consumed record")
	if err := flags.Parse(args); err != nil {
		return err
	}

	lowerExclusive, upperInclusive := timeinfo.AcceptanceWindow(*last)
	since := timeinfo.RequiredSince(*last)

	fmt.Printf("accepted timestamps: (%d, %d]\n", lowerExclusive, upperInclusive)
	fmt.Printf("required since:      %d (%#x, unlocks at %d)\n", uint64(since), uint64(since), since.Value())

	return nil
}
