package cellstore

const (
	// StoreKeyPrefixLedgerTime defines the prefix of the timestamp of the last applied block.
	StoreKeyPrefixLedgerTime byte = 0

	// StoreKeyPrefixCell defines the prefix for live and spent cells.
	StoreKeyPrefixCell byte = 1

	// StoreKeyPrefixCellUnspent defines the prefix to track unspent cells.
	StoreKeyPrefixCellUnspent byte = 2

	// StoreKeyPrefixCellSpent defines the prefix to track which transaction spent a cell.
	StoreKeyPrefixCellSpent byte = 3
)

/*
   Cell store database

   Ledger time:
   ============
   Key:
       StoreKeyPrefixLedgerTime
                1 byte

   Value:
       timestamp (uint64)
            8 bytes

   Cell:
   =====
   Key:
       StoreKeyPrefixCell + ledger.OutPoint
             1 byte       +     36 bytes

   Value:
       uint32 size + ledger.CellOutput bytes + uint32 size + cell data

   Unspent cell:
   =============
   Key:
       StoreKeyPrefixCellUnspent + ledger.OutPoint
             1 byte              +     36 bytes

   Value:
       Empty

   Spent cell:
   ===========
   Key:
       StoreKeyPrefixCellSpent + ledger.OutPoint
             1 byte            +     36 bytes

   Value:
       spending ledger.TransactionHash + ledger time of the spend (uint64)
               32 bytes                +          8 bytes
*/
