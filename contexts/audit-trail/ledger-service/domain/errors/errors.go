package errors

import "errors"

var (
	ErrInvalidEntry  = errors.New("audit entry is invalid")
	ErrInvalidFilter = errors.New("audit query filter is invalid")
	ErrLedgerWrite   = errors.New("audit ledger write failed")
)
