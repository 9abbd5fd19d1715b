package store

import (
	"fmt"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

// Outcome is the tagged result of a unit of work.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeStoreError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeStoreError:
		return "store_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Classify maps a unit-of-work error onto an Outcome. A missing record is
// NotFound; every other failure is a StoreError.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case sberrors.HasCode(err, sberrors.ErrCodeRecordNotFound):
		return OutcomeNotFound
	default:
		return OutcomeStoreError
	}
}
