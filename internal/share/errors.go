package share

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/placematch/internal/model"
)

var (
	// ErrUnsupportedInput is returned for share links of an unrecognized shape.
	ErrUnsupportedInput = eris.New("share: unsupported input")

	// ErrInvalidTransition is returned when an operation does not apply to the
	// session's current state.
	ErrInvalidTransition = eris.New("share: invalid state transition")

	// ErrInvalidDraft is returned for a manual draft without a name.
	ErrInvalidDraft = eris.New("share: draft requires a name")
)

// PartialWriteError reports that a place was created but marking it as a
// favorite failed. The created record is kept.
type PartialWriteError struct {
	Record *model.PlaceRecord
	Err    error
}

func (e *PartialWriteError) Error() string {
	return "share: place " + e.Record.ID + " created but favorite failed: " + e.Err.Error()
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
