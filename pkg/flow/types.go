package flow

// State names of the write workflow, strictly ordered. There is no skipping
// and no backward transition; re-prompt loops live inside a state.
const (
	StateShowLayout   = "show_layout"
	StateUnmount      = "unmount"
	StateSelectTarget = "select_target"
	StateSelectImage  = "select_image"
	StateConfirmWrite = "confirm_write"
	StateWrite        = "write"
	StateSync         = "sync"
	StateOfferEject   = "offer_eject"
	StateComplete     = "complete"
	StateFailed       = "failed"
)

// Session outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// WriteRequest is the FSM input.
type WriteRequest struct {
	SessionKey string
}

// WriteSession is the FSM output, accumulated across transitions. It is the
// single owner of all run state; TargetDevice and ImagePath are only ever
// assigned from validator results, never from raw operator input.
type WriteSession struct {
	SessionKey string

	// From SelectTarget
	TargetDevice string

	// From SelectImage
	ImagePath   string
	ImageSource string
	SHA256      string

	// From Unmount
	UnmountRequested bool
	UnmountedPath    string

	// From ConfirmWrite / OfferEject
	Confirmed      bool
	EjectRequested bool

	// Journal row recorded for the write, if any.
	JournalID int64

	Outcome string
}
