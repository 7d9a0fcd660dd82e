package orders

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Orders are immutable after creation, so there is no transition table:
// the status a caller picks at create time is the one that stays.
var validStatus = map[Status]bool{
	StatusDraft:     true,
	StatusPaid:      true,
	StatusCancelled: true,
}

func (s Status) Valid() bool {
	return validStatus[s]
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}
