package pipeline

import "encoding/json"

// Outcome is the terminal state of a pipeline operation. A partial
// outcome means the primary work succeeded but an enrichment
// step logged warnings.
type Outcome int

const (
	SUCCESS Outcome = iota
	PARTIAL
	FAILURE
)

func (o Outcome) String() string {
	switch o {
	case SUCCESS:
		return "SUCCESS"
	case PARTIAL:
		return "PARTIAL"
	case FAILURE:
		return "FAILURE"
	}

	return "UNKNOWN"
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// Warnings collects the non-fatal problems encountered by an operation.
type Warnings []string

func (w *Warnings) Add(err error) {
	*w = append(*w, err.Error())
}

// OutcomeFor derives the outcome of an operation from its
// terminal error and the warnings it accumulated.
func OutcomeFor(err error, warnings Warnings) Outcome {
	if err != nil {
		return FAILURE
	} else if len(warnings) > 0 {
		return PARTIAL
	}

	return SUCCESS
}
