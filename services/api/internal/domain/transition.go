package domain

// Transition names a state-machine operation on an existing order.
type Transition string

const (
	TransitionFund     Transition = "fund"
	TransitionStart    Transition = "start"
	TransitionComplete Transition = "complete"
	TransitionDispute  Transition = "dispute"
	TransitionRefund   Transition = "refund"
)

type transitionRule struct {
	from     []Status
	to       Status
	relation Relation
}

var transitionTable = map[Transition]transitionRule{
	TransitionFund:     {from: []Status{StatusCreated}, to: StatusFunded, relation: RelationIsBuyer},
	TransitionStart:    {from: []Status{StatusFunded}, to: StatusInProgress, relation: RelationIsSeller},
	TransitionComplete: {from: []Status{StatusInProgress}, to: StatusCompleted, relation: RelationIsBuyer},
	TransitionDispute:  {from: []Status{StatusInProgress}, to: StatusDisputed, relation: RelationIsBuyerOrSeller},
	TransitionRefund:   {from: []Status{StatusInProgress, StatusDisputed}, to: StatusRefunded, relation: RelationIsSeller},
}

// Transitions returns the table transitions in lifecycle order.
func Transitions() []Transition {
	return []Transition{
		TransitionFund,
		TransitionStart,
		TransitionComplete,
		TransitionDispute,
		TransitionRefund,
	}
}

func ParseTransition(s string) (Transition, bool) {
	t := Transition(s)
	_, ok := transitionTable[t]
	return t, ok
}

// Target is the status a successful transition moves the order into.
func (t Transition) Target() Status {
	return transitionTable[t].to
}

// Relation is the party relation the actor must have with the order.
func (t Transition) Relation() Relation {
	return transitionTable[t].relation
}

// AllowedFrom reports whether s is a valid source status for t.
func (t Transition) AllowedFrom(s Status) bool {
	rule, ok := transitionTable[t]
	if !ok {
		return false
	}
	for _, from := range rule.from {
		if from == s {
			return true
		}
	}
	return false
}

// Next validates t against the current status and returns the target status.
func (t Transition) Next(current Status) (Status, error) {
	if !t.AllowedFrom(current) {
		return current, &TransitionError{Current: current, Requested: t}
	}
	return t.Target(), nil
}
