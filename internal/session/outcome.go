package session

// Outcome is the result of dispatching one inbound message.
type Outcome uint8

const (
	// Consumed: a handler accepted the message.
	Consumed Outcome = iota
	// Unconsumed: nothing accepted it. Advisory, not an error.
	Unconsumed
	// Cancelled: processing was refused.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Consumed:
		return "consumed"
	case Unconsumed:
		return "unconsumed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func outcomeOf(accepted bool) Outcome {
	if accepted {
		return Consumed
	}
	return Unconsumed
}

// Policy is how the handler table treats a kind.
type Policy uint8

const (
	policyUnset Policy = iota
	// Delegate forwards to the owner and returns its answer.
	Delegate
	AlwaysConsumed
	// AlwaysUnconsumed marks kinds that are recognized but not supported.
	AlwaysUnconsumed
	// FixedCancelled marks kinds the server refuses.
	FixedCancelled
	// Relay re-broadcasts the message to the owner's viewers.
	Relay
	// DirectMutation changes session state without the owner's handler path.
	DirectMutation
)

func (p Policy) String() string {
	switch p {
	case Delegate:
		return "delegate"
	case AlwaysConsumed:
		return "always_consumed"
	case AlwaysUnconsumed:
		return "always_unconsumed"
	case FixedCancelled:
		return "fixed_cancelled"
	case Relay:
		return "relay"
	case DirectMutation:
		return "direct_mutation"
	default:
		return "unset"
	}
}
