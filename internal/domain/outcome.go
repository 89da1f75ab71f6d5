package domain

// MessageOrderCompleted is the message of a successful checkout.
const MessageOrderCompleted = "Order Completed"

// Outcome is the user-visible result of a checkout. Exactly one of Message
// or Error is set.
type Outcome struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Completed returns the success outcome.
func Completed() Outcome {
	return Outcome{Message: MessageOrderCompleted}
}

// Failed returns an error outcome carrying reason.
func Failed(reason string) Outcome {
	return Outcome{Error: reason}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Error == ""
}
