package api

type (
	// Outcome is a handler's structured result: a success flag, a context
	// patch merged with shadow semantics, and an optional routing hint.
	// Conditions route through Branch; switch nodes route through Case.
	Outcome struct {
		Patch     Context `json:"patch,omitempty"`
		Branch    *bool   `json:"branch,omitempty"`
		Case      Label   `json:"case,omitempty"`
		Message   string  `json:"message,omitempty"`
		Error     string  `json:"error,omitempty"`
		Success   bool    `json:"success"`
		Triggered bool    `json:"triggered,omitempty"`
	}
)

// NewOutcome creates a successful outcome with an empty patch
func NewOutcome() *Outcome {
	return &Outcome{
		Success: true,
		Patch:   Context{},
	}
}

// Untriggered creates the outcome a trigger returns when the inbound event
// does not satisfy its filter. It is not an error; as a start node it ends
// the run with zero side effects.
func Untriggered(message string) *Outcome {
	return &Outcome{
		Success:   false,
		Triggered: false,
		Message:   message,
	}
}

// Failed creates a failed outcome from an error
func Failed(err error) *Outcome {
	return &Outcome{
		Success: false,
		Error:   err.Error(),
	}
}

// WithPatch merges additional context keys into the outcome's patch
func (o *Outcome) WithPatch(key string, value any) *Outcome {
	if o.Patch == nil {
		o.Patch = Context{}
	}
	o.Patch[key] = value
	return o
}

// WithBranch sets the boolean routing hint for condition nodes
func (o *Outcome) WithBranch(b bool) *Outcome {
	o.Branch = &b
	return o
}

// WithCase sets the case-label routing hint for multi-way nodes
func (o *Outcome) WithCase(label Label) *Outcome {
	o.Case = label
	return o
}

// WithMessage sets a human-readable message on the outcome
func (o *Outcome) WithMessage(msg string) *Outcome {
	o.Message = msg
	return o
}

// WithTriggered marks a trigger outcome as matched
func (o *Outcome) WithTriggered() *Outcome {
	o.Triggered = true
	return o
}
