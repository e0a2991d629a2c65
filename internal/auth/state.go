package auth

// State is a step of the login flow. States only ever advance; the
// numeric order is the order of the flow.
type State int

const (
	AwaitingEmail State = iota
	AwaitingPassword
	AwaitingStaySignedInPrompt
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingEmail:
		return "awaiting-email"
	case AwaitingPassword:
		return "awaiting-password"
	case AwaitingStaySignedInPrompt:
		return "awaiting-stay-signed-in"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Prompt records whether the optional "Stay signed in?" step was seen
type Prompt int

const (
	PromptUnknown Prompt = iota // login ended before the prompt step
	PromptPresent
	PromptAbsent
)

func (p Prompt) String() string {
	switch p {
	case PromptPresent:
		return "present"
	case PromptAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// StaySignedInPolicy decides how a missing "Stay signed in?" prompt is treated
type StaySignedInPolicy int

const (
	// StaySignedInRequired fails the login when the prompt never appears
	StaySignedInRequired StaySignedInPolicy = iota
	// StaySignedInOptional probes briefly and proceeds without the prompt
	StaySignedInOptional
)

func (p StaySignedInPolicy) String() string {
	if p == StaySignedInOptional {
		return "optional"
	}
	return "required"
}
