package stage

// Objective is a single information-gathering goal pursued in one reply.
type Objective string

const (
	AskCaseID      Objective = "case_id"
	AskBranch      Objective = "branch"
	AskCallback    Objective = "callback"
	AskTransaction Objective = "transaction"
	AskDevice      Objective = "device"
	AskSenderID    Objective = "sender_id"
	AskLinkOrUpi   Objective = "link_or_upi"
	ExplainProcess Objective = "explain_process"
)

// ladder is the fixed priority ordering of objectives across a session.
var ladder = []Objective{
	AskCaseID,
	AskBranch,
	AskCallback,
	AskTransaction,
	AskDevice,
	AskSenderID,
	AskLinkOrUpi,
	ExplainProcess,
}

// Question returns the probing question attached to an objective.
func (o Objective) Question() string {
	switch o {
	case AskCaseID:
		return "Can you give me a reference or case number for this?"
	case AskBranch:
		return "Which branch or department are you calling from?"
	case AskCallback:
		return "Is there an official number I can call you back on?"
	case AskTransaction:
		return "Which transaction is this about exactly?"
	case AskDevice:
		return "Do you need anything from my side, like which phone I use?"
	case AskSenderID:
		return "What email or sender id will the confirmation come from?"
	case AskLinkOrUpi:
		return "Where exactly am I supposed to do this, can you spell it out?"
	default:
		return "Can you explain the proper process step by step?"
	}
}

// NextObjective walks the ladder and returns the first objective not
// already pursued and not used within the last three turns. The
// link-or-upi rung is skipped entirely unless the adversary has already
// put a link or payment handle on the table, and again once one has
// been extracted; the terminal rung is returned when everything else is
// exhausted.
func NextObjective(asked map[Objective]bool, recent []Objective, linkMentioned, linkExtracted bool) Objective {
	for _, obj := range ladder {
		if obj == ExplainProcess {
			break
		}
		if obj == AskLinkOrUpi && (!linkMentioned || linkExtracted) {
			continue
		}
		if asked[obj] || usedRecently(obj, recent) {
			continue
		}
		return obj
	}
	return ExplainProcess
}

func usedRecently(obj Objective, recent []Objective) bool {
	start := 0
	if len(recent) > 3 {
		start = len(recent) - 3
	}
	for _, r := range recent[start:] {
		if r == obj {
			return true
		}
	}
	return false
}
