package convo

import "strings"

// Claim status values produced by the sub-dialogue.
const (
	StatusNewClaim = "New Claim"
	StatusPending  = "Pending"
	StatusResolved = "Resolved"
)

const (
	askSubmittedBefore = "Have you submitted a claim for this flight before?"
	askReceivedComp    = "Have you received any compensation for it?"
)

// StepOutcome is the result of one claim-status sub-dialogue step: either
// the dialogue continues with a question, or it completes with a status.
type StepOutcome interface{ stepOutcome() }

// StepContinue asks (or re-asks) a question and moves the sub-dialogue to
// NextStep. NextStep equal to the current step means the reply was
// ambiguous and the same question repeats.
type StepContinue struct {
	Prompt   string
	NextStep int
}

// StepComplete ends the sub-dialogue with a final claim status.
type StepComplete struct {
	Status string
}

func (StepContinue) stepOutcome() {}
func (StepComplete) stepOutcome() {}

// claimStatusStep runs one step of the claim-status sub-dialogue.
//
// Step 0 always asks whether a claim was submitted before; the triggering
// utterance answered a different question. Step 1 branches on yes/no:
// "no" means this is a new claim, "yes" asks about received compensation.
// Step 2 resolves to Resolved/Pending. Matching is a case-insensitive
// substring test; anything else re-asks the same step, with no retry cap.
func claimStatusStep(step int, reply string) StepOutcome {
	lower := strings.ToLower(reply)
	saidYes := strings.Contains(lower, "yes")
	saidNo := strings.Contains(lower, "no")

	switch step {
	case 0:
		return StepContinue{Prompt: askSubmittedBefore, NextStep: 1}
	case 1:
		switch {
		case saidYes:
			return StepContinue{Prompt: askReceivedComp, NextStep: 2}
		case saidNo:
			return StepComplete{Status: StatusNewClaim}
		default:
			return StepContinue{Prompt: "Please answer yes or no. " + askSubmittedBefore, NextStep: 1}
		}
	default:
		switch {
		case saidYes:
			return StepComplete{Status: StatusResolved}
		case saidNo:
			return StepComplete{Status: StatusPending}
		default:
			return StepContinue{Prompt: "Please answer yes or no. " + askReceivedComp, NextStep: 2}
		}
	}
}
