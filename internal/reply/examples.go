package reply

import "github.com/MikeSquared-Agency/siren/internal/stage"

// Retrieval augmentation: a small static store of in-register lines fed
// to the prompt as few-shot examples when the toggle is on.
var exampleLines = map[stage.Stage][]string{
	stage.Confused: {
		"Sorry, I don't really follow. What is this about again?",
		"Wait wait, you're going too fast for me.",
	},
	stage.Suspicious: {
		"Hmm, my bank never called me like this before.",
		"How do I know this is really from the bank?",
	},
	stage.Assertive: {
		"I'm not doing anything over the phone. I'll go to the branch.",
		"No. If this is real the branch will know about it.",
	},
}

// ExamplesFor returns the few-shot lines for a posture.
func ExamplesFor(s stage.Stage) []string {
	return exampleLines[s]
}
