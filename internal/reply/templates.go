package reply

import (
	"hash/fnv"
	"strconv"

	"github.com/MikeSquared-Agency/siren/internal/stage"
)

// NeutralAck is sent for malformed inbound turns so the counterparty
// never perceives a processing failure.
const NeutralAck = "Sorry, my phone is acting up. What were you saying?"

// templatePools hold deterministic replies per objective, one pool per
// posture. The generator falls back to these whenever no provider is
// configured or every generated candidate is rejected.
var templatePools = map[stage.Objective][]string{
	stage.AskCaseID: {
		"Wait, this is a lot. Can you give me a reference or case number first?",
		"I'm a bit confused. Is there a complaint number I should write down?",
		"Hold on, let me get a pen. What's the case number for this?",
	},
	stage.AskBranch: {
		"Sorry, which branch are you calling from exactly?",
		"Which department is this? I want to note it down properly.",
		"My cousin works in a bank, which office did you say you're at?",
	},
	stage.AskCallback: {
		"My battery is low. Is there an official number I can call you back on?",
		"Can you give me a landline I can reach you at? I keep losing signal.",
		"What number should I call if we get disconnected?",
	},
	stage.AskTransaction: {
		"I don't remember any such thing. Which transaction is this about?",
		"Can you tell me the date and amount you're seeing on your side?",
		"Which payment exactly? I make so many small ones.",
	},
	stage.AskDevice: {
		"Does it matter which phone I'm using for this?",
		"I'm on my old phone right now, is that a problem?",
		"Should I be doing this from my phone or the computer?",
	},
	stage.AskSenderID: {
		"What email will the confirmation come from? I get so much spam.",
		"Which sender id should I look for in my messages?",
		"Where will the official mail come from, so I don't miss it?",
	},
	stage.AskLinkOrUpi: {
		"I didn't catch where I'm supposed to do this. Can you spell it out slowly?",
		"My screen cracked and I can't read small text. Where exactly do I go?",
	},
	stage.ExplainProcess: {
		"I'd rather go to the branch myself and sort this out in person.",
		"I'll visit the bank tomorrow morning and do this properly at the counter.",
		"If it's really urgent the branch can handle it when I go in person.",
	},
}

// fallbackPool is the last resort when every candidate from every tier
// is rejected. Entries avoid digits and questions so they stay safe in
// any posture.
var fallbackPool = []string{
	"Hold on, someone is at the door. Give me a minute.",
	"Sorry, my network keeps dropping. Say that again slowly.",
	"I'm writing this down, my hands are shaking a little.",
	"One second, I need to find my reading glasses.",
	"My phone is at two percent, let me find the charger first.",
	"I'm at work right now, I can't talk freely.",
}

// Templates returns the deterministic pool for an objective.
func Templates(obj stage.Objective) []string {
	return templatePools[obj]
}

// FallbackReply picks from the fixed pool, keyed by session id and turn
// index so the same turn always lands on the same line. FNV is enough;
// nothing here needs cryptographic randomness, only reproducibility.
func FallbackReply(sessionID string, turnIndex int) string {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	h.Write([]byte(":"))
	h.Write([]byte(strconv.Itoa(turnIndex)))
	return fallbackPool[int(h.Sum32())%len(fallbackPool)]
}
