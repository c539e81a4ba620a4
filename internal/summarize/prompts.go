package summarize

// systemPrompt is the fixed role and style directive for every summary,
// regardless of intent.
const systemPrompt = `You are the analyst behind a signal capture tool. A founder clips web content worth acting on; you turn each clip into a summary they can use.

Style rules:
- 3 to 5 sentences, plain prose, no headings or bullet lists
- Lead with the single most decision-relevant fact
- Name concrete numbers, companies, and dates when the content has them
- No filler, no restating the task, no "this article discusses"`

// intentPrompts maps each capture intent to its summary instruction.
// Intents not in this table use the Research instruction.
var intentPrompts = map[string]string{
	"Thought leadership":    "Summarize this as raw material for a public post: what is the contrarian or notable angle, and what stance could the author take?",
	"Research":              "Summarize the key findings and why they matter. Note anything that changes a current assumption.",
	"IR / Data room":        "Summarize this for an investor-facing record: the hard facts, figures, and any claim that would need a source attached.",
	"Strategy":              "Summarize the strategic implication: what shift does this signal, and what decision does it bear on?",
	"Product direction":     "Summarize what this suggests about product scope or user needs, and which part of the roadmap it touches.",
	"Competitive landscape": "Summarize what a competitor or adjacent player is doing, how material it is, and the plausible response options.",
	"BD":                    "Summarize who is involved, what the partnership or deal angle is, and the obvious next step to pursue it.",
	"Conference":            "Summarize the event details that matter: who, when, where, and why attending or speaking would be worth it.",
	"Share with team":       "Summarize this so a teammate with no context gets the point in one read.",
}

const fallbackIntent = "Research"

// instructionFor resolves an intent to its prompt, falling back to Research.
func instructionFor(intent string) string {
	if p, ok := intentPrompts[intent]; ok {
		return p
	}
	return intentPrompts[fallbackIntent]
}
