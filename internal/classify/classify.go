// Package classify maps a capture intent to a next best action and priority.
package classify

// Priority is the urgency tier assigned to an enriched signal.
// P0 is most urgent; P0 and P1 trigger a notification.
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// DefaultIntent is applied when a capture arrives without an intent, and is
// the classification fallback for intents not in the table.
const DefaultIntent = "Research"

// Outcome is the derived pair for a signal.
type Outcome struct {
	NextBestAction string
	Priority       Priority
}

var outcomes = map[string]Outcome{
	"Thought leadership":    {NextBestAction: "Draft a post angle for the founder feed", Priority: P2},
	"Research":              {NextBestAction: "Review at next meeting", Priority: P3},
	"IR / Data room":        {NextBestAction: "Upload to the data room and notify the CFO", Priority: P0},
	"Strategy":              {NextBestAction: "Add to the next strategy session agenda", Priority: P1},
	"Product direction":     {NextBestAction: "Route to the product lead for roadmap review", Priority: P2},
	"Competitive landscape": {NextBestAction: "Brief the leadership team on the shift", Priority: P1},
	"BD":                    {NextBestAction: "Log the contact and schedule an intro call", Priority: P2},
	"Conference":            {NextBestAction: "Add to the events tracker", Priority: P3},
	"Share with team":       {NextBestAction: "Drop into the team channel digest", Priority: P3},
}

// Classify returns the next best action and priority for an intent.
// Unrecognized intents resolve to the Research defaults. Never fails.
func Classify(intent string) Outcome {
	if out, ok := outcomes[intent]; ok {
		return out
	}
	return outcomes[DefaultIntent]
}

// Urgent reports whether a priority is in the notification tier.
func Urgent(p Priority) bool {
	return p == P0 || p == P1
}
