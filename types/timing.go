package types

// TimingEntry is one clip's slot in a timing plan.
type TimingEntry struct {
	File     string  `json:"file"`
	Duration float64 `json:"duration"`
	Offset   float64 `json:"offset"`
}

// TimingPlan is the output of the timing balancer: back-to-back clip slots
// plus the achieved total against the requested target. When the target is
// not reachable (source footage too short, or per-clip floors exceed it)
// Achieved records what the plan actually fills and Shortfall the gap below
// the target, if any.
type TimingPlan struct {
	Entries   []TimingEntry `json:"entries"`
	Target    float64       `json:"target"`
	Achieved  float64       `json:"achieved"`
	Shortfall float64       `json:"shortfall,omitempty"`
}
