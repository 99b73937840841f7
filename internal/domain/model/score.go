package model

// PriorityScore is the additive breakdown of an issue's priority. Total is the
// sum of the five named components plus PRBonus.
type PriorityScore struct {
	Importance int `json:"importance_score"`
	Recency    int `json:"recency_score"`
	Activity   int `json:"activity_score"`
	RuleMatch  int `json:"rule_match_score"`
	Label      int `json:"label_score"`
	PRBonus    int `json:"pr_bonus"`
	Total      int `json:"total"`
}

// ComponentSum returns the sum of the five named components, excluding PRBonus.
func (s PriorityScore) ComponentSum() int {
	return s.Importance + s.Recency + s.Activity + s.RuleMatch + s.Label
}
