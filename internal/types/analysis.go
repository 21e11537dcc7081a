package types

import "time"

type PartyReading struct {
	User        string `json:"user"`
	Partner     string `json:"partner"`
	OverallTone string `json:"overallTone,omitempty"`
}

type AnalysisResult struct {
	ID                   string       `json:"id"`
	SessionID            string       `json:"sessionId"`
	RelationshipType     string       `json:"relationshipType,omitempty"`
	EmotionAnalysis      PartyReading `json:"emotionAnalysis"`
	IntentAnalysis       PartyReading `json:"intentAnalysis"`
	CommunicationAdvice  string       `json:"communicationAdvice,omitempty"`
	RelationshipInsights string       `json:"relationshipInsights,omitempty"`
	RedFlags             []string     `json:"redFlags,omitempty"`
	HealthyResponses     []string     `json:"healthyResponses,omitempty"`
	Summary              string       `json:"summary,omitempty"`
	CreatedAt            *time.Time   `json:"createdAt,omitempty"`
}

// Empty reports whether r carries none of the analysis sections.
func (r *AnalysisResult) Empty() bool {
	if r == nil {
		return true
	}
	return r.Summary == "" &&
		r.EmotionAnalysis == (PartyReading{}) &&
		r.IntentAnalysis == (PartyReading{}) &&
		r.CommunicationAdvice == "" &&
		r.RelationshipInsights == "" &&
		len(r.RedFlags) == 0 &&
		len(r.HealthyResponses) == 0
}
