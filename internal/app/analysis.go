package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"convocoach/internal/client"
	"convocoach/internal/media"
	"convocoach/internal/types"
)

// AnalysisRequest describes a new analysis: screenshots on disk plus an
// optional note about the conversation.
type AnalysisRequest struct {
	Paths          []string
	ContextMessage string
	Model          types.GeminiModel
}

// StartAnalysis uploads the files and creates the session. The returned
// session is marked processing until the server says otherwise.
func StartAnalysis(ctx context.Context, uploader MediaUploader, api SessionAPI, req AnalysisRequest, progress media.ProgressFunc) (*types.Session, error) {
	if uploader == nil {
		return nil, media.ErrNotConfigured
	}
	if api == nil {
		return nil, errors.New("session api is not configured")
	}
	files, err := media.LoadFiles(req.Paths)
	if err != nil {
		return nil, fmt.Errorf("read files: %w", err)
	}
	urls, err := uploader.UploadAll(ctx, files, progress)
	if err != nil {
		return nil, err
	}
	session, err := api.CreateSession(ctx, client.CreateSessionRequest{
		ContextMessage: strings.TrimSpace(req.ContextMessage),
		MediaURLs:      urls,
		Model:          req.Model,
	})
	if err != nil {
		return nil, err
	}
	if session.Status == "" || session.Status == types.SessionStatusPending {
		session.Status = types.SessionStatusProcessing
	}
	return session, nil
}

// AnalysisContext is the serialized result sent along with coach chat
// messages.
// LegacyAnalysisResult decodes a chat_analysis_response payload. Older
// servers send the bare analysis result there, some wrapped as
// {"analysisResult": ...}.
func LegacyAnalysisResult(data json.RawMessage) (*types.AnalysisResult, bool) {
	var wrapped struct {
		AnalysisResult *types.AnalysisResult `json:"analysisResult"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && !wrapped.AnalysisResult.Empty() {
		return wrapped.AnalysisResult, true
	}
	var result types.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil || result.Empty() {
		return nil, false
	}
	return &result, true
}

func AnalysisContext(result *types.AnalysisResult) string {
	if result == nil {
		return ""
	}
	data, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(data)
}

func AnalysisMarkdown(result *types.AnalysisResult) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	section := func(title, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", title, body)
	}
	list := func(title string, items []string) {
		lines := make([]string, 0, len(items))
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				lines = append(lines, "- "+item)
			}
		}
		section(title, strings.Join(lines, "\n"))
	}
	reading := func(r types.PartyReading) string {
		var lines []string
		if r.User != "" {
			lines = append(lines, "- **You:** "+r.User)
		}
		if r.Partner != "" {
			lines = append(lines, "- **Them:** "+r.Partner)
		}
		if r.OverallTone != "" {
			lines = append(lines, "- **Overall tone:** "+r.OverallTone)
		}
		return strings.Join(lines, "\n")
	}

	if result.RelationshipType != "" {
		fmt.Fprintf(&b, "_Relationship: %s_\n\n", result.RelationshipType)
	}
	section("Summary", result.Summary)
	section("Emotions", reading(result.EmotionAnalysis))
	section("Intent", reading(result.IntentAnalysis))
	section("Communication advice", result.CommunicationAdvice)
	section("Relationship insights", result.RelationshipInsights)
	list("Red flags", result.RedFlags)
	list("Healthy responses", result.HealthyResponses)
	return strings.TrimRight(b.String(), "\n")
}

// RenderAnalysis renders the result for a terminal of the given width.
func RenderAnalysis(result *types.AnalysisResult, width int) string {
	return renderAnalysisMarkdown(AnalysisMarkdown(result), width)
}
