package upstream

import (
	"testing"

	"google.golang.org/genai"
)

func TestGenAIRefusal(t *testing.T) {
	tests := []struct {
		name       string
		resp       *genai.GenerateContentResponse
		wantReason string
	}{
		{name: "nil response"},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
					BlockReason:        genai.BlockedReasonSafety,
					BlockReasonMessage: "prompt was blocked",
				},
			},
			wantReason: "SAFETY",
		},
		{
			name: "candidate finished on safety",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonProhibitedContent}},
			},
			wantReason: "PROHIBITED_CONTENT",
		},
		{
			name: "normal stop",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					FinishReason: genai.FinishReasonStop,
					Content:      genai.NewContentFromText("hello", genai.RoleModel),
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenAIRefusal(tt.resp)
			if tt.wantReason == "" {
				if got != nil {
					t.Errorf("Expected no refusal, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected a refusal")
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}
