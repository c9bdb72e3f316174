package triage

import "fmt"

// buildPrompt constructs the reasoning prompt for one request. The schema
// block mirrors the verdict JSON shape exactly so parsing stays trivial.
func buildPrompt(req *Request, medicalContext string) string {
	reqContext := req.Context
	if reqContext == "" {
		reqContext = "None provided"
	}

	return fmt.Sprintf(`You are MedAssist, a cautious medical triage expert.
You must output STRICT JSON that matches this schema:
{
  "category": "<one of: respiratory, cardiovascular, neurological, gastrointestinal, musculoskeletal, dermatological, general>",
  "urgency": "<one of: low, moderate, high>",
  "red_flags": ["<string>", "..."],
  "recommended_action": "<one of: self_care, primary_care, go_to_er>",
  "reasoning": "<short explanation>"
}

Rules:
- Escalate to "go_to_er" if symptoms describe life-threatening situations.
- Keep reasoning under 2 sentences.
- If unsure, err toward safety and higher urgency.

Patient context:
user_id: %s
symptoms: %s
additional_context: %s
medical_context: %s`,
		req.UserID,
		req.Symptoms,
		reqContext,
		medicalContext,
	)
}
