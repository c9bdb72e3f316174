package triage

import "strings"

// phraseRule pairs a vocabulary phrase with a one-line clinical rationale.
type phraseRule struct {
	phrase    string
	rationale string
}

// criticalPhrases force immediate ER escalation when matched. Declaration
// order is the order phrases surface in verdicts, so keep it stable.
var criticalPhrases = []phraseRule{
	// Cardiac / respiratory
	{"chest pain", "Possible cardiac emergency."},
	{"heart pain", "Possible cardiac emergency."},
	{"pressure in chest", "Possible cardiac emergency."},
	{"tightness in chest", "Possible cardiac emergency."},
	{"pain radiating to left arm", "Possible myocardial infarction."},
	{"jaw pain", "Possible cardiac ischemia."},
	{"trouble breathing", "Respiratory distress risk."},
	{"shortness of breath at rest", "Respiratory distress risk."},
	{"blue lips", "Hypoxia."},
	// Neurological
	{"worst headache of my life", "Possible subarachnoid hemorrhage."},
	{"severe headache", "Neurological emergency risk."},
	{"sudden vision loss", "Stroke or neurological emergency."},
	{"weakness on one side", "Stroke risk."},
	{"difficulty speaking", "Stroke risk."},
	{"loss of consciousness", "Altered mental status."},
	{"seizure", "New seizure or status epilepticus risk."},
	// Hemorrhage / sepsis / anaphylaxis / trauma
	{"uncontrolled bleeding", "Hemorrhage risk."},
	{"vomiting blood", "GI bleed risk."},
	{"coughing up blood", "Hemoptysis."},
	{"black tarry stools", "GI bleeding."},
	{"stiff neck with fever", "Possible meningitis."},
	{"swollen tongue", "Airway compromise."},
	{"anaphylaxis", "Severe allergic reaction."},
	{"severe burn", "Severe injury."},
	{"major trauma", "Severe injury."},
	// Mental health crisis
	{"suicidal", "Mental health crisis."},
	{"not responsive", "Altered mental status."},
}

// urgentPhrases raise the floor on urgency and action but do not force ER
// on their own.
var urgentPhrases = []phraseRule{
	{"severe shortness of breath", "Respiratory distress risk."},
	{"fainting", "Syncope; evaluate for serious causes."},
	{"new confusion", "Acute cognitive change."},
	{"severe abdominal pain", "Possible surgical abdomen."},
	{"blood in urine", "Hematuria."},
	{"persistent high fever", "Infection risk."},
	{"dehydration", "Significant volume loss."},
	{"severe back pain", "Possible serious etiology."},
}

var criticalSet = func() map[string]string {
	m := make(map[string]string, len(criticalPhrases))
	for _, r := range criticalPhrases {
		m[r.phrase] = r.rationale
	}
	return m
}()

// Detector is a deterministic keyword scanner for dangerous
// presentations. It holds no mutable state and is safe for concurrent
// use; the vocabularies are fixed at init.
type Detector struct{}

// NewDetector returns a Detector over the fixed phrase vocabularies.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect scans text case-insensitively against both vocabularies. Empty
// input yields an empty result. There is no failure mode.
func (d *Detector) Detect(text string) FlagScan {
	lowered := strings.ToLower(text)
	var scan FlagScan
	for _, r := range criticalPhrases {
		if strings.Contains(lowered, r.phrase) {
			scan.Critical = append(scan.Critical, r.phrase)
		}
	}
	for _, r := range urgentPhrases {
		if strings.Contains(lowered, r.phrase) {
			scan.Urgent = append(scan.Urgent, r.phrase)
		}
	}
	return scan
}

// IsCriticalPhrase reports whether flag is part of the critical
// vocabulary. Guardrails use this to drop model-invented red flags.
func IsCriticalPhrase(flag string) bool {
	_, ok := criticalSet[strings.ToLower(strings.TrimSpace(flag))]
	return ok
}

// CriticalRationale returns the one-line rationale for a critical phrase.
func CriticalRationale(phrase string) (string, bool) {
	r, ok := criticalSet[phrase]
	return r, ok
}
