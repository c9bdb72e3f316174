package medication

type interactionRule struct {
	severity Severity
	reason   string
}

// pairKey builds the canonical key for an unordered medication pair by
// sorting the two normalized names.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// interactionRules maps canonical pair keys to known dangerous
// combinations. Read-only after init; extend by adding entries.
var interactionRules = map[string]interactionRule{
	pairKey("ibuprofen", "aspirin"): {
		severity: SeverityHigh,
		reason:   "Dual NSAID therapy increases bleeding and GI ulcer risk.",
	},
	pairKey("warfarin", "aspirin"): {
		severity: SeverityHigh,
		reason:   "Both thin blood; combination raises hemorrhage risk.",
	},
	pairKey("metformin", "contrast dye"): {
		severity: SeverityModerate,
		reason:   "Contrast agents can precipitate lactic acidosis with metformin.",
	},
	pairKey("lisinopril", "spironolactone"): {
		severity: SeverityModerate,
		reason:   "Dual RAAS blockade can cause hyperkalemia.",
	},
	pairKey("grapefruit juice", "atorvastatin"): {
		severity: SeverityModerate,
		reason:   "Grapefruit inhibits metabolism, raising statin levels.",
	},
}
