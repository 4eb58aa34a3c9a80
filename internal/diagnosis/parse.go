package diagnosis

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Anchors printed by the analysis pipeline. The misspelling is part of the
// output format.
const (
	anchorRiskScore = "Risk Score:"
	anchorCategory  = "Category:"
	anchorTilt      = "Tilt Angle:"
	anchorSpecies   = "Species:"
	anchorDiagnosis = "Diagnosis of tree:"
	anchorFixes     = "Fixes/reccomendations:"
	anchorSafety    = "## 1. IMMEDIATE SAFETY CONCERNS"

	terminatorRule     = "============================================================"
	terminatorComplete = "=== Analysis Complete ==="

	degreeSign = "°"

	// scoreSlashWindow is how far after the anchor a "/" still ends the score
	scoreSlashWindow = 20
)

// ansiSequence matches CSI escape sequences such as "\x1b[96m".
var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// StripANSI removes terminal colour codes.
func StripANSI(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	return ansiSequence.ReplaceAllString(s, "")
}

// Parse extracts the six result fields from pipeline text. Each rule runs
// independently on the ANSI-stripped text; Raw keeps the input unchanged.
func Parse(output string) Result {
	r := Empty(output)
	text := StripANSI(output)

	if v := parseRiskScore(text); v != "" {
		r.RiskScore = v
	}
	if v := unwrapTuple(lineAfter(text, anchorCategory)); v != "" {
		r.RiskCategory = v
	}
	if v := parseTilt(text); v != "" {
		r.TiltAngle = v
	}
	if v := lineAfter(text, anchorSpecies); v != "" {
		r.Species = v
	}
	if v := parseDiagnosis(text); v != "" {
		r.Diagnosis = v
	}
	if v := parseFixes(text); v != "" {
		r.Fixes = v
	}
	return r
}

// after returns the text following the first occurrence of anchor.
func after(text, anchor string) (string, bool) {
	idx := strings.Index(text, anchor)
	if idx < 0 {
		return "", false
	}
	return text[idx+len(anchor):], true
}

func firstLine(s string) string {
	if idx := strings.IndexAny(s, "\r\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func lineAfter(text, anchor string) string {
	rest, ok := after(text, anchor)
	if !ok {
		return ""
	}
	return clean(firstLine(rest))
}

func parseRiskScore(text string) string {
	rest, ok := after(text, anchorRiskScore)
	if !ok {
		return ""
	}
	line := firstLine(rest)

	window := line
	if len(window) > scoreSlashWindow {
		window = window[:scoreSlashWindow]
	}
	if slash := strings.IndexByte(window, '/'); slash >= 0 {
		return clean(line[:slash])
	}

	trimmed := strings.TrimLeft(line, " \t")
	end := 0
	for end < len(trimmed) && (trimmed[end] == '.' || (trimmed[end] >= '0' && trimmed[end] <= '9')) {
		end++
	}
	return trimmed[:end]
}

// unwrapTuple returns the text between the first two single quotes, which
// is how the pipeline prints ('HIGH RISK', 'orange'). Other values pass
// through unchanged.
func unwrapTuple(line string) string {
	first := strings.IndexByte(line, '\'')
	if first < 0 {
		return line
	}
	second := strings.IndexByte(line[first+1:], '\'')
	if second < 0 {
		return line
	}
	return clean(line[first+1 : first+1+second])
}

func parseTilt(text string) string {
	rest, ok := after(text, anchorTilt)
	if !ok {
		return ""
	}
	line := firstLine(rest)
	idx := strings.Index(line, degreeSign)
	if idx < 0 {
		return ""
	}
	value := clean(line[:idx])
	if value == "" {
		return ""
	}
	return value + degreeSign
}

func parseDiagnosis(text string) string {
	rest, ok := after(text, anchorDiagnosis)
	if !ok {
		return ""
	}
	return clean(cutAtFirst(rest, anchorFixes, anchorSafety))
}

func parseFixes(text string) string {
	var section string
	if rest, ok := after(text, anchorFixes); ok {
		section = rest
	} else if idx := strings.Index(text, anchorSafety); idx >= 0 {
		section = text[idx:]
	} else {
		return ""
	}
	return clean(cutAtFirst(section, terminatorRule, terminatorComplete))
}

// cutAtFirst truncates s at the earliest occurrence of any marker.
func cutAtFirst(s string, markers ...string) string {
	end := len(s)
	for _, m := range markers {
		if idx := strings.Index(s, m); idx >= 0 && idx < end {
			end = idx
		}
	}
	return s[:end]
}
