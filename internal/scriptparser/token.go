package scriptparser

import (
	"strings"

	"storyboard-server/internal/models"
)

// tokenKind classifies one line of screenplay text.
type tokenKind int

const (
	tokenBlank tokenKind = iota
	tokenSceneHeading
	tokenIntExt
	tokenShotMarker
	tokenSectionLabel
	tokenText
)

// sectionLabel names a labeled section recognized by the
// "Label:\n<text until blank line>" convention.
type sectionLabel string

const (
	sectionNone         sectionLabel = ""
	sectionDescription  sectionLabel = "description"
	sectionLighting     sectionLabel = "lighting"
	sectionWeather      sectionLabel = "weather"
	sectionStyle        sectionLabel = "style"
	sectionDialogue     sectionLabel = "dialogue"
	sectionNarration    sectionLabel = "narration"
	sectionSoundEffects sectionLabel = "sound effects"
)

// token is one classified line. The text field carries the payload:
// the heading title, the location remainder, an inline section value,
// or the raw line for tokenText.
type token struct {
	kind     tokenKind
	text     string
	label    sectionLabel
	shotType models.ShotType
}

// shotMarkers maps marker spellings to shot types. Longer spellings are
// matched before "SHOT:" so "WIDE SHOT:" never falls through to the
// generic marker.
var shotMarkers = []struct {
	marker string
	typ    models.ShotType
}{
	{"ESTABLISHING SHOT:", models.ShotTypeEstablishing},
	{"WIDE SHOT:", models.ShotTypeWide},
	{"MEDIUM SHOT:", models.ShotTypeMedium},
	{"TRACKING SHOT:", models.ShotTypeTracking},
	{"AERIAL SHOT:", models.ShotTypeAerial},
	{"POV SHOT:", models.ShotTypePOV},
	{"CLOSE-UP:", models.ShotTypeCloseUp},
	{"CLOSE UP:", models.ShotTypeCloseUp},
	{"SHOT:", models.ShotTypeEstablishing},
}

var sectionLabels = []sectionLabel{
	sectionDescription,
	sectionLighting,
	sectionWeather,
	sectionStyle,
	sectionDialogue,
	sectionNarration,
	sectionSoundEffects,
}

// scanLines classifies every line of the input. Blank lines are kept as
// tokens because they bound labeled sections.
func scanLines(text string) []token {
	rawLines := strings.Split(text, "\n")
	tokens := make([]token, 0, len(rawLines))
	for _, raw := range rawLines {
		tokens = append(tokens, classifyLine(strings.TrimSpace(raw)))
	}
	return tokens
}

func classifyLine(line string) token {
	if line == "" {
		return token{kind: tokenBlank}
	}
	upper := strings.ToUpper(line)

	if strings.HasPrefix(upper, "SCENE ") || strings.HasPrefix(upper, "SCENE:") {
		if idx := strings.Index(line, ":"); idx >= 0 {
			return token{kind: tokenSceneHeading, text: strings.TrimSpace(line[idx+1:])}
		}
	}

	if strings.HasPrefix(upper, "INT.") || strings.HasPrefix(upper, "EXT.") ||
		strings.HasPrefix(upper, "INT/EXT") || strings.HasPrefix(upper, "INT./EXT.") {
		rest := line
		if idx := strings.Index(line, "."); idx >= 0 {
			rest = line[idx+1:]
		}
		// "INT./EXT." leaves a leading "/EXT." in rest.
		if idx := strings.Index(strings.ToUpper(rest), "EXT."); idx >= 0 && idx <= 1 {
			rest = rest[idx+4:]
		}
		return token{kind: tokenIntExt, text: strings.TrimSpace(rest)}
	}

	for _, m := range shotMarkers {
		if strings.HasPrefix(upper, m.marker) {
			return token{kind: tokenShotMarker, shotType: m.typ, text: strings.TrimSpace(line[len(m.marker):])}
		}
	}

	for _, label := range sectionLabels {
		prefix := strings.ToUpper(string(label)) + ":"
		if strings.HasPrefix(upper, prefix) {
			return token{kind: tokenSectionLabel, label: label, text: strings.TrimSpace(line[len(prefix):])}
		}
	}

	return token{kind: tokenText, text: line}
}
