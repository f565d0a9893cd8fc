package scriptparser

import (
	"strings"

	"storyboard-server/internal/models"
)

const (
	// DefaultStoryTitle is used when no title line can be extracted.
	DefaultStoryTitle = "Untitled Story"
	// DefaultSceneTitle is used for scene blocks without a usable heading.
	DefaultSceneTitle = "Untitled Scene"
)

// Parse converts free-form screenplay text into a story tree.
//
// Parse is a total function: it never fails, and the returned story
// always contains at least one scene, each with at least one shot.
// Fields that cannot be extracted fall back to placeholders. The raw
// input is preserved as the story description.
func Parse(text string) *models.Story {
	story := &models.Story{
		ID:          models.NewID(),
		Title:       DefaultStoryTitle,
		Description: strings.TrimSpace(text),
	}

	tokens := scanLines(text)

	firstHeading := -1
	for i, t := range tokens {
		if t.kind == tokenSceneHeading {
			firstHeading = i
			break
		}
	}

	preamble := tokens
	var body []token
	if firstHeading >= 0 {
		preamble = tokens[:firstHeading]
		body = tokens[firstHeading:]
	}

	// The first plain text line before any heading is the story title.
	rest := preamble
	for i, t := range preamble {
		if t.kind == tokenBlank {
			continue
		}
		if t.kind == tokenText {
			story.Title = t.text
			rest = preamble[i+1:]
		}
		break
	}

	// A preamble that carries scene or shot structure of its own is an
	// unheaded scene block, not droppable text.
	if hasSceneContent(rest) {
		story.Scenes = append(story.Scenes, parseSceneBlock(DefaultSceneTitle, rest))
	}

	for _, block := range splitAt(body, tokenSceneHeading) {
		title := strings.TrimSpace(block[0].text)
		if title == "" {
			title = DefaultSceneTitle
		}
		story.Scenes = append(story.Scenes, parseSceneBlock(title, block[1:]))
	}

	if len(story.Scenes) == 0 {
		scene := parseSceneBlock(DefaultSceneTitle, nil)
		story.Scenes = append(story.Scenes, scene)
	}

	for i := range story.Scenes {
		story.Scenes[i].StoryID = story.ID
		story.Scenes[i].Position = i + 1
	}
	return story
}

// hasSceneContent reports whether the tokens carry anything a scene
// block would be built from.
func hasSceneContent(tokens []token) bool {
	for _, t := range tokens {
		switch t.kind {
		case tokenIntExt, tokenShotMarker, tokenSectionLabel:
			return true
		}
	}
	return false
}

// splitAt splits tokens into blocks, each starting with a token of the
// given kind. Tokens before the first boundary are dropped by splitAt;
// callers handle them separately.
func splitAt(tokens []token, kind tokenKind) [][]token {
	var blocks [][]token
	start := -1
	for i, t := range tokens {
		if t.kind == kind {
			if start >= 0 {
				blocks = append(blocks, tokens[start:i])
			}
			start = i
		}
	}
	if start >= 0 {
		blocks = append(blocks, tokens[start:])
	}
	return blocks
}

// sectionCollector accumulates labeled-section text. A section is
// bounded by the next blank line, label, or end of block, so no section
// can swallow the one after it.
type sectionCollector struct {
	current  sectionLabel
	stray    sectionLabel // where unlabeled text goes
	sections map[sectionLabel][]string
}

func newSectionCollector(stray sectionLabel) *sectionCollector {
	return &sectionCollector{
		current:  sectionNone,
		stray:    stray,
		sections: make(map[sectionLabel][]string),
	}
}

func (c *sectionCollector) feed(t token) {
	switch t.kind {
	case tokenBlank:
		c.current = sectionNone
	case tokenSectionLabel:
		c.current = t.label
		if t.text != "" {
			c.sections[t.label] = append(c.sections[t.label], t.text)
		}
	case tokenText:
		label := c.current
		if label == sectionNone {
			label = c.stray
		}
		c.sections[label] = append(c.sections[label], t.text)
	}
}

func (c *sectionCollector) get(label sectionLabel) string {
	return strings.Join(c.sections[label], "\n")
}

// parseSceneBlock builds one scene from the tokens of a scene block.
// Text before the first shot marker belongs to the scene; every shot
// marker starts a shot sub-block.
func parseSceneBlock(title string, tokens []token) models.Scene {
	scene := models.Scene{
		ID:    models.NewID(),
		Title: title,
	}

	firstShot := len(tokens)
	for i, t := range tokens {
		if t.kind == tokenShotMarker {
			firstShot = i
			break
		}
	}

	collector := newSectionCollector(sectionDescription)
	for _, t := range tokens[:firstShot] {
		if t.kind == tokenIntExt {
			scene.Location = t.text
			continue
		}
		collector.feed(t)
	}
	scene.Description = collector.get(sectionDescription)
	scene.Lighting = collector.get(sectionLighting)
	scene.Weather = collector.get(sectionWeather)
	scene.Style = collector.get(sectionStyle)

	for _, block := range splitAt(tokens[firstShot:], tokenShotMarker) {
		scene.Shots = append(scene.Shots, parseShotBlock(block))
	}

	if len(scene.Shots) == 0 {
		shot := models.Shot{
			ID:          models.NewID(),
			Type:        models.ShotTypeEstablishing,
			Description: scene.Description,
			Prompt:      scene.Description,
		}
		shot.RecomputeFlags()
		scene.Shots = append(scene.Shots, shot)
	}

	for i := range scene.Shots {
		scene.Shots[i].SceneID = scene.ID
		scene.Shots[i].Position = i + 1
	}
	return scene
}

// parseShotBlock builds one shot from a marker token and its section
// lines. The description doubles as the default generation prompt.
func parseShotBlock(tokens []token) models.Shot {
	shot := models.Shot{
		ID:   models.NewID(),
		Type: tokens[0].shotType,
	}
	if !models.IsValidShotType(shot.Type) {
		shot.Type = models.ShotTypeEstablishing
	}

	collector := newSectionCollector(sectionDescription)
	// Inline text after the marker itself counts as description.
	if tokens[0].text != "" {
		collector.feed(token{kind: tokenText, text: tokens[0].text})
	}
	for _, t := range tokens[1:] {
		collector.feed(t)
	}

	shot.Description = collector.get(sectionDescription)
	shot.Prompt = shot.Description
	shot.Dialogue = collector.get(sectionDialogue)
	shot.Narration = collector.get(sectionNarration)
	shot.SoundEffects = collector.get(sectionSoundEffects)
	shot.RecomputeFlags()
	return shot
}
