package models

import "github.com/google/uuid"

// StorageShape tags which physical representation(s) of a story's scenes
// are present.
type StorageShape string

const (
	ShapeEmpty        StorageShape = "empty"        // Neither representation present
	ShapeEmbedded     StorageShape = "embedded"     // Only the legacy inline list
	ShapeHierarchical StorageShape = "hierarchical" // Only child records
	ShapeBoth         StorageShape = "both"         // Both; children are authoritative
)

// SceneShotCount pairs a scene with the number of shots it holds.
type SceneShotCount struct {
	SceneID   uuid.UUID `json:"sceneId"`
	Title     string    `json:"title"`
	ShotCount int       `json:"shotCount"`
}

// StructureReport is the read-only diagnostic produced by AnalyzeStructure.
type StructureReport struct {
	StoryID            uuid.UUID        `json:"storyId"`
	Shape              StorageShape     `json:"shape"`
	EmbeddedSceneCount int              `json:"embeddedSceneCount"`
	ChildSceneCount    int              `json:"childSceneCount"`
	Scenes             []SceneShotCount `json:"scenes"`
	// InvariantsHold is true when the story has at least one scene and
	// every scene has at least one shot in the authoritative representation.
	InvariantsHold bool     `json:"invariantsHold"`
	Problems       []string `json:"problems,omitempty"`
}
