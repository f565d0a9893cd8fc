package models

// MediaKind identifies one kind of generated asset for a shot.
type MediaKind string

const (
	MediaKindImage             MediaKind = "image"
	MediaKindVideo             MediaKind = "video"
	MediaKindDialogueAudio     MediaKind = "dialogue_audio"
	MediaKindSoundEffectsAudio MediaKind = "sfx_audio"
	MediaKindLipSyncVideo      MediaKind = "lipsync_video"
)

// AllMediaKinds returns every known media kind in a stable order.
func AllMediaKinds() []MediaKind {
	return []MediaKind{MediaKindImage, MediaKindVideo, MediaKindDialogueAudio, MediaKindSoundEffectsAudio, MediaKindLipSyncVideo}
}

// IsValidMediaKind reports whether k is a known media kind.
func IsValidMediaKind(k MediaKind) bool {
	switch k {
	case MediaKindImage, MediaKindVideo, MediaKindDialogueAudio, MediaKindSoundEffectsAudio, MediaKindLipSyncVideo:
		return true
	default:
		return false
	}
}

// Ext returns the file extension used when storing an asset of this kind.
func (k MediaKind) Ext() string {
	switch k {
	case MediaKindImage:
		return "jpg"
	case MediaKindVideo, MediaKindLipSyncVideo:
		return "mp4"
	case MediaKindDialogueAudio, MediaKindSoundEffectsAudio:
		return "mp3"
	default:
		return "bin"
	}
}
