package model

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// StrategyTag identifies which mastering strategy produced a job's output.
// Exactly one tag is attached to every completed job.
type StrategyTag string

const (
	StrategyReferenceMatch  StrategyTag = "Reference_Match"
	StrategyParametric      StrategyTag = "Parametric_Master"
	StrategyLoudnessOnly    StrategyTag = "Loudness_Only"
	StrategyPassthrough     StrategyTag = "Passthrough_Copy"
	StrategyPlaceholderTone StrategyTag = "Placeholder_Tone"
)

// Export formats
type ExportFormat string

const (
	FormatWAV ExportFormat = "wav"
	FormatMP3 ExportFormat = "mp3"
)

// MimeType returns the content type served for downloads in this format.
func (f ExportFormat) MimeType() string {
	if f == FormatMP3 {
		return "audio/mpeg"
	}
	return "audio/wav"
}

// Mastering presets — named parameter bundles, not separate code paths.
type MasterPreset string

const (
	PresetDefault   MasterPreset = "default"
	PresetWarm      MasterPreset = "warm"
	PresetBright    MasterPreset = "bright"
	PresetBassHeavy MasterPreset = "bass_heavy"
	PresetLoud      MasterPreset = "loud"
)

var ValidPresets = []MasterPreset{
	PresetDefault, PresetWarm, PresetBright, PresetBassHeavy, PresetLoud,
}
