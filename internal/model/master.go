package model

import "time"

// Parameter ranges. Out-of-range values are clamped at ingress, never
// rejected.
const (
	DialMin = 0.0
	DialMax = 10.0
	DialMid = 5.0

	LoudnessMinDbfs     = -24.0
	LoudnessMaxDbfs     = -6.0
	DefaultLoudnessDbfs = -14.0
)

// MasteringParams are the dials driving the parametric chain. All dials run
// 0–10 with 5 as the neutral midpoint.
type MasteringParams struct {
	BassBoost          float64      `json:"bassBoost"`
	Brightness         float64      `json:"brightness"`
	Compression        float64      `json:"compression"`
	StereoWidth        float64      `json:"stereoWidth"`
	TargetLoudnessDbfs float64      `json:"targetLoudnessDbfs"`
	ExportFormat       ExportFormat `json:"exportFormat"`
}

// DefaultParams returns neutral midpoints, -14 dBFS, WAV export.
func DefaultParams() MasteringParams {
	return MasteringParams{
		BassBoost:          DialMid,
		Brightness:         DialMid,
		Compression:        DialMid,
		StereoWidth:        DialMid,
		TargetLoudnessDbfs: DefaultLoudnessDbfs,
		ExportFormat:       FormatWAV,
	}
}

// Clamp forces every field into its documented range and defaults an unknown
// export format to WAV.
func (p MasteringParams) Clamp() MasteringParams {
	p.BassBoost = clamp(p.BassBoost, DialMin, DialMax)
	p.Brightness = clamp(p.Brightness, DialMin, DialMax)
	p.Compression = clamp(p.Compression, DialMin, DialMax)
	p.StereoWidth = clamp(p.StereoWidth, DialMin, DialMax)
	p.TargetLoudnessDbfs = clamp(p.TargetLoudnessDbfs, LoudnessMinDbfs, LoudnessMaxDbfs)
	if p.ExportFormat != FormatMP3 {
		p.ExportFormat = FormatWAV
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PresetParams expands a named preset into its parameter bundle. Unknown
// presets fall back to the defaults.
func PresetParams(preset MasterPreset) MasteringParams {
	p := DefaultParams()
	switch preset {
	case PresetWarm:
		p.BassBoost = 7
		p.Brightness = 3
		p.Compression = 6
	case PresetBright:
		p.BassBoost = 4
		p.Brightness = 8
		p.StereoWidth = 6
	case PresetBassHeavy:
		p.BassBoost = 9
		p.Brightness = 4
		p.Compression = 6
	case PresetLoud:
		p.Compression = 8
		p.TargetLoudnessDbfs = -9
	}
	return p
}

// MasteringResult is the final outcome attached to a completed job.
type MasteringResult struct {
	OutputPath   string      `json:"outputPath"`
	StrategyUsed StrategyTag `json:"strategyUsed"`
	MimeType     string      `json:"mimeType"`
	Success      bool        `json:"success"`
	Diagnostic   string      `json:"diagnostic,omitempty"`
}

// MasterSubmitRequest carries the multipart form fields of a submission.
// Files arrive separately; dial ranges are clamped in MasteringParams, so
// validation only covers enumerated fields.
type MasterSubmitRequest struct {
	Preset       string `json:"preset" validate:"omitempty,oneof=default warm bright bass_heavy loud"`
	ExportFormat string `json:"exportFormat" validate:"omitempty,oneof=wav mp3"`
}

// MasterSubmitResponse acknowledges an accepted job.
type MasterSubmitResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

// MasterStatusResponse is a non-blocking snapshot of a job.
type MasterStatusResponse struct {
	JobID       string    `json:"jobId"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"currentStep,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Error       string    `json:"error,omitempty"`
}

// MasterResultResponse describes a completed job's output.
type MasterResultResponse struct {
	JobID        string      `json:"jobId"`
	FilePath     string      `json:"filePath"`
	StrategyUsed StrategyTag `json:"strategyUsed"`
	MimeType     string      `json:"mimeType"`
	Diagnostic   string      `json:"diagnostic,omitempty"`
}
