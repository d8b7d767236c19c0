package model

import "testing"

func TestClamp_ForcesRanges(t *testing.T) {
	p := MasteringParams{
		BassBoost:          -3,
		Brightness:         42,
		Compression:        7,
		StereoWidth:        10.5,
		TargetLoudnessDbfs: -99,
		ExportFormat:       "ogg",
	}.Clamp()

	if p.BassBoost != DialMin || p.Brightness != DialMax || p.StereoWidth != DialMax {
		t.Errorf("dials not clamped: %+v", p)
	}
	if p.Compression != 7 {
		t.Errorf("in-range dial changed: %f", p.Compression)
	}
	if p.TargetLoudnessDbfs != LoudnessMinDbfs {
		t.Errorf("loudness not clamped: %f", p.TargetLoudnessDbfs)
	}
	if p.ExportFormat != FormatWAV {
		t.Errorf("unknown format should default to wav, got %s", p.ExportFormat)
	}
}

func TestClamp_LoudnessUpperBound(t *testing.T) {
	p := DefaultParams()
	p.TargetLoudnessDbfs = 0
	if got := p.Clamp().TargetLoudnessDbfs; got != LoudnessMaxDbfs {
		t.Errorf("expected %f, got %f", LoudnessMaxDbfs, got)
	}
}

func TestPresetParams(t *testing.T) {
	if p := PresetParams(PresetLoud); p.TargetLoudnessDbfs != -9 || p.Compression != 8 {
		t.Errorf("loud preset wrong: %+v", p)
	}
	if p := PresetParams(PresetWarm); p.BassBoost <= DialMid || p.Brightness >= DialMid {
		t.Errorf("warm preset should tilt toward bass: %+v", p)
	}
	if p := PresetParams("nonsense"); p != DefaultParams() {
		t.Errorf("unknown preset should fall back to defaults: %+v", p)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for status, want := range map[JobStatus]bool{
		JobStatusQueued:     false,
		JobStatusProcessing: false,
		JobStatusCompleted:  true,
		JobStatusFailed:     true,
	} {
		if status.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, !want, want)
		}
	}
}

func TestExportFormatMimeType(t *testing.T) {
	if FormatWAV.MimeType() != "audio/wav" {
		t.Error("wav mime wrong")
	}
	if FormatMP3.MimeType() != "audio/mpeg" {
		t.Error("mp3 mime wrong")
	}
}
