// Package master runs the mastering fallback chain for one job: decode,
// ordered strategy attempts, export encoding.
package master

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/masterlab/api/internal/audio"
	"github.com/masterlab/api/internal/client"
	"github.com/masterlab/api/internal/dsp"
	"github.com/masterlab/api/internal/model"
	"github.com/masterlab/api/internal/storage"
	"github.com/masterlab/api/internal/strategy"
)

// Pipeline stages, in order. Purely informational: they drive progress
// reporting and logging.
const (
	StageDecoding   = "decoding"
	StageAttempting = "attempting"
	StageEncoding   = "encoding"
	StageDone       = "done"
)

// Progress receives stage transitions while a job runs.
type Progress func(stage string, percent int, step string)

// Decoder turns an input path into canonical PCM.
type Decoder interface {
	Decode(path string) (*audio.Buffer, error)
}

// Encoder serializes canonical PCM into an export container.
type Encoder interface {
	Encode(buf *audio.Buffer, format model.ExportFormat) ([]byte, error)
}

// Orchestrator owns the ordered strategy list and the post-win export step.
// Strategies are tried strictly in priority order, never concurrently, and
// exactly one strategy tag ends up on the result.
type Orchestrator struct {
	decoder      Decoder
	encoder      Encoder
	strategies   []strategy.Strategy
	processor    client.AudioProcessor
	files        *storage.Storage
	stageTimeout time.Duration
}

// DefaultStrategies returns the chain in priority order.
func DefaultStrategies(processor client.AudioProcessor) []strategy.Strategy {
	return []strategy.Strategy{
		strategy.NewReferenceMatch(processor),
		strategy.NewParametric(),
		strategy.NewLoudnessOnly(),
		strategy.NewPassthrough(),
		strategy.NewPlaceholderTone(),
	}
}

// New assembles an orchestrator. processor may be an unconfigured client;
// the strategies and export path degrade accordingly.
func New(codec *audio.Codec, strategies []strategy.Strategy, processor client.AudioProcessor, files *storage.Storage, stageTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		decoder:      codec,
		encoder:      codec,
		strategies:   strategies,
		processor:    processor,
		files:        files,
		stageTimeout: stageTimeout,
	}
}

// NewWithDecoder is New with a custom decoder/encoder pair, used by tests.
func NewWithDecoder(dec Decoder, enc Encoder, strategies []strategy.Strategy, processor client.AudioProcessor, files *storage.Storage, stageTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		decoder:      dec,
		encoder:      enc,
		strategies:   strategies,
		processor:    processor,
		files:        files,
		stageTimeout: stageTimeout,
	}
}

// Run executes the full chain for one job and returns the final result.
// Mastering-level failures (decode included) never produce an error: the
// chain bottoms out at the placeholder tone and the job completes with a
// diagnostic. A non-nil error means an infrastructure fault (output could
// not be persisted) and the job should be marked failed.
func (o *Orchestrator) Run(ctx context.Context, jobID string, payload model.MasterJobPayload, progress Progress) (*model.MasteringResult, error) {
	if progress == nil {
		progress = func(string, int, string) {}
	}
	params := payload.Params.Clamp()
	var notes []string

	// Decode target. Failure is recorded, not fatal: the placeholder
	// strategy covers the undecodable case.
	progress(StageDecoding, 10, "Decoding input...")
	target, err := o.decodeWithTimeout(ctx, payload.InputPath)
	if err != nil {
		log.Printf("Job %s: target decode failed: %v", jobID, err)
		notes = append(notes, fmt.Sprintf("input decode failed: %v", err))
		target = nil
	}

	var reference *audio.Buffer
	if payload.ReferencePath != "" && target != nil {
		reference, err = o.decodeWithTimeout(ctx, payload.ReferencePath)
		if err != nil {
			log.Printf("Job %s: reference decode failed: %v", jobID, err)
			notes = append(notes, fmt.Sprintf("reference decode failed: %v", err))
			reference = nil
		}
	}

	in := strategy.Input{Params: params, Target: target, Reference: reference}

	var (
		winner model.StrategyTag
		output *audio.Buffer
	)
	for i, s := range o.strategies {
		if ok, reason := s.CanRun(in); !ok {
			log.Printf("Job %s: strategy %s skipped: %s", jobID, s.Name(), reason)
			continue
		}

		pct := 20 + i*12
		progress(StageAttempting, pct, fmt.Sprintf("Trying %s...", s.Name()))

		buf, err := o.attemptWithTimeout(ctx, s, in)
		if err != nil {
			if strategy.IsTimeout(err) {
				log.Printf("Job %s: strategy %s timed out", jobID, s.Name())
			} else {
				log.Printf("Job %s: strategy %s failed: %v", jobID, s.Name(), err)
			}
			notes = append(notes, fmt.Sprintf("%s failed: %v", s.Name(), err))
			continue
		}
		if !validOutput(buf) {
			log.Printf("Job %s: strategy %s produced invalid output", jobID, s.Name())
			notes = append(notes, fmt.Sprintf("%s produced invalid output", s.Name()))
			continue
		}
		winner = s.Name()
		output = buf
		break
	}
	if output == nil {
		// Unreachable with the default chain (placeholder cannot fail),
		// but a custom strategy list can get here.
		return nil, fmt.Errorf("no strategy produced output for job %s", jobID)
	}

	progress(StageEncoding, 85, "Encoding output...")
	data, ext, mime, encodeNote := o.export(ctx, output, params.ExportFormat)
	if encodeNote != "" {
		notes = append(notes, encodeNote)
	}

	path, err := o.files.WriteOutput(jobID, ext, data)
	if err != nil {
		return nil, fmt.Errorf("persisting output: %w", err)
	}

	progress(StageDone, 100, "Done")
	log.Printf("Job %s: mastered with %s -> %s (%.1f dBFS)", jobID, winner, path, dsp.MeasureLevel(output))
	return &model.MasteringResult{
		OutputPath:   path,
		StrategyUsed: winner,
		MimeType:     mime,
		Success:      true,
		Diagnostic:   strings.Join(notes, "; "),
	}, nil
}

// export encodes the winning buffer. The mastering decision is already
// final, so an encode failure degrades to raw canonical WAV bytes instead
// of failing the job. Returned note documents any degradation.
func (o *Orchestrator) export(ctx context.Context, buf *audio.Buffer, format model.ExportFormat) (data []byte, ext, mime, note string) {
	if format == model.FormatMP3 && o.processor != nil && o.processor.IsConfigured() {
		wav, err := audio.EncodeWAV(buf)
		if err == nil {
			encCtx, cancel := o.stageContext(ctx)
			resp, err := o.processor.Encode(encCtx, &client.EncodeRequest{Wav: wav, Format: "mp3"})
			cancel()
			if err == nil && len(resp.Data) > 0 {
				return resp.Data, "mp3", model.FormatMP3.MimeType(), ""
			}
			log.Printf("External mp3 encode failed, falling back to wav: %v", err)
			note = fmt.Sprintf("mp3 encode failed (%v); delivered wav instead", err)
		}
	}

	data, err := o.encoder.Encode(buf, format)
	if err == nil {
		return data, string(format), format.MimeType(), note
	}

	// Raw canonical PCM fallback: a wav container around the canonical
	// buffer always works.
	if note == "" {
		note = fmt.Sprintf("%s encode unavailable (%v); delivered wav instead", format, err)
	}
	data, err = audio.EncodeWAV(buf)
	if err != nil {
		// Cannot happen for a validated buffer; keep the job alive with
		// the bytes we can produce.
		data = nil
	}
	return data, "wav", model.FormatWAV.MimeType(), note
}

// decodeWithTimeout bounds a decode call so a pathological container never
// wedges a worker. The decode goroutine is left to finish on its own after
// a timeout; its result is discarded.
func (o *Orchestrator) decodeWithTimeout(ctx context.Context, path string) (*audio.Buffer, error) {
	dctx, cancel := o.stageContext(ctx)
	defer cancel()

	type decoded struct {
		buf *audio.Buffer
		err error
	}
	ch := make(chan decoded, 1)
	go func() {
		buf, err := o.decoder.Decode(path)
		ch <- decoded{buf, err}
	}()

	select {
	case d := <-ch:
		return d.buf, d.err
	case <-dctx.Done():
		return nil, &audio.DecodeError{Path: path, Err: dctx.Err()}
	}
}

func (o *Orchestrator) attemptWithTimeout(ctx context.Context, s strategy.Strategy, in strategy.Input) (*audio.Buffer, error) {
	sctx, cancel := o.stageContext(ctx)
	defer cancel()

	type attempted struct {
		buf *audio.Buffer
		err error
	}
	ch := make(chan attempted, 1)
	go func() {
		buf, err := s.Attempt(sctx, in)
		ch <- attempted{buf, err}
	}()

	select {
	case a := <-ch:
		return a.buf, a.err
	case <-sctx.Done():
		return nil, &strategy.Error{Strategy: s.Name(), Cause: sctx.Err()}
	}
}

func (o *Orchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.stageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.stageTimeout)
}

// validOutput is the success gate: a strategy only wins when its buffer has
// frames and canonical shape.
func validOutput(buf *audio.Buffer) bool {
	return buf != nil && buf.IsCanonical()
}
