package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/masterlab/api/internal/model"
	"github.com/masterlab/api/internal/service"
	"github.com/masterlab/api/internal/store"
	"github.com/masterlab/api/pkg/response"
)

const maxUploadSize = 100 * 1024 * 1024 // 100MB

var validUploadTypes = map[string]bool{
	"audio/wav":                true,
	"audio/x-wav":              true,
	"audio/wave":               true,
	"audio/mpeg":               true,
	"audio/mp3":                true,
	"application/octet-stream": true, // sniffed by the decoder
}

type MasterHandler struct {
	service   *service.MasterService
	validator *validator.Validate
}

func NewMasterHandler(svc *service.MasterService, v *validator.Validate) *MasterHandler {
	return &MasterHandler{service: svc, validator: v}
}

// Submit handles POST /api/master: multipart form with a required `track`
// file, optional `reference` file, and parameter fields. Dial and loudness
// values outside their ranges are clamped, never rejected.
func (h *MasterHandler) Submit(c *fiber.Ctx) error {
	req := model.MasterSubmitRequest{
		Preset:       c.FormValue("preset"),
		ExportFormat: c.FormValue("exportFormat"),
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	params := model.PresetParams(model.MasterPreset(req.Preset))
	if req.ExportFormat != "" {
		params.ExportFormat = model.ExportFormat(req.ExportFormat)
	}
	overrideDial(c, "bassBoost", &params.BassBoost)
	overrideDial(c, "brightness", &params.Brightness)
	overrideDial(c, "compression", &params.Compression)
	overrideDial(c, "stereoWidth", &params.StereoWidth)
	overrideDial(c, "targetLoudnessDbfs", &params.TargetLoudnessDbfs)
	params = params.Clamp()

	track, err := c.FormFile("track")
	if err != nil {
		return response.ValidationError(c, "Track file is required", nil)
	}
	if err := checkUpload(track); err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	trackFile, err := track.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open track file")
	}
	defer trackFile.Close()

	var refFile multipart.File
	refName := ""
	if ref, err := c.FormFile("reference"); err == nil && ref != nil {
		if err := checkUpload(ref); err != nil {
			return response.ValidationError(c, err.Error(), nil)
		}
		refFile, err = ref.Open()
		if err != nil {
			return response.ServiceError(c, "Failed to open reference file")
		}
		defer refFile.Close()
		refName = ref.Filename
	}

	var refReader io.Reader
	if refFile != nil {
		refReader = refFile
	}
	result, err := h.service.SubmitUpload(c.Context(), track.Filename, trackFile, refName, refReader, params)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.Accepted(c, result)
}

// Status handles GET /api/master/status/:jobId.
func (h *MasterHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}

// Result handles GET /api/master/result/:jobId.
func (h *MasterHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), jobID)
	if err != nil {
		return resultError(c, err)
	}
	return response.OK(c, result)
}

// Download handles GET /api/master/download/:jobId and streams the
// processed file.
func (h *MasterHandler) Download(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	path, mime, err := h.service.ResolveDownload(c.Context(), jobID)
	if err != nil {
		return resultError(c, err)
	}
	if err := c.SendFile(path); err != nil {
		return response.NotFound(c, "Output file no longer available")
	}
	// after SendFile so the sniffed type does not win
	c.Set(fiber.HeaderContentType, mime)
	return nil
}

func resultError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, store.ErrNotReady):
		return response.NotReady(c, "Job not completed yet")
	case errors.Is(err, service.ErrJobFailed):
		return response.JobFailed(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}

func overrideDial(c *fiber.Ctx, field string, dst *float64) {
	raw := c.FormValue(field)
	if raw == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// non-numeric input keeps the preset value
		return
	}
	*dst = v
}

func checkUpload(file *multipart.FileHeader) error {
	if file.Size > maxUploadSize {
		return errors.New("file size exceeds 100MB limit")
	}
	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !validUploadTypes[contentType] {
		return errors.New("invalid file type, supported: WAV, MP3")
	}
	return nil
}

func formatValidationErrors(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fe.Field()+" failed on "+fe.Tag())
	}
	return out
}
