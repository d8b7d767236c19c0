package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/masterlab/api/internal/audio"
	"github.com/masterlab/api/internal/config"
	"github.com/masterlab/api/internal/dsp"
	"github.com/masterlab/api/internal/handler"
	"github.com/masterlab/api/internal/master"
	"github.com/masterlab/api/internal/middleware"
	"github.com/masterlab/api/internal/queue"
	"github.com/masterlab/api/internal/service"
	"github.com/masterlab/api/internal/storage"
	"github.com/masterlab/api/internal/store"
	"github.com/masterlab/api/internal/worker"
)

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
}

// setupApp creates a Fiber app wired like main.go but on the in-process job
// backend: memory store, local worker pool, no Redis, no match engine. The
// chain degrades exactly the way an unconfigured deployment does.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	files, err := storage.New(&config.StorageConfig{
		UploadDir: t.TempDir(),
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	validate := validator.New()
	codec := audio.NewCodec()
	orchestrator := master.New(codec, master.DefaultStrategies(nil), nil, files, 30*time.Second)

	jobStore := store.NewMemoryStore()
	pool := queue.NewLocalPool(worker.NewMasterWorker(jobStore, orchestrator, nil), 16)
	pool.Start(2)
	t.Cleanup(pool.Stop)

	masterService := service.NewMasterService(jobStore, pool, files)
	masterHandler := handler.NewMasterHandler(masterService, validate)
	rateLimiter := middleware.NewRateLimiter(nil) // no Redis => no throttling

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   false,
				"matcher": false,
			},
		})
	})

	api := app.Group("/api")
	masterGroup := api.Group("/master")
	masterGroup.Post("/", rateLimiter.MasterLimit(10000), masterHandler.Submit)
	masterGroup.Get("/status/:jobId", rateLimiter.StatusLimit(10000), masterHandler.Status)
	masterGroup.Get("/result/:jobId", rateLimiter.StatusLimit(10000), masterHandler.Result)
	masterGroup.Get("/download/:jobId", masterHandler.Download)

	return &testApp{app: app}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequest(method, path, body)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return app.Test(req, -1)
}

// submitTrack posts a multipart mastering request and returns the response.
func submitTrack(t *testing.T, app *fiber.App, fields map[string]string, wav []byte) (*http.Response, error) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("field %s: %v", k, err)
		}
	}
	if wav != nil {
		fw, err := w.CreateFormFile("track", "track.wav")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := fw.Write(wav); err != nil {
			t.Fatalf("writing track: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return doRequest(app, http.MethodPost, "/api/master/", &buf, map[string]string{
		"Content-Type": w.FormDataContentType(),
	})
}

// toneWav renders a mono sine as WAV bytes for upload.
func toneWav(t *testing.T, dur float64) []byte {
	t.Helper()
	buf := dsp.Tone(440, dur, audio.CanonicalSampleRate, 1, 0.8, 0)
	data, err := audio.EncodeWAV(buf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
