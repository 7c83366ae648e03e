// Package probe uploads one audio file to the processing endpoint and turns the
// outcome into a model.Report.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/ehr"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/logging"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/model"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/utils"
	"github.com/google/uuid"
)

const (
	acceptHeader        = "application/json, text/plain, */*"
	maxLoggedBodyLength = 2048
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type Probe struct {
	cfg        model.ProbeConfig
	httpClient *http.Client
}

func New(opts ...model.ProbeOption) (*Probe, error) {
	cfg := model.ResolveProbeOpts(opts...)
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		return nil, utils.WrapIfNotNil(errors.New("process url is required"))
	}
	if cfg.Strictness != model.StrictnessStrict && cfg.Strictness != model.StrictnessLenient {
		return nil, utils.WrapIfNotNil(fmt.Errorf("unknown strictness %q", cfg.Strictness))
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Probe{cfg: cfg, httpClient: httpClient}, nil
}

func (p *Probe) Strictness() model.Strictness {
	return p.cfg.Strictness
}

// Run uploads req and validates the response. It never returns an error: every
// failure, including a panic below this call, becomes a failing Report.
func (p *Probe) Run(ctx context.Context, session model.Session, req model.UploadRequest) (report model.Report) {
	started := time.Now()
	runID := session.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logging.WithRunID(ctx, runID)
	log := logging.NewLogger(ctx).WithField("strictness", p.cfg.Strictness)

	statusCode := 0
	defer func() {
		if recovered := recover(); recovered != nil {
			utils.PrintStack("probe", log)
			report = model.FailureReport(model.NewProbeError(model.ErrorKindTransport, utils.RecoveredError(recovered)))
		}
		report.RunID = runID
		report.StatusCode = statusCode
		report.StartedAt = started
		report.FinishedAt = time.Now()
	}()

	log.Infof("uploading %s to %s", filepath.Base(req.AudioPath), p.cfg.URL)

	body, statusCode, err := p.upload(ctx, session, req, runID)
	if err != nil {
		log.Errorf("❌ upload failed: %v", err)
		return model.FailureReport(model.AsProbeError(err, model.ErrorKindTransport))
	}

	text, err := ehr.Validate(body, p.cfg.Sections, p.cfg.Strictness)
	if err != nil {
		if errors.Is(err, ehr.ErrInvalidJSON) {
			log.Errorf("❌ Response content: %s", truncate(string(body), maxLoggedBodyLength))
		}
		log.Errorf("❌ validation failed: %v", err)
		return model.FailureReport(model.AsProbeError(err, model.ErrorKindMalformedResponse))
	}

	log.Infof("✅ probe passed in %s", time.Since(started).Round(time.Millisecond))
	return model.SuccessReport(text)
}

// upload performs the bounded process_audio call and returns the raw body of a
// 200 response.
func (p *Probe) upload(ctx context.Context, session model.Session, req model.UploadRequest, runID string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	payload, contentType, err := buildMultipartBody(req)
	if err != nil {
		return nil, 0, model.NewProbeError(model.ErrorKindTransport, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, payload)
	if err != nil {
		return nil, 0, model.NewProbeError(model.ErrorKindTransport, err)
	}
	httpRequest.Header.Set("Content-Type", contentType)
	httpRequest.Header.Set("Authorization", session.AuthorizationHeader())
	httpRequest.Header.Set("Accept", acceptHeader)
	httpRequest.Header.Set("X-Request-ID", runID)
	if p.cfg.Origin != "" {
		httpRequest.Header.Set("Origin", p.cfg.Origin)
	}
	if p.cfg.Referer != "" {
		httpRequest.Header.Set("Referer", p.cfg.Referer)
	}

	httpResponse, err := p.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("request timed out after %s: %w", p.cfg.Timeout, err)
		}
		return nil, 0, model.NewProbeError(model.ErrorKindTransport, err)
	}
	defer httpResponse.Body.Close()

	responseBits, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("response timed out after %s: %w", p.cfg.Timeout, err)
		}
		return nil, httpResponse.StatusCode, model.NewProbeError(model.ErrorKindTransport, err)
	}

	if httpResponse.StatusCode != http.StatusOK {
		return nil, httpResponse.StatusCode, model.NewProbeError(model.ErrorKindTransport,
			fmt.Errorf("expected 200 but got %d", httpResponse.StatusCode))
	}
	return responseBits, httpResponse.StatusCode, nil
}

// buildMultipartBody writes the JSON "request" part and the "audio_file" part.
// The audio file is closed before this returns.
func buildMultipartBody(req model.UploadRequest) (io.Reader, string, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return nil, "", errors.New("audio file path is required")
	}

	requestJSON, err := json.Marshal(req)
	if err != nil {
		return nil, "", utils.WrapIfNotNil(err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	requestHeader := make(textproto.MIMEHeader)
	requestHeader.Set("Content-Disposition", `form-data; name="request"`)
	requestHeader.Set("Content-Type", "application/json")
	requestPart, err := writer.CreatePart(requestHeader)
	if err != nil {
		return nil, "", utils.WrapIfNotNil(err)
	}
	if _, err := requestPart.Write(requestJSON); err != nil {
		return nil, "", utils.WrapIfNotNil(err)
	}

	if err := writeAudioPart(writer, req.AudioPath); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", utils.WrapIfNotNil(err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func writeAudioPart(writer *multipart.Writer, audioPath string) error {
	file, err := os.Open(audioPath)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	defer func() {
		_ = file.Close()
	}()

	audioHeader := make(textproto.MIMEHeader)
	audioHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio_file"; filename="%s"`,
		quoteEscaper.Replace(filepath.Base(audioPath))))
	audioHeader.Set("Content-Type", resolveAudioMIMEType(audioPath))
	audioPart, err := writer.CreatePart(audioHeader)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}

	if _, err := io.Copy(audioPart, file); err != nil {
		return utils.WrapIfNotNil(err)
	}
	return nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "…"
}
