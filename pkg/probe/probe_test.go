package probe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/ehr"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/model"
	"github.com/stretchr/testify/suite"
)

const fakeAudio = "RIFF....WAVEfmt fake audio bytes"

type ProbeSuite struct {
	suite.Suite
	handler   http.HandlerFunc
	server    *httptest.Server
	audioPath string
	session   model.Session
}

func TestProbeSuite(t *testing.T) {
	suite.Run(t, new(ProbeSuite))
}

func (s *ProbeSuite) SetupTest() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, completeResponse())
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))

	s.audioPath = filepath.Join(s.T().TempDir(), "prism_audio_for_testing.wav")
	s.Require().NoError(os.WriteFile(s.audioPath, []byte(fakeAudio), 0o600))

	s.session = model.Session{Token: "tok-1", RunID: "run-1"}
}

func (s *ProbeSuite) TearDownTest() {
	s.server.Close()
}

func (s *ProbeSuite) newProbe(opts ...model.ProbeOption) *Probe {
	base := []model.ProbeOption{
		model.WithURL(s.server.URL + "/process_audio"),
		model.WithHTTPClient(s.server.Client()),
	}
	p, err := New(append(base, opts...)...)
	s.Require().NoError(err)
	return p
}

func (s *ProbeSuite) uploadRequest() model.UploadRequest {
	return model.NewUploadRequest(model.UploadRequest{
		PatientID:  "AIGG.20893625",
		VisitID:    "1514366",
		Name:       "Mrs. Test Patient",
		DoctorID:   "10009303",
		DoctorName: "Dr. Test (Med.Gastro)",
		AudioPath:  s.audioPath,
	})
}

func completeResponse() map[string]any {
	summary := map[string]any{}
	for _, section := range model.DefaultSections() {
		summary[section.Label] = []any{map[string]any{"text": section.Label + " text"}}
	}
	return map[string]any{
		"ehr": map[string]any{
			"summary":  summary,
			"metadata": map[string]any{"service_used": "gemini"},
		},
		"transcription": "transcribed",
		"translation":   map[string]any{"text": "translated"},
	}
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

func (s *ProbeSuite) TestNewRequiresURL() {
	p, err := New()
	s.Nil(p)
	s.Error(err)
}

func (s *ProbeSuite) TestNewRejectsUnknownStrictness() {
	p, err := New(model.WithURL("http://example.local"), model.WithStrictness("sloppy"))
	s.Nil(p)
	s.Error(err)
}

func (s *ProbeSuite) TestRunSendsMultipartRequest() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/process_audio", r.URL.Path)
		s.Equal("Bearer tok-1", r.Header.Get("Authorization"))
		s.Equal(acceptHeader, r.Header.Get("Accept"))
		s.Equal("https://client.example:4200", r.Header.Get("Origin"))
		s.Equal("https://client.example:4200/", r.Header.Get("Referer"))
		s.Equal("run-1", r.Header.Get("X-Request-ID"))

		reader, err := r.MultipartReader()
		if !s.NoError(err) {
			return
		}

		requestPart, err := reader.NextPart()
		if !s.NoError(err) {
			return
		}
		s.Equal("request", requestPart.FormName())
		s.Equal("application/json", requestPart.Header.Get("Content-Type"))
		var sent map[string]any
		s.NoError(json.NewDecoder(requestPart).Decode(&sent))
		s.Equal("generate", sent["operation_type"])
		s.Equal("AIGG.20893625", sent["patient_id"])
		s.Equal(false, sent["enable_native_transcript"])
		s.Len(sent["section_ids"], len(model.DefaultSectionIDs))
		s.NotContains(sent, "AudioPath")

		audioPart, err := reader.NextPart()
		if !s.NoError(err) {
			return
		}
		s.Equal("audio_file", audioPart.FormName())
		s.Equal("prism_audio_for_testing.wav", audioPart.FileName())
		s.Equal("audio/wav", audioPart.Header.Get("Content-Type"))
		audio, err := io.ReadAll(audioPart)
		s.NoError(err)
		s.Equal(fakeAudio, string(audio))

		writeJSON(w, completeResponse())
	}

	p := s.newProbe(model.WithHeaders("https://client.example:4200", "https://client.example:4200/"))
	report := p.Run(context.Background(), s.session, s.uploadRequest())

	s.Require().True(report.Success, report.Body)
	s.Nil(report.Err)
	s.Equal(http.StatusOK, report.StatusCode)
	s.Equal("run-1", report.RunID)
	s.Contains(report.Body, "present_complaints: Present Complaints text")
	s.Contains(report.Body, "\nService Used: gemini\n")
	s.False(report.FinishedAt.Before(report.StartedAt))
}

func (s *ProbeSuite) TestRunNon200IsFailure() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}

	report := s.newProbe().Run(context.Background(), s.session, s.uploadRequest())

	s.False(report.Success)
	s.Equal(http.StatusBadGateway, report.StatusCode)
	s.Equal(model.ErrorKindTransport, report.Kind())
	s.True(strings.HasPrefix(report.Body, model.FailureBodyPrefix))
	s.Contains(report.Body, "expected 200 but got 502")
}

func (s *ProbeSuite) TestRunTimeoutIsFailure() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}

	report := s.newProbe(model.WithTimeout(50*time.Millisecond)).
		Run(context.Background(), s.session, s.uploadRequest())

	s.False(report.Success)
	s.Equal(model.ErrorKindTransport, report.Kind())
	s.Contains(report.Body, "timed out")
}

func (s *ProbeSuite) TestRunTransportErrorIsFailure() {
	p := s.newProbe()
	s.server.Close()

	report := p.Run(context.Background(), s.session, s.uploadRequest())

	s.False(report.Success)
	s.Equal(model.ErrorKindTransport, report.Kind())
}

func (s *ProbeSuite) TestRunMissingAudioFileIsFailure() {
	req := s.uploadRequest()
	req.AudioPath = filepath.Join(s.T().TempDir(), "missing.wav")

	report := s.newProbe().Run(context.Background(), s.session, req)

	s.False(report.Success)
	s.Equal(model.ErrorKindTransport, report.Kind())
	s.Zero(report.StatusCode)
}

func (s *ProbeSuite) TestRunStrictMalformedSection() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		response := completeResponse()
		response["ehr"].(map[string]any)["summary"].(map[string]any)["Allergies"] = []any{}
		writeJSON(w, response)
	}

	report := s.newProbe(model.WithStrictness(model.StrictnessStrict)).
		Run(context.Background(), s.session, s.uploadRequest())

	s.False(report.Success)
	s.Require().NotNil(report.Err)
	s.Equal(model.ErrorKindMalformedResponse, report.Err.Kind)
	s.Equal("Allergies", report.Err.Section)
	s.Contains(report.Body, "Allergies")
}

func (s *ProbeSuite) TestRunLenientMalformedSection() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		response := completeResponse()
		response["ehr"].(map[string]any)["summary"].(map[string]any)["Allergies"] = []any{}
		writeJSON(w, response)
	}

	report := s.newProbe(model.WithStrictness(model.StrictnessLenient)).
		Run(context.Background(), s.session, s.uploadRequest())

	s.True(report.Success)
	s.Contains(report.Body, "Allergies: "+ehr.Placeholder)
}

func (s *ProbeSuite) TestRunInvalidJSONIsFailure() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}

	report := s.newProbe(model.WithStrictness(model.StrictnessLenient)).
		Run(context.Background(), s.session, s.uploadRequest())

	s.False(report.Success)
	s.Equal(model.ErrorKindMalformedResponse, report.Kind())
	s.Contains(report.Body, "failed to parse JSON response")
}

func (s *ProbeSuite) TestRunTwiceYieldsSameVerdict() {
	p := s.newProbe()

	first := p.Run(context.Background(), s.session, s.uploadRequest())
	second := p.Run(context.Background(), s.session, s.uploadRequest())

	s.Equal(first.Success, second.Success)
	s.True(first.Success)
}

func (s *ProbeSuite) TestRunGeneratesRunIDWhenSessionHasNone() {
	report := s.newProbe().Run(context.Background(), model.Session{Token: "tok"}, s.uploadRequest())
	s.NotEmpty(report.RunID)
}

type panicTransport struct{}

func (panicTransport) RoundTrip(*http.Request) (*http.Response, error) {
	panic("transport exploded")
}

func (s *ProbeSuite) TestRunRecoversPanic() {
	p := s.newProbe(model.WithHTTPClient(&http.Client{Transport: panicTransport{}}))

	report := p.Run(context.Background(), s.session, s.uploadRequest())

	s.False(report.Success)
	s.Contains(report.Body, "transport exploded")
	s.Equal("run-1", report.RunID)
}

func (s *ProbeSuite) TestResolveAudioMIMEType() {
	s.Equal("audio/wav", resolveAudioMIMEType("a.WAV"))
	s.Equal("audio/mpeg", resolveAudioMIMEType("a.mp3"))
	s.Equal("audio/mp4", resolveAudioMIMEType("a.m4a"))
	s.Equal("audio/wav", resolveAudioMIMEType("noext"))
	s.Equal("audio/wav", resolveAudioMIMEType("notes.txt"))
}

func (s *ProbeSuite) TestTruncate() {
	s.Equal("abc", truncate("abc", 5))
	s.Equal("ab…", truncate("abcdef", 2))
}
