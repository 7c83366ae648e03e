package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ModelSuite struct {
	suite.Suite
}

func TestModelSuite(t *testing.T) {
	suite.Run(t, new(ModelSuite))
}

func (s *ModelSuite) TestDefaultSectionsOrder() {
	sections := DefaultSections()

	s.Require().Len(sections, 12)
	s.Equal(Section{Label: "Present Complaints", Field: "present_complaints"}, sections[0])
	s.Equal("Family / Social / Immunization History", sections[2].Label)
	s.Equal(Section{Label: "Plan of Care", Field: "Plan_of_care"}, sections[11])
}

func (s *ModelSuite) TestParseSectionsEmptyUsesDefaults() {
	sections, err := ParseSections("  ")
	s.Require().NoError(err)
	s.Equal(DefaultSections(), sections)
}

func (s *ModelSuite) TestParseSectionsPairsAndBareLabels() {
	sections, err := ParseSections("Allergies=allergy_field, Diagnosis ,")
	s.Require().NoError(err)
	s.Equal([]Section{
		{Label: "Allergies", Field: "allergy_field"},
		{Label: "Diagnosis", Field: "Diagnosis"},
	}, sections)
}

func (s *ModelSuite) TestParseSectionsRejectsDuplicatesAndEmptyLabels() {
	_, err := ParseSections("Allergies,Allergies=x")
	s.Error(err)

	_, err = ParseSections("=field")
	s.Error(err)

	_, err = ParseSections(",,")
	s.Error(err)
}

func (s *ModelSuite) TestParseStrictness() {
	mode, err := ParseStrictness("")
	s.Require().NoError(err)
	s.Equal(StrictnessStrict, mode)

	mode, err = ParseStrictness(" Lenient ")
	s.Require().NoError(err)
	s.Equal(StrictnessLenient, mode)

	_, err = ParseStrictness("relaxed")
	s.Error(err)
}

func (s *ModelSuite) TestNewUploadRequestAppliesDefaultsAndCopies() {
	ids := []string{"1", "2"}
	req := NewUploadRequest(UploadRequest{SectionIDs: ids, PatientID: "P1"})
	ids[0] = "changed"

	s.Equal(DefaultOperationType, req.OperationType)
	s.Equal([]string{"1", "2"}, req.SectionIDs)
	s.Equal("P1", req.PatientID)

	defaults := NewUploadRequest(UploadRequest{})
	s.Equal(DefaultSectionIDs, defaults.SectionIDs)
	defaults.SectionIDs[0] = "mutated"
	s.Equal("4", DefaultSectionIDs[0])
}

func (s *ModelSuite) TestProbeErrorMessageAndUnwrap() {
	cause := errors.New("missing or malformed field: Allergies")
	err := NewSectionError("Allergies", cause)

	s.Equal("malformed_response [Allergies]: missing or malformed field: Allergies", err.Error())
	s.ErrorIs(err, cause)

	wrapped := fmt.Errorf("validate: %w", err)
	s.Equal(ErrorKindMalformedResponse, KindOf(wrapped))
	s.Equal(ErrorKind(""), KindOf(cause))
}

func (s *ModelSuite) TestAsProbeErrorFallback() {
	s.Nil(AsProbeError(nil, ErrorKindTransport))

	plain := AsProbeError(errors.New("dial tcp: refused"), ErrorKindTransport)
	s.Equal(ErrorKindTransport, plain.Kind)

	typed := NewProbeError(ErrorKindAuthentication, errors.New("401"))
	s.Same(typed, AsProbeError(fmt.Errorf("wrap: %w", typed), ErrorKindTransport))
}

func (s *ModelSuite) TestFailureReportBody() {
	report := FailureReport(NewProbeError(ErrorKindTransport, errors.New("expected 200 but got 500")))

	s.False(report.Success)
	s.Equal(ErrorKindTransport, report.Kind())
	s.Equal("❌ Test failed with error:\ntransport: expected 200 but got 500", report.Body)

	s.True(SuccessReport("ok").Success)
	s.Equal(ErrorKind(""), SuccessReport("ok").Kind())
}

func (s *ModelSuite) TestReportDuration() {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := Report{StartedAt: start, FinishedAt: start.Add(3 * time.Second)}
	s.Equal(3*time.Second, report.Duration())
	s.Zero(Report{}.Duration())
}

func (s *ModelSuite) TestResolveProbeOptsDefaults() {
	cfg := ResolveProbeOpts()

	s.Equal(StrictnessStrict, cfg.Strictness)
	s.Equal(DefaultProbeTimeout, cfg.Timeout)
	s.Len(cfg.Sections, 12)
}

func (s *ModelSuite) TestResolveProbeOptsOverrides() {
	cfg := ResolveProbeOpts(
		WithURL("https://example.local/process_audio"),
		WithStrictness(StrictnessLenient),
		WithTimeout(2*time.Second),
		WithSections([]Section{{Label: "Allergies", Field: "Allergies"}}),
		WithHeaders("https://origin.local", "https://origin.local/"),
		nil,
	)

	s.Equal("https://example.local/process_audio", cfg.URL)
	s.Equal(StrictnessLenient, cfg.Strictness)
	s.Equal(2*time.Second, cfg.Timeout)
	s.Len(cfg.Sections, 1)
	s.Equal("https://origin.local", cfg.Origin)
	s.Equal("https://origin.local/", cfg.Referer)
}

func (s *ModelSuite) TestSessionAuthorizationHeader() {
	s.Equal("Bearer abc", Session{Token: "abc"}.AuthorizationHeader())
}
