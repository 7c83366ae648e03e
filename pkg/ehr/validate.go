// Package ehr checks a process_audio response against the expected summary
// sections and renders the report body.
package ehr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/model"
	"github.com/tidwall/gjson"
)

const (
	// Placeholder replaces a section's text in lenient mode when the section is unusable.
	Placeholder = "⚠️ Missing or malformed"
	// NotAvailable replaces a missing trailing field in lenient mode.
	NotAvailable = "N/A"
)

var (
	ErrInvalidJSON   = errors.New("failed to parse JSON response")
	ErrEmptyResponse = errors.New("empty JSON response")
)

type trailingField struct {
	name  string
	path  string
	label string
}

// The three fields reported after the sections, in report order.
var trailingFields = []trailingField{
	{name: "service_used", path: "ehr.metadata.service_used", label: "Service Used"},
	{name: "transcription", path: "transcription", label: "Transcription Value"},
	{name: "translation.text", path: "translation.text", label: "Raw Conversation"},
}

// Validate checks body and returns the report text.
//
// In strict mode the first unusable section or trailing field fails the whole
// check with a malformed_response error naming it. In lenient mode only a
// missing ehr or ehr.summary object is fatal; unusable sections render as
// Placeholder and missing trailing fields as NotAvailable.
func Validate(body []byte, sections []model.Section, mode model.Strictness) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", model.NewProbeError(model.ErrorKindMalformedResponse, ErrInvalidJSON)
	}

	root := gjson.ParseBytes(body)
	if isEmpty(root) {
		return "", model.NewProbeError(model.ErrorKindMalformedResponse, ErrEmptyResponse)
	}
	if !root.IsObject() {
		return "", model.NewProbeError(model.ErrorKindMalformedResponse,
			fmt.Errorf("expected a JSON object, got %s", root.Type))
	}

	if mode == model.StrictnessLenient {
		return validateLenient(root, sections)
	}
	return validateStrict(root, sections)
}

func validateStrict(root gjson.Result, sections []model.Section) (string, error) {
	summary := root.Get("ehr.summary")

	var b strings.Builder
	for _, section := range sections {
		text, ok := sectionText(summary, section.Label)
		if !ok {
			return "", model.NewSectionError(section.Label,
				fmt.Errorf("missing or malformed field: %s", section.Label))
		}
		writeSection(&b, section.Field, text)
	}

	values := make([]string, 0, len(trailingFields))
	for _, field := range trailingFields {
		value := root.Get(field.path)
		if !value.Exists() {
			return "", model.NewSectionError(field.name,
				fmt.Errorf("missing field: %s", field.path))
		}
		values = append(values, render(value))
	}
	writeTrailer(&b, values)

	return b.String(), nil
}

func validateLenient(root gjson.Result, sections []model.Section) (string, error) {
	ehr := root.Get("ehr")
	if !ehr.IsObject() || isEmpty(ehr) {
		return "", model.NewSectionError("ehr", errors.New("missing 'ehr' in the response"))
	}
	summary := ehr.Get("summary")
	if !summary.IsObject() || isEmpty(summary) {
		return "", model.NewSectionError("ehr.summary", errors.New("missing 'summary' in 'ehr' section"))
	}

	var b strings.Builder
	for _, section := range sections {
		text, ok := sectionText(summary, section.Label)
		if !ok {
			text = Placeholder
		}
		writeSection(&b, section.Field, text)
	}

	values := make([]string, 0, len(trailingFields))
	for _, field := range trailingFields {
		value := root.Get(field.path)
		if !value.Exists() {
			values = append(values, NotAvailable)
			continue
		}
		values = append(values, render(value))
	}
	writeTrailer(&b, values)

	return b.String(), nil
}

// sectionText resolves summary[label][0].text. The section must be a non-empty
// array whose first entry is an object carrying a text key.
func sectionText(summary gjson.Result, label string) (string, bool) {
	if !summary.IsObject() {
		return "", false
	}
	entries := summary.Get(gjson.Escape(label))
	if !entries.IsArray() {
		return "", false
	}
	first := entries.Get("0")
	if !first.IsObject() {
		return "", false
	}
	text := first.Get("text")
	if !text.Exists() {
		return "", false
	}
	return render(text), true
}

func render(value gjson.Result) string {
	if value.Type == gjson.String {
		return value.Str
	}
	return value.Raw
}

func isEmpty(value gjson.Result) bool {
	switch {
	case !value.Exists(), value.Type == gjson.Null:
		return true
	case value.IsObject():
		return len(value.Map()) == 0
	case value.IsArray():
		return len(value.Array()) == 0
	}
	return false
}

func writeSection(b *strings.Builder, field, text string) {
	fmt.Fprintf(b, "%s: %s\n\n", field, text)
}

func writeTrailer(b *strings.Builder, values []string) {
	for i, field := range trailingFields {
		fmt.Fprintf(b, "\n%s: %s\n", field.label, values[i])
	}
}
