package model

import (
	"errors"
	"fmt"
	"strings"
)

// Section pairs the label used as a key under ehr.summary with the field name
// printed in the report body.
type Section struct {
	Label string `json:"label"`
	Field string `json:"field"`
}

// DefaultSections returns the twelve expected summary sections in report order.
func DefaultSections() []Section {
	return []Section{
		{Label: "Present Complaints", Field: "present_complaints"},
		{Label: "Allergies", Field: "Allergies"},
		{Label: "Family / Social / Immunization History", Field: "Family_Social_Immunization_History_one"},
		{Label: "Diagnosis", Field: "Diagnosis"},
		{Label: "Medications", Field: "medications"},
		{Label: "Lab Orders", Field: "Lab_Orders"},
		{Label: "Patient Medical History", Field: "Patient_medical_History"},
		{Label: "Patient Surgical History", Field: "Patient_Surgical_History"},
		{Label: "Systemic Examination", Field: "Systemic_Examination"},
		{Label: "Previous Medications", Field: "Previous_Medications"},
		{Label: "Diet / Physio Advice", Field: "Diet_Physio_Advice"},
		{Label: "Plan of Care", Field: "Plan_of_care"},
	}
}

// ParseSections reads "Label=field" pairs separated by commas. A pair without
// "=" uses the label as the field name. An empty list yields DefaultSections.
func ParseSections(list string) ([]Section, error) {
	if strings.TrimSpace(list) == "" {
		return DefaultSections(), nil
	}

	var sections []Section
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		label, field, found := strings.Cut(raw, "=")
		label = strings.TrimSpace(label)
		field = strings.TrimSpace(field)
		if !found || field == "" {
			field = label
		}
		if label == "" {
			return nil, fmt.Errorf("section %q has an empty label", raw)
		}
		if _, dup := seen[label]; dup {
			return nil, fmt.Errorf("section %q listed twice", label)
		}
		seen[label] = struct{}{}
		sections = append(sections, Section{Label: label, Field: field})
	}

	if len(sections) == 0 {
		return nil, errors.New("no sections configured")
	}
	return sections, nil
}

type Strictness string

const (
	StrictnessStrict  Strictness = "strict"
	StrictnessLenient Strictness = "lenient"
)

func ParseStrictness(value string) (Strictness, error) {
	switch Strictness(strings.ToLower(strings.TrimSpace(value))) {
	case "", StrictnessStrict:
		return StrictnessStrict, nil
	case StrictnessLenient:
		return StrictnessLenient, nil
	}
	return "", fmt.Errorf("strictness must be %q or %q, got %q", StrictnessStrict, StrictnessLenient, value)
}
