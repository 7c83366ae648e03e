package ehr

import (
	"encoding/json"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/model"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/utils"
	"github.com/invopop/jsonschema"
)

// Schema returns the indented JSON schema of a well-formed process_audio response.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(model.EHRResponse{})
	schema.Title = "process_audio response"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return schemaJSON, nil
}
