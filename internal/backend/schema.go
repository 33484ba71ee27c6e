package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const runResultSchemaSource = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["details"],
  "properties": {
    "passedTestCases": {"type": "integer"},
    "totalTestCases": {"type": "integer"},
    "details": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["status"],
        "properties": {
          "status": {"type": "string"},
          "output": {"type": ["string", "null"]}
        }
      }
    },
    "result": {"type": ["string", "null"]}
  }
}`

var runResultSchema = jsonschema.MustCompileString("run_result.schema.json", runResultSchemaSource)

func validateRunResult(body []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var document any
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := runResultSchema.Validate(document); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
