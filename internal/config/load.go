package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersionConstraint is the major schema version this engine
// accepts.
const SupportedSchemaVersionConstraint = "v1"

// LoadProtocol parses protocol YAML, validates it against the embedded JSON
// schema, checks schema version compatibility and runs the logical checks.
func LoadProtocol(protocolYAML []byte, filePathHint string) (*Protocol, error) {
	if len(bytes.TrimSpace(protocolYAML)) == 0 {
		return nil, stimerrors.NewConfigError("protocol content cannot be empty", nil)
	}

	if err := ValidateWithSchema(protocolYAML); err != nil {
		return nil, stimerrors.NewConfigError(fmt.Sprintf("protocol '%s' failed schema validation", filePathHint), err)
	}

	var protocol Protocol
	if err := yamlUnmarshalStrict(protocolYAML, &protocol); err != nil {
		return nil, stimerrors.NewConfigError(fmt.Sprintf("failed to parse protocol YAML '%s'", filePathHint), err)
	}
	protocol.FilePath = filePathHint

	if err := checkSchemaVersion(protocol.SchemaVersion, filePathHint); err != nil {
		return nil, err
	}

	validationErrs := ValidateProtocolStructure(&protocol)
	if len(validationErrs) > 0 {
		var messages []string
		for _, vErr := range validationErrs {
			messages = append(messages, vErr.Error())
		}
		combined := fmt.Sprintf("protocol '%s' has %d validation error(s):\n- %s",
			filePathHint, len(messages), strings.Join(messages, "\n- "))
		return nil, stimerrors.NewValidationError(combined, errors.Join(validationErrs...))
	}
	return &protocol, nil
}

// LoadProtocolFromFile reads and loads a protocol from disk.
func LoadProtocolFromFile(filePath string) (*Protocol, error) {
	if filePath == "" {
		return nil, stimerrors.NewConfigError("protocol file path cannot be empty", nil)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, stimerrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", filePath), err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, stimerrors.NewConfigError(fmt.Sprintf("failed to read protocol file '%s'", absPath), err)
	}
	return LoadProtocol(data, absPath)
}

func checkSchemaVersion(version, filePathHint string) error {
	if version == "" {
		return stimerrors.NewValidationError(fmt.Sprintf("protocol '%s' is missing required 'schemaVersion' field", filePathHint), nil)
	}
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return stimerrors.NewValidationError(fmt.Sprintf("protocol '%s' has invalid 'schemaVersion' format: '%s'", filePathHint, version), nil)
	}
	if semver.Major(v) != SupportedSchemaVersionConstraint {
		return stimerrors.NewValidationError(
			fmt.Sprintf("protocol '%s' schemaVersion '%s' is not compatible with engine requirement '%s'",
				filePathHint, version, SupportedSchemaVersionConstraint),
			nil,
		)
	}
	return nil
}

// yamlUnmarshalStrict rejects fields that Protocol does not define.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(in))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("YAML parsing error: %w", err)
	}
	return nil
}
