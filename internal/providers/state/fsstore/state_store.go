package fsstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/state"
)

var _ state.Store = (*StateStore)(nil)

var typeNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

// StateStore keeps one JSON file per side and type under baseDir:
// <baseDir>/<side>/<type>.json.
type StateStore struct {
	baseDir string
}

func NewStateStore(baseDir string) *StateStore {
	return &StateStore{baseDir: filepath.Clean(baseDir)}
}

func (s *StateStore) BaseDir() string {
	return s.baseDir
}

func (s *StateStore) Load(_ context.Context, side state.Side, typeName string) (map[string]resource.Record, error) {
	targetPath, err := s.filePath(side, typeName)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]resource.Record{}, nil
		}
		return nil, internalError("failed to read state file "+targetPath, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]resource.Record{}, nil
	}

	decoded, err := resource.DecodeJSON(data)
	if err != nil {
		return nil, corruptStateError(targetPath, err)
	}
	object, ok := decoded.(map[string]any)
	if !ok {
		return nil, corruptStateError(targetPath, errors.New("top-level value must be an object"))
	}

	records := make(map[string]resource.Record, len(object))
	for key, value := range object {
		record, ok := value.(map[string]any)
		if !ok {
			return nil, corruptStateError(targetPath, fmt.Errorf("entry %q must be an object", key))
		}
		records[key] = record
	}
	return records, nil
}

// Save replaces the mapping atomically through a temp file and rename.
func (s *StateStore) Save(_ context.Context, side state.Side, typeName string, records map[string]resource.Record) error {
	targetPath, err := s.filePath(side, typeName)
	if err != nil {
		return err
	}

	encoded, err := encodeRecords(records)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return internalError("failed to create state directory", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(targetPath), ".orgsync-tmp-*")
	if err != nil {
		return internalError("failed to create temporary file", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(encoded); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return internalError("failed to write temporary state", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return internalError("failed to flush temporary state", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to finalize temporary state", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to replace state file", err)
	}
	return nil
}

func (s *StateStore) filePath(side state.Side, typeName string) (string, error) {
	switch side {
	case state.Source, state.Destination:
	default:
		return "", faults.NewValidationError(fmt.Sprintf("unknown state side %q", side), nil)
	}
	if !typeNamePattern.MatchString(typeName) {
		return "", faults.NewValidationError(fmt.Sprintf("invalid resource type name %q", typeName), nil)
	}
	return filepath.Join(s.baseDir, string(side), typeName+".json"), nil
}

func encodeRecords(records map[string]resource.Record) ([]byte, error) {
	normalized := make(map[string]any, len(records))
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, err := resource.Normalize(records[key])
		if err != nil {
			return nil, err
		}
		normalized[key] = value
	}

	encoded, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return nil, internalError("failed to encode state", err)
	}
	return append(encoded, '\n'), nil
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}

func corruptStateError(path string, cause error) error {
	return faults.NewTypedError(faults.CorruptStateError, "state file "+path+" is not valid", cause)
}
