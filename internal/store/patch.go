package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/errors"
)

// Top-level room fields a patch may touch. id, createdAt, updatedAt and
// version belong to the store.
var mutableFields = map[string]bool{
	"hostId":              true,
	"status":              true,
	"gameState":           true,
	"players":             true,
	"settings":            true,
	"currentLetter":       true,
	"round":               true,
	"playerResponses":     true,
	"roundResults":        true,
	"gameScores":          true,
	"roundStartedAt":      true,
	"evaluationStartedAt": true,
}

// applyUpdate runs u against current and returns the next document. changed is
// false when the resolved patch is empty.
func applyUpdate(current *models.Room, u Update, now time.Time) (next *models.Room, changed bool, err error) {
	if len(u.ExpectGameState) > 0 && !containsString(u.ExpectGameState, current.GameState) {
		return nil, false, errors.New(errors.ErrCodePreconditionFailed,
			fmt.Sprintf("room %s is %s, expected one of %v", current.ID, current.GameState, u.ExpectGameState))
	}

	patch := make(Patch, len(u.Patch))
	for path, v := range u.Patch {
		patch[path] = v
	}
	if u.Build != nil {
		built, err := u.Build(current.Clone())
		if err != nil {
			return nil, false, err
		}
		for path, v := range built {
			patch[path] = v
		}
	}
	if len(patch) == 0 {
		return current.Clone(), false, nil
	}

	doc, err := toDocument(current)
	if err != nil {
		return nil, false, err
	}

	// parents sort before their children, so a Delete of "roundResults" followed
	// by "roundResults.a" rebuilds the map instead of losing the child write
	paths := make([]string, 0, len(patch))
	for path := range patch {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		segments := strings.Split(path, ".")
		if err := validatePath(segments); err != nil {
			return nil, false, err
		}
		if err := setPath(doc, segments, patch[path], now); err != nil {
			return nil, false, errors.Wrap(err, errors.ErrCodeValidationFailed, "invalid patch for "+path)
		}
	}

	doc["updatedAt"] = now.UTC().Format(time.RFC3339Nano)
	doc["version"] = current.Version + 1

	next, err = fromDocument(doc)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeValidationFailed, "patch produced an invalid room")
	}
	return next, true, nil
}

func validatePath(segments []string) error {
	for _, s := range segments {
		if s == "" {
			return errors.New(errors.ErrCodeValidationFailed, "empty path segment")
		}
	}
	if !mutableFields[segments[0]] {
		return errors.New(errors.ErrCodeValidationFailed, "field is not writable: "+segments[0])
	}
	return nil
}

func setPath(doc map[string]interface{}, segments []string, value interface{}, now time.Time) error {
	node := doc
	for _, key := range segments[:len(segments)-1] {
		child, ok := node[key].(map[string]interface{})
		if !ok {
			if _, isDelete := value.(deleteOp); isDelete {
				return nil
			}
			child = make(map[string]interface{})
			node[key] = child
		}
		node = child
	}

	last := segments[len(segments)-1]
	switch op := value.(type) {
	case deleteOp:
		delete(node, last)
	case incrementOp:
		var current float64
		switch v := node[last].(type) {
		case nil:
		case float64:
			current = v
		default:
			return fmt.Errorf("cannot increment %T", v)
		}
		node[last] = current + float64(op.by)
	case serverTimestampOp:
		node[last] = now.UTC().Format(time.RFC3339Nano)
	default:
		normalized, err := normalize(value)
		if err != nil {
			return err
		}
		node[last] = normalized
	}
	return nil
}

// normalize converts an arbitrary Go value into its generic JSON shape.
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toDocument(room *models.Room) (map[string]interface{}, error) {
	raw, err := json.Marshal(room)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to encode room")
	}
	doc := make(map[string]interface{})
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to decode room")
	}
	return doc, nil
}

func fromDocument(doc map[string]interface{}) (*models.Room, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var room models.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
