package rpc

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// #region messages
// toStruct encodes v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("message is not an object: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return s, nil
}

// fromStruct decodes s into out through its JSON form. A nil s leaves out untouched.
func fromStruct(s *structpb.Struct, out any) error {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}

// #endregion messages

// #region observations
// Observation payloads are decoded field by field. A missing or unusable
// field is left at its zero value, which the director treats as absent.

// maxCount bounds counts before the int conversion.
const maxCount = 1 << 20

// turnFromStruct reads a turn summary, truncating fractional counts.
func turnFromStruct(s *structpb.Struct) signals.TurnSummary {
	f := s.GetFields()
	var turn signals.TurnSummary
	if v, ok := numberField(f, "turn_ms"); ok {
		turn.TurnMs = v
	}
	turn.ActionsTaken = countField(f, "actions_taken")
	turn.Mistakes = countField(f, "mistakes")
	return turn
}

// gameFromStruct reads a game result.
func gameFromStruct(s *structpb.Struct) player.GameResult {
	f := s.GetFields()
	return player.GameResult{
		PlayerWon: boolField(f, "player_won"),
		CloseGame: boolField(f, "close_game"),
		Comeback:  boolField(f, "comeback"),
	}
}

// numberField accepts JSON numbers and numeric strings.
func numberField(f map[string]*structpb.Value, name string) (float64, bool) {
	var v float64
	switch k := f[name].GetKind().(type) {
	case *structpb.Value_NumberValue:
		v = k.NumberValue
	case *structpb.Value_StringValue:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(k.StringValue), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func countField(f map[string]*structpb.Value, name string) int {
	v, ok := numberField(f, name)
	if !ok {
		return 0
	}
	return int(math.Trunc(math.Max(-maxCount, math.Min(v, maxCount))))
}

// boolField accepts booleans, "true"/"false" strings and numbers (non-zero is true).
func boolField(f map[string]*structpb.Value, name string) bool {
	switch k := f[name].GetKind().(type) {
	case *structpb.Value_BoolValue:
		return k.BoolValue
	case *structpb.Value_StringValue:
		b, err := strconv.ParseBool(strings.TrimSpace(k.StringValue))
		return err == nil && b
	case *structpb.Value_NumberValue:
		return k.NumberValue != 0 && !math.IsNaN(k.NumberValue)
	}
	return false
}

// #endregion observations
