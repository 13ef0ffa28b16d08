package network

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/Conversion/server/internal/engine"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		input   PlayerAction
		want    engine.Action
		wantErr error
	}{
		{
			name:  "click",
			input: PlayerAction{Type: "CLICK", Payload: json.RawMessage(`{"region_id":4,"amount":2.5}`)},
			want:  engine.Action{Type: engine.ActionClick, ActorID: "p", RegionID: 4, Amount: 2.5},
		},
		{
			name:  "create without payload",
			input: PlayerAction{Type: "CREATE_UNIT"},
			want:  engine.Action{Type: engine.ActionCreateUnit, ActorID: "p"},
		},
		{
			name:  "transfer",
			input: PlayerAction{Type: "TRANSFER_UNIT", Payload: json.RawMessage(`{"region_id":1,"target_region_id":2}`)},
			want:  engine.Action{Type: engine.ActionTransferUnit, ActorID: "p", RegionID: 1, TargetRegionID: 2},
		},
		{
			name:    "unknown type",
			input:   PlayerAction{Type: "RIOT"},
			wantErr: ErrUnknownAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.input, "p")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseActionBadPayload(t *testing.T) {
	_, err := ParseAction(PlayerAction{Type: "ASSIGN_UNIT", Payload: json.RawMessage(`{"unit_id":"one"}`)}, "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASSIGN_UNIT")
}
