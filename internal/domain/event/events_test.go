package event

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageOpen, StageLocked, true},
		{StageOpen, StageAssigned, false},
		{StageLocked, StageOpen, true},
		{StageLocked, StageAssigned, true},
		{StageAssigned, StageOpen, false},
		{StageAssigned, StageLocked, false},
		{StageLocked, StageLocked, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			e := &Event{Stage: tt.from}
			assert.Equal(t, tt.want, e.CanTransitionTo(tt.to))
		})
	}
}

func TestUpdateStage_StampsTimes(t *testing.T) {
	e := NewEvent(" Office party ", "", "hash")
	assert.Equal(t, "Office party", e.Name)
	at := time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, e.UpdateStage(StageLocked, at))
	require.NotNil(t, e.LockedAt)

	require.NoError(t, e.UpdateStage(StageOpen, at))
	assert.Nil(t, e.LockedAt)
	assert.True(t, e.IsOpen())

	require.NoError(t, e.UpdateStage(StageLocked, at))
	require.NoError(t, e.UpdateStage(StageAssigned, at.Add(time.Minute)))
	require.NotNil(t, e.AssignedAt)

	err := e.UpdateStage(StageOpen, at)
	assert.ErrorIs(t, err, common.ErrStageConflict)
	assert.Equal(t, StageAssigned, e.Stage)
}

func TestStage_JSONAndSQL(t *testing.T) {
	b, err := json.Marshal(StageLocked)
	require.NoError(t, err)
	assert.Equal(t, `"locked"`, string(b))

	var s Stage
	require.NoError(t, json.Unmarshal([]byte(`"assigned"`), &s))
	assert.Equal(t, StageAssigned, s)
	assert.Error(t, json.Unmarshal([]byte(`"voting"`), &s))

	require.NoError(t, s.Scan([]byte("locked")))
	assert.Equal(t, StageLocked, s)
	require.NoError(t, s.Scan(nil))
	assert.Equal(t, StageOpen, s)
	assert.Error(t, s.Scan(42))

	v, err := StageAssigned.Value()
	require.NoError(t, err)
	assert.Equal(t, "assigned", v)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewEvent("Family", "", "hash").Validate())
	assert.Error(t, NewEvent("  ", "", "hash").Validate())
	assert.Error(t, NewEvent("Family", "", "").Validate())
}

func TestEvent_GormSchema(t *testing.T) {
	s, err := schema.Parse(&Event{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	stage := s.LookUpField("stage")
	require.NotNil(t, stage)
	assert.False(t, stage.HasDefaultValue, "stage is a byte; a text default cannot be parsed")
	assert.True(t, stage.NotNull)
}
