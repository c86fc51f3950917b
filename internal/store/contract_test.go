package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return baseTime.Add(time.Duration(sec) * time.Second) }

func ptr[T any](v T) *T { return &v }

func executionIDs(list []Execution) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.ID
	}
	return out
}

// testTeamStore 所有后端共用的团队存储行为
func testTeamStore(t *testing.T, s TeamStore) {
	ctx := context.Background()

	for i, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, s.Create(ctx, &TeamRecord{
			ID:         id,
			Name:       "Team " + id,
			Status:     TeamStatusActive,
			ConfigData: map[string]any{"team": map[string]any{"name": "Team " + id}},
			CreatedAt:  at(i),
			UpdatedAt:  at(i),
		}))
	}

	got, err := s.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "Team t2", got.Name)
	assert.Equal(t, map[string]any{"team": map[string]any{"name": "Team t2"}}, got.ConfigData)
	assert.True(t, got.CreatedAt.Equal(at(1)))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list, total, err := s.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, []string{list[0].ID, list[1].ID, list[2].ID})

	list, total, err = s.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 1)
	assert.Equal(t, "t2", list[0].ID)

	list, _, err = s.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, list)

	got.Name = "Renamed"
	got.Status = TeamStatusBusy
	got.UpdatedAt = at(10)
	require.NoError(t, s.Update(ctx, got))
	got, err = s.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, TeamStatusBusy, got.Status)

	assert.ErrorIs(t, s.Update(ctx, &TeamRecord{ID: "missing", Name: "x"}), ErrNotFound)

	require.NoError(t, s.Delete(ctx, "t1"))
	assert.ErrorIs(t, s.Delete(ctx, "t1"), ErrNotFound)
	_, err = s.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	list, total, err = s.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "t2", list[0].ID)
}

// testExecutionStore 所有后端共用的执行存储行为
func testExecutionStore(t *testing.T, s ExecutionStore) {
	ctx := context.Background()

	fixtures := []*Execution{
		{
			ID: "e1", TeamID: "A", InputText: "first", Status: StatusCompleted, Progress: 100,
			Parameters: map[string]any{"priority": "high"},
			Result: &ExecutionResult{
				Response:             "done",
				IntermediateSteps:    []string{"route", "work"},
				UsedTools:            []string{"search"},
				ExecutionTimeSeconds: 1.5,
			},
			CreatedAt: at(0), StartedAt: ptr(at(0)), CompletedAt: ptr(at(5)),
		},
		{ID: "e2", TeamID: "A", InputText: "second", Status: StatusRunning, Progress: 10, CreatedAt: at(1), StartedAt: ptr(at(1))},
		{ID: "e3", TeamID: "B", InputText: "third", Status: StatusFailed, ErrorMessage: "boom", CreatedAt: at(2), CompletedAt: ptr(at(3))},
		{ID: "e4", TeamID: "A", InputText: "fourth", Status: StatusPending, CreatedAt: at(3)},
	}
	for _, e := range fixtures {
		require.NoError(t, s.Create(ctx, e))
	}

	got, err := s.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.InputText)
	assert.Equal(t, map[string]any{"priority": "high"}, got.Parameters)
	require.NotNil(t, got.Result)
	assert.Equal(t, "done", got.Result.Response)
	assert.Equal(t, []string{"route", "work"}, got.Result.IntermediateSteps)
	assert.InDelta(t, 1.5, got.Result.ExecutionTimeSeconds, 1e-9)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(at(5)))

	got, err = s.Get(ctx, "e4")
	require.NoError(t, err)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.StartedAt)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	tests := []struct {
		name   string
		filter ExecutionFilter
		ids    []string
		total  int
	}{
		{"default newest first", ExecutionFilter{}, []string{"e4", "e3", "e2", "e1"}, 4},
		{"by team", ExecutionFilter{TeamID: "A"}, []string{"e4", "e2", "e1"}, 3},
		{"by status", ExecutionFilter{Status: StatusCompleted}, []string{"e1"}, 1},
		{"team and status", ExecutionFilter{TeamID: "B", Status: StatusCompleted}, []string{}, 0},
		{"asc page", ExecutionFilter{OrderBy: OrderByCreatedAt, OrderDirection: OrderAsc, Limit: 2, Offset: 1}, []string{"e2", "e3"}, 4},
		{"completed desc", ExecutionFilter{OrderBy: OrderByCompletedAt}, []string{"e1", "e3", "e4", "e2"}, 4},
		{"completed asc", ExecutionFilter{OrderBy: OrderByCompletedAt, OrderDirection: OrderAsc}, []string{"e2", "e4", "e3", "e1"}, 4},
		{"status asc", ExecutionFilter{OrderBy: OrderByStatus, OrderDirection: OrderAsc}, []string{"e1", "e3", "e4", "e2"}, 4},
		{"offset past end", ExecutionFilter{Offset: 10}, []string{}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, total, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			assert.Equal(t, tt.ids, executionIDs(list))
		})
	}

	active, total, err := s.CountByTeam(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, active)
	assert.Equal(t, 3, total)

	active, total, err = s.CountByTeam(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, active)
	assert.Zero(t, total)

	e2, err := s.Get(ctx, "e2")
	require.NoError(t, err)
	e2.Status = StatusCompleted
	e2.Progress = 100
	e2.CompletedAt = ptr(at(9))
	e2.Result = &ExecutionResult{Response: "ok"}
	require.NoError(t, s.Update(ctx, e2))

	e2, err = s.Get(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, e2.Status)
	assert.Equal(t, 100, e2.Progress)
	assert.Equal(t, "ok", e2.Result.Response)

	active, _, err = s.CountByTeam(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, active)

	assert.ErrorIs(t, s.Update(ctx, &Execution{ID: "missing", TeamID: "A", Status: StatusFailed, CreatedAt: at(0)}), ErrNotFound)
}
