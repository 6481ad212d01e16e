package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todos-api/internal/api"
	"github.com/phrazzld/todos-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskHandler_Submit(t *testing.T) {
	env := newTestEnv(t, alice())

	rec := env.do(t, http.MethodPost, "/tasks/"+task.EchoTaskName, strings.NewReader(`{"hello":"world"}`), asUser(1))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decode[api.SubmitTaskResponse](t, rec)
	assert.Equal(t, task.EchoTaskName, resp.Task)
	assert.Equal(t, string(task.StatusPending), resp.Status)
	assert.NotEqual(t, uuid.Nil, resp.ID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := env.broker.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, msg.ID)
	assert.JSONEq(t, `{"hello":"world"}`, string(msg.Args))
}

func TestTaskHandler_SubmitErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		user       bool
		wantStatus int
	}{
		{"anonymous", "/tasks/" + task.EchoTaskName, "", false, http.StatusUnauthorized},
		{"unknown task", "/tasks/todos.nope", "", true, http.StatusNotFound},
		{"invalid args", "/tasks/" + task.EchoTaskName, "{not json", true, http.StatusBadRequest},
		{"args too large", "/tasks/" + task.EchoTaskName, `"` + strings.Repeat("x", 70_000) + `"`, true, http.StatusRequestEntityTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, alice())
			var opts []requestOption
			if tc.user {
				opts = append(opts, asUser(1))
			}

			rec := env.do(t, http.MethodPost, tc.path, strings.NewReader(tc.body), opts...)
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			assert.Zero(t, env.broker.Len())
		})
	}
}

func TestTaskHandler_SubmitQueueFull(t *testing.T) {
	env := newTestEnv(t, alice())
	path := "/tasks/" + task.EchoTaskName

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, path, nil, asUser(1))
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := env.do(t, http.MethodPost, path, nil, asUser(1))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTaskHandler_Result(t *testing.T) {
	env := newTestEnv(t)
	done := uuid.New()
	require.NoError(t, env.results.Store(context.Background(), task.Result{
		ID:       done,
		Task:     task.CountTodosTaskName,
		Status:   task.StatusSuccess,
		Result:   json.RawMessage(`3`),
		DateDone: time.Now().UTC(),
	}))

	t.Run("stored", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/tasks/results/"+done.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[api.TaskResultResponse](t, rec)
		assert.Equal(t, done, resp.ID)
		assert.Equal(t, string(task.StatusSuccess), resp.Status)
		assert.JSONEq(t, `3`, string(resp.Result))
	})

	t.Run("unknown id is pending", func(t *testing.T) {
		id := uuid.New()
		rec := env.do(t, http.MethodGet, "/tasks/results/"+id.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[api.TaskResultResponse](t, rec)
		assert.Equal(t, id, resp.ID)
		assert.Equal(t, string(task.StatusPending), resp.Status)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/tasks/results/42", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
