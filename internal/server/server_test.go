package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpact/ruleflow/internal/audit"
	"github.com/corpact/ruleflow/internal/config"
	"github.com/corpact/ruleflow/internal/engine"
	"github.com/corpact/ruleflow/internal/idempotency"
	"github.com/corpact/ruleflow/internal/rules"
	"github.com/corpact/ruleflow/internal/server"
	"github.com/corpact/ruleflow/pkg/api"
)

type (
	testServerEnv struct {
		Server *server.Server
		Engine *engine.Engine
		Config *config.Config
		Router *gin.Engine
	}

	recordUnit struct {
		id api.UnitID
	}
)

func (u *recordUnit) ID() api.UnitID {
	return u.id
}

func (u *recordUnit) Execute(
	context.Context, *engine.Context, *api.Packet,
) error {
	return nil
}

func testServer(t *testing.T, gate *idempotency.Gate) *testServerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := engine.NewRegistry()
	require.NoError(t, reg.Register(&recordUnit{id: "record-unit"}))

	table := rules.NewTable()
	require.NoError(t, table.Replace([]*api.Rule{{
		ModuleID: "payout",
		SlotID:   "slot-1",
		StepID:   1,
		UnitID:   "record-unit",
		Strategy: api.StrategySerial,
		Scope:    api.ScopeItem,
	}}))

	cfg := config.NewDefaultConfig()
	eng := engine.New(cfg, table, reg, audit.NewMemoryRecorder())
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(func() {
		_ = eng.Stop(context.Background())
	})

	srv := server.NewServer(cfg, eng, table, gate)
	return &testServerEnv{
		Server: srv,
		Engine: eng,
		Config: cfg,
		Router: srv.SetupRoutes(),
	}
}

func (env *testServerEnv) request(
	method, path string, body any,
) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	env := testServer(t, nil)

	w := env.request("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var res api.HealthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "healthy", res.Status)
}

func TestSubmitJob(t *testing.T) {
	env := testServer(t, nil)

	w := env.request("POST", "/jobs", api.SubmitJobRequest{
		JobID: "job-1",
		Data:  map[string]any{"Net_Amount": 100},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	assert.Eventually(t, func() bool {
		res, ok := env.Engine.Result("job-1")
		return ok && res.Status == api.JobCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestSubmitJobInvalidJSON(t *testing.T) {
	env := testServer(t, nil)

	req := httptest.NewRequest(
		"POST", "/jobs", bytes.NewReader([]byte("not-json")),
	)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitJobMissingID(t *testing.T) {
	env := testServer(t, nil)

	w := env.request("POST", "/jobs", api.SubmitJobRequest{
		Data: map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitJobNoRules(t *testing.T) {
	env := testServer(t, nil)
	env.Config.RuleFile = "" // not used here

	srv := server.NewServer(
		env.Config, env.Engine, rules.NewTable(), nil,
	)
	router := srv.SetupRoutes()

	body, _ := json.Marshal(api.SubmitJobRequest{JobID: "job-2"})
	req := httptest.NewRequest("POST", "/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitJobDuplicate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	gate := idempotency.NewGate(client, "test")

	env := testServer(t, gate)

	w := env.request("POST", "/jobs", api.SubmitJobRequest{
		JobID: "job-3",
		Data:  map[string]any{},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = env.request("POST", "/jobs", api.SubmitJobRequest{
		JobID: "job-3",
		Data:  map[string]any{},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetJobNotFound(t *testing.T) {
	env := testServer(t, nil)

	w := env.request("GET", "/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetJobResult(t *testing.T) {
	env := testServer(t, nil)

	w := env.request("POST", "/jobs", api.SubmitJobRequest{
		JobID: "job-4",
		Data:  map[string]any{},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	assert.Eventually(t, func() bool {
		_, ok := env.Engine.Result("job-4")
		return ok
	}, time.Second, 10*time.Millisecond)

	w = env.request("GET", "/jobs/job-4", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var res api.JobResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, api.JobCompleted, res.Status)
}

func TestGetRules(t *testing.T) {
	env := testServer(t, nil)

	w := env.request("GET", "/rules", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var res api.RulesResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Count)
	assert.Len(t, res.Blocks, 1)
}

func TestReloadRules(t *testing.T) {
	env := testServer(t, nil)

	path := filepath.Join(t.TempDir(), "rules.json")
	content := `[{
		"module_id": "billing",
		"slot_id": "slot-1",
		"step_id": 1,
		"unit_id": "record-unit",
		"strategy": "SERIAL",
		"scope": "ITEM"
	}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	env.Config.RuleFile = path

	w := env.request("POST", "/rules/reload", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.request("GET", "/rules", nil)
	var res api.RulesResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Count)
}

func TestReloadRulesBadFile(t *testing.T) {
	env := testServer(t, nil)
	env.Config.RuleFile = filepath.Join(t.TempDir(), "missing.json")

	w := env.request("POST", "/rules/reload", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitVoteNotWaiting(t *testing.T) {
	env := testServer(t, nil)

	w := env.request("POST", "/consensus/TXN-1/votes", api.SubmitVoteRequest{
		ApproverID: "approver-1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitVoteMissingApprover(t *testing.T) {
	env := testServer(t, nil)

	w := env.request(
		"POST", "/consensus/TXN-1/votes", api.SubmitVoteRequest{},
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitVoteReleasesWait(t *testing.T) {
	env := testServer(t, nil)

	done := make(chan bool, 1)
	go func() {
		done <- env.Engine.Coordinator().Wait(
			context.Background(), "TXN-2", 500,
		)
	}()

	assert.Eventually(t, func() bool {
		return env.Engine.Coordinator().Pending() == 1
	}, time.Second, 5*time.Millisecond)

	w := env.request("POST", "/consensus/TXN-2/votes", api.SubmitVoteRequest{
		ApproverID: "approver-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var first api.VoteResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, api.VoteAccepted, first.Status)

	w = env.request("POST", "/consensus/TXN-2/votes", api.SubmitVoteRequest{
		ApproverID: "approver-2",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var second api.VoteResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, api.VoteApproved, second.Status)

	select {
	case approved := <-done:
		assert.True(t, approved)
	case <-time.After(time.Second):
		t.Fatal("wait did not resolve")
	}
}
