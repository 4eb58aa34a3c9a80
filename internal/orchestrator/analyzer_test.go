package orchestrator

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/httpclient"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
	"github.com/vitalarbor/vitalarbor-go/internal/pipeline"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

func newLocalOrchestrator(t *testing.T, script string, timeout time.Duration, ui Dispatcher) *Orchestrator {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not available on windows")
	}

	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "risk_score.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+script+"\n"), 0o700))

	runner, err := pipeline.NewRunner(pipeline.Config{Interpreter: "sh", Script: scriptPath, Timeout: timeout},
		pipeline.WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	photos := filepath.Join(dir, "photos")
	require.NoError(t, os.MkdirAll(photos, 0o755))
	o := New(LocalAnalyzer{Runner: runner}, ui, WithLogger(logger.NewDiscardLogger()))
	t.Cleanup(o.Close)

	for _, role := range Roles {
		p := filepath.Join(photos, role.String()+".jpg")
		require.NoError(t, os.WriteFile(p, []byte("jpeg"), 0o644))
		require.NoError(t, o.Bind(role, p))
	}
	o.SetCredentials(testCreds)
	o.SetOptions(false, 1)
	return o
}

func TestLocalAnalyzer_ParsesOutput(t *testing.T) {
	t.Parallel()

	loop := NewEventLoop()
	o := newLocalOrchestrator(t, `printf 'Risk Score: 9.0 / 40\n'
printf "Category: ('LOW RISK', 'green')\n"
printf 'Species: Quercus robur\n'
printf 'Tilt Angle: 3.20\302\260\n'
printf 'Diagnosis of tree: Sound trunk.\n'
printf 'Fixes/reccomendations: None needed.\n'`, 10*time.Second, loop)
	assert.Equal(t, "local", o.Mode())

	h, err := o.Submit()
	require.NoError(t, err)
	require.NoError(t, loop.RunUntil(t.Context(), h.Done()))

	r, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, "9.0", r.RiskScore)
	assert.Equal(t, "LOW RISK", r.RiskCategory)
	assert.Equal(t, "Quercus robur", r.Species)
	assert.Equal(t, "3.20°", r.TiltAngle)
	assert.Equal(t, diagnosis.ColorGreen, r.Color())
	assert.Equal(t, PhaseIdle, o.Phase())
}

func TestLocalAnalyzer_TimeoutThenResubmit(t *testing.T) {
	t.Parallel()

	loop := NewEventLoop()
	o := newLocalOrchestrator(t, `if [ -f "$0.ran" ]; then echo "Risk Score: 1.0 / 40"; exit 0; fi
touch "$0.ran"
sleep 30`, 300*time.Millisecond, loop)

	h, err := o.Submit()
	require.NoError(t, err)
	require.NoError(t, loop.RunUntil(t.Context(), h.Done()))

	_, err = h.Result()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))
	assert.Equal(t, PhaseIdle, o.Phase())

	h, err = o.Submit()
	require.NoError(t, err)
	require.NoError(t, loop.RunUntil(t.Context(), h.Done()))
	r, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, "1.0", r.RiskScore)
}

func TestLocalAnalyzer_FailureCarriesOutput(t *testing.T) {
	t.Parallel()

	o := newLocalOrchestrator(t, `echo "CUDA not available" >&2; exit 1`, 10*time.Second, Inline)

	h, err := o.Submit()
	require.NoError(t, err)
	_, err = h.Wait(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCommandExecution))
	assert.Contains(t, errors.ContextString(err, "output"), "CUDA not available")
}

func TestHostedAnalyzer_CancelMidUpload(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	aborted := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 32<<10)
		first := true
		for {
			_, err := r.Body.Read(buf)
			if first {
				close(started)
				first = false
			}
			if err == io.EOF {
				w.WriteHeader(http.StatusOK)
				return
			}
			if err != nil {
				close(aborted)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}))
	t.Cleanup(server.Close)

	hc := httpclient.New(&httpclient.Config{Logger: logger.NewDiscardLogger()})
	t.Cleanup(hc.Close)

	fs := afero.NewMemMapFs()
	large := make([]byte, 4<<20)
	for _, name := range []string{"/c.jpg", "/t.jpg", "/b.jpg"} {
		require.NoError(t, afero.WriteFile(fs, name, large, 0o644))
	}
	client := vitalarbor.New(hc, vitalarbor.Config{BaseURL: server.URL + "/api"},
		vitalarbor.WithFs(fs), vitalarbor.WithLogger(logger.NewDiscardLogger()))

	loop := NewEventLoop()
	o := New(HostedAnalyzer{Client: client}, loop, WithFs(fs), WithLogger(logger.NewDiscardLogger()))
	t.Cleanup(o.Close)
	assert.Equal(t, "hosted", o.Mode())

	o.SetCredentials(testCreds)
	o.SetOptions(true, 3)
	require.NoError(t, o.Bind(RoleClassification, "/c.jpg"))
	require.NoError(t, o.Bind(RoleTilt, "/t.jpg"))
	require.NoError(t, o.Bind(RoleBackup, "/b.jpg"))

	h, err := o.Submit()
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("upload never reached the server")
	}
	require.NoError(t, o.Cancel())

	select {
	case <-aborted:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not observe the aborted upload")
	}

	_, err = h.Result()
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	assert.Equal(t, PhaseIdle, o.Phase())

	// Drain the stale worker completion
	o.Close()
	require.NoError(t, loop.RunUntil(t.Context(), closedChan()))
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
