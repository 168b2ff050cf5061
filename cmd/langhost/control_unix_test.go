// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/invowk/langhost/internal/connector"
	"github.com/invowk/langhost/internal/host"
	"github.com/invowk/langhost/internal/host/hosttest"
	"github.com/invowk/langhost/internal/issue"
	"github.com/invowk/langhost/internal/testutil"

	"github.com/charmbracelet/log"
)

const waitFor = 5 * time.Second

// useEndpoint points the CLI configuration at a fresh socket and channel
// directory and returns the socket path. Call it after newTestApp.
func useEndpoint(t *testing.T) string {
	t.Helper()
	dir := testutil.ShortTempDir(t)
	endpoint := filepath.Join(dir, "lh.sock")
	t.Setenv("LANGHOST_CONNECTOR_ENDPOINT", endpoint)
	t.Setenv("LANGHOST_CONNECTOR_CHANNEL_DIR", filepath.Join(dir, "sessions"))
	return endpoint
}

// startServer serves a Host backed by loader on endpoint.
func startServer(t *testing.T, endpoint string, loader *hosttest.Loader) *host.Host {
	t.Helper()

	hcfg := host.DefaultConfig()
	hcfg.Library = "liblangrt.so"
	h, err := host.New(hcfg, loader, host.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = h.Close(context.Background()) })

	srv, err := connector.NewServer(connector.Config{
		Endpoint:       connector.EndpointPath(endpoint),
		ChannelDir:     filepath.Join(filepath.Dir(endpoint), "sessions"),
		RateLimit:      100,
		RateBurst:      100,
		LazyStart:      true,
		ConnectTimeout: waitFor,
		BusyTimeout:    waitFor,
		Service:        "langhost",
	}, h, connector.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return h
}

func TestControl_AgainstRunningService(t *testing.T) {
	app, _, _ := newTestApp(t, nil)
	endpoint := useEndpoint(t)
	loader := hosttest.NewLoader(hosttest.WithVersion("1.4.0"))
	h := startServer(t, endpoint, loader)

	res := runCLI(t, app, "status")
	if res.err != nil {
		t.Fatalf("status: %v\n%s", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "stopped") {
		t.Errorf("status should report stopped:\n%s", res.stdout)
	}

	res = runCLI(t, app, "start")
	if res.err != nil {
		t.Fatalf("start: %v\n%s", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "start requested") {
		t.Errorf("unexpected start output: %q", res.stdout)
	}
	testutil.WaitFor(t, waitFor, h.IsRunning)

	res = runCLI(t, app, "status")
	for _, want := range []string{"running", "1.4.0"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("status missing %q:\n%s", want, res.stdout)
		}
	}

	res = runCLI(t, app, "connect", "--user", "alice", "--language", "R")
	if res.err != nil {
		t.Fatalf("connect: %v\n%s", res.err, res.stderr)
	}
	sessions := loader.Last().Sessions()
	if len(sessions) != 1 || sessions[0].User != "alice" || sessions[0].Language != "R" {
		t.Fatalf("sessions = %+v", sessions)
	}
	if !strings.Contains(res.stdout, string(sessions[0].Input)) {
		t.Errorf("connect should print the input channel:\n%s", res.stdout)
	}

	if res = runCLI(t, app, "stop", "--force"); res.err != nil {
		t.Fatalf("stop: %v", res.err)
	}
	testutil.WaitFor(t, waitFor, h.IsStopped)
	if got := loader.Runtimes()[0].Shutdowns(); len(got) != 1 || !got[0] {
		t.Errorf("shutdowns = %v, want [true]", got)
	}
}

func TestControl_ConnectRejected(t *testing.T) {
	app, _, _ := newTestApp(t, nil)
	endpoint := useEndpoint(t)
	loader := hosttest.NewLoader(hosttest.WithLoadError(host.ErrLibraryNotFound))
	startServer(t, endpoint, loader)

	res := runCLI(t, app, "connect", "--user", "alice")
	if res.err == nil {
		t.Fatal("expected connect to fail")
	}
	if id, ok := issueFor(res.err); !ok || id != issue.LibraryNotFoundId {
		t.Errorf("issueFor = (%v, %v), want LibraryNotFoundId", id, ok)
	}
	if !strings.Contains(res.stderr, "Runtime library not found") {
		t.Errorf("stderr should carry the library guide:\n%s", res.stderr)
	}
}

func TestControl_NotServing(t *testing.T) {
	app, _, _ := newTestApp(t, nil)
	useEndpoint(t)

	for _, args := range [][]string{{"status"}, {"start"}, {"stop"}, {"connect", "--user", "bob"}} {
		res := runCLI(t, app, args...)
		if code := exitCode(res.err); code != ExitNotServing {
			t.Errorf("%v: exit code = %d, want %d (err: %v)", args, code, ExitNotServing, res.err)
		}
		if !connector.IsNotServing(res.err) {
			t.Errorf("%v: err should wrap ErrNotServing: %v", args, res.err)
		}
		if !strings.Contains(res.stderr, "langhost run") {
			t.Errorf("%v: stderr should suggest 'langhost run':\n%s", args, res.stderr)
		}
	}
}

func TestRun_ServesUntilCanceled(t *testing.T) {
	loader := hosttest.NewLoader()
	app, _, _ := newTestApp(t, loader)
	endpoint := useEndpoint(t)
	t.Setenv("LANGHOST_TIMEOUTS_IDLE", "0")
	// Three component loggers write concurrently; a bytes.Buffer would race.
	app.stderr = io.Discard

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- runService(ctx, app, runOptions{eager: true})
	}()

	testutil.WaitFor(t, waitFor, func() bool {
		_, err := os.Stat(endpoint)
		return err == nil
	})
	client := connector.NewClient(connector.EndpointPath(endpoint), waitFor)
	testutil.WaitFor(t, waitFor, func() bool {
		st, err := client.Status(ctx)
		return err == nil && st.State == "running"
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(waitFor):
		t.Fatal("run did not return after cancel")
	}
	if loader.Loads() != 1 || loader.Unloads() != 1 {
		t.Errorf("loads/unloads = %d/%d, want 1/1", loader.Loads(), loader.Unloads())
	}
	if _, err := os.Stat(endpoint); !os.IsNotExist(err) {
		t.Errorf("socket should be removed on exit: %v", err)
	}
}
