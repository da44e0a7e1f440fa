package main

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studywith/focuslink/internal/focus/config"
	"github.com/studywith/focuslink/internal/focus/domain"
	"github.com/studywith/focuslink/internal/focus/gateways/browser"
)

// e2eEnv is a running desktop publisher plus an agent driving an in-memory
// browser.
type e2eEnv struct {
	desktop *DesktopApp
	agent   *AgentApp
	host    *browser.MemoryHost
	cfg     *config.AppConfig
}

func startE2E(t *testing.T, withDesktop bool) *e2eEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	cfg := desktopConfig(t)
	cfg.Agent.StateDB = filepath.Join(t.TempDir(), "agent.db")
	cfg.Agent.BlockPageAddr = freeAddr(t)
	cfg.Agent.PollInterval = time.Hour
	cfg.Agent.FetchTimeout = time.Second
	cfg.Agent.StatusURL = "http://" + cfg.Desktop.Host + ":" + strconv.Itoa(cfg.Desktop.Port) + "/status"
	require.NoError(t, config.Validate(cfg))

	env := &e2eEnv{cfg: cfg, host: browser.NewMemoryHost()}

	if withDesktop {
		d, err := buildDesktop(cfg)
		require.NoError(t, err)
		require.NoError(t, d.publisher.Start(context.Background()))
		t.Cleanup(func() {
			_ = d.publisher.Stop(context.Background())
			_ = d.Close()
		})
		env.desktop = d
	}

	a, err := buildAgent(cfg, env.host)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() {
		cancel()
		_ = a.Stop(context.Background())
	})
	env.agent = a
	return env
}

func (e *e2eEnv) cycle(t *testing.T) domain.CycleReport {
	t.Helper()
	return e.agent.runner.Run(context.Background())
}

func TestE2E_ScenarioA_KeywordBlocksMatchingTabOnly(t *testing.T) {
	env := startE2E(t, true)
	env.desktop.state.Update(true, []string{"youtube", "  "})

	yt := env.host.Open("https://youtube.com/watch?v=1")
	ex := env.host.Open("https://example.com")

	report := env.cycle(t)
	assert.Equal(t, domain.CycleReport{Tabs: 2, Blocked: 1}, report)

	blocked := env.host.URL(yt)
	assert.True(t, strings.HasPrefix(blocked, env.cfg.Agent.BlockPageURL()), "got %q", blocked)
	assert.Contains(t, blocked, "site=youtube.com")
	assert.Equal(t, "https://example.com", env.host.URL(ex))

	// The tab now shows a page the agent serves itself.
	resp, err := http.Get(blocked)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "youtube.com")
}

func TestE2E_ScenarioB_DesktopOfflineTouchesNothing(t *testing.T) {
	env := startE2E(t, false)
	yt := env.host.Open("https://youtube.com/watch?v=1")

	report := env.cycle(t)
	assert.Equal(t, domain.CycleReport{Skipped: true, Reason: domain.SkipFetchFailed}, report)
	assert.Equal(t, "https://youtube.com/watch?v=1", env.host.URL(yt))
	assert.Zero(t, env.host.Navigations())
}

func TestE2E_ScenarioC_ShortKeywordSubstringMatch(t *testing.T) {
	env := startE2E(t, true)
	env.desktop.state.Update(true, []string{"co"})
	tab := env.host.Open("https://coursework.edu")

	report := env.cycle(t)
	assert.Equal(t, 1, report.Blocked)
	assert.True(t, strings.HasPrefix(env.host.URL(tab), env.cfg.Agent.BlockPageURL()))
}

func TestE2E_SingleCharacterRuleNeverMatches(t *testing.T) {
	env := startE2E(t, true)
	env.desktop.state.Update(true, []string{"a"})
	tab := env.host.Open("https://a.com")

	report := env.cycle(t)
	assert.Zero(t, report.Blocked)
	assert.Equal(t, "https://a.com", env.host.URL(tab))
}

func TestE2E_Statelessness(t *testing.T) {
	env := startE2E(t, true)
	tab := env.host.Open("https://x-site.example/page")

	env.desktop.state.Update(true, []string{"x-site"})
	require.Equal(t, 1, env.cycle(t).Blocked)
	blockedURL := env.host.URL(tab)
	require.True(t, strings.HasPrefix(blockedURL, env.cfg.Agent.BlockPageURL()))

	// Blocking off: the tab is neither unblocked nor re-blocked.
	env.desktop.state.SetBlocking(false)
	report := env.cycle(t)
	assert.Equal(t, domain.SkipNotBlocking, report.Reason)
	assert.Equal(t, blockedURL, env.host.URL(tab))
	assert.Equal(t, 1, env.host.Navigations())

	// The user leaves the block page; with blocking still off nothing happens.
	require.NoError(t, env.host.Visit(tab, "https://x-site.example/page"))
	env.cycle(t)
	assert.Equal(t, "https://x-site.example/page", env.host.URL(tab))
}

func TestE2E_Idempotence(t *testing.T) {
	env := startE2E(t, true)
	env.desktop.state.Update(true, []string{"reddit"})
	tab := env.host.Open("https://www.REDDIT.com/r/test")

	require.Equal(t, 1, env.cycle(t).Blocked)
	first := env.host.URL(tab)

	report := env.cycle(t)
	assert.Zero(t, report.Blocked)
	assert.Equal(t, first, env.host.URL(tab))
	assert.Equal(t, 1, env.host.Navigations())
}

func TestE2E_TabQueryFailureSkipsCycle(t *testing.T) {
	env := startE2E(t, true)
	env.desktop.state.Update(true, []string{"youtube"})
	env.host.Open("https://youtube.com")
	env.host.FailTabs(assert.AnError)

	report := env.cycle(t)
	assert.Equal(t, domain.SkipTabsFailed, report.Reason)
	assert.Zero(t, env.host.Navigations())
}

func TestE2E_AlarmDrivesCycles(t *testing.T) {
	env := startE2E(t, true)
	env.desktop.state.Update(true, []string{"youtube"})
	tab := env.host.Open("https://youtube.com")

	// The install hook created the alarm; firing it runs a cycle.
	ok, err := env.agent.runtime.Fire(env.cfg.Agent.AlarmName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(env.host.URL(tab), env.cfg.Agent.BlockPageURL()))

	alarms, err := env.agent.runtime.Alarms()
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, env.cfg.Agent.AlarmName, alarms[0].Name)
	assert.Equal(t, time.Hour, alarms[0].Period)
}

func TestE2E_PeriodicEnforcement(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}
	cfg := desktopConfig(t)
	d, err := buildDesktop(cfg)
	require.NoError(t, err)
	require.NoError(t, d.publisher.Start(context.Background()))
	defer func() {
		_ = d.publisher.Stop(context.Background())
		_ = d.Close()
	}()

	cfg.Agent.StateDB = filepath.Join(t.TempDir(), "agent.db")
	cfg.Agent.BlockPageAddr = freeAddr(t)
	cfg.Agent.PollInterval = 50 * time.Millisecond
	cfg.Agent.FetchTimeout = 40 * time.Millisecond
	cfg.Agent.StatusURL = "http://" + d.publisher.Address() + "/status"

	host := browser.NewMemoryHost()
	a, err := buildAgent(cfg, host)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	tab := host.Open("https://twitch.tv/somebody")
	d.state.Update(true, []string{"twitch"})
	require.Eventually(t, func() bool {
		return strings.HasPrefix(host.URL(tab), cfg.Agent.BlockPageURL())
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not shut down")
	}
}
