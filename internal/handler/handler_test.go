package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modtag/modtag/internal/audit"
	"github.com/modtag/modtag/internal/errs"
	"github.com/modtag/modtag/internal/koji"
	"github.com/modtag/modtag/internal/rules"
)

const testRules = `
- id: fedora-platform
  type: module
  rule:
    dependencies:
      requires:
        platform: '(?P<platform>f\d+)'
  destinations: modular-updates-candidate-${platform}
- id: nodejs-extra
  type: module
  rule:
    name: nodejs
  destinations: nodejs-pending
`

const testModulemd = `
document: modulemd
version: 2
data:
  name: nodejs
  stream: "10"
  dependencies:
  - requires:
      platform: [f29]
`

var testEvent = BuildEvent{
	Name:    "nodejs",
	Stream:  "10",
	Version: "20190101",
	Context: "abcd1234",
	State:   "ready",
}

type fakeFetcher struct {
	text []byte
	err  error
}

func (f *fakeFetcher) ModulemdText(_ context.Context, _, _, _, _ string) ([]byte, error) {
	return f.text, f.err
}

type fakeDispatcher struct {
	calls   int
	nvr     string
	tags    []string
	results []koji.TagResult
	err     error
}

func (f *fakeDispatcher) ApplyTags(_ context.Context, nvr string, tags []string) ([]koji.TagResult, error) {
	f.calls++
	f.nvr = nvr
	f.tags = tags
	if f.err != nil {
		return nil, f.err
	}
	if f.results != nil {
		return f.results, nil
	}
	results := make([]koji.TagResult, 0, len(tags))
	for _, tag := range tags {
		results = append(results, koji.TagResult{Tag: tag})
	}
	return results, nil
}

func loadTestRules(t *testing.T) []rules.Rule {
	t.Helper()
	defs, err := rules.Parse([]byte(testRules))
	require.NoError(t, err)
	return defs
}

func TestBuildEventIdentifiers(t *testing.T) {
	event := BuildEvent{Name: "mod", Stream: "f29-build", Version: "1", Context: "c1"}
	assert.Equal(t, "mod-f29-build-1-c1", event.NSVC())
	// The stream is normalized so its dashes do not break the release field.
	assert.Equal(t, "mod-f29_build-1.c1", event.NVR())
}

func TestHandle_TagsBuildForAllMatchingRules(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	sink := audit.NewMemorySink()
	h := New(loadTestRules(t), &fakeFetcher{text: []byte(testModulemd)}, dispatcher, sink,
		false, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), testEvent))

	assert.Equal(t, 1, dispatcher.calls)
	assert.Equal(t, "nodejs-10-20190101.abcd1234", dispatcher.nvr)
	assert.Equal(t, []string{"modular-updates-candidate-f29", "nodejs-pending"}, dispatcher.tags)

	actions, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, audit.ResultApplied, actions[0].Result)
	assert.Equal(t, []string{"fedora-platform", "nodejs-extra"}, actions[0].RuleIDs)
}

func TestHandle_NoRuleMatched(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	sink := audit.NewMemorySink()
	h := New(loadTestRules(t), &fakeFetcher{text: []byte("data: {name: httpd}")}, dispatcher,
		sink, false, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), testEvent))

	assert.Zero(t, dispatcher.calls, "dispatcher must not be invoked without a match")
	actions, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestHandle_DryRun(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	sink := audit.NewMemorySink()
	h := New(loadTestRules(t), &fakeFetcher{text: []byte(testModulemd)}, dispatcher, sink,
		true, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), testEvent))

	assert.Zero(t, dispatcher.calls, "dispatcher must not be invoked in dry-run mode")
	actions, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, audit.ResultDryRun, actions[0].Result)
	assert.Equal(t, []string{"modular-updates-candidate-f29", "nodejs-pending"}, actions[0].Tags)
}

func TestHandle_RetrievalFailureDropsEvent(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := New(loadTestRules(t), &fakeFetcher{err: errors.New("connection refused")}, dispatcher,
		nil, false, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), testEvent),
		"retrieval failure is non-fatal, the event is dropped")
	assert.Zero(t, dispatcher.calls)
}

func TestHandle_MalformedModulemdSurfaces(t *testing.T) {
	h := New(loadTestRules(t), &fakeFetcher{text: []byte("\t{{")}, &fakeDispatcher{}, nil,
		false, zerolog.Nop())

	err := h.Handle(context.Background(), testEvent)
	require.Error(t, err)
	assert.Equal(t, errs.Invalid, errs.ClassOf(err))
}

func TestHandle_PartialTagFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []koji.TagResult{
		{Tag: "modular-updates-candidate-f29", Err: koji.ErrTagFailed},
		{Tag: "nodejs-pending"},
	}}
	sink := audit.NewMemorySink()
	h := New(loadTestRules(t), &fakeFetcher{text: []byte(testModulemd)}, dispatcher, sink,
		false, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), testEvent),
		"per-tag failures do not fail the event")

	actions, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, audit.ResultPartial, actions[0].Result)
	assert.NotEmpty(t, actions[0].Error)
}

func TestHandle_SessionFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("login failed")}
	sink := audit.NewMemorySink()
	h := New(loadTestRules(t), &fakeFetcher{text: []byte(testModulemd)}, dispatcher, sink,
		false, zerolog.Nop())

	err := h.Handle(context.Background(), testEvent)
	require.Error(t, err)
	assert.Equal(t, errs.Transient, errs.ClassOf(err))

	actions, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, audit.ResultFailed, actions[0].Result)
}
