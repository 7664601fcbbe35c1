// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package handlers

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/appservice"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/pipeline"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/resources"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func fullEnv() map[string]string {
	return map[string]string{
		config.EnvTenantID:       "tenant",
		config.EnvClientID:       "client",
		config.EnvClientSecret:   "secret",
		config.EnvSubscriptionID: "sub",
	}
}

// stubClient hands out every output a downstream Ref might ask for.
type stubClient struct {
	mu       sync.Mutex
	failStep   string
	failDelete string
	created    []string
	deleted    []string
}

func (s *stubClient) Create(_ context.Context, spec pipeline.ResourceSpec, deps map[string]pipeline.ResourceHandle) (pipeline.ResourceHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := spec.Resolve(deps); err != nil {
		return pipeline.ResourceHandle{}, err
	}
	if spec.Name == s.failStep {
		return pipeline.ResourceHandle{}, errors.New("quota exceeded")
	}
	s.created = append(s.created, spec.Name)
	return pipeline.ResourceHandle{
		ID: "/ids/" + spec.Name,
		Outputs: map[string]string{
			"id": "/ids/" + spec.Name, "name": spec.Name, "principalId": "p", "clientId": "c",
			"defaultHostName": "app.azurewebsites.net", "customDomainVerificationId": "v",
		},
	}, nil
}

func (s *stubClient) Delete(_ context.Context, handle pipeline.ResourceHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handle.Step == s.failDelete {
		return errors.New("conflict: resource is locked")
	}
	s.deleted = append(s.deleted, handle.Step)
	return nil
}

func withFactories(t *testing.T, env map[string]string, rc pipeline.ResourceClient, lister Lister) {
	t.Helper()
	origLookup, origRC, origLister := lookupEnv, newResourceClient, newLister
	t.Cleanup(func() {
		lookupEnv, newResourceClient, newLister = origLookup, origRC, origLister
	})

	lookupEnv = envLookup(env)
	newResourceClient = func(*config.Config) (pipeline.ResourceClient, error) { return rc, nil }
	newLister = func(*config.Config) (Lister, error) { return lister, nil }
}

func testSettings() appservice.Settings {
	s := appservice.DefaultSettings()
	s.Suffix = "abc123"
	return s
}

func TestRun_Success(t *testing.T) {
	rc := &stubClient{}
	withFactories(t, fullEnv(), rc, nil)

	var out bytes.Buffer
	err := Run(context.Background(), &out, testSettings())
	require.NoError(t, err)

	assert.Len(t, rc.created, 7)
	assert.Len(t, rc.deleted, 7)
	assert.Equal(t, appservice.StepResourceGroup, rc.deleted[len(rc.deleted)-1])
	assert.Contains(t, out.String(), "Run status: success")
}

func TestRun_CreationFailureStillTearsDown(t *testing.T) {
	rc := &stubClient{failStep: appservice.StepPlan}
	withFactories(t, fullEnv(), rc, nil)

	var out bytes.Buffer
	err := Run(context.Background(), &out, testSettings())

	var creationErr *pipeline.CreationError
	require.ErrorAs(t, err, &creationErr)
	assert.Equal(t, appservice.StepPlan, creationErr.Step)
	assert.ElementsMatch(t, rc.created, rc.deleted)
	assert.NotContains(t, rc.created, appservice.StepApp1)
	assert.Contains(t, out.String(), "Failed at step plan")
}

func TestRun_LogsTeardownFailures(t *testing.T) {
	rc := &stubClient{failDelete: appservice.StepStorage}
	withFactories(t, fullEnv(), rc, nil)

	var logs bytes.Buffer
	logger, err := NewLogger(&logs, "info")
	require.NoError(t, err)
	ctx := plugin.WithLogger(context.Background(), logger)

	var out bytes.Buffer
	err = Run(ctx, &out, testSettings())

	var teardownErr *pipeline.TeardownError
	require.ErrorAs(t, err, &teardownErr)
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), `msg="Failed to delete resource"`)
	assert.Contains(t, logs.String(), "step="+appservice.StepStorage)
	assert.Contains(t, logs.String(), "resource is locked")
	assert.NotContains(t, logs.String(), "level=DEBUG")
	assert.Contains(t, rc.deleted, appservice.StepResourceGroup)
}

func TestNewLogger(t *testing.T) {
	var logs bytes.Buffer
	logger, err := NewLogger(&logs, "debug")
	require.NoError(t, err)

	logger.Debug("Creating resource", "step", "plan")
	assert.Contains(t, logs.String(), "level=DEBUG")
	assert.Contains(t, logs.String(), "step=plan")

	_, err = NewLogger(&logs, "chatty")
	assert.ErrorContains(t, err, `invalid log level "chatty"`)
}

func TestRun_MissingConfiguration(t *testing.T) {
	rc := &stubClient{}
	env := fullEnv()
	delete(env, config.EnvClientSecret)
	withFactories(t, env, rc, nil)

	err := Run(context.Background(), &bytes.Buffer{}, testSettings())

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, config.EnvClientSecret, cfgErr.Key)
	assert.Empty(t, rc.created)
}

func TestPlan_PrintsOrder(t *testing.T) {
	withFactories(t, map[string]string{}, nil, nil)

	s := testSettings()
	s.Domain = "contoso-demo.com"

	var out bytes.Buffer
	require.NoError(t, Plan(&out, s))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "9 step(s):", lines[0])
	assert.Contains(t, lines[1], "resource-group ("+resources.ResourceTypeResourceGroup+")")
	assert.Contains(t, lines[9], "binding")
	assert.Contains(t, lines[9], "<- resource-group, plan, app1, domain")
}

type stubLister struct {
	failKind string
	requests []*resource.ListRequest
}

func (s *stubLister) List(_ context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	s.requests = append(s.requests, request)
	if request.ResourceType == s.failKind {
		return nil, errors.New("forbidden")
	}
	if request.ResourceType == resources.ResourceTypeFunctionApp {
		return &resource.ListResult{NativeIDs: []string{"/sites/app1"}}, nil
	}
	return &resource.ListResult{}, nil
}

func TestList(t *testing.T) {
	lister := &stubLister{failKind: resources.ResourceTypeDomain}
	withFactories(t, fullEnv(), nil, lister)

	var out bytes.Buffer
	err := List(context.Background(), &out, "demo-rg")

	require.ErrorContains(t, err, resources.ResourceTypeDomain)
	assert.Len(t, lister.requests, 8)
	assert.Equal(t, "demo-rg", lister.requests[0].AdditionalProperties["resourceGroupName"])
	assert.Contains(t, out.String(), resources.ResourceTypeFunctionApp+" /sites/app1")
	assert.Contains(t, out.String(), "1 resource(s) in demo-rg")
}

func TestList_RequiresResourceGroup(t *testing.T) {
	assert.Error(t, List(context.Background(), &bytes.Buffer{}, ""))
}
