package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sponsorlink/marketplace/backend/internal/model/playbook"
)

func TestRunClassify(t *testing.T) {
	playbookID = playbook.DefaultID
	script, err := loadScript(context.Background())
	require.NoError(t, err)

	asUserType = "brand"
	defer func() { asUserType = "unknown" }()

	var out bytes.Buffer
	require.NoError(t, runClassify(context.Background(), script, "what's the price", &out))
	assert.Contains(t, out.String(), "intent:   budget")
}

func TestRunClassifyRejectsUnknownType(t *testing.T) {
	playbookID = playbook.DefaultID
	script, err := loadScript(context.Background())
	require.NoError(t, err)

	asUserType = "admin"
	defer func() { asUserType = "unknown" }()

	require.Error(t, runClassify(context.Background(), script, "hi", &bytes.Buffer{}))
}

func TestRunInteractive(t *testing.T) {
	playbookID = playbook.DefaultID
	replyDelay = time.Millisecond
	script, err := loadScript(context.Background())
	require.NoError(t, err)

	in := strings.NewReader("We're a brand looking to promote\n")
	var out bytes.Buffer
	require.NoError(t, runInteractive(context.Background(), script, in, &out))

	p := playbook.Seed()[0]
	assert.Contains(t, out.String(), p.Greeting)
	assert.Contains(t, out.String(), p.BrandWelcome)
}

func TestLoadScriptUnknownPlaybook(t *testing.T) {
	playbookID = "missing"
	defer func() { playbookID = playbook.DefaultID }()

	_, err := loadScript(context.Background())
	require.Error(t, err)
}

func TestRootCommandHasClassify(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"classify"})
	require.NoError(t, err)
	assert.Equal(t, "classify", cmd.Name())
}
