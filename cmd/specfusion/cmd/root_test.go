package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfusion/specfusion/pkg/version"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command

	// When: executing with --help
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()

	// Then: it should show usage information
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "specfusion", "Help should mention program name")
	assert.Contains(t, output, "Usage:", "Help should show usage")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	// Given: a root command

	// When: executing with --version
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	err := cmd.Execute()

	// Then: it should show the version
	require.NoError(t, err)
	assert.Contains(t, buf.String(), version.Version)
	assert.Contains(t, buf.String(), "specfusion")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: a root command
	cmd := NewRootCmd()

	// When: checking available commands
	var commandNames []string
	for _, subcmd := range cmd.Commands() {
		commandNames = append(commandNames, subcmd.Name())
	}

	// Then: the documented subcommands should exist
	assert.Contains(t, commandNames, "serve")
	assert.Contains(t, commandNames, "sync")
	assert.Contains(t, commandNames, "list-sources")
	assert.Contains(t, commandNames, "add-openapi")
	assert.Contains(t, commandNames, "version")
}

func TestRootCmd_HasDebugFlag(t *testing.T) {
	// Given: a root command
	cmd := NewRootCmd()

	// Then: it should have --debug flag
	flag := cmd.PersistentFlags().Lookup("debug")
	require.NotNil(t, flag, "Should have --debug flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestVersionCmd_Output(t *testing.T) {
	// Given: the version subcommand
	cmd := newVersionCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	// When: executing it
	err := cmd.Execute()

	// Then: it should print the full version line
	require.NoError(t, err)
	assert.Contains(t, buf.String(), version.String())
}

func TestSyncCmd_RequiresSourceOrAll(t *testing.T) {
	// Given: the sync command without a source and without --all
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"sync"})

	// When: executing it
	err := cmd.Execute()

	// Then: it should fail with a usage hint
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all")
}
