package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandNames() []string {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	return names
}

func TestRootHasAllCommands(t *testing.T) {
	names := commandNames()
	for _, want := range []string{"normalize", "backfill", "migrate", "registry", "status", "export", "purge", "seed"} {
		assert.Contains(t, names, want)
	}
}

func TestRegistrySubcommands(t *testing.T) {
	var names []string
	for _, c := range registryCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "import")
	assert.Contains(t, names, "list")
}

func TestDateRange_Inclusive(t *testing.T) {
	dates, err := dateRange("2024-03-30", "2024-04-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-30", "2024-03-31", "2024-04-01", "2024-04-02"}, dates)
}

func TestDateRange_SingleDay(t *testing.T) {
	dates, err := dateRange("2024-03-01", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01"}, dates)
}

func TestDateRange_Reversed(t *testing.T) {
	_, err := dateRange("2024-03-02", "2024-03-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before")
}

func TestDateRange_BadFormat(t *testing.T) {
	_, err := dateRange("03/01/2024", "2024-03-02")
	require.Error(t, err)
}
