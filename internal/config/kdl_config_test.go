package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/coretypes"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "HEAD", cfg.Repository.BranchTip)
	assert.Equal(t, coretypes.ModeTrigram, cfg.Repository.Mode)
	assert.False(t, cfg.Repository.IgnoreUTF8Error)
}

func TestParseKDL_RepositoryConfig(t *testing.T) {
	kdlContent := `
repository {
    branch_tip "refs/heads/release"
    mode "word"
    ignore_utf8_errors true
    index_path "/tmp/repo.lci.index"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "refs/heads/release", cfg.Repository.BranchTip)
	assert.Equal(t, coretypes.ModeWord, cfg.Repository.Mode)
	assert.True(t, cfg.Repository.IgnoreUTF8Error)
	assert.Equal(t, "/tmp/repo.lci.index", cfg.Repository.IndexPath)
}

func TestParseKDL_RepositoryPartial(t *testing.T) {
	kdlContent := `
repository {
    branch_tip "main"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "main", cfg.Repository.BranchTip)
	// unspecified fields keep their defaults
	assert.Equal(t, coretypes.ModeTrigram, cfg.Repository.Mode)
}

func TestParseKDL_FullConfig(t *testing.T) {
	kdlContent := `
project {
    root "."
    name "test-project"
}

index {
    max_file_size "5MB"
    max_file_count 5000
    respect_gitignore true
}

performance {
    max_memory_mb 256
    max_goroutines 8
}

repository {
    branch_tip "main"
    mode "word"
    index_path ".cache/test.lci.index"
}

exclude "**/.git/**" "**/node_modules/**"
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "test-project", cfg.Project.Name)
	assert.Equal(t, int64(5*1024*1024), cfg.Index.MaxFileSize)
	assert.Equal(t, 5000, cfg.Index.MaxFileCount)
	assert.Equal(t, 256, cfg.Performance.MaxMemoryMB)
	assert.Equal(t, 8, cfg.Performance.MaxGoroutines)
	assert.Equal(t, "main", cfg.Repository.BranchTip)
	assert.Equal(t, coretypes.ModeWord, cfg.Repository.Mode)
	assert.Equal(t, ".cache/test.lci.index", cfg.Repository.IndexPath)
	assert.Contains(t, cfg.Exclude, "**/.git/**")
	assert.Contains(t, cfg.Exclude, "**/node_modules/**")
}
