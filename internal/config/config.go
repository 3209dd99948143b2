package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/standardbeagle/lci/internal/coretypes"
)

// Default index-size guardrails, inlined here since they're only
// ever consulted by this package's own defaults.
const (
	defaultMaxFileSize    = 10 * 1024 * 1024
	defaultMaxTotalSizeMB = 500
	defaultMaxFileCount   = 10000
)

type Config struct {
	Version              int
	Project              Project
	Index                Index
	Performance          Performance
	Repository           Repository
	Include              []string
	Exclude              []string
	PropagationConfigDir string // Directory for propagation configuration files
}

type Project struct {
	Root string
	Name string
}

type Index struct {
	MaxFileSize      int64
	MaxTotalSizeMB   int64
	MaxFileCount     int
	FollowSymlinks   bool
	SmartSizeControl bool
	PriorityMode     string // "recent", "small", "important"
	RespectGitignore bool   // Process .gitignore files for additional exclusions
	WatchMode        bool   // Enable file system watching for automatic reindexing
	WatchDebounceMs  int    // Debounce time for file change events
}

type Performance struct {
	MaxMemoryMB         int // Maximum memory usage in MB
	MaxGoroutines       int // Maximum number of goroutines for indexing
	DebounceMs          int // Debounce time in milliseconds for file change events
	ParallelFileWorkers int // 0 = auto-detect (NumCPU)
	IndexingTimeoutSec  int // Timeout for indexing operations in seconds (default: 120)
	StartupDelayMs      int // Delay before auto-indexing starts (default: 1500ms)
}

// Repository configures the history walk: which branch to index, which
// tokeniser mode to build, and where the persisted index lives.
type Repository struct {
	BranchTip       string
	Mode            coretypes.TokenMode
	IgnoreUTF8Error bool
	IndexPath       string
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

func LoadWithRoot(path string, rootDir string) (*Config, error) {
	// Determine search directory for config files
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	// Step 1: Load global base config from ~/.lci.kdl (if exists)
	homeDir, err := os.UserHomeDir()
	var baseConfig *Config
	if err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	// Step 2: Load project-specific config from project directory
	var projectConfig *Config
	if kdlCfg, err := LoadKDL(searchDir); err == nil && kdlCfg != nil {
		projectConfig = kdlCfg
	} else if err != nil {
		return nil, err
	}

	// Step 3: Merge configs (project overrides base, but preserve base exclusions)
	if baseConfig != nil && projectConfig != nil {
		return mergeConfigs(baseConfig, projectConfig), nil
	} else if projectConfig != nil {
		return projectConfig, nil
	} else if baseConfig != nil {
		// Use base config but update project root
		baseConfig.Project.Root = searchDir
		return baseConfig, nil
	}

	// Default config
	// Use current working directory as absolute path for consistency
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "." // Fallback to relative if we can't get absolute
	}

	cfg := &Config{
		Version: 1,
		Project: Project{
			Root: cwd,
			Name: filepath.Base(cwd),
		},
		Index: Index{
			MaxFileSize:      defaultMaxFileSize,
			MaxTotalSizeMB:   defaultMaxTotalSizeMB,
			MaxFileCount:     defaultMaxFileCount,
			FollowSymlinks:   false,
			SmartSizeControl: true,     // Enable intelligent size management
			PriorityMode:     "recent", // Prefer recently modified files
			RespectGitignore: true,     // Process .gitignore files by default
			WatchMode:        true,     // Enable file watching by default
			WatchDebounceMs:  300,      // 300ms debounce for file changes
		},
		Performance: Performance{
			MaxMemoryMB:         500,
			MaxGoroutines:       runtime.NumCPU(),
			DebounceMs:          100,
			ParallelFileWorkers: 0,    // 0 = auto-detect (NumCPU)
			IndexingTimeoutSec:  120,  // 120 seconds for large repositories
			StartupDelayMs:      1500, // 1.5 second delay to let UI become responsive
		},
		Repository: Repository{
			BranchTip:       "HEAD",
			Mode:            coretypes.ModeTrigram,
			IgnoreUTF8Error: false,
			IndexPath:       ".lci.index",
		},
		Include: []string{},
		Exclude: []string{
			// Git metadata (never indexable)
			"**/.git/**",

			// Hidden directories (catch-all for dot directories)
			"**/.*/**", // All hidden directories

			// Package managers & dependencies
			"**/node_modules/**",
			"**/vendor/**",
			"**/bower_components/**",
			"**/jspm_packages/**",

			// Build artifacts & output
			"**/dist/**",
			"**/build/**",
			"**/out/**",
			"**/target/**", // Rust, Java
			"**/bin/**",
			"**/obj/**",    // .NET
			"**/ui/**",     // Web UI build artifacts
			"**/public/**", // Static assets
			"**/*.min.js",
			"**/*.min.css",
			"**/*.bundle.js",
			"**/*.chunk.js",
			"**/*.min.map", // Source maps for minified files

			// Test files and directories (language-agnostic patterns)
			// Go test files
			"**/*_test.go",
			"**/*_tests.go",
			// Python test files
			"**/*_test.py",
			"**/*_tests.py",
			"**/test_*.py",
			"**/tests_*.py",
			// JavaScript/TypeScript test files (Jest, Vitest, Mocha)
			"**/*.test.js",
			"**/*.test.ts",
			"**/*.test.tsx",
			"**/*.test.jsx",
			"**/*.spec.js",
			"**/*.spec.ts",
			"**/*.spec.tsx",
			"**/*.spec.jsx",
			// Generic test file prefixes (any extension)
			"**/test_*",
			"**/tests_*",
			// Test directories
			"**/__tests__/**",
			"**/test/**",
			"**/tests/**",
			"**/testdata/**",
			"**/__testdata__/**",
			"**/fixtures/**",
			"**/.test/**",
			// Ruby test files
			"**/*_test.rb",
			"**/*_spec.rb",
			// Java test files
			"**/*Test.java",
			"**/*Tests.java",
			"**/*TestCase.java",
			// C# test files
			"**/*Test.cs",
			"**/*Tests.cs",
			"**/*Test.csproj",
			// Rust test files
			"**/tests/**",
			// PHP test files
			"**/*Test.php",
			"**/*TestCase.php",
			// Kotlin test files
			"**/*Test.kt",
			"**/*Tests.kt",
			"**/*TestCase.kt",
			// Swift test files
			"**/*Test.swift",
			// Objective-C test files
			"**/*Test.m",
			"**/*Test.h",

			// Binary files (commonly found in codebases)
			"**/*.avif",  // AVIF image format
			"**/*.webp",  // WebP image format
			"**/*.wasm",  // WebAssembly
			"**/*.woff",  // Web fonts
			"**/*.woff2", // Web fonts (compressed)
			"**/*.ttf",   // TrueType fonts
			"**/*.eot",   // Embedded OpenType fonts
			"**/*.otf",   // OpenType fonts

			// Video & Audio files (binary formats)
			"**/*.mp4",
			"**/*.avi",
			"**/*.mov",
			"**/*.wmv",
			"**/*.flv",
			"**/*.mkv",
			"**/*.webm",
			"**/*.m4v",
			"**/*.mpg",
			"**/*.mpeg",
			"**/*.3gp",
			"**/*.ogv",
			"**/*.mp3",
			"**/*.wav",
			"**/*.flac",
			"**/*.aac",
			"**/*.ogg",
			"**/*.wma",
			"**/*.m4a",
			"**/*.aiff",
			"**/*.ape",

			// Office documents (binary formats)
			"**/*.doc",     // Microsoft Word
			"**/*.docx",    // Microsoft Word (XML)
			"**/*.docm",    // Microsoft Word (macro-enabled)
			"**/*.xls",     // Microsoft Excel
			"**/*.xlsx",    // Microsoft Excel (XML)
			"**/*.xlsm",    // Microsoft Excel (macro-enabled)
			"**/*.xlsb",    // Microsoft Excel (binary)
			"**/*.xlt",     // Microsoft Excel template
			"**/*.xltx",    // Microsoft Excel template (XML)
			"**/*.xltm",    // Microsoft Excel template (macro-enabled)
			"**/*.xlam",    // Microsoft Excel add-in
			"**/*.ppt",     // Microsoft PowerPoint
			"**/*.pptx",    // Microsoft PowerPoint (XML)
			"**/*.pptm",    // Microsoft PowerPoint (macro-enabled)
			"**/*.pps",     // Microsoft PowerPoint show
			"**/*.ppsx",    // Microsoft PowerPoint show (XML)
			"**/*.ppsm",    // Microsoft PowerPoint show (macro-enabled)
			"**/*.pot",     // Microsoft PowerPoint template
			"**/*.potx",    // Microsoft PowerPoint template (XML)
			"**/*.potm",    // Microsoft PowerPoint template (macro-enabled)
			"**/*.odt",     // OpenDocument Text
			"**/*.ods",     // OpenDocument Spreadsheet
			"**/*.odp",     // OpenDocument Presentation
			"**/*.rtf",     // Rich Text Format
			"**/*.pages",   // Apple Pages
			"**/*.numbers", // Apple Numbers
			"**/*.key",     // Apple Keynote

			// Editor temp files (not hidden directories)
			"**/*.swp",
			"**/*.swo",
			"**/*~",

			// Python compiled files
			"**/__pycache__/**", // Python
			"**/*.pyc",

			// OS files
			"**/Thumbs.db",
			"**/desktop.ini",

			// Logs
			"**/logs/**",
			"**/*.log",
		},
	}

	// Enrich exclusions with language-specific build artifacts
	cfg.EnrichExclusionsWithBuildArtifacts()

	return cfg, nil
}

// mergeConfigs merges a base config with a project config
// Project config takes precedence, but base exclusions are preserved
func mergeConfigs(base, project *Config) *Config {
	// Start with a copy of the project config
	merged := *project

	// Merge exclusions: combine base and project exclusions
	if len(base.Exclude) > 0 {
		// Use a map to deduplicate
		excludeMap := make(map[string]bool)

		// Add base exclusions first
		for _, pattern := range base.Exclude {
			excludeMap[pattern] = true
		}

		// Add project exclusions
		for _, pattern := range project.Exclude {
			excludeMap[pattern] = true
		}

		// Convert back to slice
		merged.Exclude = make([]string, 0, len(excludeMap))
		for pattern := range excludeMap {
			merged.Exclude = append(merged.Exclude, pattern)
		}
	}

	// Merge inclusions: project overrides base completely if specified
	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	// Use project settings for everything else (already copied above)
	// This allows project to override performance settings, search settings, etc.

	return &merged
}

// EnrichExclusionsWithBuildArtifacts detects build output directories from language configs
// and adds them to the exclusion list
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.Project.Root == "" {
		return // No project root set, skip detection
	}

	detector := NewBuildArtifactDetector(c.Project.Root)
	detectedPatterns := detector.DetectOutputDirectories()

	if len(detectedPatterns) > 0 {
		// Append detected patterns to exclusions
		c.Exclude = append(c.Exclude, detectedPatterns...)
	}

	gp := NewGitignoreParser()
	if err := gp.LoadGitignore(c.Project.Root); err == nil {
		c.Exclude = append(c.Exclude, gp.GetExclusionPatterns()...)
	}

	c.Exclude = DeduplicatePatterns(c.Exclude)
}
