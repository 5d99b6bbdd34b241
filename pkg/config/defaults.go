package config

import "time"

// Directory defaults, relative to the working directory.
const (
	DefaultReposFile   = "repos.txt"
	DefaultHistoryDir  = "LOC"
	DefaultBadgeDir    = "badges"
	DefaultDiagramDir  = "diagrams"
	DefaultWorkDir     = ""
	DefaultSQLitePath  = "LOC/history.db"
	DefaultMetricsFile = ""
)

// Git defaults.
const (
	DefaultGitBackend   = "libgit2"
	DefaultGitBaseURL   = "https://github.com"
	DefaultGitTokenEnv  = "GH_TOKEN"
	DefaultGitUsername  = "x-access-token"
	DefaultCloneTimeout = 10 * time.Minute
)

// Counter defaults.
const (
	DefaultCounterMode    = "wc"
	DefaultCounterCommand = ""
	DefaultCounterTimeout = time.Duration(0)
)

// Store defaults.
const (
	DefaultStoreBackend = "json"
)

// Chart defaults.
const (
	DefaultChartSVG    = true
	DefaultChartHTML   = false
	DefaultChartTheme  = "dark"
	DefaultChartWidth  = 1000
	DefaultChartHeight = 500
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)
