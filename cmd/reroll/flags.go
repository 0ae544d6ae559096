package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose    = "verbose"
	FlagConfig     = "config"
	FlagEnvFile    = "env-file"
	FlagLogFile    = "log-file"
	FlagStateFile  = "state-file"
	FlagSocketPath = "socket-path"

	// Run command flags
	FlagTUI        = "tui"
	FlagTargets    = "target"
	FlagApply      = "apply"
	FlagChange     = "change"
	FlagRegion     = "region"
	FlagSettle     = "settle"
	FlagClickDelay = "click-delay"
	FlagCapture    = "capture-backend"
	FlagInput      = "input-backend"
	FlagCatalog    = "catalog"

	// Serve command flags
	FlagDaemon   = "daemon"
	FlagHTTP     = "http"
	FlagHTTPAddr = "http-addr"

	// Events command flags
	FlagFollow = "follow"
	FlagCount  = "count"

	// Output format flags
	FlagJSON = "json"

	// Init command flags
	FlagDryRun  = "dry-run"
	FlagForce   = "force"
	FlagMinimal = "minimal"
	FlagGlobal  = "global"
)
