// constants.go

// Package common provides shared functionality and constants for the RekordPdbPatcher application.
// This file contains constants used across the application to replace hardcoded strings.
package common

// ModuleKeys - Constants for module identification in configuration
const (
	// ModuleKeyUSBPatcher is the key for the USB patcher module
	ModuleKeyUSBPatcher = "USBPatcher"
)

// OperationNames - Constants for operation names used in ErrorContext
const (
	OperationDiscovery    = "Discovery"
	OperationConversion   = "Conversion"
	OperationPatch        = "PatchCatalog"
	OperationLibraryDB    = "LibraryDatabase"
	OperationPrecondition = "Preconditions"
	OperationRestore      = "RestoreBackup"
)

// Device layout - directory and file names found on a Rekordbox export device
const (
	// DirNameContents holds the exported audio files
	DirNameContents = "Contents"

	// DirNamePioneer is the vendor directory at the device root
	DirNamePioneer = "PIONEER"

	// ExtensionPDB is the extension of the binary catalog files
	ExtensionPDB = ".pdb"

	// ExtensionBackup is appended to a catalog file name for its backup copy
	ExtensionBackup = ".backup"

	// BackupTimeFormat is used in timestamped backup file names
	BackupTimeFormat = "2006-01-02@15_04_05"

	// FileNameLibraryDB is the SQLite library shipped by newer Rekordbox exports
	FileNameLibraryDB = "exportLibrary.db"

	// HiddenFilePrefix marks macOS resource-fork sidecar files
	HiddenFilePrefix = "._"
)

// RekordboxDirNames lists the catalog directory casings seen on exported devices, in probe order.
var RekordboxDirNames = []string{"rekordbox", "Rekordbox", "REKORDBOX"}

// FileNames - Constants for file names
const (
	// FileNameSettings is the name of the configuration file
	FileNameSettings = "settings.conf"

	// FileNameLog is the name of the application log file
	FileNameLog = "rekordpdbpatcher.log"

	//FolderNameLog is the name of the log folder
	FolderNameLog = "log"
)

// AppIdentifiers - Constants for application identification
const (
	// AppID is the application identifier
	AppID = "com.rekordpdbpatcher.app"

	//AppName is the application name
	AppName = "RekordPdbPatcher"
)

// Environment variables overriding settings.conf
const (
	EnvFFmpeg      = "RPP_FFMPEG"
	EnvConcurrency = "RPP_CONCURRENCY"
	EnvTaskTimeout = "RPP_TASK_TIMEOUT"
	EnvStagingDir  = "RPP_STAGING_DIR"
	EnvLibraryKey  = "RPP_LIBRARY_KEY"
	EnvExtraAIFF   = "RPP_EXTRA_AIFF"
	EnvExtraMP3    = "RPP_EXTRA_MP3"
	EnvLanguage    = "RPP_LANG"
)
