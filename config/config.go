package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultPeopleSubDir  = "people"
	DefaultDataFileName  = "genealogy-data.json"
	DefaultImportLogName = "import-log.txt"
)

const (
	defaultPhotoQueueSize   = 100
	defaultNumPhotoWorkers  = 2
	defaultThumbnailMaxSize = 300
	defaultWatchDebounceMS  = 500
)

type Config struct {
	// archive root (where the people tree and data document live)
	ArchiveRoot string

	// full-calculated paths inside the archive root
	DataFilePath  string // genealogy-data.json
	PeoplePath    string // per-person media areas
	ImportLogPath string // append-only import log

	// destination for generated zip/pdf exports (outside the archive root
	// so the watcher does not fire on them)
	ExportsPath string

	// thumbnail generation settings
	ThumbnailMaxSize int

	// photo worker settings
	PhotoQueueSize  int
	NumPhotoWorkers int

	// watcher burst coalescing window, milliseconds
	WatchDebounceMS int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	root := getEnvOrDefault("ARCHIVE_ROOT", filepath.Join(".", "archive"))
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for archive root '%s': %w", root, err)
	}

	peopleSubDir := getEnvOrDefault("PEOPLE_SUBDIR", DefaultPeopleSubDir)
	absPeoplePath := filepath.Join(absRoot, peopleSubDir)

	exports := getEnvOrDefault("EXPORTS_PATH", filepath.Join(".", "exports"))
	absExports, err := filepath.Abs(exports)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for exports '%s': %w", exports, err)
	}

	cfg := Config{
		ArchiveRoot:      absRoot,
		DataFilePath:     filepath.Join(absRoot, DefaultDataFileName),
		PeoplePath:       absPeoplePath,
		ImportLogPath:    filepath.Join(absRoot, DefaultImportLogName),
		ExportsPath:      absExports,
		ThumbnailMaxSize: getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaultThumbnailMaxSize),
		PhotoQueueSize:   getEnvIntOrDefault("PHOTO_QUEUE_SIZE", defaultPhotoQueueSize),
		NumPhotoWorkers:  getEnvIntOrDefault("NUM_PHOTO_WORKERS", defaultNumPhotoWorkers),
		WatchDebounceMS:  getEnvIntOrDefault("WATCH_DEBOUNCE_MS", defaultWatchDebounceMS),
	}

	return cfg, nil
}
