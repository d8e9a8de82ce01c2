package config

// Default paths for on-disk state
const (
	// DefaultDatabasePath is the default path for the relational sqlite database
	DefaultDatabasePath = "./data/bookshelf.db"

	// DefaultSnapshotPath is the badger directory used by the local storage backend
	DefaultSnapshotPath = "./data/snapshot"

	// DefaultFilesPath holds imported document bytes
	DefaultFilesPath = "./data/files"

	// DefaultCoversPath holds cover thumbnails
	DefaultCoversPath = "./data/covers"
)
