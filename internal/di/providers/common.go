package providers

import "time"

const (
	// initTimeout bounds the database open and migration at startup.
	initTimeout = 30 * time.Second

	// dataDirPerm is used when creating the data directory.
	dataDirPerm = 0o750
)
