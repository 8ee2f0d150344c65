// Package loader triggers store driver registration via blank imports.
// Import this package to ensure all drivers are registered with the registry.
package loader

import (
	_ "github.com/fedpact/fedpact-go/internal/store/json"
	_ "github.com/fedpact/fedpact-go/internal/store/sqlite"
)
