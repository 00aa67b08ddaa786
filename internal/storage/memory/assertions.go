package memory

import "github.com/tinoosan/journal/internal/storage"

// Compile-time interface assertions documenting which interfaces Store satisfies.
var _ storage.Backend = (*Store)(nil)
