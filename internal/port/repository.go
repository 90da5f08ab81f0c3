package port

import (
	"github.com/vertextoedge/mcfetch/internal/domain/repository"
)

// ArtifactRepository is an alias to domain repository interface
type ArtifactRepository = repository.ArtifactRepository

// Store is an alias to domain repository interface
type Store = repository.Store
