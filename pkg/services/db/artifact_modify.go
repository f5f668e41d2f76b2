package dbservice

import (
	"fmt"

	"github.com/voxlive/voxlive-server/pkg/dbmodels"
)

// CreateSessionArtifact inserts a new artifact record into the database.
// It returns the number of rows affected.
func (s *DatabaseService) CreateSessionArtifact(artifact *dbmodels.SessionArtifact) (int64, error) {
	result := s.db.Create(artifact)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// DeleteArtifactByArtifactId deletes an artifact by its unique artifact_id.
// It returns the number of rows affected.
func (s *DatabaseService) DeleteArtifactByArtifactId(artifactId string) (int64, error) {
	artifact, err := s.GetSessionArtifactByArtifactID(artifactId)
	if err != nil {
		return 0, err
	}
	if artifact == nil {
		return 0, fmt.Errorf("artifact not found with ID: %s", artifactId)
	}

	// double check to prevent deletion of certain artifact types.
	if !s.IsAllowToDeleteArtifact(artifact.Type) {
		return 0, fmt.Errorf("deleting '%s' type of artifact is not allowed", artifact.Type.ToString())
	}

	result := s.db.Delete(&artifact)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// DeleteArtifactRows removes artifact records by primary key regardless of
// type. Only the retention sweep should use this; API deletions go through
// DeleteArtifactByArtifactId which honors the type restrictions.
func (s *DatabaseService) DeleteArtifactRows(ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.Delete(&dbmodels.SessionArtifact{}, ids)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func (s *DatabaseService) IsAllowToDeleteArtifact(artifactType dbmodels.ArtifactType) bool {
	switch artifactType {
	case dbmodels.ArtifactSummary,
		dbmodels.ArtifactTranscript:
		return true
	}

	return false
}
