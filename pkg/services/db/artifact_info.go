package dbservice

import (
	"errors"
	"time"

	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	"gorm.io/gorm"
)

// GetArtifacts retrieves a paginated and sorted list of artifacts,
// optionally filtered by session IDs, and returns the total count.
func (s *DatabaseService) GetArtifacts(sessionIds []string, artifactType *dbmodels.ArtifactType, offset, limit uint64, direction *string) ([]*dbmodels.SessionArtifact, int64, error) {
	var artifacts []*dbmodels.SessionArtifact
	var total int64

	tx := s.db.Model(&dbmodels.SessionArtifact{})

	if len(sessionIds) > 0 {
		tx.Where("session_id IN ?", sessionIds)
	}
	if artifactType != nil {
		tx.Where("type = ?", *artifactType)
	}

	// Get the total count before applying limit and offset
	err := tx.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	if total == 0 {
		return artifacts, 0, nil
	}

	if direction != nil && (*direction == "ASC" || *direction == "DESC") {
		tx.Order("id " + *direction)
	} else {
		tx.Order("id DESC")
	}

	if limit > 0 {
		tx.Limit(int(limit))
	}
	if offset > 0 {
		tx.Offset(int(offset))
	}

	err = tx.Find(&artifacts).Error
	if err != nil {
		return nil, 0, err
	}

	return artifacts, total, nil
}

// GetExpiredArtifacts returns artifacts created before the given time,
// oldest first. The janitor uses it for retention sweeps.
func (s *DatabaseService) GetExpiredArtifacts(before time.Time, limit int) ([]*dbmodels.SessionArtifact, error) {
	var artifacts []*dbmodels.SessionArtifact

	result := s.db.Where("created < ?", before).Order("id ASC").Limit(limit).Find(&artifacts)
	if result.Error != nil {
		return nil, result.Error
	}

	return artifacts, nil
}

// GetSessionArtifactByArtifactID retrieves a single artifact by its unique artifact_id.
// It returns (nil, nil) if the record is not found.
func (s *DatabaseService) GetSessionArtifactByArtifactID(artifactID string) (*dbmodels.SessionArtifact, error) {
	var artifact dbmodels.SessionArtifact
	cond := &dbmodels.SessionArtifact{
		ArtifactId: artifactID,
	}
	result := s.db.Where(cond).First(&artifact)

	switch {
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		return nil, nil
	case result.Error != nil:
		return nil, result.Error
	}

	return &artifact, nil
}
