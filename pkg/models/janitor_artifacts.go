package models

import (
	"os"
	"path/filepath"
	"time"
)

// checkArtifactRetention removes artifact files and rows older than the
// configured retention window. Disabled when no window is set. Types that
// the API refuses to delete are still subject to retention.
func (m *JanitorModel) checkArtifactRetention() {
	if m.app.Session.ArtifactRetention == nil || *m.app.Session.ArtifactRetention <= 0 {
		return
	}

	task := "artifactRetention"
	if m.rs.IsJanitorTaskLock(task) {
		return
	}
	m.rs.LockJanitorTask(task, time.Minute*10)
	defer m.rs.UnlockJanitorTask(task)

	checkTime := time.Now().UTC().Add(-*m.app.Session.ArtifactRetention)

	// work in pages, a big backlog drains over a few runs
	artifacts, err := m.ds.GetExpiredArtifacts(checkTime, 100)
	if err != nil {
		m.logger.WithError(err).Errorln("error fetching expired artifacts")
		return
	}
	if len(artifacts) == 0 {
		return
	}

	log := m.logger.WithField("task", task)
	log.Infof("%d artifacts passed the retention window", len(artifacts))

	var ids []uint64
	for _, artifact := range artifacts {
		if artifact.FilePath != "" {
			file := filepath.Join(*m.app.Session.ArtifactsStorePath, artifact.FilePath)
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				log.WithError(err).Errorln("error deleting artifact file:", file)
				continue
			}
		}
		ids = append(ids, artifact.ID)
	}

	deleted, err := m.ds.DeleteArtifactRows(ids)
	if err != nil {
		log.WithError(err).Errorln("error deleting artifact rows")
		return
	}

	log.Infof("retention removed %d artifacts", deleted)
}
