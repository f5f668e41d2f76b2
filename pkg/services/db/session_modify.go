package dbservice

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/voxlive/voxlive-server/pkg/dbmodels"
)

// InsertOrUpdateSessionInfo will insert if sid does not duplicate,
// otherwise it will update if table ID was sent.
func (s *DatabaseService) InsertOrUpdateSessionInfo(info *dbmodels.SessionInfo) (int64, error) {
	result := s.db.Save(info)
	if result.Error != nil {
		// a lost creation lock can race two inserts for the same sid
		var mysqlErr *mysql.MySQLError
		if errors.As(result.Error, &mysqlErr) && mysqlErr.Number == 1062 {
			return 0, fmt.Errorf("session with sid %s was already created", info.Sid)
		}
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func (s *DatabaseService) UpdateSessionStatus(info *dbmodels.SessionInfo) (int64, error) {
	update := map[string]interface{}{
		"is_running": info.IsRunning,
	}

	if info.IsRunning == 0 {
		update["ended"] = time.Now()
	}

	cond := new(dbmodels.SessionInfo)
	if info.ID > 0 {
		cond.ID = info.ID
	} else if info.SessionId != "" {
		cond.SessionId = info.SessionId
	} else {
		cond.Sid = info.Sid
	}

	result := s.db.Model(&dbmodels.SessionInfo{}).Where(cond).Not("is_running = ?", info.IsRunning).Updates(update)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
