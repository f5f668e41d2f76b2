package helpers

import (
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
)

func HandleCloseConnections() {
	cnf := config.GetConfig()
	if cnf == nil {
		return
	}

	// handle to close DB connection
	if cnf.DB != nil {
		if db, err := cnf.DB.DB(); err == nil {
			_ = db.Close()
		}
	}

	// close redis
	if cnf.RDS != nil {
		_ = cnf.RDS.Close()
	}

	// drain NATS so queued publishes flush before the socket dies
	if cnf.NatsConn != nil && !cnf.NatsConn.IsClosed() {
		_ = cnf.NatsConn.Drain()
	}

	// close logger
	logrus.Exit(0)
}
