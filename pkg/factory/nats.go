package factory

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nkeys"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
)

func NewNatsConnection(appCnf *config.AppConfig) error {
	info := appCnf.NatsInfo
	var opt nats.Option

	if info.Nkey != nil && *info.Nkey != "" {
		kp, err := nkeys.FromSeed([]byte(strings.TrimSpace(*info.Nkey)))
		if err != nil {
			return fmt.Errorf("invalid nkey seed: %w", err)
		}
		pub, err := kp.PublicKey()
		if err != nil {
			return err
		}
		// the keypair stays alive to re-sign the nonce on reconnects
		opt = nats.Nkey(pub, kp.Sign)
	} else {
		opt = nats.UserInfo(info.User, info.Password)
	}

	nc, err := nats.Connect(strings.Join(info.NatsUrls, ","), opt)
	if err != nil {
		return err
	}
	appCnf.NatsConn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return err
	}

	appCnf.Logger.WithFields(logrus.Fields{
		"version": nc.ConnectedServerVersion(),
		"address": nc.ConnectedAddr(),
	}).Info("successfully connected to NATS server")
	appCnf.JetStream = js

	return nil
}
