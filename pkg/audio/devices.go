package audio

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
)

// DefaultSource picks the capture source ingest tokens are issued for. The
// configured default wins when it can capture; otherwise the sources are
// scanned in order and the first one with input channels is used.
func DefaultSource(cfg *config.CaptureSettings, lg *logrus.Logger) (*config.CaptureSource, error) {
	log := lg.WithField("helper", "audioDevices")

	if cfg.DefaultSource != "" {
		for i := range cfg.Sources {
			src := &cfg.Sources[i]
			if src.Name != cfg.DefaultSource {
				continue
			}
			if src.MaxInputChannels > 0 {
				return src, nil
			}
			log.Warnln("default capture source has no input channels:", src.Name)
			break
		}
	}

	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		log.Debugln("probing capture source:", src.Name)
		if src.MaxInputChannels > 0 {
			log.Infoln("selected capture source:", src.Name)
			return src, nil
		}
	}

	return nil, errors.New(config.NoInputDevicesFound)
}
