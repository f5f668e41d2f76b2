package helpers

import (
	"context"
	"os"

	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/factory"
	"gopkg.in/yaml.v3"
)

// PrepareServer opens every external connection the server needs. The
// connections land on the AppConfig so the wire injector can hand them out.
func PrepareServer(ctx context.Context, appCnf *config.AppConfig) error {
	err := factory.NewDatabaseConnection(ctx, appCnf)
	if err != nil {
		return err
	}

	err = factory.NewRedisConnection(ctx, appCnf)
	if err != nil {
		return err
	}

	return factory.NewNatsConnection(appCnf)
}

func ReadYamlConfigFile(cnfFile string) (*config.AppConfig, error) {
	yamlFile, err := os.ReadFile(cnfFile)
	if err != nil {
		return nil, err
	}

	appCnf := new(config.AppConfig)
	err = yaml.Unmarshal(yamlFile, &appCnf)
	if err != nil {
		return nil, err
	}

	// get current working dir
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	// set the root path
	appCnf.RootWorkingDir = wd

	return appCnf, nil
}
