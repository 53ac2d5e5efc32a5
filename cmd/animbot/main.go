// Command animbot runs the animation points bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/m3rciful/animbot/core/app"
	"github.com/m3rciful/animbot/core/bootstrap"
	"github.com/m3rciful/animbot/core/buildinfo"
	corecmd "github.com/m3rciful/animbot/core/cmd"
	coreconfig "github.com/m3rciful/animbot/core/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file used when $CONFIG_PATH is unset")
	version := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()
	if *version {
		fmt.Println(buildinfo.String())
		return
	}

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: *configPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: bootstrapApp,
	})
	if err != nil {
		log.Fatal(err)
	}
}

func bootstrapApp(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	res, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	a, err := app.New(app.Options{
		Config:  cfg,
		Store:   res.Store,
		Journal: res.Journal,
		Close:   res.Close,
	})
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	return a, nil
}
