package main

import (
	"flag"

	"kismarket/app"
	"kismarket/collector"
	"kismarket/config"
	"kismarket/kis"

	"github.com/rs/zerolog"
)

func main() {

	path := flag.String("config", "config.yaml", "설정 파일 경로")
	flag.Parse()

	conf, err := config.NewConfig(*path)
	if err != nil {
		panic(err)
	}

	level, err := conf.LogLevel()
	if err != nil {
		panic(err)
	}
	zerolog.SetGlobalLevel(level)

	client, err := kis.NewClient(conf.KisConfig())
	if err != nil {
		panic(err)
	}

	if conf.Collector.Enabled {
		cl := collector.NewCollector(client.Quotes, conf.Collector.Codes)
		cl.Run()
		defer cl.Stop()
	}

	if err := app.Run(conf.App.Port, client); err != nil {
		panic(err)
	}
}
