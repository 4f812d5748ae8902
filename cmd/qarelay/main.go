package main

import (
	"log"
	_ "time/tzdata"

	corecmd "github.com/m3rciful/qarelay/core/cmd"
	coreconfig "github.com/m3rciful/qarelay/core/config"
	"github.com/m3rciful/qarelay/qa/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        coreconfig.Load,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
