package main

import (
	"os"

	_ "go.uber.org/automaxprocs"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"visioniq.io/visioniq/cmd/visioniq/app"
)

func main() {
	ctx := genericapiserver.SetupSignalContext()
	if err := app.NewVisionIQCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
