package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tflite-micro/tflm-go/cmd"
	_ "github.com/tflite-micro/tflm-go/native/tflm"
)

func main() {
	cobra.CheckErr(cmd.NewCLI().ExecuteContext(context.Background()))
}
