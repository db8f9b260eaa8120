package version

// Version wird beim Release per -ldflags "-X github.com/tflite-micro/tflm-go/version.Version=..." gesetzt
var Version string = "0.0.0"
