package config

import "runtime"

// defaultABITag maps the running platform to the ABI tag convention used
// by .jpl packages: armeabi-v7a, arm64-v8a, x86_64-linux-gnu,
// x64-windows, ...
func defaultABITag() string {
	switch {
	case runtime.GOOS == "linux" && runtime.GOARCH == "amd64":
		return "x86_64-linux-gnu"
	case runtime.GOOS == "linux" && runtime.GOARCH == "arm64":
		return "arm64-v8a"
	case runtime.GOOS == "linux" && runtime.GOARCH == "arm":
		return "armeabi-v7a"
	case runtime.GOOS == "windows" && runtime.GOARCH == "amd64":
		return "x64-windows"
	case runtime.GOOS == "darwin" && runtime.GOARCH == "arm64":
		return "arm64-darwin"
	case runtime.GOOS == "darwin" && runtime.GOARCH == "amd64":
		return "x86_64-darwin"
	default:
		return runtime.GOARCH + "-" + runtime.GOOS
	}
}
