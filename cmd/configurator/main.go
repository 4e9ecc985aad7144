// Command configurator reconciles local state with a device's configurator
// service.
//
// Follow a device and serve its state locally:
//
//	configurator watch --config configurator.yaml
//
// One-shot operations:
//
//	configurator config
//	configurator upload device.json
//	configurator scan wlan0
//
// Environment overrides: CONFIGURATOR_DEVICE_URL, CONFIGURATOR_SOCKET_URL,
// CONFIGURATOR_AUTHORIZATION, CONFIGURATOR_INSPECT_ADDR,
// CONFIGURATOR_REQUEST_TIMEOUT and CONFIGURATOR_LOG_LEVEL.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
