package cmd

import (
	"time"

	"github.com/isometry/sms-relay-app/internal/config"
	"github.com/isometry/sms-relay-app/internal/helpers"
)

var svcEnvMapString = map[*string]boundEnvVar[string]{
	&config.Service.Addr: {
		Name:        "service-host-addr",
		Description: "The address to serve the service on (default all interfaces in dual-stack serviceMode)",
		Short:       helpers.Ptr("H"),
	},
	&config.Service.Port: {
		Name:        "service-host-port",
		Description: "The port to serve the service on",
		Short:       helpers.Ptr("p"),
		Env:         helpers.Ptr("PORT"),
	},
	&config.Service.Path: {
		Name:        "service-webhook-path",
		Description: "The path the webhook is served on",
		Short:       helpers.Ptr("P"),
	},
}

var svcEnvMapBool = map[*bool]boundEnvVar[bool]{
	&config.Service.Metrics: {
		Name:        "service-metrics",
		Description: "Expose Prometheus metrics on /metrics",
	},
}

var svcEnvMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Service.Timeout: {
		Name:        "service-io-timeout",
		Description: "The timeout for I/O operations",
		Short:       helpers.Ptr("t"),
	},
}
