package domain

import "time"

// ServerConfig is the public application document clients read before
// authenticating: what this deployment is and how long its credentials
// live. It carries nothing secret.
type ServerConfig struct {
	AppName            string
	AppVersion         string
	AppBuild           string
	AuthTokenLifetime  time.Duration
	AuthzTokenLifetime time.Duration
}
