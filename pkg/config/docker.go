package config

import (
	"os"
	"strconv"
	"sync"
)

// DockerHostAlias is how a container reaches services on its host.
const DockerHostAlias = "host.docker.internal"

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether milkyway runs inside a container. The
// MILKYWAY_IN_DOCKER variable overrides detection; otherwise /.dockerenv is
// checked. The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		if v, err := strconv.ParseBool(os.Getenv("MILKYWAY_IN_DOCKER")); err == nil {
			isDockerResult = v
			return
		}
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker rewrites loopback warehouse hosts to DockerHostAlias
// when running in a container, so a warehouse on the host machine stays
// reachable. Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	return rewriteLoopback(host)
}

func rewriteLoopback(host string) string {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return DockerHostAlias
	}
	return host
}
