// Package peerserver is the Managed Server: the process the operator's
// StatefulSet runs in every pod. It serves /health, /ping and /config, reads
// its peer list from a mounted config.json, hot-reloads on file change, and
// pings every peer on a timer.
package peerserver

import (
	"fmt"
	"os"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/luxor-io/peering-operator/pkg/peerlist"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Env holds the environment-derived settings the operator's StatefulSet
// builder injects into every pod (see pkg/resources/statefulset.go).
type Env struct {
	Port       int
	ConfigPath string
	PodName    string
}

const (
	defaultPort       = 8080
	defaultConfigPath = "/etc/peering/config.json"

	defaultPingIntervalMillis = 60000
)

// DefaultConfig is the peer list used when CONFIG_PATH is absent: no peers,
// a 60 second ping interval. The server serves /health with this
// configuration rather than refusing to start.
func DefaultConfig() *peerlist.Config {
	return &peerlist.Config{Peers: []peerlist.Peer{}, PingIntervalMillis: defaultPingIntervalMillis}
}

// EnvFromOS reads Env from the process environment, falling back to the
// same defaults the operator's StatefulSet builder uses when a variable is
// unset.
func EnvFromOS() (Env, error) {
	e := Env{Port: defaultPort, ConfigPath: defaultConfigPath, PodName: os.Getenv("POD_NAME")}
	if e.PodName == "" {
		e.PodName, _ = os.Hostname()
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return Env{}, fmt.Errorf("parse PORT=%q: %w", v, err)
		}
		e.Port = p
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		e.ConfigPath = v
	}
	return e, nil
}

// LoadConfig reads and parses path as a peerlist.Config. Parsing uses
// jsoniter rather than encoding/json since this runs on every debounced
// file-watch reload. A missing file is not an error: it substitutes
// DefaultConfig, since the ConfigMap volume may not have landed yet.
func LoadConfig(path string) (*peerlist.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg peerlist.Config
	if err := jsonAPI.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
