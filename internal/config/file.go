package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of a client configuration, grounded on
// the teacher's pkg/config's "one struct per yaml document" style.
type FileConfig struct {
	Room struct {
		ID  int64 `yaml:"id"`
		UID int64 `yaml:"uid"`
	} `yaml:"room"`

	Connection struct {
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
		ProtocolVersion   uint16        `yaml:"protocol_version"`
		HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
		Transport         string        `yaml:"transport"` // "tcp" or "ws"
		Addr              string        `yaml:"addr"`
	} `yaml:"connection"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

// LoadFile reads and parses a YAML client configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Options converts the file configuration into connection Options. An
// unset (zero) heartbeat_interval falls back to the package default rather
// than failing Validate with a zero duration.
func (f *FileConfig) Options() Options {
	interval := f.Connection.HeartbeatInterval
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	return New(
		WithRoomID(f.Room.ID),
		WithUID(f.Room.UID),
		WithHeartbeatInterval(interval),
		WithProtocolVersion(f.Connection.ProtocolVersion),
		WithHandshakeTimeout(f.Connection.HandshakeTimeout),
	)
}
