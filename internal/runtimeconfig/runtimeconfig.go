// Package runtimeconfig loads the in-process configuration for a Runtime
// (spec section 6: "no environment variables participate in core
// semantics; all configuration is in-process"). Grounded on
// controlplane/yncp's Config/DefaultConfig/LoadConfig/UnmarshalYAML-
// validates shape from the teacher.
package runtimeconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/ddsgo/cyclone/internal/logging"
	"github.com/ddsgo/cyclone/pkg/rbuf"
	"github.com/ddsgo/cyclone/pkg/security/keymaterial"
)

// Config is the top-level configuration for a Runtime and everything it
// owns: logging, receive-buffer sizing, the crypto rekey threshold, and
// default participant QoS scope.
type Config config
type config struct {
	// Logging configuration.
	Logging *logging.Config `yaml:"logging"`

	// Domain is the DDS domain id new participants join by default.
	Domain uint32 `yaml:"domain"`

	// ReceiveBuffer configures the Receive Buffer Pool (component A).
	ReceiveBuffer ReceiveBufferConfig `yaml:"receive_buffer"`

	// Crypto configures the Cryptographic Transform (component I).
	Crypto CryptoConfig `yaml:"crypto"`

	// QosProviderPath, if set, is loaded at startup and used to parameterize
	// entity creation through pkg/qosprovider; empty means no QoS-provider
	// document is loaded and entities rely on API-supplied QoS only.
	QosProviderPath string `yaml:"qos_provider_path"`
}

// ReceiveBufferConfig sizes the per-receive-thread Receive Buffer Pool.
// Byte-size fields are datasize.ByteSize (teacher's
// modules/route/controlplane/cfg.go and modules/route/internal/discovery/bird/cfg.go
// pattern: `datasize.ByteSize` yaml-unmarshals human-readable sizes like
// "1MB" directly) rather than a plain int, so a config file can write
// `buf_capacity: 1MB` instead of a byte count.
type ReceiveBufferConfig struct {
	// BufCapacity is the byte size of one rbuf region.
	BufCapacity datasize.ByteSize `yaml:"buf_capacity"`
	// MaxMsgSize is the maximum payload size rmsg_new reserves for.
	MaxMsgSize datasize.ByteSize `yaml:"max_msg_size"`
}

// NewPool constructs the Receive Buffer Pool (component A) this
// configuration describes.
func (c ReceiveBufferConfig) NewPool() *rbuf.Pool {
	return rbuf.NewPool(int(c.BufCapacity.Bytes()), int(c.MaxMsgSize.Bytes()))
}

// CryptoConfig configures session-key rekeying.
type CryptoConfig struct {
	// RekeyThresholdBytes overrides crypto.DefaultRekeyThreshold; 0 means
	// use the package default.
	RekeyThresholdBytes uint64 `yaml:"rekey_threshold_bytes"`
	// DefaultTransformKind is the transformation kind new participants'
	// bootstrap master key material uses when DeriveBootstrapMaster seeds
	// it (see pkg/security/keyexchange), expressed as one of "none",
	// "aes128-gcm", "aes256-gcm", "aes128-gmac", "aes256-gmac".
	DefaultTransformKind string `yaml:"default_transform_kind"`
}

// ParseTransformKind maps a config string to a keymaterial.TransformKind.
func (c CryptoConfig) ParseTransformKind() (keymaterial.TransformKind, error) {
	switch c.DefaultTransformKind {
	case "", "none":
		return keymaterial.TransformNone, nil
	case "aes128-gcm":
		return keymaterial.Transform128GCM, nil
	case "aes256-gcm":
		return keymaterial.Transform256GCM, nil
	case "aes128-gmac":
		return keymaterial.Transform128GMAC, nil
	case "aes256-gmac":
		return keymaterial.Transform256GMAC, nil
	default:
		return keymaterial.TransformNone, fmt.Errorf("runtimeconfig: unknown default_transform_kind %q", c.DefaultTransformKind)
	}
}

// DefaultConfig returns the configuration a Runtime starts with absent an
// on-disk override.
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
		Domain:  0,
		ReceiveBuffer: ReceiveBufferConfig{
			BufCapacity: datasize.MB,
			MaxMsgSize:  64 * datasize.KB,
		},
		Crypto: CryptoConfig{
			DefaultTransformKind: "none",
		},
	}
}

// LoadConfig reads and parses a YAML configuration file, starting from
// DefaultConfig so unset fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runtimeconfig: reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("runtimeconfig: parsing config file: %w", err)
	}
	return cfg, nil
}

// UnmarshalYAML serves as a proxy for validation, run after yaml.v3
// populates the fields of config.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain config
	p := (*plain)(c)
	if err := value.Decode(p); err != nil {
		return err
	}
	if c.ReceiveBuffer.BufCapacity <= 0 {
		return fmt.Errorf("runtimeconfig: receive_buffer.buf_capacity must be positive")
	}
	if c.ReceiveBuffer.MaxMsgSize <= 0 || c.ReceiveBuffer.MaxMsgSize > c.ReceiveBuffer.BufCapacity {
		return fmt.Errorf("runtimeconfig: receive_buffer.max_msg_size must be positive and no larger than buf_capacity")
	}
	if _, err := c.Crypto.ParseTransformKind(); err != nil {
		return err
	}
	if c.Logging == nil {
		c.Logging = logging.DefaultConfig()
	}
	return nil
}

// RekeyThreshold returns the configured crypto rekey threshold, or 0
// (meaning "use crypto.DefaultRekeyThreshold") if unset.
func (c CryptoConfig) RekeyThreshold() uint64 { return c.RekeyThresholdBytes }

// shutdownGracePeriod is how long cmd/ddsrun waits for in-flight delivery
// after a Runtime.Shutdown before forcibly canceling its context.
const shutdownGracePeriod = 5 * time.Second

// ShutdownGracePeriod returns the grace period cmd/ddsrun allows in-flight
// delivery to drain during shutdown.
func ShutdownGracePeriod() time.Duration { return shutdownGracePeriod }
