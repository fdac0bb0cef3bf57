package runtimeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddsgo/cyclone/pkg/security/keymaterial"
)

func TestDefaultConfigIsSelfConsistent(t *testing.T) {
	cfg := DefaultConfig()
	require.Positive(t, cfg.ReceiveBuffer.BufCapacity)
	require.LessOrEqual(t, cfg.ReceiveBuffer.MaxMsgSize, cfg.ReceiveBuffer.BufCapacity)

	kind, err := cfg.Crypto.ParseTransformKind()
	require.NoError(t, err)
	require.Equal(t, keymaterial.TransformNone, kind)
}

func TestLoadConfigOverridesDefaultsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
domain: 7
receive_buffer:
  buf_capacity: 2097152
  max_msg_size: 131072
crypto:
  rekey_threshold_bytes: 1024
  default_transform_kind: aes256-gcm
qos_provider_path: /etc/dds/qos.xml
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.EqualValues(t, 7, cfg.Domain)
	require.EqualValues(t, 2097152, cfg.ReceiveBuffer.BufCapacity)
	require.EqualValues(t, 131072, cfg.ReceiveBuffer.MaxMsgSize)
	require.EqualValues(t, 1024, cfg.Crypto.RekeyThreshold())

	kind, err := cfg.Crypto.ParseTransformKind()
	require.NoError(t, err)
	require.Equal(t, keymaterial.Transform256GCM, kind)

	require.Equal(t, "/etc/dds/qos.xml", cfg.QosProviderPath)
	// Unset fields keep their defaults.
	require.NotNil(t, cfg.Logging)
}

func TestLoadConfigRejectsInvalidReceiveBufferSizing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
receive_buffer:
  buf_capacity: 100
  max_msg_size: 200
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err, "LoadConfig should reject max_msg_size > buf_capacity")
}

func TestLoadConfigRejectsUnknownTransformKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
crypto:
  default_transform_kind: rot13
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err, "LoadConfig should reject an unknown default_transform_kind")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/no/such/path.yaml")
	require.Error(t, err, "LoadConfig should fail for a missing file")
}
