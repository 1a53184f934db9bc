package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViper_DotEnvFeedsEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KAFKA_TOPIC=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("KAFKA_TOPIC") })

	v, err := NewViper("")
	require.NoError(t, err)
	SetKafkaDefaults(v, "g")

	var cfg struct {
		Kafka Kafka `mapstructure:"kafka"`
	}
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, "from-dotenv", cfg.Kafka.Topic)
	assert.Equal(t, []string{"localhost:9094"}, cfg.Kafka.Brokers)
	assert.NoError(t, cfg.Kafka.Validate())
}

func TestNewViper_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestKafkaValidate(t *testing.T) {
	assert.Error(t, (&Kafka{Topic: "t"}).Validate())
	assert.Error(t, (&Kafka{Brokers: []string{"b:9092"}}).Validate())
}
