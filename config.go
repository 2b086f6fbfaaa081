package srpc

import (
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Config carries every tunable constant of the engine. DefaultConfig
// supplies the defaults, which may be overridden from an ini file (via
// gopkg.in/ini.v1) or from YAML bytes (via gopkg.in/yaml.v3).
type Config struct {
	// Attempts is the total number of transmissions of a buffered outbound
	// payload (the first send plus Attempts-1 retries) before a connection
	// is declared TIMEDOUT.
	Attempts int `ini:"attempts" yaml:"attempts"`
	// InitialTicks is the number of 20ms ticks before the first retry;
	// doubled on every subsequent retry (exponential backoff).
	InitialTicks int `ini:"initial_ticks" yaml:"initial_ticks"`
	// FragmentSize is the maximum payload carried by a single QUERY,
	// RESPONSE or FRAGMENT datagram before splitting kicks in.
	FragmentSize int `ini:"fragment_size" yaml:"fragment_size"`
	// SeqnoLimit triggers the SEQNO/SACK reset handshake once a
	// connection's sequence number reaches it.
	SeqnoLimit uint32 `ini:"seqno_limit" yaml:"seqno_limit"`
	// SeqnoStart is the value seqno is reset to by the handshake.
	SeqnoStart uint32 `ini:"seqno_start" yaml:"seqno_start"`
	// MinConnID/MaxConnID bound the process-unique connection-id
	// generator, which wraps back to MinConnID on overflow.
	MinConnID uint32 `ini:"min_conn_id" yaml:"min_conn_id"`
	MaxConnID uint32 `ini:"max_conn_id" yaml:"max_conn_id"`
	// CTableBuckets/STableBuckets size the connection and service hash
	// tables.
	CTableBuckets int `ini:"ctable_buckets" yaml:"ctable_buckets"`
	STableBuckets int `ini:"stable_buckets" yaml:"stable_buckets"`
	// TickInterval is the timer task's sweep period.
	TickInterval time.Duration `ini:"-" yaml:"-"`
	// TicksBetweenPings/PingsBeforePurge govern the liveness probe: an
	// idle connection is pinged every TicksBetweenPings ticks, and
	// purged once PingsBeforePurge such intervals pass with no answer
	// (PingsBeforePurge-1 pings are sent before the purge).
	TicksBetweenPings int `ini:"ticks_between_pings" yaml:"ticks_between_pings"`
	PingsBeforePurge  int `ini:"pings_before_purge" yaml:"pings_before_purge"`
	// ReceiveBufferSize bounds the per-datagram read buffer; a single
	// reassembled message has no size limit beyond uint16 tlen.
	ReceiveBufferSize int `ini:"receive_buffer_size" yaml:"receive_buffer_size"`
}

// DefaultConfig returns the engine's default wire-protocol tunables.
func DefaultConfig() Config {
	return Config{
		Attempts:          7,
		InitialTicks:      2,
		FragmentSize:      1024,
		SeqnoLimit:        1_000_000_000,
		SeqnoStart:        0,
		MinConnID:         0x1000_0000,
		MaxConnID:         0x7FFF_FFFF,
		CTableBuckets:     31,
		STableBuckets:     13,
		TickInterval:      20 * time.Millisecond,
		TicksBetweenPings: 50,  // 50 * 20ms == 1s between liveness probes
		PingsBeforePurge:  30,  // ~30s idle-peer liveness window
		ReceiveBufferSize: 10240,
	}
}

// LoadConfigFile reads overrides from an ini file (a "[srpc]" section) on
// top of DefaultConfig using gopkg.in/ini.v1.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}
	section := f.Section("srpc")
	if err := section.MapTo(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadConfigYAML reads overrides from YAML bytes on top of DefaultConfig.
func LoadConfigYAML(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ToYAML renders cfg as YAML, the inverse of LoadConfigYAML.
func (cfg Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(cfg)
}
