package simulator

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lorasim/lora-ns/channel"
)

// TransmissionMode selects how a node's uplink offsets/intervals are drawn.
type TransmissionMode string

const (
	ModeRandom   TransmissionMode = "random"
	ModePeriodic TransmissionMode = "periodic"
)

// ChannelDistribution selects how MultiChannel assigns channels to nodes.
type ChannelDistribution string

const (
	DistRoundRobin ChannelDistribution = "round-robin"
	DistRandom     ChannelDistribution = "random"
)

// Config holds every construction-time parameter of a simulator run.
type Config struct {
	NumNodes    int     `yaml:"num_nodes"`
	NumGateways int     `yaml:"num_gateways"`
	AreaSize    float64 `yaml:"area_size"`

	TransmissionMode TransmissionMode `yaml:"transmission_mode"`
	PacketInterval   float64          `yaml:"packet_interval"`
	PacketsToSend    int              `yaml:"packets_to_send"` // 0 = unbounded

	ADRNode   bool `yaml:"adr_node"`
	ADRServer bool `yaml:"adr_server"`

	DutyCycle float64 `yaml:"duty_cycle"` // fraction, e.g. 0.01; 0 = none

	Mobility         bool    `yaml:"mobility"`
	MobilitySpeedMin float64 `yaml:"mobility_speed_min"`
	MobilitySpeedMax float64 `yaml:"mobility_speed_max"`
	MobilityStep     float64 `yaml:"mobility_step"`

	Channels            []channel.Config    `yaml:"channels"`
	ChannelDistribution ChannelDistribution `yaml:"channel_distribution"`

	FixedSF         int `yaml:"fixed_sf"`           // 0 = not fixed, draw randomly in [7,12]
	FixedTxPowerIdx int `yaml:"fixed_tx_power_idx"` // index into the tx-power table; defaults to 2 (14 dBm)

	BatteryCapacityJ float64 `yaml:"battery_capacity_j"`

	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns a Config with reasonable defaults for a single-cell
// scenario: one gateway, ten nodes, 868 MHz, periodic traffic, no mobility.
func DefaultConfig() *Config {
	return &Config{
		NumNodes:            10,
		NumGateways:         1,
		AreaSize:            1000,
		TransmissionMode:    ModePeriodic,
		PacketInterval:      60,
		PacketsToSend:       0,
		ADRNode:             false,
		ADRServer:           false,
		DutyCycle:           0,
		Mobility:            false,
		MobilitySpeedMin:    2,
		MobilitySpeedMax:    5,
		MobilityStep:        1,
		Channels:            []channel.Config{channel.DefaultConfig()},
		ChannelDistribution: DistRoundRobin,
		FixedSF:             7,
		FixedTxPowerIdx:     2,
		BatteryCapacityJ:    100000,
		Seed:                0,
	}
}

// Validate returns an InvalidConfig error if cfg cannot construct a
// simulator.
func (cfg *Config) Validate() error {
	if cfg.NumNodes < 0 {
		return errors.Errorf("invalid config: num_nodes must be >= 0, got %d", cfg.NumNodes)
	}
	if cfg.NumGateways < 1 {
		return errors.Errorf("invalid config: num_gateways must be >= 1, got %d", cfg.NumGateways)
	}
	if cfg.AreaSize < 0 {
		return errors.Errorf("invalid config: area_size must be >= 0, got %f", cfg.AreaSize)
	}
	if len(cfg.Channels) == 0 {
		return errors.Errorf("invalid config: at least one channel is required")
	}
	if cfg.FixedSF != 0 && (cfg.FixedSF < 7 || cfg.FixedSF > 12) {
		return errors.Errorf("invalid config: fixed_sf must be in [7,12], got %d", cfg.FixedSF)
	}
	return nil
}

// LoadConfigYAML reads a Config from r, starting from DefaultConfig so
// unspecified fields keep their defaults.
func LoadConfigYAML(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding scenario YAML")
	}
	return cfg, nil
}

// WriteYAML serializes cfg to w.
func (cfg *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(cfg)
}
