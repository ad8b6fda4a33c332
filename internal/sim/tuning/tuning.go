package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tuning carries every overridable constant of the sync core. Zero values in
// the yaml file fall back to the defaults below.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	FrameRateHz    int `yaml:"frame_rate_hz"`
	SendIntervalMs int `yaml:"send_interval_ms"`
	CleanupEveryS  int `yaml:"cleanup_every_s"`

	Bounds Bounds `yaml:"bounds"`

	Movement Movement `yaml:"movement"`

	Anomaly Anomaly `yaml:"anomaly"`

	// LargeJumpThreshold is the remote-move distance above which the avatar
	// is interpolated halfway instead of snapped.
	LargeJumpThreshold float64 `yaml:"large_jump_threshold"`

	// MinSendDelta is the minimum x/z displacement that makes a local
	// position worth reporting.
	MinSendDelta float64 `yaml:"min_send_delta"`

	// MaxCoordinate is the sanity cutoff for inbound positions; anything
	// beyond it is treated as malformed.
	MaxCoordinate float64 `yaml:"max_coordinate"`
}

type Bounds struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinZ float64 `yaml:"min_z"`
	MaxZ float64 `yaml:"max_z"`
}

type Movement struct {
	Speed       float64 `yaml:"speed"`
	JumpForce   float64 `yaml:"jump_force"`
	Gravity     float64 `yaml:"gravity"`
	GroundLevel float64 `yaml:"ground_level"`

	// TurnSmoothing is the fraction of the remaining yaw error applied per
	// frame; YawEpsilon suppresses sub-visible corrections.
	TurnSmoothing float64 `yaml:"turn_smoothing"`
	YawEpsilon    float64 `yaml:"yaw_epsilon"`
}

type Anomaly struct {
	// SpeedThreshold is the maximum plausible horizontal speed in units/s.
	SpeedThreshold float64 `yaml:"speed_threshold"`
	// MaxAllowedDistance caps the displacement kept when a sample pair
	// exceeds SpeedThreshold.
	MaxAllowedDistance float64 `yaml:"max_allowed_distance"`
	HistoryLength      int     `yaml:"history_length"`
}

func Default() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		FrameRateHz:     60,
		SendIntervalMs:  100,
		CleanupEveryS:   30,
		Bounds:          Bounds{MinX: -50, MaxX: 50, MinZ: -50, MaxZ: 50},
		Movement: Movement{
			Speed:         0.8,
			JumpForce:     8,
			Gravity:       20,
			GroundLevel:   0,
			TurnSmoothing: 0.15,
			YawEpsilon:    1e-4,
		},
		Anomaly: Anomaly{
			SpeedThreshold:     1.0,
			MaxAllowedDistance: 0.5,
			HistoryLength:      5,
		},
		LargeJumpThreshold: 5,
		MinSendDelta:       0.01,
		MaxCoordinate:      1e6,
	}
}

// Load reads a yaml override file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Default()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize fills zeroed fields from the defaults so partial override files
// stay valid.
func (t *Tuning) Normalize() {
	d := Default()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.FrameRateHz == 0 {
		t.FrameRateHz = d.FrameRateHz
	}
	if t.SendIntervalMs == 0 {
		t.SendIntervalMs = d.SendIntervalMs
	}
	if t.CleanupEveryS == 0 {
		t.CleanupEveryS = d.CleanupEveryS
	}
	if t.Bounds == (Bounds{}) {
		t.Bounds = d.Bounds
	}
	if t.Movement.Speed == 0 {
		t.Movement.Speed = d.Movement.Speed
	}
	if t.Movement.JumpForce == 0 {
		t.Movement.JumpForce = d.Movement.JumpForce
	}
	if t.Movement.Gravity == 0 {
		t.Movement.Gravity = d.Movement.Gravity
	}
	if t.Movement.TurnSmoothing == 0 {
		t.Movement.TurnSmoothing = d.Movement.TurnSmoothing
	}
	if t.Movement.YawEpsilon == 0 {
		t.Movement.YawEpsilon = d.Movement.YawEpsilon
	}
	if t.Anomaly.SpeedThreshold == 0 {
		t.Anomaly.SpeedThreshold = d.Anomaly.SpeedThreshold
	}
	if t.Anomaly.MaxAllowedDistance == 0 {
		t.Anomaly.MaxAllowedDistance = d.Anomaly.MaxAllowedDistance
	}
	if t.Anomaly.HistoryLength == 0 {
		t.Anomaly.HistoryLength = d.Anomaly.HistoryLength
	}
	if t.LargeJumpThreshold == 0 {
		t.LargeJumpThreshold = d.LargeJumpThreshold
	}
	if t.MinSendDelta == 0 {
		t.MinSendDelta = d.MinSendDelta
	}
	if t.MaxCoordinate == 0 {
		t.MaxCoordinate = d.MaxCoordinate
	}
}

func (t Tuning) Validate() error {
	if t.FrameRateHz <= 0 {
		return fmt.Errorf("frame_rate_hz must be > 0")
	}
	if t.SendIntervalMs <= 0 {
		return fmt.Errorf("send_interval_ms must be > 0")
	}
	if t.CleanupEveryS <= 0 {
		return fmt.Errorf("cleanup_every_s must be > 0")
	}
	if t.Bounds.MinX >= t.Bounds.MaxX {
		return fmt.Errorf("bounds: min_x must be < max_x")
	}
	if t.Bounds.MinZ >= t.Bounds.MaxZ {
		return fmt.Errorf("bounds: min_z must be < max_z")
	}
	if t.Movement.Speed <= 0 {
		return fmt.Errorf("movement.speed must be > 0")
	}
	if t.Movement.Gravity <= 0 {
		return fmt.Errorf("movement.gravity must be > 0")
	}
	if t.Movement.TurnSmoothing <= 0 || t.Movement.TurnSmoothing > 1 {
		return fmt.Errorf("movement.turn_smoothing must be in (0, 1]")
	}
	if t.Anomaly.SpeedThreshold <= 0 {
		return fmt.Errorf("anomaly.speed_threshold must be > 0")
	}
	if t.Anomaly.MaxAllowedDistance <= 0 {
		return fmt.Errorf("anomaly.max_allowed_distance must be > 0")
	}
	if t.Anomaly.HistoryLength < 2 {
		return fmt.Errorf("anomaly.history_length must be >= 2")
	}
	if t.LargeJumpThreshold <= 0 {
		return fmt.Errorf("large_jump_threshold must be > 0")
	}
	if t.MaxCoordinate <= 0 {
		return fmt.Errorf("max_coordinate must be > 0")
	}
	return nil
}

// SendInterval and CleanupInterval are convenience accessors used by the
// scene clocks.
func (t Tuning) SendIntervalSeconds() float64  { return float64(t.SendIntervalMs) / 1000 }
func (t Tuning) FrameDurationSeconds() float64 { return 1 / float64(t.FrameRateHz) }
