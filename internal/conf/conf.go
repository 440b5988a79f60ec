package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	Name    = "ludo-arbiter"
	Version = "v0.1.0"
)

// Duration 配置中的时长, 支持 "15s" 或秒数
type Duration struct {
	time.Duration
}

func Seconds(n float64) Duration {
	return Duration{time.Duration(n * float64(time.Second))}
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
		return nil
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Match  *Match  `json:"match"`
	Auth   *Auth   `json:"auth"`
}

type Server struct {
	Relay *Relay `json:"relay"`
	Peer  *Peer  `json:"peer"`
}

// Relay 中继服务
type Relay struct {
	Addr              string   `json:"addr"`
	Path              string   `json:"path"`
	WriteTimeout      Duration `json:"write_timeout"`
	HeartbeatInterval Duration `json:"heartbeat_interval"`
	HeartbeatTimeout  Duration `json:"heartbeat_timeout"`
	LeaveGrace        Duration `json:"leave_grace"` // 断线后保留座位的时长
	MaxMessageSize    int64    `json:"max_message_size"`
	SendQueue         int      `json:"send_queue"`
	RateLimit         float64  `json:"rate_limit"` // 每秒消息数
	RateBurst         int      `json:"rate_burst"`
}

// Peer 对局节点
type Peer struct {
	RelayURL     string   `json:"relay_url"`
	Token        string   `json:"token"`
	ReconnectMin Duration `json:"reconnect_min"`
	ReconnectMax Duration `json:"reconnect_max"`
	SendQueue    int      `json:"send_queue"`
	AutoPlay     bool     `json:"auto_play"` // 无界面时自动掷骰和选子
}

type Data struct {
	Redis *Redis `json:"redis"`
}

type Redis struct {
	Addr         string   `json:"addr"`
	Password     string   `json:"password"`
	DB           int      `json:"db"`
	DialTimeout  Duration `json:"dial_timeout"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
	KeyPrefix    string   `json:"key_prefix"`
	TTL          Duration `json:"ttl"`            // 快照过期时间
	KeepAfterEnd Duration `json:"keep_after_end"` // 结束后保留时长
}

// Match 对局参数, 支持热更新
type Match struct {
	Players           int32    `json:"players"`
	Board             string   `json:"board"` // 棋盘文件, 为空使用默认棋盘
	RollTimeout       Duration `json:"roll_timeout"`
	MoveTimeout       Duration `json:"move_timeout"`
	BotDelay          Duration `json:"bot_delay"`
	AnimationWatchdog Duration `json:"animation_watchdog"`
	ReconnectGrace    Duration `json:"reconnect_grace"`
	MinRemaining      Duration `json:"min_remaining"`
	DedupeCap         int      `json:"dedupe_cap"`
	WatermarkMin      int64    `json:"watermark_min"`
	WatermarkMax      int64    `json:"watermark_max"`
	PoolSize          int      `json:"pool_size"`
	LogOpen           bool     `json:"log_open"` // 对局日志
}

type Auth struct {
	Secret   string   `json:"secret"`
	Issuer   string   `json:"issuer"`
	TokenTTL Duration `json:"token_ttl"`
}

// DefaultMatch 默认对局参数
func DefaultMatch() *Match {
	return &Match{
		Players:           4,
		RollTimeout:       Seconds(15),
		MoveTimeout:       Seconds(10),
		BotDelay:          Seconds(1),
		AnimationWatchdog: Seconds(5),
		ReconnectGrace:    Seconds(2),
		MinRemaining:      Seconds(1),
		DedupeCap:         100,
		WatermarkMin:      1000,
		WatermarkMax:      100000,
		PoolSize:          64,
	}
}

func (b *Bootstrap) Validate() error {
	if b == nil {
		return errors.New("bootstrap is nil")
	}
	if b.Match == nil {
		return errors.New("match is required")
	}
	if err := b.Match.Validate(); err != nil {
		return err
	}
	if b.Server == nil {
		return errors.New("server is required")
	}
	return nil
}

func (m *Match) Validate() error {
	switch {
	case m.Players < 2 || m.Players > 4:
		return fmt.Errorf("match.players %d out of range [2,4]", m.Players)
	case m.RollTimeout.Duration <= 0 || m.MoveTimeout.Duration <= 0:
		return errors.New("match.roll_timeout and match.move_timeout must be positive")
	case m.BotDelay.Duration < 0 || m.MinRemaining.Duration < 0:
		return errors.New("match.bot_delay and match.min_remaining must not be negative")
	case m.AnimationWatchdog.Duration <= 0:
		return errors.New("match.animation_watchdog must be positive")
	case m.DedupeCap <= 0:
		return fmt.Errorf("match.dedupe_cap %d must be positive", m.DedupeCap)
	case m.WatermarkMin < 1 || m.WatermarkMax <= m.WatermarkMin:
		return fmt.Errorf("match watermark range [%d,%d) invalid", m.WatermarkMin, m.WatermarkMax)
	}
	return nil
}
