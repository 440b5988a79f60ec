package conf

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo-arbiter/library/ext"
	"github.com/yola1107/ludo-arbiter/library/log/zap"
	zconf "github.com/yola1107/ludo-arbiter/library/log/zap/conf"
)

// LoadConfig 加载配置
func LoadConfig(flagconf string) (config.Config, *Bootstrap, *zconf.Bootstrap) {
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)

	if err := c.Load(); err != nil {
		panic(err)
	}

	var (
		bc Bootstrap
		lc zconf.Bootstrap
	)

	if err := c.Scan(&bc); err != nil {
		panic(fmt.Errorf("bootstrap config invalid: %w", err))
	}
	if err := bc.Validate(); err != nil {
		panic(fmt.Errorf("bootstrap config invalid: %w", err))
	}
	if err := c.Scan(&lc); err != nil {
		panic(fmt.Errorf("logger config invalid: %w", err))
	}
	if err := lc.Validate(); err != nil {
		panic(fmt.Errorf("logger config invalid: %w", err))
	}

	return c, &bc, &lc
}

// LiveMatch 运行期对局参数. 热更新发布新副本, 读方已拿到的 *Match 不会被改写
type LiveMatch struct {
	p atomic.Pointer[Match]
}

func NewLiveMatch(m *Match) *LiveMatch {
	l := &LiveMatch{}
	c := *m
	l.p.Store(&c)
	return l
}

func (l *LiveMatch) Load() *Match { return l.p.Load() }

// Update 发布新参数. 人数, 棋盘, 去重容量和协程池只在启动时生效, 沿用旧值
func (l *LiveMatch) Update(next *Match) {
	c := *next
	cur := l.p.Load()
	if c.Players != cur.Players || c.Board != cur.Board || c.DedupeCap != cur.DedupeCap || c.PoolSize != cur.PoolSize {
		log.Warnf("[config] match players/board/dedupe_cap/pool_size need restart, ignored")
	}
	c.Players, c.Board, c.DedupeCap, c.PoolSize = cur.Players, cur.Board, cur.DedupeCap, cur.PoolSize
	l.p.Store(&c)
}

// WatchConfig 监听 match 和 log.logger 的变更. live 为空时不监听 match
func WatchConfig(c config.Config, live *LiveMatch, lc *zconf.Bootstrap, logger *zap.Logger) error {
	if live != nil {
		if err := c.Watch("match", watchMatch(live)); err != nil {
			return fmt.Errorf("watch %q failed: %w", "match", err)
		}
	}

	notify := func(val any) {
		v, ok := val.(*zconf.Logger)
		if !ok || logger == nil {
			return
		}
		if v.Level != logger.GetLevel() {
			logger.SetLevel(v.Level)
		}
		if changes, err := ext.Diff(v.Sensitive, logger.GetSensitive()); err == nil && len(changes) > 0 {
			logger.SetSensitive(v.Sensitive)
		}
	}
	if err := c.Watch("log.logger", observer("log.logger", lc.Log.Logger, notify)); err != nil {
		return fmt.Errorf("watch %q failed: %w", "log.logger", err)
	}
	return nil
}

// watchMatch 在私有副本上合并新值再整体发布
func watchMatch(live *LiveMatch) func(string, config.Value) {
	return func(_ string, val config.Value) {
		next := *live.Load()
		changed, err := applyUpdate("match", &next, val.Scan)
		if err != nil {
			log.Errorf("[config] %v", err)
			return
		}
		if changed {
			live.Update(&next)
		}
	}
}

func observer(key string, target any, notify func(any)) func(string, config.Value) {
	return func(_ string, val config.Value) {
		if _, err := applyUpdate(key, target, val.Scan); err != nil {
			log.Errorf("[config] %v", err)
			return
		}
		if notify != nil {
			notify(target)
		}
	}
}

// applyUpdate 扫描新值, 校验并与旧值比较, 有变化时深拷贝到 target
func applyUpdate(key string, target any, scan func(any) error) (bool, error) {
	typ := reflect.TypeOf(target)
	if typ.Kind() != reflect.Pointer {
		return false, fmt.Errorf("%q target must be a pointer", key)
	}

	newVal := reflect.New(typ.Elem()).Interface()
	if err := scan(newVal); err != nil {
		return false, fmt.Errorf("scan failed: key=%q, err=%w", key, err)
	}

	if v, ok := newVal.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return false, fmt.Errorf("validation failed: key=%q, err=%w", key, err)
		}
	}

	_, diff, err := ext.DiffLog(target, newVal)
	if err != nil {
		return false, fmt.Errorf("diff failed: key=%q, err=%w", key, err)
	}
	if len(diff) == 0 {
		return false, nil
	}
	log.Warnf("[config] [%q] updated:\n%s", key, diff)
	if err := ext.DeepCopy(target, newVal); err != nil {
		return false, fmt.Errorf("update failed: key=%q, err=%w", key, err)
	}
	return true, nil
}
