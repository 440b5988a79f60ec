package websocket

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	ktransport "github.com/go-kratos/kratos/v2/transport"
	"github.com/gorilla/websocket"

	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/protocol"
	"github.com/yola1107/ludo-arbiter/internal/transport"
	"github.com/yola1107/ludo-arbiter/library/ext"
	"github.com/yola1107/ludo-arbiter/library/xgo"
	"github.com/yola1107/ludo-arbiter/pkg/auth"
	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

var (
	_ transport.Transport = (*Client)(nil)
	_ ktransport.Server   = (*Client)(nil)
)

var (
	errMaxRetries = errors.New("client: max retries reached")
	errInvalidURL = errors.New("client: invalid URL")
)

type ClientOption func(*clientOptions)

func WithTlsConf(tlsConfig *tls.Config) ClientOption {
	return func(o *clientOptions) { o.tlsConf = tlsConfig }
}

func WithHeartbeat(d, i, w time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.session.ReadDeadline, o.session.PingInterval, o.session.WriteTimeout = d, i, w
	}
}

func WithSentChanSize(size int) ClientOption {
	return func(o *clientOptions) { o.session.SendChanSize = size }
}

func WithEndpoint(endpoint string) ClientOption {
	return func(o *clientOptions) { o.endpoint = endpoint }
}

func WithToken(token string) ClientOption {
	return func(o *clientOptions) { o.token = token }
}

// WithRetryPolicy maxAttempt<0 无限重试, 0 不重试
func WithRetryPolicy(b, m time.Duration, maxAttempt int32) ClientOption {
	return func(o *clientOptions) {
		o.retryPolicy.baseDelay = b
		o.retryPolicy.maxDelay = m
		o.retryPolicy.maxAttempt = maxAttempt
	}
}

type clientOptions struct {
	tlsConf     *tls.Config
	endpoint    string
	token       string
	session     *SessionConfig
	retryPolicy *retryPolicy
}

type retryPolicy struct {
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxAttempt int32
}

// Client 节点侧的中继连接, 实现 transport.Transport
type Client struct {
	opts       *clientOptions
	url        *url.URL
	self       transport.Peer
	match      string
	retryCount atomic.Int32

	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	session  *Session
	last     *transport.Membership
	onRecv   transport.Handler
	onMember func(transport.Membership)
	onResume func()
	stopped  bool
	dialed   bool // 成功连接过, 之后的连接都算重连
}

// NewClient 只校验参数, Start 时才建立连接
func NewClient(opts ...ClientOption) (*Client, error) {
	options := &clientOptions{
		endpoint: "ws://127.0.0.1:9300/ws",
		session: &SessionConfig{
			WriteTimeout: 10 * time.Second,
			PingInterval: 10 * time.Second,
			ReadDeadline: 60 * time.Second,
			SendChanSize: 128,
		},
		retryPolicy: &retryPolicy{
			baseDelay:  500 * time.Millisecond,
			maxDelay:   10 * time.Second,
			maxAttempt: -1,
		},
	}
	for _, o := range opts {
		o(options)
	}

	u, err := parseURL(options.endpoint, options.tlsConf == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidURL, err)
	}
	claims, err := auth.Peek(options.token)
	if err != nil {
		return nil, err
	}
	return &Client{
		opts:  options,
		url:   u,
		self:  transport.Peer{ID: claims.Subject, Seat: claims.Seat},
		match: claims.Match,
	}, nil
}

// NewPeerClient 按配置创建
func NewPeerClient(c *conf.Server) (*Client, error) {
	p := c.Peer
	if p == nil {
		return nil, errors.New("server.peer is required")
	}
	opts := []ClientOption{WithEndpoint(p.RelayURL), WithToken(p.Token)}
	if p.ReconnectMin.Duration > 0 && p.ReconnectMax.Duration > 0 {
		opts = append(opts, WithRetryPolicy(p.ReconnectMin.Duration, p.ReconnectMax.Duration, -1))
	}
	if p.SendQueue > 0 {
		opts = append(opts, WithSentChanSize(p.SendQueue))
	}
	return NewClient(opts...)
}

func parseURL(endpoint string, insecure bool) (*url.URL, error) {
	if !strings.Contains(endpoint, "://") {
		if insecure {
			endpoint = "ws://" + endpoint
		} else {
			endpoint = "wss://" + endpoint
		}
	}
	return url.Parse(endpoint)
}

func (c *Client) Self() transport.Peer { return c.self }
func (c *Client) Match() string        { return c.match }

func (c *Client) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil && !c.session.Closed()
}

func (c *Client) OnReceive(h transport.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRecv = h
}

// OnMembership 注册时补发最近一次成员信息
func (c *Client) OnMembership(h func(transport.Membership)) {
	c.mu.Lock()
	c.onMember = h
	last := c.last
	c.mu.Unlock()
	if last != nil && h != nil {
		h(*last)
	}
}

// OnReconnect 断线重连成功后回调, 首次连接不触发
func (c *Client) OnReconnect(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResume = f
}

func (c *Client) SendToHost(ctx context.Context, msg protocol.Message) error {
	return c.send(ctx, OpToHost, msg)
}

func (c *Client) Broadcast(ctx context.Context, msg protocol.Message) error {
	return c.send(ctx, OpBroadcast, msg)
}

func (c *Client) send(ctx context.Context, op Op, msg protocol.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()
	if sess == nil || sess.Closed() {
		return codes.ErrNotConnected
	}
	return sess.SendFrame(&Frame{Op: op, Body: body})
}

// Start 建立连接并阻塞到 ctx 结束, 断线后按退避策略重连
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	if err := c.Reconnect(); err != nil {
		return err
	}
	<-c.ctx.Done()
	return nil
}

func (c *Client) Stop(_ context.Context) error {
	return c.Close()
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.stopped = true
	sess, cancel := c.session, c.cancel
	c.session = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sess != nil {
		sess.Close(false)
	}
	return nil
}

func (c *Client) canRetry() bool {
	maxAttempt := c.opts.retryPolicy.maxAttempt
	curr := c.retryCount.Load()

	if maxAttempt < 0 {
		return true
	}
	if maxAttempt == 0 {
		return false
	}
	return curr < maxAttempt
}

func (c *Client) Reconnect() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.session.WriteTimeout,
		TLSClientConfig:  c.opts.tlsConf,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.opts.token)

	for {
		c.mu.RLock()
		ctx, stopped := c.ctx, c.stopped
		c.mu.RUnlock()
		if stopped {
			return codes.ErrNotConnected
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := dialer.DialContext(ctx, c.url.String(), header)
		if err == nil {
			c.retryCount.Store(0)
			sess := NewSession(c, conn, c.opts.session, c.match, c.self, nil)
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				sess.Close(false)
				return codes.ErrNotConnected
			}
			c.session = sess
			resume := c.dialed && c.onResume != nil
			c.dialed = true
			f := c.onResume
			c.mu.Unlock()
			log.Infof("[peer] connected to %s as %s seat=%d", c.url.Host, c.self.ID, c.self.Seat)
			if resume {
				go safeCall(f)
			}
			return nil
		}

		curr := c.retryCount.Add(1)
		if !c.canRetry() {
			return fmt.Errorf("%w: %d attempts: %v", errMaxRetries, curr, err)
		}

		delay := c.calculateBackoff(curr)
		log.Warnf("reconnecting to %q. attempt=%d retrying in %v: %v", c.url.Host, curr, delay, err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// calculateBackoff 指数退避并带 10% 抖动
func (c *Client) calculateBackoff(attempt int32) time.Duration {
	backoff := float64(c.opts.retryPolicy.baseDelay) * math.Pow(1.5, float64(attempt-1))
	backoff = math.Min(backoff, float64(c.opts.retryPolicy.maxDelay))
	return time.Duration(backoff * ext.RandFloat(0.9, 1.1))
}

func (c *Client) OnSessionOpen(*Session) {}

func (c *Client) OnSessionClose(sess *Session) {
	c.mu.Lock()
	if c.session == sess {
		c.session = nil
	}
	stopped := c.stopped
	c.mu.Unlock()

	if stopped || !c.canRetry() {
		return
	}
	go func() {
		defer xgo.RecoverFromError(nil)
		if err := c.Reconnect(); err != nil {
			log.Warnf("[peer] reconnect stopped: %v", err)
		}
	}()
}

// DispatchFrame 投递给上层回调
func (c *Client) DispatchFrame(_ *Session, f *Frame) error {
	switch f.Op {
	case OpDeliver:
		if f.From == nil {
			return codes.ErrInvalidMessage
		}
		msg, err := protocol.Decode(f.Body)
		if err != nil {
			return err
		}
		c.mu.RLock()
		h := c.onRecv
		c.mu.RUnlock()
		if h != nil {
			safeCall(func() { h(*f.From, msg) })
		}

	case OpMembership:
		if f.Members == nil {
			return codes.ErrInvalidMessage
		}
		c.mu.Lock()
		c.last = f.Members
		h := c.onMember
		c.mu.Unlock()
		if h != nil {
			safeCall(func() { h(*f.Members) })
		}

	default:
		log.Warnf("unknown frame op: %v", f.Op)
	}
	return nil
}

func safeCall(fn func()) {
	defer xgo.RecoverFromError(nil)
	if fn != nil {
		fn()
	}
}
