// Package supabase talks to a hosted Supabase project: PostgREST for row
// CRUD and the Realtime websocket for postgres_changes notifications.
package supabase

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/idilsaglam/livetodo/internal/remote"
)

const (
	DefaultSchema    = "public"
	DefaultTable     = "todos"
	DefaultHeartbeat = 30 * time.Second
	DefaultTimeout   = 10 * time.Second
)

// Config locates the project and the table.
type Config struct {
	URL         string // project URL, e.g. https://abcd.supabase.co
	AnonKey     string
	AccessToken string // user JWT; the anon key is used when empty
	Schema      string
	Table       string
	Heartbeat   time.Duration
	Timeout     time.Duration

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     *slog.Logger
}

// Client is a remote.Store backed by a Supabase project.
type Client struct {
	base   *url.URL
	cfg    Config
	http   *http.Client
	dialer *websocket.Dialer
	log    *slog.Logger
}

var _ remote.Store = (*Client)(nil)

// New validates cfg and fills in defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("supabase: url is required")
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, errors.New("supabase: anon key is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, err
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("supabase: url must be http or https")
	}
	if cfg.Schema == "" {
		cfg.Schema = DefaultSchema
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		base:   base,
		cfg:    cfg,
		http:   cfg.HTTPClient,
		dialer: cfg.Dialer,
		log:    cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.dialer == nil {
		c.dialer = &websocket.Dialer{HandshakeTimeout: cfg.Timeout}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c, nil
}

// bearer is the token sent as Authorization.
func (c *Client) bearer() string {
	if c.cfg.AccessToken != "" {
		return c.cfg.AccessToken
	}
	return c.cfg.AnonKey
}
