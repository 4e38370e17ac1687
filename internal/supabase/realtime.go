package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/remote"
)

// realtimeURL is the websocket endpoint derived from the project URL.
func (c *Client) realtimeURL() string {
	u := c.base.JoinPath("realtime", "v1", "websocket")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("apikey", c.cfg.AnonKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String()
}

// Subscribe joins a postgres_changes channel for the table. It returns once
// the server has acknowledged the join. ctx bounds the whole subscription;
// cancelling it has the same effect as Close.
func (c *Client) Subscribe(ctx context.Context) (remote.Subscription, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.realtimeURL(), nil)
	if err != nil {
		return nil, remote.Wrap("subscribe", fmt.Errorf("failed to dial: %w", err))
	}

	fctx, cancel := context.WithCancel(ctx)
	f := &feed{
		conn:   conn,
		topic:  "realtime:" + c.cfg.Table + "-" + uuid.NewString(),
		events: make(chan model.Event, 64),
		ctx:    fctx,
		cancel: cancel,
		log:    c.log.With("component", "realtime"),
	}
	if err := f.join(c.cfg, c.bearer()); err != nil {
		cancel()
		_ = conn.Close()
		return nil, remote.Wrap("subscribe", err)
	}
	f.log.Info("subscribed", "topic", f.topic)

	f.wg.Add(2)
	go f.readLoop()
	go f.heartbeatLoop(c.cfg.Heartbeat)
	go func() {
		<-fctx.Done()
		_ = f.Close()
	}()
	return f, nil
}

// feed is a joined Realtime channel.
type feed struct {
	conn   *websocket.Conn
	topic  string
	events chan model.Event
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	wmu  sync.Mutex // gorilla allows one concurrent writer
	ref  atomic.Uint64
	wg   sync.WaitGroup
	once sync.Once

	errMu sync.Mutex
	err   error
}

func (f *feed) Events() <-chan model.Event { return f.events }

func (f *feed) Err() error {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	return f.err
}

func (f *feed) setErr(err error) {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

// Close leaves the channel and tears the connection down. Safe to call more than once.
func (f *feed) Close() error {
	f.once.Do(func() {
		_ = f.send(f.topic, phxLeave, struct{}{})
		f.cancel()
		_ = f.conn.Close()
		f.wg.Wait()
		f.log.Info("unsubscribed", "topic", f.topic)
	})
	return nil
}

func (f *feed) nextRef() string {
	return strconv.FormatUint(f.ref.Add(1), 10)
}

func (f *feed) send(topic, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ref := f.nextRef()
	msg := message{Topic: topic, Event: event, Payload: raw, Ref: &ref}
	f.wmu.Lock()
	defer f.wmu.Unlock()
	_ = f.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return f.conn.WriteJSON(msg)
}

// join sends phx_join and waits for its reply.
func (f *feed) join(cfg Config, token string) error {
	var p joinPayload
	p.Config.PostgresChanges = []changeFilter{{Event: "*", Schema: cfg.Schema, Table: cfg.Table}}
	p.AccessToken = token

	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ref := f.nextRef()
	if err := f.conn.WriteJSON(message{Topic: f.topic, Event: phxJoin, Payload: raw, Ref: &ref, JoinRef: &ref}); err != nil {
		return fmt.Errorf("failed to write join: %w", err)
	}

	_ = f.conn.SetReadDeadline(time.Now().Add(cfg.Timeout))
	defer f.conn.SetReadDeadline(time.Time{})
	for {
		var msg message
		if err := f.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read join reply: %w", err)
		}
		if msg.Event != phxReply || msg.Ref == nil || *msg.Ref != ref {
			continue
		}
		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return fmt.Errorf("decode join reply: %w", err)
		}
		if reply.Status != "ok" {
			return fmt.Errorf("join rejected: %s", reply.reason())
		}
		return nil
	}
}

func (f *feed) readLoop() {
	defer f.wg.Done()
	defer close(f.events)
	defer f.cancel()

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			if f.ctx.Err() == nil {
				f.setErr(fmt.Errorf("failed to read message: %w", err))
				f.log.Error("feed read failed", "err", err)
			}
			return
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			f.log.Warn("skipping undecodable frame", "err", err)
			continue
		}
		if msg.Topic != f.topic {
			continue
		}
		switch msg.Event {
		case eventPostgresChanges:
			ev, err := decodeChange(msg.Payload)
			if err != nil {
				f.log.Warn("skipping change", "err", err)
				continue
			}
			f.log.Debug("change", "type", ev.Type)
			select {
			case f.events <- ev:
			case <-f.ctx.Done():
				return
			}
		case eventSystem:
			var sys systemPayload
			if err := json.Unmarshal(msg.Payload, &sys); err != nil || sys.Status != "error" {
				f.log.Debug("system", "status", sys.Status, "message", sys.Message)
				continue
			}
			if f.ctx.Err() == nil {
				f.setErr(fmt.Errorf("realtime %s error: %s", sys.Extension, sys.Message))
				f.log.Error("subscription rejected", "extension", sys.Extension, "message", sys.Message)
			}
			return
		case phxError, phxClose:
			if f.ctx.Err() == nil {
				f.setErr(errors.New("channel closed by server: " + msg.Event))
			}
			return
		}
	}
}

func (f *feed) heartbeatLoop(every time.Duration) {
	defer f.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := f.send(phxTopic, phxHeartbeat, struct{}{}); err != nil {
				if f.ctx.Err() == nil {
					f.setErr(fmt.Errorf("failed to write heartbeat: %w", err))
					f.cancel()
				}
				return
			}
		case <-f.ctx.Done():
			return
		}
	}
}
