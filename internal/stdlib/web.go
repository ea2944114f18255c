// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: web:: namespace (WebSocket client and URL parsing)
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package stdlib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/runtime"
)

// DefaultWSTimeout bounds dialing, writing and waiting for a reply
const DefaultWSTimeout = 10 * time.Second

// wsSend dials target, writes message and, when wantReply is set, reads one
// reply. Maps and vectors are sent as JSON text frames.
func (l *Library) wsSend(ctx context.Context, target string, message runtime.Value, wantReply bool) (runtime.Value, error) {
	ctx, cancel := context.WithTimeout(ctx, l.options.WSTimeout)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: l.options.WSTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return runtime.Null, mdwerror.Wrap(err, "failed to connect").
			WithCode(mdwerror.CodeNetworkError).
			WithDetail("url", target)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	conn.SetWriteDeadline(deadline)
	switch message.Kind() {
	case runtime.KindMap, runtime.KindVector:
		err = conn.WriteJSON(message.Interface())
	default:
		err = conn.WriteMessage(websocket.TextMessage, []byte(message.String()))
	}
	if err != nil {
		return runtime.Null, mdwerror.Wrap(err, "failed to send message").WithCode(mdwerror.CodeNetworkError)
	}
	l.logger.Debug("WebSocket message sent", mdwlog.Fields{"url": target})

	if !wantReply {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return runtime.Bool(true), nil
	}

	conn.SetReadDeadline(deadline)
	_, data, err := conn.ReadMessage()
	if err != nil {
		return runtime.Null, mdwerror.Wrap(err, "failed to read reply").WithCode(mdwerror.CodeNetworkError)
	}
	var decoded interface{}
	if json.Unmarshal(data, &decoded) == nil {
		if _, isObject := decoded.(map[string]interface{}); isObject {
			return runtime.FromInterface(decoded), nil
		}
	}
	return runtime.String(string(data)), nil
}

// ParseURL splits a URL into its parts
func ParseURL(raw string) (map[string]interface{}, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, mdwerror.Wrap(err, "invalid url").WithCode(mdwerror.CodeInvalidInput)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, mdwerror.New(fmt.Sprintf("url %q has no scheme or host", raw)).WithCode(mdwerror.CodeInvalidInput)
	}
	query := make(map[string]interface{})
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}
	return map[string]interface{}{
		"scheme":   u.Scheme,
		"host":     u.Hostname(),
		"port":     u.Port(),
		"path":     u.Path,
		"query":    query,
		"fragment": u.Fragment,
	}, nil
}

func (l *Library) webFuncs() runtime.FuncTable {
	return runtime.FuncTable{
		// ws_send(url, message[, await_reply])
		"ws_send": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("web::ws_send", args)
			if err := a.Want(2); err != nil {
				return runtime.Null, err
			}
			target, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			return l.wsSend(ctx, target, a.Get(1), a.Get(2).Truthy())
		},

		// ws_broadcast(urls, message) sends to every url and reports which
		// ones failed; a failing target does not stop the others
		"ws_broadcast": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("web::ws_broadcast", args)
			if err := a.Exactly(2); err != nil {
				return runtime.Null, err
			}
			targets, err := a.Strings(0)
			if err != nil {
				return runtime.Null, err
			}
			sent := 0
			failed := make([]interface{}, 0)
			for _, target := range targets {
				if _, err := l.wsSend(ctx, target, a.Get(1), false); err != nil {
					l.logger.WarnWithErr("Broadcast target failed", err, mdwlog.Fields{"url": target})
					failed = append(failed, target)
					continue
				}
				sent++
			}
			return runtime.FromInterface(map[string]interface{}{
				"sent":   sent,
				"failed": failed,
			}), nil
		},

		"parse_url": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			raw, err := runtime.NewArgs("web::parse_url", args).String(0)
			if err != nil {
				return runtime.Null, err
			}
			parts, err := ParseURL(raw)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.FromInterface(parts), nil
		},
	}
}
