package kis

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// RealtimeSubscriber maintains live execution-tick subscriptions over the
// vendor WebSocket: subscription framing, PINGPONG heartbeat, message parse
// and dispatch, reconnect with a fresh approval key on IO errors.
type RealtimeSubscriber struct {
	conf      *Config
	approvals *ApprovalKeyFetcher
	dialer    *websocket.Dialer
	lg        zerolog.Logger
}

func NewRealtimeSubscriber(conf *Config, approvals *ApprovalKeyFetcher) *RealtimeSubscriber {
	return &RealtimeSubscriber{
		conf:      conf,
		approvals: approvals,
		dialer:    &websocket.Dialer{HandshakeTimeout: conf.Timeout.Connect},
		lg:        moduleLogger("KisRealtime"),
	}
}

// wsSession owns one WebSocket connection. Writes come from both the read
// loop (heartbeat echo) and the cancellation path, so they are serialized.
type wsSession struct {
	conn    *websocket.Conn
	key     *ApprovalKey
	writeMu sync.Mutex
}

func (s *wsSession) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

func (s *wsSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Subscribe opens a session for one stock code and returns the tick stream.
// The channel is closed when the context is cancelled (after sending the
// unsubscribe frame) or when the session terminates with a protocol error.
func (r *RealtimeSubscriber) Subscribe(ctx context.Context, stockCode string) (<-chan RealtimeMessage, error) {

	if strings.TrimSpace(stockCode) == "" {
		return nil, newError(KindFatal, "stock code is required")
	}

	sess, err := r.openSession(ctx, stockCode)
	if err != nil {
		return nil, err
	}

	out := make(chan RealtimeMessage, 64)
	go r.run(ctx, sess, stockCode, out)
	return out, nil
}

func (r *RealtimeSubscriber) openSession(ctx context.Context, stockCode string) (*wsSession, error) {

	key, err := r.approvals.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	conn, _, err := r.dialer.DialContext(ctx, r.conf.WsURL, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, wrapError(KindTransient, "WebSocket dial failed", err)
	}

	sess := &wsSession{conn: conn, key: key}
	if err := sess.writeJSON(newSubscribeRequest(key.Value, "1", stockCode)); err != nil {
		conn.Close()
		return nil, wrapError(KindTransient, "subscribe frame send failed", err)
	}

	r.lg.Info().
		Str("stockCode", stockCode).
		Str("approvalKey", mask(key.Value)).
		Msg("Realtime subscription requested")
	return sess, nil
}

// run consumes frames until the context ends or a non-recoverable error
// occurs. IO errors trigger reconnection with backoff and a fresh key.
func (r *RealtimeSubscriber) run(ctx context.Context, sess *wsSession, stockCode string, out chan<- RealtimeMessage) {
	defer close(out)

	for attempt := 0; ; {
		err := r.consume(ctx, sess, stockCode, out)
		sess.conn.Close()

		if ctx.Err() != nil {
			r.lg.Info().Str("stockCode", stockCode).Msg("Realtime session closed")
			return
		}
		if !IsRetryable(err) {
			r.lg.Error().Err(err).Str("stockCode", stockCode).Msg("Realtime session terminated")
			return
		}

		attempt++
		wait := backoffDelay(attempt)
		r.lg.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("Realtime connection lost, reconnecting")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}

		next, err := r.openSession(ctx, stockCode)
		if err != nil {
			if ctx.Err() != nil || !IsRetryable(err) {
				r.lg.Error().Err(err).Msg("Realtime reconnect failed")
				return
			}
			continue
		}
		sess = next
		attempt = 0
	}
}

func (r *RealtimeSubscriber) consume(ctx context.Context, sess *wsSession, stockCode string, out chan<- RealtimeMessage) error {

	// 취소 시 해제 프레임 전송 후 소켓 닫기
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			r.unsubscribe(sess, stockCode)
			sess.conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return wrapError(KindTransient, "WebSocket read failed", err)
		}

		var msg *RealtimeMessage
		if len(raw) > 0 && raw[0] == '{' {
			msg, err = r.handleJSONFrame(sess, stockCode, raw)
			if err != nil {
				return err
			}
		} else {
			msg = r.parsePipeFrame(raw)
		}

		if msg == nil {
			continue
		}
		select {
		case out <- *msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleJSONFrame dispatches one JSON frame: heartbeat echo, subscribe ACK,
// or a JSON-framed tick. Heartbeats never reach the consumer.
func (r *RealtimeSubscriber) handleJSONFrame(sess *wsSession, stockCode string, raw []byte) (*RealtimeMessage, error) {

	var env realtimeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.lg.Warn().Err(err).Str("frame", snippet(raw)).Msg("Dropping unparseable JSON frame")
		return nil, nil
	}

	switch env.Header.TrID {
	case trIDPingPong:
		// 수신한 프레임 그대로 응답
		r.lg.Debug().Msg("PINGPONG received, echoing")
		if err := sess.write(websocket.TextMessage, raw); err != nil {
			return nil, wrapError(KindTransient, "PINGPONG echo failed", err)
		}
		return nil, nil

	case trIDRealtimeExec:
		if env.Body.RtCd != "" && env.Body.Output == nil {
			// 구독 ACK
			if !env.isSuccessful() {
				return nil, newError(KindProtocol,
					"subscription rejected: code="+env.Body.MsgCd+" msg="+env.Body.Msg)
			}
			r.lg.Info().Str("stockCode", stockCode).Str("msg", env.Body.Msg).Msg("Subscription successful")
			return nil, nil
		}
	}

	if env.Body.Output == nil || env.Body.Output.Price == "" {
		r.lg.Debug().Str("trId", env.Header.TrID).Msg("Skipping non-data frame")
		return nil, nil
	}

	return &RealtimeMessage{
		TrID:      env.Header.TrID,
		StockCode: stockCode,
		Output:    *env.Body.Output,
	}, nil
}

// H0STCNT0 캐럿 프레임 필드 위치
const (
	tickFieldCode       = 0
	tickFieldTime       = 1
	tickFieldPrice      = 2
	tickFieldChangeSign = 3
	tickFieldChange     = 4
	tickFieldChangeRate = 5
	tickFieldExecVolume = 12
	tickFieldAccVolume  = 13
	tickFieldAccValue   = 14

	tickFieldMin = 15
)

// parsePipeFrame parses a vendor text frame: 암호화여부|TR_ID|건수|데이터,
// with the data segment caret-delimited. Malformed frames are logged and
// dropped, never fatal.
func (r *RealtimeSubscriber) parsePipeFrame(raw []byte) *RealtimeMessage {

	parts := strings.Split(string(raw), "|")
	if len(parts) < 4 {
		r.lg.Debug().Str("frame", snippet(raw)).Msg("Skipping non-realtime frame")
		return nil
	}
	if parts[1] != trIDRealtimeExec {
		r.lg.Debug().Str("trId", parts[1]).Msg("Skipping frame for unknown tr_id")
		return nil
	}

	fields := strings.Split(parts[3], "^")
	if len(fields) < tickFieldMin {
		r.lg.Warn().Int("fieldCount", len(fields)).Msg("Dropping malformed tick frame")
		return nil
	}

	return &RealtimeMessage{
		TrID:      parts[1],
		StockCode: fields[tickFieldCode],
		Output: RealtimeTick{
			ExecutionTime:     fields[tickFieldTime],
			Price:             fields[tickFieldPrice],
			ChangeSign:        fields[tickFieldChangeSign],
			Change:            fields[tickFieldChange],
			ChangeRate:        fields[tickFieldChangeRate],
			ExecutionVolume:   fields[tickFieldExecVolume],
			AccumulatedVolume: fields[tickFieldAccVolume],
			AccumulatedValue:  fields[tickFieldAccValue],
		},
	}
}

func (r *RealtimeSubscriber) unsubscribe(sess *wsSession, stockCode string) {
	if err := sess.writeJSON(newSubscribeRequest(sess.key.Value, "2", stockCode)); err != nil {
		r.lg.Debug().Err(err).Msg("Unsubscribe frame send failed")
		return
	}
	r.lg.Info().Str("stockCode", stockCode).Msg("Unsubscribe frame sent")
}
