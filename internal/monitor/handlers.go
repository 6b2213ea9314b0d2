package monitor

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Request subjects, relative to <prefix>.<host>
const (
	RequestPing     = "cmd.ping"
	RequestSnapshot = "cmd.snapshot"
)

type pingResponse struct {
	Status    string `json:"status"`
	Host      string `json:"host"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Responder answers read-only requests about the monitor over NATS. It
// never changes the state of the Docker daemon.
type Responder struct {
	latest func() Snapshot
	logger *zap.Logger
	now    func() time.Time
}

// NewResponder creates a responder serving latest
func NewResponder(latest func() Snapshot, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{latest: latest, logger: logger, now: time.Now}
}

// Subscribe registers the request handlers on p's connection
func (r *Responder) Subscribe(p *Publisher) error {
	handlers := map[string]func() any{
		RequestPing:     r.ping,
		RequestSnapshot: func() any { return r.latest() },
	}
	for name, build := range handlers {
		if err := p.Subscribe(name, r.handler(name, build)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Responder) ping() any {
	return pingResponse{
		Status:    "ok",
		Host:      r.latest().Host,
		Timestamp: r.now().UTC().Format(time.RFC3339),
	}
}

func (r *Responder) handler(name string, build func() any) nats.MsgHandler {
	return func(msg *nats.Msg) {
		if err := msg.Respond(r.respond(name, build)); err != nil {
			r.logger.Warn("Failed to answer request",
				zap.String("handler", name),
				zap.String("subject", msg.Subject),
				zap.Error(err))
		}
	}
}

// respond encodes the reply, turning a panic into an error reply
func (r *Responder) respond(name string, build func() any) (data []byte) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic recovered in request handler",
				zap.String("handler", name),
				zap.Any("panic", p),
				zap.String("stack", string(debug.Stack())))
			data = r.errorReply(fmt.Sprintf("internal error: handler panicked: %v", p))
		}
	}()

	data, err := json.Marshal(build())
	if err != nil {
		return r.errorReply(err.Error())
	}
	return data
}

func (r *Responder) errorReply(msg string) []byte {
	data, _ := json.Marshal(errorResponse{
		Status:    "error",
		Error:     msg,
		Timestamp: r.now().UTC().Format(time.RFC3339),
	})
	return data
}
