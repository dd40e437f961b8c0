/*
Package queue is the message-queue shell around the validation engine.

PURPOSE:
  Consumes request messages from a durable queue, hands the parsed request
  to the engine, and publishes the assembled response to the requesting
  client's response topic. The queue delivers at least once; the engine's
  deduplicator makes redelivery safe, so the shell never needs to reason
  about retries.

FILES:
  dispatcher.go  Transport-independent parse/route/serialize step
  consumer.go    Kafka reader/writer loop

SEE ALSO:
  - validation/engine.go: Operation routing and dedup
*/
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/brewbot/validation-engine/validation"
)

// Dispatcher turns raw message bytes into engine calls and response bytes.
// It owns no transport state, which keeps it testable without a broker.
type Dispatcher struct {
	engine *validation.Engine
}

func NewDispatcher(engine *validation.Engine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// Dispatch parses one message, invokes the engine, and serializes the
// response. An undecodable envelope returns an error and no response; the
// consumer drops the message, matching the at-least-once contract (a
// message that can never parse would otherwise redeliver forever).
func (d *Dispatcher) Dispatch(raw []byte) (validation.Response, []byte, error) {
	var req validation.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return validation.Response{}, nil, fmt.Errorf("invalid request JSON: %w", err)
	}

	resp := d.engine.Handle(req)

	out, err := json.Marshal(resp)
	if err != nil {
		return resp, nil, fmt.Errorf("serialize response for %s: %w", req.RequestID, err)
	}
	return resp, out, nil
}
