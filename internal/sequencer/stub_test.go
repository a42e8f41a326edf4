package sequencer

import (
	"context"
	"fmt"
	"time"

	"github.com/hireround/interview-engine/internal/oracle"
	"go.uber.org/zap"
)

// scriptedOracle routes every inference through a single respond function;
// tests inspect the request payload to decide what to return.
type scriptedOracle struct {
	calls    int
	requests []oracle.Request
	respond  func(req oracle.Request, out any) error
}

func (s *scriptedOracle) Infer(ctx context.Context, req oracle.Request, out any) error {
	s.calls++
	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.respond(req, out)
}

func newTestClient(stub *scriptedOracle) *oracle.Client {
	return oracle.NewClient(stub, time.Second, zap.NewNop())
}

func payloadMap(req oracle.Request) map[string]any {
	m, _ := req.Payload.(map[string]any)
	return m
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
