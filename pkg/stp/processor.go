package stp

import (
	"time"

	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/pipeline"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// Processor returns a pipeline.ProcessorFunc that intercepts BPDU
// frames on ingress and feeds them to bridge, consuming them so they
// never reach L2 forwarding. now defaults to time.Now when nil.
func Processor(bridge *Bridge, now func() time.Time) pipeline.ProcessorFunc {
	if now == nil {
		now = time.Now
	}
	return func(buf *packetbuf.Buffer) pipeline.Result {
		if buf.Meta.Direction != swtypes.DirRX {
			return pipeline.Forward
		}
		raw := buf.Bytes()
		if !IsBPDU(raw) {
			return pipeline.Forward
		}
		bpdu, err := Decode(raw)
		if err != nil {
			return pipeline.Drop
		}
		_ = bridge.ReceiveBPDU(buf.Meta.IngressPort, bpdu, now())
		return pipeline.Consume
	}
}
