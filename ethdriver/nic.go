package ethdriver

import (
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/pipeline"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// snaplen is the pcap capture length, large enough for a tagged
// maximum-size Ethernet frame.
const snaplen = 1600

// NIC bridges one simulated port to a real network interface via
// libpcap, for callers that want a simulated port's traffic to
// actually traverse a host NIC rather than stay purely in-process.
type NIC struct {
	mu     sync.Mutex
	handle *pcap.Handle
	port   swtypes.PortID
	chain  *pipeline.Chain
	alloc  *packetbuf.Allocator
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// OpenNIC opens ifaceName in promiscuous mode and binds it to port;
// once started, received frames are forwarded into chain via Receive.
// Frames reach the interface only through explicit Send calls.
func OpenNIC(ifaceName string, port swtypes.PortID, chain *pipeline.Chain, alloc *packetbuf.Allocator) (*NIC, error) {
	handle, err := pcap.OpenLive(ifaceName, snaplen, true, pcap.BlockForever)
	if err != nil {
		return nil, simerr.Wrap(component, "OpenNIC", simerr.ResourceUnavailable, err)
	}
	return &NIC{handle: handle, port: port, chain: chain, alloc: alloc, stopCh: make(chan struct{})}, nil
}

// Start launches the capture-to-chain goroutine.
func (n *NIC) Start() {
	n.wg.Add(1)
	go n.run()
}

func (n *NIC) run() {
	defer n.wg.Done()
	src := gopacket.NewPacketSource(n.handle, n.handle.LinkType())
	packets := src.Packets()
	for {
		select {
		case <-n.stopCh:
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			n.deliver(pkt)
		}
	}
}

func (n *NIC) deliver(pkt gopacket.Packet) {
	buf, err := Decode(n.alloc, pkt.Data())
	if err != nil {
		return
	}
	_, _ = n.chain.Receive(buf, n.port)
	_ = n.alloc.Free(buf)
}

// Send encodes buf and writes it onto the interface. Intended to be
// wired as the hal.Loop onPacket hook, or called directly for a
// TX-direction buffer the chain produced.
func (n *NIC) Send(buf *packetbuf.Buffer) error {
	wire, err := Encode(buf)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.handle.WritePacketData(wire); err != nil {
		return simerr.Wrap(component, "Send", simerr.ResourceUnavailable, err)
	}
	return nil
}

// Close stops capture and releases the pcap handle.
func (n *NIC) Close() {
	close(n.stopCh)
	n.wg.Wait()
	n.handle.Close()
}

// ListInterfaces returns the names of pcap-visible host interfaces,
// for interface discovery.
func ListInterfaces() ([]string, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return nil, simerr.Wrap(component, "ListInterfaces", simerr.ResourceUnavailable, err)
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return names, nil
}
