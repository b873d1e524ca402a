package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/coder/websocket"
	"github.com/hashicorp/yamux"
)

// WSTransport dials outbound tunnels as a yamux session multiplexed over
// a WebSocket connection, mirroring the accept side the teacher's
// agent listens on (agent/src/tunnel/listener.go) but from the dialer.
type WSTransport struct {
	DialTimeout time.Duration
	ConfigMTU   uint16
}

// NewWSTransport returns a WSTransport with production-sized defaults.
func NewWSTransport() *WSTransport {
	return &WSTransport{DialTimeout: 10 * time.Second}
}

type wsHandle struct {
	url     string
	session *yamux.Session
	conn    net.Conn
}

func (t *WSTransport) Open(ctx context.Context, url string) (Handle, error) {
	dialCtx, cancel := context.WithTimeout(ctx, t.dialTimeout())
	defer cancel()

	wsConn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	netConn := websocket.NetConn(context.Background(), wsConn, websocket.MessageBinary)

	session, err := yamux.Client(netConn, nil)
	if err != nil {
		wsConn.CloseNow()
		return nil, fmt.Errorf("yamux client %s: %w", url, err)
	}

	return &wsHandle{url: url, session: session, conn: netConn}, nil
}

func (t *WSTransport) Close(h Handle) {
	wh, ok := h.(*wsHandle)
	if !ok || wh == nil {
		return
	}
	wh.session.Close()
}

func (t *WSTransport) Send(h Handle, packet []byte) {
	wh, ok := h.(*wsHandle)
	if !ok || wh == nil {
		return
	}
	stream, err := wh.session.OpenStream()
	if err != nil {
		log.Printf("[transport] %s: open stream for send failed: %v", wh.url, err)
		return
	}
	defer stream.Close()
	if _, err := stream.Write(packet); err != nil {
		log.Printf("[transport] %s: write failed: %v", wh.url, err)
	}
}

func (t *WSTransport) MTU(h Handle, configMTU uint16) uint16 {
	wh, ok := h.(*wsHandle)
	if !ok || wh == nil || wh.session.IsClosed() {
		return 0
	}
	if configMTU == 0 {
		return t.ConfigMTU
	}
	return configMTU
}

func (t *WSTransport) Timeout(h Handle, now time.Time) bool {
	wh, ok := h.(*wsHandle)
	if !ok || wh == nil {
		return true
	}
	return wh.session.IsClosed()
}

func (t *WSTransport) FragmentationRequired(h Handle, mtu uint16, primary []byte) {
	wh, ok := h.(*wsHandle)
	if !ok || wh == nil {
		return
	}
	stream, err := wh.session.OpenStream()
	if err != nil {
		log.Printf("[transport] %s: open stream for fragmentation notice failed: %v", wh.url, err)
		return
	}
	defer stream.Close()
	fmt.Fprintf(stream, "frag-required mtu=%d\n", mtu)
}

func (t *WSTransport) dialTimeout() time.Duration {
	if t.DialTimeout <= 0 {
		return 10 * time.Second
	}
	return t.DialTimeout
}
