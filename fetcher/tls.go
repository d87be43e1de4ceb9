package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	tls "github.com/refraction-networking/utls"
)

// chromeH1Spec builds Chrome's ClientHello with ALPN limited to http/1.1,
// since net/http cannot speak h2 over a utls conn. ApplyPreset mutates
// the spec it is given, so each connection gets a fresh one.
func chromeH1Spec() (*tls.ClientHelloSpec, error) {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return nil, fmt.Errorf("fetcher: chrome hello spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return &spec, nil
}

// newChromeTransport returns a transport whose TLS handshakes look like
// Chrome's. Plain-HTTP targets are dialed normally.
//
// Connections are always direct: a CONNECT proxy would wrap the tunnel
// in the stock crypto/tls handshake and the fingerprint would be lost.
func newChromeTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	return &http.Transport{
		DialContext:       dialer.DialContext,
		DialTLSContext:    chromeDialer(dialer),
		ForceAttemptHTTP2: false,
	}
}

func chromeDialer(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		spec, err := chromeH1Spec()
		if err != nil {
			return nil, err
		}
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("fetcher: tls addr %q: %w", addr, err)
		}

		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		uconn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
		if err := uconn.ApplyPreset(spec); err != nil {
			conn.Close()
			return nil, fmt.Errorf("fetcher: apply tls spec: %w", err)
		}
		if err := uconn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return uconn, nil
	}
}
