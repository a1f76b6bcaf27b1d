package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zeusync/muvr/internal/core/observability/log"
)

// ALPN is the application protocol negotiated by QUIC viewers.
const ALPN = "muvr-poses"

// QUICPublisher streams pose frames to native viewers. Each viewer gets one
// unidirectional stream carrying newline-delimited JSON frames.
type QUICPublisher struct {
	addr       string
	tlsConfig  *tls.Config
	quicConfig *quic.Config
	logger     log.Log

	listener *quic.Listener
	running  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}

	mu      sync.Mutex
	viewers map[*quic.Conn]*quic.SendStream
}

// NewQUICPublisher creates a publisher for addr. A nil tlsConfig selects a
// self-signed certificate for localhost.
func NewQUICPublisher(addr string, tlsConfig *tls.Config, logger log.Log) *QUICPublisher {
	return &QUICPublisher{
		addr:      addr,
		tlsConfig: tlsConfig,
		quicConfig: &quic.Config{
			MaxIdleTimeout:  30 * time.Second,
			KeepAlivePeriod: 15 * time.Second,
		},
		logger:  logger.Named("quic"),
		viewers: make(map[*quic.Conn]*quic.SendStream),
	}
}

// Start listens and accepts viewers in the background.
func (p *QUICPublisher) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	tlsConfig := p.tlsConfig
	if tlsConfig == nil {
		var err error
		if tlsConfig, err = selfSignedTLS(); err != nil {
			p.running.Store(false)
			return err
		}
	}
	listener, err := quic.ListenAddr(p.addr, tlsConfig, p.quicConfig)
	if err != nil {
		p.running.Store(false)
		return errors.Join(ErrListenerFailed, err)
	}
	p.listener = listener
	p.logger.Info("quic listening", log.String("addr", listener.Addr().String()))

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.acceptLoop(ctx)
	return nil
}

func (p *QUICPublisher) acceptLoop(ctx context.Context) {
	defer close(p.done)
	for {
		conn, err := p.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, quic.ErrServerClosed) {
				p.logger.Warn("quic accept failed", log.Error(err))
			}
			return
		}
		stream, err := conn.OpenUniStream()
		if err != nil {
			p.logger.Warn("quic stream failed", log.Error(err))
			_ = conn.CloseWithError(1, "stream")
			continue
		}
		p.mu.Lock()
		p.viewers[conn] = stream
		p.mu.Unlock()
		p.logger.Info("viewer connected", log.String("remote", conn.RemoteAddr().String()))
	}
}

// Publish writes frame to every viewer and drops those that fail. It must be
// called from a single goroutine.
func (p *QUICPublisher) Publish(frame Frame) int {
	p.mu.Lock()
	if len(p.viewers) == 0 {
		p.mu.Unlock()
		return 0
	}
	viewers := make(map[*quic.Conn]*quic.SendStream, len(p.viewers))
	for c, s := range p.viewers {
		viewers[c] = s
	}
	p.mu.Unlock()

	data, err := json.Marshal(frame)
	if err != nil {
		p.logger.Error("encode frame", log.Error(err))
		return 0
	}
	data = append(data, '\n')

	sent := 0
	for conn, stream := range viewers {
		_ = stream.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err = stream.Write(data); err != nil {
			p.logger.Debug("dropping viewer", log.String("remote", conn.RemoteAddr().String()), log.Error(err))
			p.drop(conn)
			continue
		}
		sent++
	}
	return sent
}

// Clients returns the number of connected viewers.
func (p *QUICPublisher) Clients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.viewers)
}

// Addr is the bound address once started.
func (p *QUICPublisher) Addr() string {
	if p.listener == nil {
		return p.addr
	}
	return p.listener.Addr().String()
}

// Stop disconnects viewers and closes the listener.
func (p *QUICPublisher) Stop() error {
	if !p.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	p.cancel()
	err := p.listener.Close()
	<-p.done

	p.mu.Lock()
	viewers := p.viewers
	p.viewers = make(map[*quic.Conn]*quic.SendStream)
	p.mu.Unlock()
	for conn := range viewers {
		_ = conn.CloseWithError(0, "shutdown")
	}
	return err
}

func (p *QUICPublisher) drop(conn *quic.Conn) {
	p.mu.Lock()
	_, ok := p.viewers[conn]
	delete(p.viewers, conn)
	p.mu.Unlock()
	if ok {
		_ = conn.CloseWithError(1, "write failed")
	}
}

func selfSignedTLS() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"muvr"}},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS13,
	}, nil
}
