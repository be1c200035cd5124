package proactor

import (
	"context"
	"net"
)

// Connect
// 建立到 address:port 的 tcp 链接。
//
// address 解析出多个地址时依次尝试，直到成功或全部失败，返回最后一次的错误。
func (p *Proactor) Connect(ctx context.Context, address string, port string, handler Handler) (AsyncSocket, error) {
	if handler == nil {
		return nil, errArgumentRequired
	}
	addr := net.JoinHostPort(address, port)
	conn, err := p.dial(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	socket, err := p.AttachSocket(conn, handler)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return socket, nil
}

// ConnectLocal
// 建立到 path 的 unix 域链接。
func (p *Proactor) ConnectLocal(ctx context.Context, path string, handler Handler) (AsyncLocalSocket, error) {
	if handler == nil {
		return nil, errArgumentRequired
	}
	conn, err := p.dial(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	socket, err := p.AttachLocalSocket(conn.(*net.UnixConn), handler)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return socket, nil
}

func (p *Proactor) dial(ctx context.Context, network string, addr string) (net.Conn, error) {
	if p.isClosed() {
		return nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	dialer := net.Dialer{Timeout: p.options.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		p.options.Logger.Debug("proactor connect failed", "network", network, "addr", addr, "error", err)
		return nil, newErr(errMetaOpConnect, addr, err)
	}
	return conn, nil
}
