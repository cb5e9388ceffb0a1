package main

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorcon/rcon"
)

// maxRCONCommandLen is the Minecraft server's limit for a single RCON request.
const maxRCONCommandLen = 1446

// CommandSender delivers a chat line to the running server.
type CommandSender interface {
	Say(text string) error
}

// RCONPool provides a shared, mutex-protected RCON connection with auto-reconnect.
type RCONPool struct {
	addr     string
	password string
	timeout  time.Duration
	mu       sync.Mutex
	conn     *rcon.Conn
}

func NewRCONPool(host, port, password string) *RCONPool {
	return &RCONPool{
		addr:     net.JoinHostPort(host, port),
		password: password,
		timeout:  5 * time.Second,
	}
}

// Say broadcasts text to all players with the server's `say` command.
func (p *RCONPool) Say(text string) error {
	cmd := sayCommand(text)
	if len(cmd) > maxRCONCommandLen {
		cmd = strings.ToValidUTF8(cmd[:maxRCONCommandLen-3], "") + "..."
	}
	if _, err := p.Execute(cmd); err != nil {
		return fmt.Errorf("%w: rcon say: %v", ErrTransport, err)
	}
	return nil
}

// Execute runs an RCON command, reconnecting once on failure.
func (p *RCONPool) Execute(cmd string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.getConn()
	if err != nil {
		return "", fmt.Errorf("rcon connect: %w", err)
	}

	resp, err := conn.Execute(cmd)
	if err != nil {
		// Connection may be stale; close and retry once
		p.dropConn()

		conn, err = p.getConn()
		if err != nil {
			return "", fmt.Errorf("rcon reconnect: %w", err)
		}
		resp, err = conn.Execute(cmd)
		if err != nil {
			p.dropConn()
			return "", fmt.Errorf("rcon execute after reconnect: %w", err)
		}
	}
	return resp, nil
}

func (p *RCONPool) getConn() (*rcon.Conn, error) {
	if p.conn != nil {
		return p.conn, nil
	}
	conn, err := rcon.Dial(p.addr, p.password,
		rcon.SetMaxCommandLen(maxRCONCommandLen),
		rcon.SetDialTimeout(p.timeout),
		rcon.SetDeadline(p.timeout),
	)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

func (p *RCONPool) dropConn() {
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *RCONPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
