// Package hostport streams a quick disk track through a host serial
// port, standing in for the synchronous serial chip of the QDD bridge.
package hostport

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// Port is the part of serial.Port the adapter uses.
type Port interface {
	io.ReadWriteCloser
	SetRTS(rts bool) error
	GetModemStatusBits() (*serial.ModemStatusBits, error)
}

const (
	inboundDepth = 4096 // bytes buffered from the host
	flushBytes   = 256  // outbound bytes batched per write
)

// Adapter implements qdd.SerialAdapter over a host serial port.
// Bytes read from the port are transmitted to the drive; bytes read from
// the drive are written to the port. DSR requests the motor and RTS
// reports write protect.
type Adapter struct {
	port Port
	in   chan byte
	out  *bufio.Writer
	rts  bool

	mu   sync.Mutex
	err  error
	stop chan struct{}
	done chan struct{}
}

// Open opens a serial port by name.
func Open(name string, baud int) (*Adapter, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return NewAdapter(port), nil
}

// NewAdapter wraps an open port and starts the reader.
func NewAdapter(port Port) *Adapter {
	a := &Adapter{
		port: port,
		in:   make(chan byte, inboundDepth),
		out:  bufio.NewWriterSize(port, flushBytes),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go a.reader()
	return a
}

func (a *Adapter) reader() {
	defer close(a.done)
	defer close(a.in)
	buf := make([]byte, 512)
	for {
		n, err := a.port.Read(buf)
		for _, b := range buf[:n] {
			select {
			case a.in <- b:
			case <-a.stop:
				return
			}
		}
		if err != nil {
			select {
			case <-a.stop:
			default:
				if err != io.EOF {
					a.setErr(fmt.Errorf("serial read: %w", err))
				}
			}
			return
		}
	}
}

func (a *Adapter) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err == nil {
		a.err = err
	}
}

// Err returns the first port error.
func (a *Adapter) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// MotorRequest reports the DSR line.
func (a *Adapter) MotorRequest() bool {
	bits, err := a.port.GetModemStatusBits()
	if err != nil {
		a.setErr(fmt.Errorf("modem status: %w", err))
		return false
	}
	return bits.DSR
}

// SetClearToSend drives RTS when it changes.
func (a *Adapter) SetClearToSend(asserted bool) {
	if asserted == a.rts {
		return
	}
	if err := a.port.SetRTS(asserted); err != nil {
		a.setErr(fmt.Errorf("set RTS: %w", err))
		return
	}
	a.rts = asserted
}

// TxByte returns the next byte received from the host, if any.
func (a *Adapter) TxByte() (byte, bool) {
	select {
	case b, ok := <-a.in:
		return b, !ok
	default:
		return 0, true
	}
}

// RxByte queues a byte for the host.
func (a *Adapter) RxByte(b byte) {
	if err := a.out.WriteByte(b); err != nil {
		a.setErr(fmt.Errorf("serial write: %w", err))
	}
}

// Flush writes out queued bytes.
func (a *Adapter) Flush() error {
	if err := a.out.Flush(); err != nil {
		a.setErr(fmt.Errorf("serial write: %w", err))
		return err
	}
	return nil
}

// Close flushes and closes the port.
func (a *Adapter) Close() error {
	flushErr := a.Flush()
	close(a.stop)
	err := a.port.Close()
	<-a.done
	if err != nil {
		return err
	}
	return flushErr
}
