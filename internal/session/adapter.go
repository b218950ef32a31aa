package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"hecstore.ai/internal/metrics"
	"hecstore.ai/internal/protocol"
)

type AdapterOptions struct {
	// ActionTimeout bounds each client call made for an instruction.
	ActionTimeout time.Duration
	// RetryDelay is the pause after a failed AwaitEvent.
	RetryDelay time.Duration
	Logger     *log.Logger
}

// Adapter bridges a Client and the Store. Its event loop only sends to the Store and its
// instruction loop only receives from it, so neither waits on the other.
type Adapter struct {
	client  Client
	act     Actuator
	log     *log.Logger
	timeout time.Duration
	retry   time.Duration
}

func NewAdapter(c Client, opts AdapterOptions) *Adapter {
	a := &Adapter{client: c, log: opts.Logger, timeout: opts.ActionTimeout, retry: opts.RetryDelay}
	if act, ok := c.(Actuator); ok {
		a.act = act
	}
	if a.log == nil {
		a.log = log.Default()
	}
	if a.timeout <= 0 {
		a.timeout = 30 * time.Second
	}
	if a.retry <= 0 {
		a.retry = time.Second
	}
	return a
}

// Run connects the client and serves both loops. A failed initial connect is logged and
// the loops still run, so a Restart instruction can recover. Run returns after a
// StopSession instruction, after in is closed, or when ctx is canceled. out is closed on
// return.
func (a *Adapter) Run(ctx context.Context, out chan<- protocol.PlayerCommand, in <-chan protocol.Instruction) error {
	if err := a.client.Connect(ctx); err != nil {
		a.log.Printf("connect: %v", err)
	} else if pos, ok := a.client.CurrentPosition(); ok {
		a.log.Printf("connected at %s", pos)
	} else {
		a.log.Printf("connected")
	}

	evCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)
		a.eventLoop(evCtx, out)
	}()

	err := a.instructionLoop(ctx, in)
	cancel()
	wg.Wait()
	return err
}

func (a *Adapter) eventLoop(ctx context.Context, out chan<- protocol.PlayerCommand) {
	for {
		ev, err := a.client.AwaitEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.SessionEvents.WithLabelValues("error").Inc()
			if !errors.Is(err, ErrDisconnected) {
				a.log.Printf("await event: %v", err)
			}
			t := time.NewTimer(a.retry)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			continue
		}

		switch ev.Kind {
		case EventDisconnect:
			metrics.SessionEvents.WithLabelValues("disconnect").Inc()
			a.log.Printf("disconnected: %s", ev.Reason)
			continue
		case EventPosition:
			metrics.SessionEvents.WithLabelValues("position").Inc()
			continue
		}

		cmd, ok := ParseWhisper(ev)
		if !ok {
			metrics.SessionEvents.WithLabelValues("chat").Inc()
			continue
		}
		metrics.SessionEvents.WithLabelValues("whisper").Inc()
		select {
		case out <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (a *Adapter) instructionLoop(ctx context.Context, in <-chan protocol.Instruction) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ins, ok := <-in:
			if !ok {
				a.log.Printf("instruction channel closed")
				a.disconnect(ctx)
				return nil
			}
			if stop, ok := ins.(protocol.StopSession); ok {
				a.disconnect(ctx)
				select {
				case stop.Resp <- struct{}{}:
				default:
				}
				return nil
			}
			a.handle(ctx, ins)
		}
	}
}

func (a *Adapter) handle(ctx context.Context, ins protocol.Instruction) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	switch m := ins.(type) {
	case protocol.Whisper:
		if err := a.client.SendChat(ctx, WhisperCommand(m.Player, m.Text)); err != nil {
			a.log.Printf("whisper %s: %v", m.Player, err)
		}
	case protocol.InteractWithChest:
		err := ErrUnsupported
		if a.act != nil {
			err = a.act.InteractWithChest(ctx, m.Chest, m.Action)
		}
		respond(m.Resp, err)
	case protocol.ProcessTrade:
		err := ErrUnsupported
		if a.act != nil {
			err = a.act.ProcessTrade(ctx, m.Trade)
		}
		respond(m.Resp, err)
	case protocol.Restart:
		respond(m.Resp, a.restart(ctx))
	default:
		a.log.Printf("unhandled instruction %T", ins)
	}
}

func (a *Adapter) restart(ctx context.Context) error {
	a.disconnect(ctx)
	if err := a.client.Connect(ctx); err != nil {
		a.log.Printf("restart: %v", err)
		return err
	}
	if pos, ok := a.client.CurrentPosition(); ok {
		a.log.Printf("reconnected at %s", pos)
	} else {
		a.log.Printf("reconnected")
	}
	return nil
}

func (a *Adapter) disconnect(ctx context.Context) {
	if err := a.client.Disconnect(ctx); err != nil && !errors.Is(err, ErrDisconnected) {
		a.log.Printf("disconnect: %v", err)
	}
}

func respond(ch chan error, err error) {
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}
