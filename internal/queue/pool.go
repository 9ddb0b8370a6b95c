package queue

import (
	"context"
	"errors"
	"sync/atomic"
)

var errPoolClosed = errors.New("channel pool closed")

// channelPool 保留有限數量的 confirm 通道.
// permits 的長度 == 通道總數（閒置 + 借出）<= 容量.
type channelPool struct {
	open    func() (publishChannel, error)
	idle    chan publishChannel
	permits chan struct{}
	closed  atomic.Bool
}

func newChannelPool(capacity int, open func() (publishChannel, error)) *channelPool {
	if capacity <= 0 {
		capacity = 1
	}
	return &channelPool{
		open:    open,
		idle:    make(chan publishChannel, capacity),
		permits: make(chan struct{}, capacity),
	}
}

// Borrow 取得閒置通道；已關閉的閒置通道會被替換，未達容量時開新通道.
func (p *channelPool) Borrow(ctx context.Context) (publishChannel, error) {
	for {
		if p.closed.Load() {
			return nil, errPoolClosed
		}

		select {
		case ch := <-p.idle:
			if ch.IsClosed() {
				p.discard(ch)
				continue
			}
			return ch, nil
		default:
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ch := <-p.idle:
			if ch.IsClosed() {
				p.discard(ch)
				continue
			}
			return ch, nil
		case p.permits <- struct{}{}:
			ch, err := p.open()
			if err != nil {
				<-p.permits
				return nil, err
			}
			return ch, nil
		}
	}
}

// Return 歸還通道；發佈失敗或已關閉的通道直接丟棄，避免遲到的確認被下一次發佈讀到.
func (p *channelPool) Return(ch publishChannel, healthy bool) {
	if ch == nil {
		return
	}
	if !healthy || p.closed.Load() || ch.IsClosed() {
		p.discard(ch)
		return
	}
	select {
	case p.idle <- ch:
	default:
		p.discard(ch)
	}
}

// Close 關閉所有閒置通道；借出中的通道在歸還時關閉.
func (p *channelPool) Close() {
	if p.closed.Swap(true) {
		return
	}
	for {
		select {
		case ch := <-p.idle:
			p.discard(ch)
		default:
			return
		}
	}
}

func (p *channelPool) discard(ch publishChannel) {
	_ = ch.Close()
	select {
	case <-p.permits:
	default:
	}
}
