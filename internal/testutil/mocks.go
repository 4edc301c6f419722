package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/udisondev/geospawn/internal/model"
)

// StubLookup — синхронная реализация spawn.Lookup, отвечает сразу через Fn.
type StubLookup struct {
	Fn func(ctx context.Context, id int) (*model.Pokemon, error)

	mu    sync.Mutex
	calls []int
}

// NewStubLookup создаёт StubLookup, который всегда возвращает p.
func NewStubLookup(p *model.Pokemon) *StubLookup {
	return &StubLookup{
		Fn: func(context.Context, int) (*model.Pokemon, error) { return p, nil },
	}
}

// GetPokemon записывает identity и вызывает Fn.
func (l *StubLookup) GetPokemon(ctx context.Context, id int) (*model.Pokemon, error) {
	l.mu.Lock()
	l.calls = append(l.calls, id)
	l.mu.Unlock()

	return l.Fn(ctx, id)
}

// Calls возвращает копию запрошенных identity в порядке вызова.
func (l *StubLookup) Calls() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.calls...)
}

// CallCount возвращает количество вызовов.
func (l *StubLookup) CallCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// PendingLookup — запрос, ожидающий ответа от теста.
type PendingLookup struct {
	ID    int
	reply chan lookupReply
}

type lookupReply struct {
	p   *model.Pokemon
	err error
}

// Resolve завершает запрос с результатом p/err.
func (p *PendingLookup) Resolve(pokemon *model.Pokemon, err error) {
	p.reply <- lookupReply{p: pokemon, err: err}
}

// BlockingLookup — реализация spawn.Lookup, где каждый вызов блокируется до
// Resolve. Context игнорируется: ответ приходит даже после отмены, так
// проверяется обработка "поздних" ответов.
type BlockingLookup struct {
	requests chan *PendingLookup
}

// NewBlockingLookup создаёт BlockingLookup.
func NewBlockingLookup() *BlockingLookup {
	return &BlockingLookup{requests: make(chan *PendingLookup, 16)}
}

// GetPokemon регистрирует запрос и ждёт Resolve.
func (l *BlockingLookup) GetPokemon(_ context.Context, id int) (*model.Pokemon, error) {
	req := &PendingLookup{ID: id, reply: make(chan lookupReply, 1)}
	l.requests <- req
	r := <-req.reply
	return r.p, r.err
}

// Next ждёт следующий запрос (fail по таймауту).
func (l *BlockingLookup) Next(tb testing.TB) *PendingLookup {
	tb.Helper()

	select {
	case req := <-l.requests:
		return req
	case <-time.After(2 * time.Second):
		tb.Fatal("timed out waiting for lookup request")
		return nil
	}
}

// Outstanding возвращает количество запросов, ещё не забранных через Next.
func (l *BlockingLookup) Outstanding() int {
	return len(l.requests)
}
