package model

import "sync"

// LogStream is an append-only, multi-subscriber log for one service.
// Publish delivers each line to every subscriber synchronously and in
// publish order; a subscriber must not call back into the stream.
type LogStream struct {
	mu     sync.Mutex
	lines  []string
	subs   map[int]func(string)
	nextID int
	closed bool
}

func NewLogStream() *LogStream {
	return &LogStream{subs: make(map[int]func(string))}
}

// Publish appends line and pushes it to all subscribers. Lines published
// after Close are dropped.
func (l *LogStream) Publish(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.lines = append(l.lines, line)
	for id := 0; id < l.nextID; id++ {
		if fn, ok := l.subs[id]; ok {
			fn(line)
		}
	}
}

// Subscribe registers fn for lines published from now on and returns a
// function that removes the subscription.
func (l *LogStream) Subscribe(fn func(string)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

// Lines returns a copy of everything published so far.
func (l *LogStream) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func (l *LogStream) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.subs = make(map[int]func(string))
}
