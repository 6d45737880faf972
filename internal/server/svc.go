package server

// ChanSvc serializes work onto a single goroutine. The trade collection and
// every connection's view chain are only ever touched from this goroutine,
// so the pipeline itself needs no locking.
type ChanSvc chan func()

// NewChanSvc creates and starts a service goroutine.
func NewChanSvc() ChanSvc {
	s := make(ChanSvc)
	go s.run()
	return s
}

func (s ChanSvc) run() {
	for code := range s {
		code()
	}
}

// Do queues code for execution, preserving submission order per caller.
// Must not be called from the service goroutine itself.
func (s ChanSvc) Do(code func()) {
	defer func() {
		// The channel may close while a send is in flight during
		// shutdown; the work is discarded.
		recover()
	}()
	s <- code
}

// DoSync runs code on the service goroutine and waits for its result.
func DoSync[T any](s ChanSvc, code func() (T, error)) (T, error) {
	done := make(chan struct{})
	var value T
	var err error
	s.Do(func() {
		value, err = code()
		close(done)
	})
	<-done
	return value, err
}

// Close stops the service. Queued work still in flight is discarded.
func (s ChanSvc) Close() {
	close(s)
}
