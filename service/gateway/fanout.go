package gateway

type fanoutJob struct {
	subs    []subscriber
	payload []byte
}

// Fanout decouples broadcast callers from slow subscribers: a fixed pool
// of workers pushes encoded frames into per-subscriber queues.
type Fanout struct {
	jobs chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		go func() {
			for job := range f.jobs {
				for _, s := range job.subs {
					// slow subscriber: frame dropped, polling or the next
					// snapshot catches it up
					s.deliver(job.payload)
				}
			}
		}()
	}
	return f
}

func (f *Fanout) broadcast(subs []subscriber, payload []byte) {
	if len(subs) == 0 || len(payload) == 0 {
		return
	}
	f.jobs <- fanoutJob{subs: subs, payload: payload}
}
