package api

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"notekeep-api/domain"
)

type eventJob struct {
	ownerID string
	events  []domain.NoteEvent
}

var (
	once           sync.Once
	jobs           chan eventJob
	workerCount    int
	jobBuf         int
	publishTimeout time.Duration
	handoffTimeout time.Duration
	bg             = context.Background()
	globalStore    NoteStore
	globalLog      *log.Logger
	workerWG       sync.WaitGroup
)

// shutdownEventPublisher stops worker goroutines and clears shared state. It is intended for tests.
func shutdownEventPublisher() {
	if jobs != nil {
		close(jobs)
		jobs = nil
	}

	workerWG.Wait()

	globalStore = nil
	globalLog = nil
	workerCount = 0
	jobBuf = 0
	publishTimeout = 0
	handoffTimeout = 0
	once = sync.Once{}
	workerWG = sync.WaitGroup{}
}

func initEventPublisher(store NoteStore, logger *log.Logger) {
	once.Do(func() {
		globalStore = store
		if logger == nil {
			panic("Logger is not initialized")
		}
		globalLog = logger

		workerCount = envInt("EVENTS_WORKERS", 8)
		jobBuf = envInt("EVENTS_BUFFER", 1024)
		publishTimeout = envDur("EVENTS_TIMEOUT", 30*time.Second)
		handoffTimeout = envDur("EVENTS_HANDOFF_TIMEOUT", 15*time.Millisecond)

		jobs = make(chan eventJob, jobBuf)
		for i := 0; i < workerCount; i++ {
			workerWG.Add(1)
			go worker(i, jobs)
		}
		globalLog.Infof("event publisher started, workers: %d, buffer: %d, timeout: %v, handoff: %v", workerCount, jobBuf, publishTimeout, handoffTimeout)
	})
}

func worker(id int, jobCh <-chan eventJob) {
	defer workerWG.Done()
	for j := range jobCh {
		ctx, cancel := context.WithTimeout(bg, publishTimeout)
		err := globalStore.EnqueueEvents(ctx, j.ownerID, j.events)
		cancel()

		if err != nil {
			globalLog.Errorf("event publish failed, err: %v, owner: %s, count: %d, worker: %d", err, j.ownerID, len(j.events), id)
		}
	}
}

// publishNoteEvent records one lifecycle event on the audit feed. The pool
// takes it when it has room; otherwise the event is published inline, best
// effort. The audit feed never fails the request that produced the event.
func publishNoteEvent(store NoteStore, ownerID, eventType, noteID string) {
	job := eventJob{
		ownerID: ownerID,
		events:  []domain.NoteEvent{{NoteID: noteID, Type: eventType, Timestamp: nextTimestamp()}},
	}

	if tryPublishJob(job) {
		return
	}

	if globalLog != nil {
		globalLog.Warn("event buffer saturated; publishing inline")
	}

	timeout := publishTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(bg, timeout)
	err := store.EnqueueEvents(ctx, ownerID, job.events)
	cancel()

	if err != nil && globalLog != nil {
		globalLog.Errorf("inline event publish failed, err: %v, owner: %s", err, ownerID)
	}
}

func tryPublishJob(job eventJob) bool {
	if jobs == nil {
		return false
	}

	if ok, closed := trySendNonBlocking(jobs, job); closed {
		return false
	} else if ok {
		return true
	}

	if handoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(handoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(jobs, job, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan eventJob, job eventJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan eventJob, job eventJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDur(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
