package game

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	logBufferSize       = 1024 // circular buffer size
	logMaxPerSec        = 5000 // global rate limit
	logMaxPerPlayer     = 60   // per-player rate limit per second
	logFlushBatch       = 64
	logFlushInterval    = 100 * time.Millisecond
	logLimiterCleanup   = 5 * time.Minute
)

// LogKind classifies match log entries.
type LogKind uint8

const (
	LogUnknown LogKind = iota
	LogJoin
	LogLeave
	LogKick
	LogDribble
	LogGoal
	LogSkill
	LogMatch
)

// String returns a human-readable kind.
func (k LogKind) String() string {
	switch k {
	case LogJoin:
		return "join"
	case LogLeave:
		return "leave"
	case LogKick:
		return "kick"
	case LogDribble:
		return "dribble"
	case LogGoal:
		return "goal"
	case LogSkill:
		return "skill"
	case LogMatch:
		return "match"
	default:
		return "unknown"
	}
}

// LogEntry is one match audit record, written as newline-delimited JSON.
type LogEntry struct {
	Kind      LogKind `json:"kind"`
	Timestamp int64   `json:"timestamp"` // unix nano
	Sequence  uint64  `json:"sequence"`
	Tick      uint64  `json:"tick"`
	PlayerID  string  `json:"playerId,omitempty"`
	Payload   []byte  `json:"payload,omitempty"`
}

// MatchLog is a bounded, rate-limited audit log of gameplay events
// (kicks, goals, skills, match transitions) for replay and moderation.
// Producers never block: under flood the oldest entries roll off and the
// drop counter advances.
type MatchLog struct {
	buffer    [logBufferSize]LogEntry
	writeHead uint64 // atomic
	readHead  uint64 // atomic

	globalLimiter  *rate.Limiter
	playerLimiters sync.Map // map[string]*logLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

type logLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewMatchLog creates a match log. Call Start to begin writing to disk;
// Record is a no-op until then.
func NewMatchLog() *MatchLog {
	return &MatchLog{
		globalLimiter: rate.NewLimiter(logMaxPerSec, logMaxPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the output file and begins the async writer.
func (l *MatchLog) Start(filePath string) error {
	if l.running.Load() {
		return nil
	}

	l.filePath = filePath
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		l.file = file
	}

	l.running.Store(true)
	l.writerWg.Add(2)
	go l.writerLoop()
	go l.cleanupLoop()
	return nil
}

// Stop flushes and shuts the writer down.
func (l *MatchLog) Stop() {
	l.stopOnce.Do(func() {
		l.running.Store(false)
		close(l.stopChan)
		l.writerWg.Wait()

		l.fileMu.Lock()
		if l.file != nil {
			l.file.Close()
		}
		l.fileMu.Unlock()
	})
}

// Record adds an entry, applying global and per-player rate limits.
// Returns false when dropped.
func (l *MatchLog) Record(kind LogKind, tick uint64, playerID string, payload interface{}) bool {
	if !l.running.Load() {
		return false
	}

	if !l.globalLimiter.Allow() {
		atomic.AddUint64(&l.droppedCount, 1)
		return false
	}
	if playerID != "" {
		if !l.playerLimiter(playerID).Allow() {
			atomic.AddUint64(&l.droppedCount, 1)
			return false
		}
	}

	var data []byte
	if payload != nil {
		data, _ = json.Marshal(payload)
	}

	head := atomic.AddUint64(&l.writeHead, 1) - 1
	tail := atomic.LoadUint64(&l.readHead)
	if head-tail >= logBufferSize {
		// Roll the oldest entry off under pressure.
		atomic.AddUint64(&l.readHead, 1)
		atomic.AddUint64(&l.droppedCount, 1)
	}

	l.buffer[head%logBufferSize] = LogEntry{
		Kind:      kind,
		Timestamp: time.Now().UnixNano(),
		Sequence:  head,
		Tick:      tick,
		PlayerID:  playerID,
		Payload:   data,
	}
	atomic.AddUint64(&l.totalCount, 1)
	return true
}

func (l *MatchLog) playerLimiter(playerID string) *rate.Limiter {
	if entry, ok := l.playerLimiters.Load(playerID); ok {
		e := entry.(*logLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}
	entry := &logLimiterEntry{
		limiter:  rate.NewLimiter(logMaxPerPlayer, logMaxPerPlayer/6),
		lastUsed: time.Now(),
	}
	actual, _ := l.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*logLimiterEntry).limiter
}

func (l *MatchLog) writerLoop() {
	defer l.writerWg.Done()

	ticker := time.NewTicker(logFlushInterval)
	defer ticker.Stop()

	batch := make([]LogEntry, 0, logFlushBatch)
	for {
		select {
		case <-l.stopChan:
			batch = l.collectBatch(batch[:0])
			if len(batch) > 0 {
				l.flushBatch(batch)
			}
			return
		case <-ticker.C:
			batch = l.collectBatch(batch[:0])
			if len(batch) > 0 {
				l.flushBatch(batch)
			}
		}
	}
}

func (l *MatchLog) cleanupLoop() {
	defer l.writerWg.Done()

	ticker := time.NewTicker(logLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-logLimiterCleanup)
			l.playerLimiters.Range(func(key, value interface{}) bool {
				if value.(*logLimiterEntry).lastUsed.Before(cutoff) {
					l.playerLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (l *MatchLog) collectBatch(batch []LogEntry) []LogEntry {
	head := atomic.LoadUint64(&l.writeHead)
	tail := atomic.LoadUint64(&l.readHead)

	for i := tail; i < head && len(batch) < logFlushBatch; i++ {
		batch = append(batch, l.buffer[i%logBufferSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&l.readHead, uint64(len(batch)))
	}
	return batch
}

func (l *MatchLog) flushBatch(batch []LogEntry) {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	if l.file == nil {
		return
	}
	for _, entry := range batch {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		l.file.Write(data)
		l.file.Write([]byte("\n"))
	}
}

// Stats returns counters for monitoring.
func (l *MatchLog) Stats() map[string]interface{} {
	head := atomic.LoadUint64(&l.writeHead)
	tail := atomic.LoadUint64(&l.readHead)
	return map[string]interface{}{
		"total":   atomic.LoadUint64(&l.totalCount),
		"dropped": atomic.LoadUint64(&l.droppedCount),
		"pending": head - tail,
		"running": l.running.Load(),
	}
}
