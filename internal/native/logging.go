package native

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"go-workshop-client/internal/models"
)

// LoggingService wraps a Service and records every boundary call and
// notification to a log file. Useful when diagnosing correlation issues
// against a live SDK runtime.
type LoggingService struct {
	inner   Service
	logFile *os.File
	mu      sync.Mutex
	writer  *bufio.Writer

	forwardOnce sync.Once
	forwarded   chan Notification
}

// NewLoggingService opens logFilePath for appending and returns the wrapped
// service. Close must be called on shutdown to flush the buffer.
func NewLoggingService(inner Service, logFilePath string) (*LoggingService, error) {
	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open native log file %s: %w", logFilePath, err)
	}
	return &LoggingService{
		inner:   inner,
		logFile: f,
		writer:  bufio.NewWriter(f),
	}, nil
}

func (s *LoggingService) writeLog(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := fmt.Sprintf("%s %s\n", time.Now().Format(time.RFC3339Nano), fmt.Sprintf(format, args...))
	if _, err := s.writer.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to native log file: %v\nLog message: %s", err, line)
		return
	}
	// Flush per entry; call volume at this boundary is low.
	if err := s.writer.Flush(); err != nil {
		log.WithError(err).Warn("Failed to flush native log buffer")
	}
}

// Close flushes and closes the underlying log file.
func (s *LoggingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	errFlush := s.writer.Flush()
	errClose := s.logFile.Close()
	if errFlush != nil {
		return fmt.Errorf("failed to flush native log buffer: %w", errFlush)
	}
	return errClose
}

func (s *LoggingService) Available() bool {
	avail := s.inner.Available()
	s.writeLog("Available() -> %t", avail)
	return avail
}

func (s *LoggingService) SubmitDetailQuery(ids []models.ItemID, fullDescription, includeChildren bool) (CallHandle, error) {
	h, err := s.inner.SubmitDetailQuery(ids, fullDescription, includeChildren)
	s.writeLog("SubmitDetailQuery(%v, full=%t, children=%t) -> handle=%d err=%v", ids, fullDescription, includeChildren, h, err)
	return h, err
}

func (s *LoggingService) SubmitChildrenQuery(id models.ItemID) (CallHandle, error) {
	h, err := s.inner.SubmitChildrenQuery(id)
	s.writeLog("SubmitChildrenQuery(%d) -> handle=%d err=%v", id, h, err)
	return h, err
}

func (s *LoggingService) ResultCount(h CallHandle) int {
	n := s.inner.ResultCount(h)
	s.writeLog("ResultCount(%d) -> %d", h, n)
	return n
}

func (s *LoggingService) Result(h CallHandle, index int) (models.DetailRecord, bool) {
	rec, ok := s.inner.Result(h, index)
	s.writeLog("Result(%d, %d) -> id=%d result=%s ok=%t", h, index, rec.ID, rec.Result, ok)
	return rec, ok
}

func (s *LoggingService) Children(h CallHandle, index, max int) ([]models.ItemID, bool) {
	kids, ok := s.inner.Children(h, index, max)
	s.writeLog("Children(%d, %d, %d) -> %d ids ok=%t", h, index, max, len(kids), ok)
	return kids, ok
}

func (s *LoggingService) ReleaseQuery(h CallHandle) {
	s.inner.ReleaseQuery(h)
	s.writeLog("ReleaseQuery(%d)", h)
}

func (s *LoggingService) ItemState(id models.ItemID) models.ItemState {
	st := s.inner.ItemState(id)
	s.writeLog("ItemState(%d) -> %s", id, st)
	return st
}

func (s *LoggingService) InstallInfo(id models.ItemID) models.InstallInfo {
	info := s.inner.InstallInfo(id)
	s.writeLog("InstallInfo(%d) -> size=%d folder=%q", id, info.SizeOnDisk, info.Folder)
	return info
}

func (s *LoggingService) DownloadInfo(id models.ItemID) models.DownloadProgress {
	p := s.inner.DownloadInfo(id)
	s.writeLog("DownloadInfo(%d) -> %d/%d", id, p.BytesProcessed, p.BytesTotal)
	return p
}

func (s *LoggingService) SubscribedItems() []models.ItemID {
	items := s.inner.SubscribedItems()
	s.writeLog("SubscribedItems() -> %d items", len(items))
	return items
}

func (s *LoggingService) Subscribe(id models.ItemID) {
	s.writeLog("Subscribe(%d)", id)
	s.inner.Subscribe(id)
}

func (s *LoggingService) Unsubscribe(id models.ItemID) {
	s.writeLog("Unsubscribe(%d)", id)
	s.inner.Unsubscribe(id)
}

func (s *LoggingService) Download(id models.ItemID) {
	s.writeLog("Download(%d)", id)
	s.inner.Download(id)
}

func (s *LoggingService) RequestUserInfo(userID uint64) bool {
	issued := s.inner.RequestUserInfo(userID)
	s.writeLog("RequestUserInfo(%d) -> %t", userID, issued)
	return issued
}

func (s *LoggingService) PersonaName(userID uint64) string {
	name := s.inner.PersonaName(userID)
	s.writeLog("PersonaName(%d) -> %q", userID, name)
	return name
}

// Notifications forwards the inner stream, logging each event as it passes.
// The forwarding goroutine exits when the inner channel closes.
func (s *LoggingService) Notifications() <-chan Notification {
	s.forwardOnce.Do(func() {
		s.forwarded = make(chan Notification, 16)
		go func() {
			defer close(s.forwarded)
			for n := range s.inner.Notifications() {
				s.writeLog("Notification %#v", n)
				s.forwarded <- n
			}
		}()
	})
	return s.forwarded
}
