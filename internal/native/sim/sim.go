// Package sim is an in-memory native.Service used by tests and by the CLI's
// fixtures mode. It reproduces the SDK's observable behavior: handle-based
// async queries completing on the single notification stream, per-item state
// bitsets, short-description truncation, and single-page children results.
package sim

import (
	"sync"
	"time"

	"go-workshop-client/internal/models"
	"go-workshop-client/internal/native"
)

// Item seeds one piece of content into the simulator.
type Item struct {
	ID          models.ItemID
	Title       string
	Description string
	OwnerID     uint64
	SizeBytes   uint64
	Children    []models.ItemID

	State      models.ItemState
	SizeOnDisk uint64
	Folder     string
	LastUpdate time.Time

	// QueryFail makes detail rows for this item fail to materialize.
	QueryFail bool
	// ChildrenFail makes children resolution fail for this item.
	ChildrenFail bool
}

type query struct {
	ids      []models.ItemID
	fullDesc bool
	children bool
	released int
}

// Service is the simulated native layer. Safe for concurrent use.
type Service struct {
	mu        sync.Mutex
	available bool
	items     map[models.ItemID]*Item
	users     map[uint64]string
	subs      []models.ItemID

	nextHandle native.CallHandle
	queries    map[native.CallHandle]*query
	downloads  map[models.ItemID]*models.DownloadProgress

	failNextIO  bool
	dropPersona bool
	holding     bool
	held        []native.Notification

	notifs    chan native.Notification
	closeOnce sync.Once
}

// New returns an available, empty simulator.
func New() *Service {
	return &Service{
		available: true,
		items:     make(map[models.ItemID]*Item),
		users:     make(map[uint64]string),
		queries:   make(map[native.CallHandle]*query),
		downloads: make(map[models.ItemID]*models.DownloadProgress),
		notifs:    make(chan native.Notification, 256),
	}
}

// AddItem seeds or replaces an item.
func (s *Service) AddItem(it Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := it
	s.items[it.ID] = &copied
	if it.State.Has(models.StateSubscribed) {
		s.addSubLocked(it.ID)
	}
}

// AddUser seeds a display name.
func (s *Service) AddUser(id uint64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = name
}

// SetAvailable toggles the availability probe.
func (s *Service) SetAvailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = v
}

// FailNextQuery makes the next submitted query complete with the I/O-failure
// flag set.
func (s *Service) FailNextQuery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextIO = true
}

// DropPersonaUpdates suppresses PersonaUpdated notifications, simulating a
// refresh that never lands.
func (s *Service) DropPersonaUpdates(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropPersona = v
}

// Hold queues notifications instead of delivering them, until ReleaseHeld.
// Lets tests control completion ordering.
func (s *Service) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holding = true
}

// ReleaseHeld delivers everything queued while holding.
func (s *Service) ReleaseHeld() {
	s.mu.Lock()
	held := s.held
	s.held = nil
	s.holding = false
	s.mu.Unlock()
	for _, n := range held {
		s.notifs <- n
	}
}

// Close shuts the notification stream. Consumers' dispatch loops exit.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.notifs) })
}

func (s *Service) emitLocked(n native.Notification) {
	if s.holding {
		s.held = append(s.held, n)
		return
	}
	s.notifs <- n
}

func (s *Service) addSubLocked(id models.ItemID) {
	for _, existing := range s.subs {
		if existing == id {
			return
		}
	}
	s.subs = append(s.subs, id)
}

// --- native.Service ---

func (s *Service) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *Service) SubmitDetailQuery(ids []models.ItemID, fullDescription, includeChildren bool) (native.CallHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextHandle++
	h := s.nextHandle
	batch := make([]models.ItemID, len(ids))
	copy(batch, ids)
	s.queries[h] = &query{ids: batch, fullDesc: fullDescription, children: includeChildren}

	ev := native.QueryCompleted{Handle: h, IOFailure: s.failNextIO}
	s.failNextIO = false
	s.emitLocked(ev)
	return h, nil
}

func (s *Service) SubmitChildrenQuery(id models.ItemID) (native.CallHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextHandle++
	h := s.nextHandle
	s.queries[h] = &query{ids: []models.ItemID{id}, children: true}

	ev := native.QueryCompleted{Handle: h, IOFailure: s.failNextIO}
	s.failNextIO = false
	s.emitLocked(ev)
	return h, nil
}

func (s *Service) ResultCount(h native.CallHandle) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queries[h]
	if !ok {
		return 0
	}
	return len(q.ids)
}

func (s *Service) Result(h native.CallHandle, index int) (models.DetailRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queries[h]
	if !ok || index < 0 || index >= len(q.ids) {
		return models.DetailRecord{}, false
	}
	it, known := s.items[q.ids[index]]
	if !known || it.QueryFail {
		return models.DetailRecord{}, false
	}

	desc := it.Description
	if !q.fullDesc && len(desc) > native.MaxShortDescription {
		desc = desc[:native.MaxShortDescription]
	}
	children := 0
	if q.children {
		children = len(it.Children)
	}
	return models.DetailRecord{
		ID:          it.ID,
		Result:      models.ResultOK,
		Title:       it.Title,
		Description: desc,
		OwnerID:     it.OwnerID,
		SizeBytes:   it.SizeBytes,
		Children:    children,
	}, true
}

func (s *Service) Children(h native.CallHandle, index, max int) ([]models.ItemID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queries[h]
	if !ok || index < 0 || index >= len(q.ids) {
		return nil, false
	}
	it, known := s.items[q.ids[index]]
	if !known || it.ChildrenFail {
		return nil, false
	}

	limit := max
	if limit > native.MaxQueryItems {
		limit = native.MaxQueryItems
	}
	if limit > len(it.Children) {
		limit = len(it.Children)
	}
	out := make([]models.ItemID, limit)
	copy(out, it.Children[:limit])
	return out, true
}

func (s *Service) ReleaseQuery(h native.CallHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queries[h]; ok {
		q.released++
	}
}

func (s *Service) ItemState(id models.ItemID) models.ItemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		return it.State
	}
	return models.StateNone
}

func (s *Service) InstallInfo(id models.ItemID) models.InstallInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || !it.State.Has(models.StateInstalled) {
		return models.InstallInfo{}
	}
	return models.InstallInfo{
		ID:         id,
		SizeOnDisk: it.SizeOnDisk,
		Folder:     it.Folder,
		LastUpdate: it.LastUpdate,
	}
}

func (s *Service) DownloadInfo(id models.ItemID) models.DownloadProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.downloads[id]; ok {
		return *p
	}
	return models.DownloadProgress{}
}

func (s *Service) SubscribedItems() []models.ItemID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ItemID, len(s.subs))
	copy(out, s.subs)
	return out
}

func (s *Service) Subscribe(id models.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.State |= models.StateSubscribed
	}
	s.addSubLocked(id)
}

func (s *Service) Unsubscribe(id models.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.State &^= models.StateSubscribed
	}
	for i, existing := range s.subs {
		if existing == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
}

// Download transfers the item "instantly": the byte counters land on their
// final values and the completion notification is emitted. Unknown items
// complete with a file-not-found result.
func (s *Service) Download(id models.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		s.emitLocked(native.DownloadCompleted{Item: id, Result: models.ResultFileNotFound})
		return
	}
	s.downloads[id] = &models.DownloadProgress{
		ID:             id,
		BytesProcessed: it.SizeBytes,
		BytesTotal:     it.SizeBytes,
	}
	it.State &^= models.StateDownloading | models.StateDownloadPending | models.StateNeedsUpdate
	it.State |= models.StateInstalled
	if it.SizeOnDisk == 0 {
		it.SizeOnDisk = it.SizeBytes
	}
	it.LastUpdate = time.Now()
	s.emitLocked(native.DownloadCompleted{Item: id, Result: models.ResultOK})
}

func (s *Service) RequestUserInfo(userID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return false
	}
	if !s.dropPersona {
		s.emitLocked(native.PersonaUpdated{UserID: userID})
	}
	return true
}

func (s *Service) PersonaName(userID uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID]
}

func (s *Service) Notifications() <-chan native.Notification {
	return s.notifs
}

// --- test inspection helpers ---

// QueryCount reports how many queries have been submitted.
func (s *Service) QueryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

// QueryIDs returns the batch submitted under h.
func (s *Service) QueryIDs(h native.CallHandle) []models.ItemID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queries[h]; ok {
		out := make([]models.ItemID, len(q.ids))
		copy(out, q.ids)
		return out
	}
	return nil
}

// LastQuery returns the most recently issued handle and its batch.
func (s *Service) LastQuery() (native.CallHandle, []models.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.nextHandle
	if q, ok := s.queries[h]; ok {
		out := make([]models.ItemID, len(q.ids))
		copy(out, q.ids)
		return h, out
	}
	return native.InvalidCallHandle, nil
}

// ReleaseCount reports how many times h has been released.
func (s *Service) ReleaseCount(h native.CallHandle) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queries[h]; ok {
		return q.released
	}
	return 0
}

// LeakedQueries counts completed queries never released.
func (s *Service) LeakedQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	leaked := 0
	for _, q := range s.queries {
		if q.released == 0 {
			leaked++
		}
	}
	return leaked
}
