package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"rashid-gateway/internal/model"
	"rashid-gateway/pkg/logger"
)

// DiskStorage persists each session as a JSON file plus a flat index,
// with a bounded in-memory cache in front.
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Session
	cacheSize int
}

type sessionIndexEntry struct {
	MatchResultID string             `json:"match_result_id"`
	State         model.SessionState `json:"state"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Session),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	dirs := []string{
		d.dataDir,
		filepath.Join(d.dataDir, "sessions"),
		filepath.Join(d.dataDir, "backup"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	indexPath := d.indexPath()
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		if err := d.saveIndex([]*sessionIndexEntry{}); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	logger.Info("Disk storage initialized successfully")
	return nil
}

func (d *DiskStorage) Close() error {
	return nil
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, "sessions.json")
}

func (d *DiskStorage) sessionPath(matchResultID string) string {
	return filepath.Join(d.dataDir, "sessions", matchResultID+".json")
}

func (d *DiskStorage) loadIndex() ([]*sessionIndexEntry, error) {
	data, err := os.ReadFile(d.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []*sessionIndexEntry{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var entries []*sessionIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return entries, nil
}

func (d *DiskStorage) saveIndex(entries []*sessionIndexEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if err := os.WriteFile(d.indexPath(), data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (d *DiskStorage) loadSessionFromFile(matchResultID string) (*model.Session, error) {
	data, err := os.ReadFile(d.sessionPath(matchResultID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &session, nil
}

func (d *DiskStorage) saveSessionToFile(session *model.Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if err := os.WriteFile(d.sessionPath(session.MatchResultID), data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (d *DiskStorage) updateIndexEntry(session *model.Session) error {
	entries, err := d.loadIndex()
	if err != nil {
		return err
	}

	found := false
	for _, e := range entries {
		if e.MatchResultID == session.MatchResultID {
			e.State = session.State
			e.UpdatedAt = session.UpdatedAt
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, &sessionIndexEntry{
			MatchResultID: session.MatchResultID,
			State:         session.State,
			CreatedAt:     session.CreatedAt,
			UpdatedAt:     session.UpdatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})

	return d.saveIndex(entries)
}

func (d *DiskStorage) removeIndexEntry(matchResultID string) error {
	entries, err := d.loadIndex()
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.MatchResultID != matchResultID {
			kept = append(kept, e)
		}
	}
	return d.saveIndex(kept)
}

func (d *DiskStorage) evictCache() {
	if d.cacheSize <= 0 || len(d.cache) <= d.cacheSize {
		return
	}

	// Drop the least recently updated sessions until the cache fits.
	type aged struct {
		id string
		at time.Time
	}
	all := make([]aged, 0, len(d.cache))
	for id, s := range d.cache {
		all = append(all, aged{id: id, at: s.UpdatedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	for _, a := range all {
		if len(d.cache) <= d.cacheSize {
			break
		}
		delete(d.cache, a.id)
	}
}

func (d *DiskStorage) CreateSession(session *model.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.sessionPath(session.MatchResultID)); err == nil {
		return ErrSessionExists
	}

	if err := d.saveSessionToFile(session); err != nil {
		return err
	}
	if err := d.updateIndexEntry(session); err != nil {
		return err
	}

	d.cache[session.MatchResultID] = session.Clone()
	d.evictCache()
	return nil
}

func (d *DiskStorage) GetSession(matchResultID string) (*model.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.sessionLocked(matchResultID)
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

func (d *DiskStorage) UpdateSession(session *model.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.sessionPath(session.MatchResultID)); err != nil {
		return ErrSessionNotFound
	}

	session.UpdatedAt = time.Now()
	if err := d.saveSessionToFile(session); err != nil {
		return err
	}
	if err := d.updateIndexEntry(session); err != nil {
		return err
	}

	d.cache[session.MatchResultID] = session.Clone()
	d.evictCache()
	return nil
}

// UpdateState changes the initialization fields in place without touching the
// transcript, so concurrent appends are never overwritten.
func (d *DiskStorage) UpdateState(matchResultID string, state model.SessionState, sourceURL string, chunksIndexed int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.sessionLocked(matchResultID)
	if err != nil {
		return err
	}

	session.State = state
	session.SourceURL = sourceURL
	session.ChunksIndexed = chunksIndexed
	session.UpdatedAt = time.Now()
	if err := d.saveSessionToFile(session); err != nil {
		return err
	}
	return d.updateIndexEntry(session)
}

func (d *DiskStorage) DeleteSession(matchResultID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.sessionPath(matchResultID)
	if _, err := os.Stat(path); err != nil {
		return ErrSessionNotFound
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := d.removeIndexEntry(matchResultID); err != nil {
		return err
	}

	delete(d.cache, matchResultID)
	return nil
}

func (d *DiskStorage) ListSessions() ([]*model.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := d.loadIndex()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, len(entries))
	for _, e := range entries {
		if session, ok := d.cache[e.MatchResultID]; ok {
			sessions = append(sessions, session.Clone())
			continue
		}
		session, err := d.loadSessionFromFile(e.MatchResultID)
		if err != nil {
			logger.Warnf("skip unreadable session %s: %v", e.MatchResultID, err)
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (d *DiskStorage) AddMessage(matchResultID string, message *model.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.sessionLocked(matchResultID)
	if err != nil {
		return err
	}

	session.Messages = append(session.Messages, *message)
	session.UpdatedAt = time.Now()
	if err := d.saveSessionToFile(session); err != nil {
		return err
	}
	return d.updateIndexEntry(session)
}

func (d *DiskStorage) GetMessages(matchResultID string) ([]*model.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.sessionLocked(matchResultID)
	if err != nil {
		return nil, err
	}

	messages := make([]*model.Message, len(session.Messages))
	for i := range session.Messages {
		msg := session.Messages[i]
		messages[i] = &msg
	}
	return messages, nil
}

func (d *DiskStorage) UpdateSummary(matchResultID string, summary model.SummarySnapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.sessionLocked(matchResultID)
	if err != nil {
		return err
	}

	session.Summary = summary
	session.UpdatedAt = time.Now()
	if err := d.saveSessionToFile(session); err != nil {
		return err
	}
	return d.updateIndexEntry(session)
}

// sessionLocked resolves through the cache; callers hold d.mu.
func (d *DiskStorage) sessionLocked(matchResultID string) (*model.Session, error) {
	if session, ok := d.cache[matchResultID]; ok {
		return session, nil
	}
	session, err := d.loadSessionFromFile(matchResultID)
	if err != nil {
		return nil, err
	}
	d.cache[matchResultID] = session
	d.evictCache()
	return session, nil
}

func (d *DiskStorage) Backup() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stamp := time.Now().Format("20060102-150405")
	dst := filepath.Join(d.dataDir, "backup", stamp)
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	src := filepath.Join(d.dataDir, "sessions")
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
		if err := os.WriteFile(filepath.Join(dst, e.Name()), data, 0644); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	logger.Infof("backup written to %s", dst)
	return nil
}
