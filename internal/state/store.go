package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	internalstrings "github.com/amonks/tkt/internal/strings"
)

// ErrTicketNotFound indicates the state has no entry for a ticket.
var ErrTicketNotFound = errors.New("ticket not found")

// Store manages the state file with locking.
type Store struct {
	dir string
}

// NewStore creates a new state store using the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the state directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) statePath() string {
	return filepath.Join(s.dir, "state.json")
}

func (s *Store) lockPath() string {
	return filepath.Join(s.dir, "state.lock")
}

func (s *Store) ticketLockPath(ticket string) string {
	return filepath.Join(s.dir, "locks", internalstrings.Identifier(ticket)+".lock")
}

// Load reads the state from disk. Returns an empty state if the file doesn't exist.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.statePath())
	if os.IsNotExist(err) {
		return &State{Tickets: make(map[string]TicketInfo)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	if st.Tickets == nil {
		st.Tickets = make(map[string]TicketInfo)
	}
	return &st, nil
}

// Save writes the state to disk.
func (s *Store) Save(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if existing, err := os.ReadFile(s.statePath()); err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read state file: %w", err)
	}

	if err := WriteFileAtomic(s.statePath(), data); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Update atomically reads, modifies, and writes the state with file locking.
func (s *Store) Update(fn func(st *State) error) error {
	unlock, err := lockFile(s.lockPath())
	if err != nil {
		return err
	}
	defer unlock()

	st, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return s.Save(st)
}

// LockTicket takes the exclusive per-ticket lock, blocking until it is free.
// The returned function releases it.
func (s *Store) LockTicket(ticket string) (func(), error) {
	return lockFile(s.ticketLockPath(ticket))
}

// PutTicket records info, keeping the original creation time.
func (s *Store) PutTicket(info TicketInfo) error {
	return s.Update(func(st *State) error {
		if existing, ok := st.Tickets[info.Ticket]; ok && !existing.CreatedAt.IsZero() {
			info.CreatedAt = existing.CreatedAt
		}
		if info.CreatedAt.IsZero() {
			info.CreatedAt = info.UpdatedAt
		}
		st.Tickets[info.Ticket] = info
		return nil
	})
}

// Ticket returns the recorded info for ticket.
func (s *Store) Ticket(ticket string) (TicketInfo, error) {
	st, err := s.Load()
	if err != nil {
		return TicketInfo{}, err
	}
	info, ok := st.Tickets[ticket]
	if !ok {
		return TicketInfo{}, fmt.Errorf("%w: %s", ErrTicketNotFound, ticket)
	}
	return info, nil
}

// Tickets returns every recorded ticket sorted by ticket name.
func (s *Store) Tickets() ([]TicketInfo, error) {
	st, err := s.Load()
	if err != nil {
		return nil, err
	}
	items := make([]TicketInfo, 0, len(st.Tickets))
	for _, info := range st.Tickets {
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Ticket < items[j].Ticket
	})
	return items, nil
}

// TicketForPath returns the ticket whose workspace root is path.
func (s *Store) TicketForPath(path string) (TicketInfo, bool, error) {
	st, err := s.Load()
	if err != nil {
		return TicketInfo{}, false, err
	}
	path = filepath.Clean(path)
	for _, info := range st.Tickets {
		if filepath.Clean(info.Path) == path {
			return info, true, nil
		}
	}
	return TicketInfo{}, false, nil
}

func lockFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		file.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return func() {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
	}, nil
}

// WriteFileAtomic writes data to a temp file beside path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(data)
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
