package registration

import "sync"

// Store holds the known registrations of the running app and the one currently open, if any.
// Readers never observe a partially applied update.
type Store struct {
	mu     sync.RWMutex
	regs   []Registration // insertion order
	openID string
	loaded map[string]bool // semesters loaded from the Remote
}

func NewStore() *Store {
	return &Store{loaded: make(map[string]bool)}
}

// CurrentOpen returns a copy of the open registration.
func (s *Store) CurrentOpen() (Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.openID == "" {
		return Registration{}, false
	}
	if i := s.indexOf(s.openID); i >= 0 {
		return s.regs[i].Clone(), true
	}
	return Registration{}, false
}

// Replace inserts reg or overwrites the registration sharing its ID.
// reg becomes the open registration when it is opening, and the open slot is cleared when it held reg.
func (s *Store) Replace(reg Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(reg.Clone())
}

func (s *Store) replace(reg Registration) {
	if i := s.indexOf(reg.ID); i >= 0 {
		s.regs[i] = reg
	} else {
		s.regs = append(s.regs, reg)
	}

	switch {
	case reg.IsOpening:
		s.openID = reg.ID
	case s.openID == reg.ID:
		s.openID = ""
	}
}

// Load replaces the registrations of semesterID with regs.
func (s *Store) Load(semesterID string, regs []Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.regs[:0:0]
	for _, reg := range s.regs {
		if reg.SemesterID != semesterID {
			kept = append(kept, reg)
		}
	}
	s.regs = kept
	if s.indexOf(s.openID) < 0 {
		s.openID = ""
	}
	for _, reg := range regs {
		s.replace(reg.Clone())
	}
	if s.loaded == nil {
		s.loaded = make(map[string]bool)
	}
	s.loaded[semesterID] = true
}

// Loaded reports whether the registrations of semesterID were loaded.
func (s *Store) Loaded(semesterID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[semesterID]
}

// All returns a copy of every known registration, in insertion order.
func (s *Store) All() []Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regs := make([]Registration, 0, len(s.regs))
	for _, reg := range s.regs {
		regs = append(regs, reg.Clone())
	}
	return regs
}

func (s *Store) Get(id string) (Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.regs[i].Clone(), true
	}
	return Registration{}, false
}

// CountForSemester returns the number of registrations known for semesterID.
func (s *Store) CountForSemester(semesterID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, reg := range s.regs {
		if reg.SemesterID == semesterID {
			count++
		}
	}
	return count
}

// OpenInSemester reports whether semesterID has an opening registration.
func (s *Store) OpenInSemester(semesterID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, reg := range s.regs {
		if reg.SemesterID == semesterID && reg.IsOpening {
			return true
		}
	}
	return false
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, reg := range s.regs {
		if reg.ID == id {
			return i
		}
	}
	return -1
}
