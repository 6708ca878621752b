package synthchain

import (
	"sync"
	"sync/atomic"
)

type (
	// SystemState is the board-local state: the last matrix snapshot, the
	// board identity and the chain position.
	SystemState struct {
		Inputs       Inputs
		PosID        int // -1 until discovery completes
		LocalBoardID uint8
		WestDetect   bool // a west neighbour is present
		EastDetect   bool // an east neighbour is present
		Knobs        [NumKnobs]Knob
		Joystick     bool
		Menu         Menu
	}

	// Knob is the decoded state of one rotary encoder.
	Knob struct {
		Value         int
		LastIncrement int
		Click         bool
	}

	// Menu names the menu page currently shown by the settings UI. The core
	// only stores it.
	Menu string

	// Store is the shared state of one board: three independently locked
	// aggregates. The locks are not exported. Code that needs more than one
	// aggregate goes through All, which acquires them in the fixed order
	// system, notes, settings, so no other acquisition order can exist.
	// Callbacks must not call back into the Store.
	//
	// The sample interrupt never takes these locks. It reads the voices
	// through their atomic words and the position and metronome through the
	// published atomic copies below.
	Store struct {
		sysMu sync.Mutex
		sys   SystemState

		notesMu sync.Mutex
		notes   NoteTable

		settingsMu sync.Mutex
		settings   Settings

		posID     atomic.Int32
		metronome atomic.Uint32 // speed in the low byte, on flag in bit 8
	}
)

const (
	MenuMain Menu = "Main"
	MenuNone Menu = ""
)

const metronomeOnBit = 1 << 8

// NewStore creates the state of a board with the given identity and initial
// settings. The position is undefined (-1) until discovery sets it.
func NewStore(boardID uint8, settings Settings) *Store {
	s := &Store{}
	s.sys.PosID = -1
	s.sys.LocalBoardID = boardID
	s.sys.Inputs = AllInputsOff
	s.sys.Menu = MenuMain
	s.settings = settings
	s.settings.Clamp()
	s.publishSystem()
	s.publishSettings()
	return s
}

// System runs fn with the system lock held.
func (s *Store) System(fn func(sys *SystemState)) {
	s.sysMu.Lock()
	defer s.sysMu.Unlock()
	fn(&s.sys)
	s.publishSystem()
}

// Notes runs fn with the notes lock held.
func (s *Store) Notes(fn func(notes *NoteTable)) {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()
	fn(&s.notes)
}

// Settings runs fn with the settings lock held and clamps the settings
// before the lock is released.
func (s *Store) Settings(fn func(settings *Settings)) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	fn(&s.settings)
	s.settings.Clamp()
	s.publishSettings()
}

// All runs fn with all three locks held, acquired in the order system,
// notes, settings.
func (s *Store) All(fn func(sys *SystemState, notes *NoteTable, settings *Settings)) {
	s.sysMu.Lock()
	defer s.sysMu.Unlock()
	s.notesMu.Lock()
	defer s.notesMu.Unlock()
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	fn(&s.sys, &s.notes, &s.settings)
	s.settings.Clamp()
	s.publishSystem()
	s.publishSettings()
}

// SettingsSnapshot returns a copy of the settings.
func (s *Store) SettingsSnapshot() Settings {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	return s.settings
}

// SystemSnapshot returns a copy of the system state.
func (s *Store) SystemSnapshot() SystemState {
	s.sysMu.Lock()
	defer s.sysMu.Unlock()
	return s.sys
}

// Voice returns voice i for lock-free reading. Only the atomic methods of
// Voice may be used on it without holding the notes lock.
func (s *Store) Voice(i int) *Voice { return &s.notes.Voices[i] }

// AdvancePressedCounts is the interrupt entry point for the per-voice
// duration counters. It does not take the notes lock.
func (s *Store) AdvancePressedCounts() { s.notes.AdvancePressedCounts() }

// PosID is the published chain position, readable from interrupt context.
func (s *Store) PosID() int { return int(s.posID.Load()) }

// MetronomeState is the published metronome setting, readable from
// interrupt context.
func (s *Store) MetronomeState() (on bool, speed int) {
	m := s.metronome.Load()
	return m&metronomeOnBit != 0, int(m & 0xff)
}

func (s *Store) publishSystem() {
	s.posID.Store(int32(s.sys.PosID))
}

func (s *Store) publishSettings() {
	m := uint32(s.settings.Metronome.Speed) & 0xff
	if s.settings.Metronome.On {
		m |= metronomeOnBit
	}
	s.metronome.Store(m)
}
