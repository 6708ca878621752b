// Package status renders a board's state as text for a display or terminal.
package status

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/luguan/synthchain"
)

type (
	// Snapshot is a consistent copy of the state shown on the display.
	Snapshot struct {
		System   synthchain.SystemState
		Settings synthchain.Settings
		Keys     []string // names of the locally pressed keys
		Voices   int      // active voices, including keys played on other boards
	}

	Renderer struct {
		tmpl *template.Template
	}
)

// DefaultTemplate shows the page, the main settings and the pressed keys.
const DefaultTemplate = `board {{.System.LocalBoardID}} pos {{.System.PosID}} [{{default "Main" (toString .System.Menu)}}]
vol {{.Settings.Volume}} {{repeat .Settings.Volume "#"}}
tune {{.Settings.Tune}} wave {{.Settings.Wave}}
fx{{if .Settings.Reverb.On}} rev:{{.Settings.Reverb.Strength}}{{end}}{{if .Settings.Distortion.On}} dist:{{.Settings.Distortion.Strength}}{{end}}{{if .Settings.Chorus.On}} chorus:{{.Settings.Chorus.Strength}}{{end}}{{if .Settings.Metronome.On}} met:{{.Settings.Metronome.Speed}}{{end}}
keys {{if .Keys}}{{join " " .Keys}}{{else}}-{{end}} voices {{.Voices}}
`

// New parses text with the sprig functions available.
func New(text string) (*Renderer, error) {
	tmpl, err := template.New("status").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("could not parse status template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Default returns a renderer for DefaultTemplate.
func Default() *Renderer {
	r, err := New(DefaultTemplate)
	if err != nil {
		panic(err)
	}
	return r
}

// Take copies the displayed state out of store.
func Take(store *synthchain.Store) Snapshot {
	s := Snapshot{
		System:   store.SystemSnapshot(),
		Settings: store.SettingsSnapshot(),
	}
	for _, k := range s.System.Inputs.PressedKeys() {
		s.Keys = append(s.Keys, synthchain.NoteName(k))
	}
	store.Notes(func(n *synthchain.NoteTable) { s.Voices = n.ActiveCount() })
	return s
}

func (r *Renderer) Render(w io.Writer, s Snapshot) error {
	if err := r.tmpl.Execute(w, s); err != nil {
		return fmt.Errorf("could not render status: %w", err)
	}
	return nil
}
