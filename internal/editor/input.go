package editor

import (
	"log"
	"unicode"
	"unicode/utf8"

	"github.com/example/layerpaint/internal/geom"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"
	"gonum.org/v1/gonum/spatial/r2"
)

// WheelPan is the screen distance panned per unmodified wheel notch.
const WheelPan = 40

// toolKeys maps single-key shortcuts to tools.
var toolKeys = map[key.Code]Tool{
	key.CodeB: ToolBrush,
	key.CodeE: ToolEraser,
	key.CodeV: ToolMove,
	key.CodeC: ToolCrop,
	key.CodeT: ToolText,
	key.CodeR: ToolRectangle,
}

var toolLetters = map[Tool]string{
	ToolBrush:     "B",
	ToolEraser:    "E",
	ToolMove:      "V",
	ToolCrop:      "C",
	ToolText:      "T",
	ToolRectangle: "R",
}

// ToolShortcut returns the key letter that selects t.
func ToolShortcut(t Tool) string { return toolLetters[t] }

func primary(m key.Modifiers) bool {
	return m&(key.ModControl|key.ModMeta) != 0
}

// KeyDown handles a key press and reports whether the editor consumed it.
// An open text prompt takes every key first.
func (s *Session) KeyDown(e key.Event) bool {
	if s.text != nil && s.textKey(e) {
		return true
	}
	switch {
	case primary(e.Modifiers) && e.Code == key.CodeZ:
		var err error
		if e.Modifiers&key.ModShift != 0 {
			err = s.Redo()
		} else {
			err = s.Undo()
		}
		if err != nil {
			log.Printf("session %s: %v", s.id, err)
		}
		return true
	case primary(e.Modifiers) && e.Code == key.CodeY:
		if err := s.Redo(); err != nil {
			log.Printf("session %s: %v", s.id, err)
		}
		return true
	case e.Modifiers != 0 && e.Modifiers != key.ModShift:
		return false
	}
	switch e.Code {
	case key.CodeDeleteForward, key.CodeDeleteBackspace:
		if s.active == nil {
			s.DeleteSelected()
		}
		return true
	case key.CodeLeftSquareBracket:
		s.StepSize(-1)
		return true
	case key.CodeRightSquareBracket:
		s.StepSize(1)
		return true
	case key.CodeSpacebar:
		s.spaceHeld = true
		return true
	case key.CodeEscape:
		if s.tool == ToolCrop {
			s.CancelCrop()
			return true
		}
		return false
	case key.CodeReturnEnter:
		if s.tool == ToolCrop {
			s.ConfirmCrop()
			return true
		}
		return false
	case key.Code0:
		s.FitToView()
		return true
	case key.Code1:
		s.ZoomTo100()
		return true
	}
	if t, ok := toolKeys[e.Code]; ok && s.active == nil {
		s.SetTool(t)
		return true
	}
	return false
}

// KeyUp handles a key release.
func (s *Session) KeyUp(e key.Event) bool {
	if e.Code == key.CodeSpacebar {
		s.spaceHeld = false
		return true
	}
	return false
}

// textKey edits the open text prompt.
func (s *Session) textKey(e key.Event) bool {
	switch e.Code {
	case key.CodeEscape:
		s.CancelText()
		return true
	case key.CodeReturnEnter:
		if _, err := s.ConfirmText(); err != nil {
			log.Printf("session %s: text: %v", s.id, err)
		}
		return true
	case key.CodeDeleteBackspace:
		if _, n := utf8.DecodeLastRuneInString(s.text.Text); n > 0 {
			s.text.Text = s.text.Text[:len(s.text.Text)-n]
		}
		s.changed()
		return true
	case key.CodeDeleteForward:
		// The prompt has no cursor, so there is nothing ahead to delete.
		return true
	}
	if primary(e.Modifiers) {
		return false
	}
	if e.Rune > 0 && unicode.IsPrint(e.Rune) {
		s.text.Text += string(e.Rune)
		s.changed()
		return true
	}
	return false
}

// BeginText opens a text prompt at the canvas point c. An open prompt moves
// and keeps its text.
func (s *Session) BeginText(c r2.Vec) {
	if s.text != nil {
		s.text.Pos = c
	} else {
		s.text = &TextPlacement{Pos: c}
	}
	s.changed()
}

// TypeText appends str to the open prompt.
func (s *Session) TypeText(str string) {
	if s.text == nil {
		return
	}
	s.text.Text += str
	s.changed()
}

// ConfirmText turns the open prompt into a text layer. An empty prompt just
// closes.
func (s *Session) ConfirmText() (bool, error) {
	tp := s.text
	if tp == nil {
		return false, nil
	}
	s.text = nil
	if tp.Text == "" {
		s.changed()
		return false, nil
	}
	if _, err := s.AddTextLayer(tp.Text, tp.Pos); err != nil {
		return false, err
	}
	return true, nil
}

// CancelText closes the open prompt without adding a layer.
func (s *Session) CancelText() {
	if s.text == nil {
		return
	}
	s.text = nil
	s.changed()
}

// Wheel handles a scroll of delta notches at the client point p. The
// primary modifier zooms about p, Alt steps the active tool size and an
// unmodified wheel pans.
func (s *Session) Wheel(p r2.Vec, delta r2.Vec, mods key.Modifiers) {
	switch {
	case primary(mods):
		s.view.Wheel(s.container(p), delta.Y)
	case mods&key.ModAlt != 0:
		switch {
		case delta.Y < 0:
			s.StepSize(1)
		case delta.Y > 0:
			s.StepSize(-1)
		}
		return
	default:
		s.view.Pan(r2.Scale(-WheelPan, delta))
	}
	s.changed()
}

// TouchStart reports the fingers currently down. A second finger ends any
// single-pointer gesture and starts a pinch.
func (s *Session) TouchStart(points []r2.Vec) {
	s.touches = append(s.touches[:0], points...)
	switch {
	case len(points) >= 2:
		if s.active != nil && s.active.Kind() != KindPinch {
			s.finish(s.active)
		}
		a, b := s.container(points[0]), s.container(points[1])
		s.view.BeginPinch(a, b)
		s.active = &pinchGesture{}
	case len(points) == 1:
		s.PointerDown(points[0], mouse.ButtonLeft)
	}
}

// TouchMove updates the fingers currently down.
func (s *Session) TouchMove(points []r2.Vec) {
	s.touches = append(s.touches[:0], points...)
	switch s.active.(type) {
	case *pinchGesture:
		if len(points) >= 2 {
			s.view.UpdatePinch(s.container(points[0]), s.container(points[1]))
			s.changed()
		}
	case nil:
	default:
		if len(points) == 1 {
			s.PointerMove(points[0])
		}
	}
}

// TouchEnd reports the fingers still down after a release. The gesture ends
// when no finger remains; a pinch ends as soon as fewer than two remain.
func (s *Session) TouchEnd(remaining []r2.Vec) {
	last := s.touches
	s.touches = append([]r2.Vec(nil), remaining...)
	switch s.active.(type) {
	case *pinchGesture:
		if len(remaining) < 2 {
			s.view.EndPinch()
			s.finish(s.active)
		}
	case nil:
	default:
		if len(remaining) == 0 && len(last) > 0 {
			s.PointerUp(last[0])
		}
	}
}

// Pinching reports whether a two-finger pinch is active.
func (s *Session) Pinching() bool {
	return s.active != nil && s.active.Kind() == KindPinch
}

// ScreenCropBox returns the crop box in container coordinates.
func (s *Session) ScreenCropBox() geom.Rect {
	return s.view.CanvasRectToScreen(s.crop)
}
