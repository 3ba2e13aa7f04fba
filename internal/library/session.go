package library

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/obschronicle/internal/chronicle"
	"github.com/danielpatrickdp/obschronicle/internal/replay"
	"github.com/danielpatrickdp/obschronicle/internal/timestamp"
)

// #region session
// Session binds a Library to one window, the way a single assimilation cycle
// queries every observer for the same [begin, begin+length).
type Session struct {
	lib    *Library
	window replay.Window
}

// NewSession builds the window from begin (ISO-8601) and an ISO-8601
// duration such as "PT6H".
func NewSession(lib *Library, begin, length string) (*Session, error) {
	b, err := timestamp.FromConf(begin)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", chronicle.ErrInvalidWindow, err)
	}
	d, err := timestamp.ParseDuration(length)
	if err != nil {
		return nil, fmt.Errorf("%w: length: %w", chronicle.ErrInvalidWindow, err)
	}
	w, err := replay.NewWindow(b, b.Add(d))
	if err != nil {
		return nil, err
	}
	return &Session{lib: lib, window: w}, nil
}

// Window returns the session window.
func (s *Session) Window() replay.Window { return s.window }

// UseObserver reports whether observer contributes data to the session window.
func (s *Session) UseObserver(observer string) (bool, error) {
	return s.lib.UseObserver(observer, s.window)
}

// SimulatedChannels returns the ascending simulated channels of observer.
func (s *Session) SimulatedChannels(observer string) ([]int, error) {
	out, err := s.lib.Resolve(observer, s.window)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), out.Config.Simulated...), nil
}

// ActiveChannels returns the +1/-1 flags aligned with SimulatedChannels.
func (s *Session) ActiveChannels(observer string) ([]int, error) {
	out, err := s.lib.Resolve(observer, s.window)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), out.Config.Active...), nil
}

// Variables returns every channel-dependent variable of observer, each
// aligned with SimulatedChannels.
func (s *Session) Variables(observer string) (map[string][]float64, error) {
	out, err := s.lib.Resolve(observer, s.window)
	if err != nil {
		return nil, err
	}
	vars := make(map[string][]float64, len(out.Config.Variables))
	for name, v := range out.Config.Variables {
		vars[name] = append([]float64(nil), v...)
	}
	return vars, nil
}

// VariableNames lists the variables of observer in ascending order.
func (s *Session) VariableNames(observer string) ([]string, error) {
	vars, err := s.Variables(observer)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// #endregion session
