package chronicle

import (
	"github.com/danielpatrickdp/obschronicle/internal/replay"
	"github.com/danielpatrickdp/obschronicle/internal/resolve"
)

// #region process
// Outcome is a resolved window together with the replay that produced it.
type Outcome struct {
	Window replay.Window
	Replay replay.Result
	Config resolve.Configuration
}

// Process resolves the configuration of doc for the window [begin, final).
// begin and final may be ISO-8601 strings or time.Time values.
func Process(begin, final any, doc *Document) (resolve.Configuration, error) {
	w, err := NewWindow(begin, final)
	if err != nil {
		return resolve.Configuration{}, err
	}
	out, err := Run(w, doc)
	if err != nil {
		return resolve.Configuration{}, err
	}
	return out.Config, nil
}

// Run validates doc, replays it over w and resolves the boundary snapshots.
// Any failure aborts the whole call.
func Run(w replay.Window, doc *Document) (Outcome, error) {
	actions, err := Validate(doc)
	if err != nil {
		return Outcome{}, err
	}
	initial, err := Initial(doc)
	if err != nil {
		return Outcome{}, err
	}
	res, err := replay.Replay(initial, actions, w)
	if err != nil {
		return Outcome{}, err
	}
	cfg, err := resolve.Resolve(res.Begin, res.Final)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Window: w, Replay: res, Config: cfg}, nil
}

// #endregion process
