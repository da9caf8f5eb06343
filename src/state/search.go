package state

import "evilanalysis/src/base"

// SearchRequest asks the engine manager to analyse one position with one
// engine for one tab. There is at most one request per (Engine, Tab).
type SearchRequest struct {
	Engine  string
	Tab     string
	Puzzle  string
	FEN     string
	Moves   []string
	Options []base.EngineOption
	Go      base.GoMode
}

func (r SearchRequest) SearchKey() string {
	return base.SearchKey(r.FEN, r.Moves)
}

func (r SearchRequest) Result() ResultKey {
	return ResultKey{Engine: r.Engine, Tab: r.Tab, Puzzle: r.Puzzle}
}

func (r SearchRequest) Equal(o SearchRequest) bool {
	return r.Engine == o.Engine && r.Tab == o.Tab && r.Puzzle == o.Puzzle &&
		r.FEN == o.FEN && base.EqualMoves(r.Moves, o.Moves) &&
		r.Go == o.Go && base.EqualOptions(r.Options, o.Options)
}

func (r SearchRequest) clone() SearchRequest {
	if r.Moves != nil {
		r.Moves = append([]string(nil), r.Moves...)
	}
	r.Options = base.CloneOptions(r.Options)
	return r
}
