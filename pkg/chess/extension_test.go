package chess

import (
	"testing"

	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func newTestState(balances map[types.Address]int64) *state.State {
	ext := Extension{}
	st := state.New(ext.Default())
	for a, v := range balances {
		st.Balances[a] = types.NewAmount(v)
	}
	return st
}

func TestWagerFlowCheckmateCreditsWinner(t *testing.T) {
	white, black := addr(1), addr(2)
	st := newTestState(map[types.Address]int64{white: 100, black: 100})
	ext := Extension{}

	if err := ext.Execute(st, white, ProposeGame{White: white, Black: black, Wager: types.NewAmount(30)}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := ext.Execute(st, black, StartGame{GameID: 0}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := st.BalanceOf(white); got.Cmp(types.NewAmount(70)) != 0 {
		t.Fatalf("white balance after start = %s, want 70", got)
	}
	if got := st.BalanceOf(black); got.Cmp(types.NewAmount(70)) != 0 {
		t.Fatalf("black balance after start = %s, want 70", got)
	}

	moves := []string{"f3", "e5", "g4", "Qh4"}
	for i, san := range moves {
		mover := white
		if i%2 != 0 {
			mover = black
		}
		if err := ext.Execute(st, mover, Move{GameID: 0, SAN: san}); err != nil {
			t.Fatalf("move %q: %v", san, err)
		}
	}

	g := st.App.(*State).Games[0]
	if g.Status != StatusCheckmate {
		t.Fatalf("expected checkmate status, got %v", g.Status)
	}
	if g.Winner == nil || *g.Winner != black {
		t.Fatalf("expected black to be credited the win (delivered Qh4#)")
	}
	if got := st.BalanceOf(black); got.Cmp(types.NewAmount(130)) != 0 {
		t.Fatalf("black balance after mate = %s, want 130 (70 + 60 escrow)", got)
	}
	if got := st.BalanceOf(white); got.Cmp(types.NewAmount(70)) != 0 {
		t.Fatalf("white balance after mate = %s, want 70", got)
	}
}

func TestStartGameInsufficientFunds(t *testing.T) {
	white, black := addr(1), addr(2)
	st := newTestState(map[types.Address]int64{white: 10, black: 100})
	ext := Extension{}

	if err := ext.Execute(st, white, ProposeGame{White: white, Black: black, Wager: types.NewAmount(30)}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	err := ext.Execute(st, black, StartGame{GameID: 0})
	if err == nil {
		t.Fatalf("expected insufficient funds error")
	}
	if kind, ok := types.KindOf(err); !ok || kind != types.InsufficientFunds {
		t.Fatalf("expected InsufficientFunds kind, got %v", err)
	}
}

func TestProposeGameRejectsNonParticipant(t *testing.T) {
	white, black, stranger := addr(1), addr(2), addr(3)
	st := newTestState(map[types.Address]int64{white: 100, black: 100})
	ext := Extension{}
	err := ext.Execute(st, stranger, ProposeGame{White: white, Black: black, Wager: types.NewAmount(10)})
	if err == nil {
		t.Fatalf("expected authorization error")
	}
	if kind, ok := types.KindOf(err); !ok || kind != types.AuthorizationFailed {
		t.Fatalf("expected AuthorizationFailed kind, got %v", err)
	}
}

func TestStartGameRejectsProposer(t *testing.T) {
	white, black := addr(1), addr(2)
	st := newTestState(map[types.Address]int64{white: 100, black: 100})
	ext := Extension{}
	if err := ext.Execute(st, white, ProposeGame{White: white, Black: black, Wager: types.NewAmount(10)}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	err := ext.Execute(st, white, StartGame{GameID: 0})
	if err == nil {
		t.Fatalf("expected authorization error when proposer starts their own game")
	}
	if kind, ok := types.KindOf(err); !ok || kind != types.AuthorizationFailed {
		t.Fatalf("expected AuthorizationFailed kind, got %v", err)
	}
	if _, ok := st.App.(*State).Games[0]; ok {
		t.Fatalf("game must not start when proposer calls StartGame")
	}
}

func TestMoveOutOfTurnRejected(t *testing.T) {
	white, black := addr(1), addr(2)
	st := newTestState(map[types.Address]int64{white: 100, black: 100})
	ext := Extension{}
	if err := ext.Execute(st, white, ProposeGame{White: white, Black: black, Wager: types.NewAmount(10)}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := ext.Execute(st, black, StartGame{GameID: 0}); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := ext.Execute(st, black, Move{GameID: 0, SAN: "e5"})
	if err == nil {
		t.Fatalf("expected not-your-turn error")
	}
	if kind, ok := types.KindOf(err); !ok || kind != types.NotYourTurn {
		t.Fatalf("expected NotYourTurn kind, got %v", err)
	}
}

func TestResignCreditsOpponent(t *testing.T) {
	white, black := addr(1), addr(2)
	st := newTestState(map[types.Address]int64{white: 100, black: 100})
	ext := Extension{}
	if err := ext.Execute(st, white, ProposeGame{White: white, Black: black, Wager: types.NewAmount(20)}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := ext.Execute(st, black, StartGame{GameID: 0}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := ext.Execute(st, white, Resign{GameID: 0}); err != nil {
		t.Fatalf("resign: %v", err)
	}
	if got := st.BalanceOf(black); got.Cmp(types.NewAmount(120)) != 0 {
		t.Fatalf("black balance after white resigns = %s, want 120", got)
	}
	g := st.App.(*State).Games[0]
	if g.Status != StatusResigned || g.Winner == nil || *g.Winner != black {
		t.Fatalf("expected resigned status crediting black, got %+v", g)
	}
}

func TestIllegalMoveLeavesStateUnchanged(t *testing.T) {
	white, black := addr(1), addr(2)
	st := newTestState(map[types.Address]int64{white: 100, black: 100})
	ext := Extension{}
	if err := ext.Execute(st, white, ProposeGame{White: white, Black: black, Wager: types.NewAmount(10)}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := ext.Execute(st, black, StartGame{GameID: 0}); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := ext.Execute(st, white, Move{GameID: 0, SAN: "e5"})
	if err == nil {
		t.Fatalf("expected invalid move error")
	}
	if kind, ok := types.KindOf(err); !ok || kind != types.InvalidMove {
		t.Fatalf("expected InvalidMove kind, got %v", err)
	}
	g := st.App.(*State).Games[0]
	if g.Turns != 0 {
		t.Fatalf("expected turns unchanged after illegal move, got %d", g.Turns)
	}
}
