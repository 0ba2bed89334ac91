// Copyright 2025 Certen Protocol
//
// The wagered-chess application extension: the reference implementation of
// the engine's extension capability-set (spec.md sec. 4.5, sec. 9). Games
// are proposed, started with an escrowed wager, played move-by-move via
// SAN, and resolved by checkmate, stalemate, or resignation.
//
// This package never imports pkg/execution; it implements
// execution.Extension and state.ExtensionData/ExtensionJSONCodec purely
// structurally, exactly the capability-set wiring spec.md sec. 9 calls
// for -- grounded on the teacher's function-table style of wiring
// external capabilities (pkg/execution/proof_generator_adapter.go) rather
// than struct embedding.

package chess

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/certen/chess-rollup/pkg/codec"
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

var (
	// ErrNotAParticipant is returned when a game-affecting transaction is
	// signed by an address that is neither side of the game.
	ErrNotAParticipant = errors.New("chess: signer is not white or black in this game")

	// ErrAppStateNotInitialized guards against a misconfigured State whose
	// App slot was never set to chess.Default().
	ErrAppStateNotInitialized = errors.New("chess: application state not initialized")

	// ErrStartByProposer is returned when StartGame is signed by the same
	// address that called ProposeGame: only the counter-party may accept.
	ErrStartByProposer = errors.New("chess: proposer cannot start their own pending game")
)

// chessTxKind is the sub-discriminant for the four extension-transaction
// variants, encoded as the first byte of ExtensionEncode's output.
type chessTxKind byte

const (
	kindProposeGame chessTxKind = iota
	kindStartGame
	kindMove
	kindResign
)

// ProposeGame creates a PendingGame between white and black for the given
// wager. pub_key must be white or black (spec.md sec. 4.5).
type ProposeGame struct {
	White types.Address
	Black types.Address
	Wager types.Amount
}

// StartGame is the counterparty's acceptance of a pending game.
type StartGame struct {
	GameID uint64
}

// Move plays one ply, san parsed relative to the game's current board.
type Move struct {
	GameID uint64
	SAN    string
}

// Resign concedes an active game to the opponent.
type Resign struct {
	GameID uint64
}

func (t ProposeGame) ExtensionEncode(e *codec.Encoder) {
	e.PutTag(byte(kindProposeGame))
	e.PutAddress(t.White)
	e.PutAddress(t.Black)
	e.PutUint256(t.Wager)
}

func (t StartGame) ExtensionEncode(e *codec.Encoder) {
	e.PutTag(byte(kindStartGame))
	e.PutUint64(t.GameID)
}

func (t Move) ExtensionEncode(e *codec.Encoder) {
	e.PutTag(byte(kindMove))
	e.PutUint64(t.GameID)
	e.PutString(t.SAN)
}

func (t Resign) ExtensionEncode(e *codec.Encoder) {
	e.PutTag(byte(kindResign))
	e.PutUint64(t.GameID)
}

// GameStatus marks the lifecycle of a started game. Terminal games remain
// in state for auditability (spec.md sec. 4.5).
type GameStatus byte

const (
	StatusActive GameStatus = iota
	StatusCheckmate
	StatusStalemate
	StatusResigned
)

func (s GameStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCheckmate:
		return "checkmate"
	case StatusStalemate:
		return "stalemate"
	case StatusResigned:
		return "resigned"
	default:
		return "unknown"
	}
}

// PendingGame awaits the counterparty's StartGame. ProposedBy records
// which side called ProposeGame, so StartGame can reject the proposer
// starting their own game (spec.md sec. 4.5 "one-sided acceptance").
type PendingGame struct {
	ID         uint64        `json:"id"`
	White      types.Address `json:"white"`
	Black      types.Address `json:"black"`
	Wager      types.Amount  `json:"wager"`
	ProposedBy types.Address `json:"proposed_by"`
}

// Game is a started (possibly terminal) chess game with its escrow and
// live board.
type Game struct {
	ID     uint64         `json:"id"`
	White  types.Address  `json:"white"`
	Black  types.Address  `json:"black"`
	Wager  types.Amount   `json:"wager"`
	Escrow types.Amount   `json:"escrow"`
	Board  *Board         `json:"board"`
	Turns  uint64         `json:"turns"`
	Status GameStatus     `json:"status"`
	Winner *types.Address `json:"winner,omitempty"`
}

// State is the chess application's extension state: every pending and
// started game, plus the monotone game-id counter.
type State struct {
	Pending    map[uint64]*PendingGame `json:"pending_games"`
	Games      map[uint64]*Game        `json:"games"`
	NextGameID uint64                  `json:"next_game_id"`
}

// Extension implements execution.Extension for wagered chess.
type Extension struct{}

// Default returns a freshly-initialized chess State.
func (Extension) Default() state.ExtensionState {
	return &State{
		Pending: make(map[uint64]*PendingGame),
		Games:   make(map[uint64]*Game),
	}
}

// Execute dispatches appTx, authored by pubKey, against the chess
// extension slot of st.
func (Extension) Execute(st *state.State, pubKey types.Address, appTx state.ExtensionData) error {
	cs, ok := st.App.(*State)
	if !ok || cs == nil {
		return types.Fail(types.InvariantViolated, ErrAppStateNotInitialized)
	}
	switch tx := appTx.(type) {
	case ProposeGame:
		return cs.proposeGame(pubKey, tx)
	case StartGame:
		return cs.startGame(st, pubKey, tx)
	case Move:
		return cs.move(st, pubKey, tx)
	case Resign:
		return cs.resign(st, pubKey, tx)
	default:
		return types.Failf(types.DecodingError, "chess: unknown extension transaction %T", appTx)
	}
}

func (cs *State) proposeGame(pubKey types.Address, tx ProposeGame) error {
	if pubKey != tx.White && pubKey != tx.Black {
		return types.Fail(types.AuthorizationFailed, ErrNotAParticipant)
	}
	id := cs.NextGameID
	cs.NextGameID++
	cs.Pending[id] = &PendingGame{ID: id, White: tx.White, Black: tx.Black, Wager: tx.Wager, ProposedBy: pubKey}
	return nil
}

func (cs *State) startGame(st *state.State, pubKey types.Address, tx StartGame) error {
	pg, ok := cs.Pending[tx.GameID]
	if !ok {
		return types.Failf(types.UnknownGame, "chess: no pending game %d", tx.GameID)
	}
	if pubKey != pg.White && pubKey != pg.Black {
		return types.Fail(types.AuthorizationFailed, ErrNotAParticipant)
	}
	if pubKey == pg.ProposedBy {
		return types.Fail(types.AuthorizationFailed, ErrStartByProposer)
	}

	whiteBal := st.BalanceOf(pg.White)
	if !whiteBal.GreaterOrEqual(pg.Wager) {
		return types.Failf(types.InsufficientFunds, "chess: white balance %s below wager %s", whiteBal, pg.Wager)
	}
	blackBal := st.BalanceOf(pg.Black)
	if !blackBal.GreaterOrEqual(pg.Wager) {
		return types.Failf(types.InsufficientFunds, "chess: black balance %s below wager %s", blackBal, pg.Wager)
	}

	newWhiteBal, err := whiteBal.Sub(pg.Wager)
	if err != nil {
		return types.Fail(types.InsufficientFunds, err)
	}
	newBlackBal, err := blackBal.Sub(pg.Wager)
	if err != nil {
		return types.Fail(types.InsufficientFunds, err)
	}
	escrow, err := pg.Wager.Add(pg.Wager)
	if err != nil {
		return types.Fail(types.InvariantViolated, err)
	}

	st.Balances[pg.White] = newWhiteBal
	st.Balances[pg.Black] = newBlackBal
	delete(cs.Pending, tx.GameID)
	cs.Games[tx.GameID] = &Game{
		ID:     tx.GameID,
		White:  pg.White,
		Black:  pg.Black,
		Wager:  pg.Wager,
		Escrow: escrow,
		Board:  NewBoard(),
		Status: StatusActive,
	}
	return nil
}

func (cs *State) move(st *state.State, pubKey types.Address, tx Move) error {
	g, ok := cs.Games[tx.GameID]
	if !ok {
		return types.Failf(types.UnknownGame, "chess: no game %d", tx.GameID)
	}
	if g.Status != StatusActive {
		return types.Failf(types.UnknownGame, "chess: game %d is not active", tx.GameID)
	}

	mover := g.White
	if g.Turns%2 != 0 {
		mover = g.Black
	}
	if pubKey != mover {
		return types.Failf(types.NotYourTurn, "chess: game %d, turn belongs to %s", tx.GameID, mover)
	}

	m, err := g.Board.ParseSAN(tx.SAN)
	if err != nil {
		return types.Fail(types.InvalidMove, err)
	}
	g.Board.Apply(m)
	g.Turns++

	switch g.Board.GameStatus() {
	case Checkmate:
		g.Status = StatusCheckmate
		g.Winner = &mover
		newBal, err := st.BalanceOf(mover).Add(g.Escrow)
		if err != nil {
			return types.Fail(types.InvariantViolated, err)
		}
		st.Balances[mover] = newBal
	case Stalemate:
		g.Status = StatusStalemate
		newWhiteBal, err := st.BalanceOf(g.White).Add(g.Wager)
		if err != nil {
			return types.Fail(types.InvariantViolated, err)
		}
		newBlackBal, err := st.BalanceOf(g.Black).Add(g.Wager)
		if err != nil {
			return types.Fail(types.InvariantViolated, err)
		}
		st.Balances[g.White] = newWhiteBal
		st.Balances[g.Black] = newBlackBal
	}
	return nil
}

func (cs *State) resign(st *state.State, pubKey types.Address, tx Resign) error {
	g, ok := cs.Games[tx.GameID]
	if !ok {
		return types.Failf(types.UnknownGame, "chess: no game %d", tx.GameID)
	}
	if g.Status != StatusActive {
		return types.Failf(types.UnknownGame, "chess: game %d is not active", tx.GameID)
	}
	if pubKey != g.White && pubKey != g.Black {
		return types.Fail(types.AuthorizationFailed, ErrNotAParticipant)
	}

	opponent := g.Black
	if pubKey == g.Black {
		opponent = g.White
	}
	newBal, err := st.BalanceOf(opponent).Add(g.Escrow)
	if err != nil {
		return types.Fail(types.InvariantViolated, err)
	}
	st.Balances[opponent] = newBal
	g.Status = StatusResigned
	g.Winner = &opponent
	return nil
}

// --- JSON wiring for the generic TxExtension envelope ---

type chessTxJSON struct {
	Type   string         `json:"type"`
	White  *types.Address `json:"white,omitempty"`
	Black  *types.Address `json:"black,omitempty"`
	Wager  *types.Amount  `json:"wager,omitempty"`
	GameID *uint64        `json:"game_id,omitempty"`
	SAN    string         `json:"san,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) MarshalExtension(d state.ExtensionData) (json.RawMessage, error) {
	var out chessTxJSON
	switch tx := d.(type) {
	case ProposeGame:
		out = chessTxJSON{Type: "propose_game", White: &tx.White, Black: &tx.Black, Wager: &tx.Wager}
	case StartGame:
		id := tx.GameID
		out = chessTxJSON{Type: "start_game", GameID: &id}
	case Move:
		id := tx.GameID
		out = chessTxJSON{Type: "move", GameID: &id, SAN: tx.SAN}
	case Resign:
		id := tx.GameID
		out = chessTxJSON{Type: "resign", GameID: &id}
	default:
		return nil, fmt.Errorf("chess: unknown extension transaction %T", d)
	}
	return json.Marshal(out)
}

func (jsonCodec) UnmarshalExtension(raw json.RawMessage) (state.ExtensionData, error) {
	var in chessTxJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	switch in.Type {
	case "propose_game":
		if in.White == nil || in.Black == nil || in.Wager == nil {
			return nil, fmt.Errorf("chess: propose_game requires white, black, wager")
		}
		return ProposeGame{White: *in.White, Black: *in.Black, Wager: *in.Wager}, nil
	case "start_game":
		if in.GameID == nil {
			return nil, fmt.Errorf("chess: start_game requires game_id")
		}
		return StartGame{GameID: *in.GameID}, nil
	case "move":
		if in.GameID == nil {
			return nil, fmt.Errorf("chess: move requires game_id")
		}
		return Move{GameID: *in.GameID, SAN: in.SAN}, nil
	case "resign":
		if in.GameID == nil {
			return nil, fmt.Errorf("chess: resign requires game_id")
		}
		return Resign{GameID: *in.GameID}, nil
	default:
		return nil, fmt.Errorf("chess: unknown extension transaction type %q", in.Type)
	}
}

func init() {
	state.RegisterExtensionCodec(jsonCodec{})
}
