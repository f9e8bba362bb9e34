package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"linked-go/internal/game"
	"linked-go/internal/matchsync"
)

const help = `commands:
  show                   board, rack and scores
  place <cell> <slot>    draft the rack letter in slot onto cell
  move <from> <to>       move a drafted letter
  return <cell>          put a drafted letter back on the rack
  submit                 submit the draft
  hint                   show cells the rack letters fit
  refresh                poll now
  quit`

type shell struct {
	client *matchsync.Client
	out    io.Writer
}

// exec runs one command line and reports whether the session should end.
func (s *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch cmd, args := fields[0], fields[1:]; cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(s.out, help)
	case "show":
		render(s.out, s.client.View(), s.client.Draft(), s.client.PlayerID())
	case "place":
		err = s.place(args)
	case "move":
		var from, to int
		if from, to, err = twoInts(args); err == nil {
			err = s.client.MoveDraft(from, to)
		}
	case "return":
		var cell int
		if cell, err = oneInt(args); err == nil {
			err = s.client.ReturnToRack(cell)
		}
	case "submit":
		err = s.submit(ctx)
	case "hint":
		var hint *game.HintResult
		if hint, err = s.client.RequestHint(ctx); err == nil {
			fmt.Fprintf(s.out, "fits: %v (%d hints left)\n", hint.ValidCells, hint.HintsRemaining)
		}
	case "refresh":
		if err = s.client.Refresh(ctx); err == nil {
			render(s.out, s.client.View(), s.client.Draft(), s.client.PlayerID())
		}
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}

	if err != nil {
		fmt.Fprintln(s.out, "error:", describe(err))
	}
	return false
}

func (s *shell) place(args []string) error {
	cell, slot, err := twoInts(args)
	if err != nil {
		return err
	}
	rack := s.client.View().Rack
	if slot < 0 || slot >= len(rack) {
		return matchsync.ErrRackSlotInvalid
	}
	return s.client.Place(cell, rack[slot], slot)
}

func (s *shell) submit(ctx context.Context) error {
	result, err := s.client.Submit(ctx)
	if err != nil {
		return err
	}
	correct := 0
	for _, r := range result.Cells {
		if r.Correct {
			correct++
		}
	}
	fmt.Fprintf(s.out, "%d of %d correct, score %d\n", correct, len(result.Cells), result.NewScore)
	for _, w := range result.CompletedWords {
		fmt.Fprintf(s.out, "completed %s (+%d)\n", w.Word, w.Bonus)
	}
	if result.GameComplete {
		if result.WinnerID == "" {
			fmt.Fprintln(s.out, "match over: draw")
		} else {
			fmt.Fprintf(s.out, "match over: %s wins\n", result.WinnerID)
		}
	}
	return nil
}

func describe(err error) string {
	var cooldown *game.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return "next match opens at " + cooldown.RetryAt.Local().Format("Mon 15:04")
	case errors.Is(err, game.ErrTurnConflict):
		return "the board moved on; draft cleared"
	case errors.Is(err, game.ErrNoHintsRemaining):
		return "no hints left"
	case errors.Is(err, matchsync.ErrRackEmpty):
		return "every rack letter is already placed"
	default:
		return err.Error()
	}
}

func render(w io.Writer, m *game.Match, draft []game.Placement, playerID string) {
	if m == nil {
		fmt.Fprintln(w, "no match")
		return
	}

	turn := "partner's turn"
	if m.CurrentTurnUserID == playerID {
		turn = "your turn"
	}
	if m.Status == game.MatchStatusCompleted {
		turn = "completed"
	}
	fmt.Fprintf(w, "match %s  puzzle %s  turn %d  %s\n", m.ID, m.PuzzleID, m.TurnNumber, turn)

	players := append([]string(nil), m.Players...)
	sort.Strings(players)
	for _, p := range players {
		fmt.Fprintf(w, "  %-12s %4d\n", p, m.Scores[p])
	}

	cells := make([]int, 0, len(m.Board))
	for c := range m.Board {
		cells = append(cells, c)
	}
	sort.Ints(cells)
	locked := make([]string, 0, len(cells))
	for _, c := range cells {
		locked = append(locked, fmt.Sprintf("%d:%s", c, m.Board[c]))
	}
	fmt.Fprintf(w, "locked: %s\n", strings.Join(locked, " "))

	if len(draft) > 0 {
		drafted := make([]string, 0, len(draft))
		for _, p := range draft {
			drafted = append(drafted, fmt.Sprintf("%d:%s", p.CellIndex, p.Letter))
		}
		fmt.Fprintf(w, "draft:  %s\n", strings.Join(drafted, " "))
	}

	if len(m.Rack) > 0 {
		slots := make([]string, 0, len(m.Rack))
		for i, l := range m.Rack {
			slots = append(slots, fmt.Sprintf("[%d]%s", i, l))
		}
		fmt.Fprintf(w, "rack:   %s  hints %d\n", strings.Join(slots, " "), m.Vision[playerID])
	}
}

func oneInt(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one number")
	}
	return strconv.Atoi(args[0])
}

func twoInts(args []string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, errors.New("expected two numbers")
	}
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
