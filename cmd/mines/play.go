package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/cfoust/mines/pkg/game"
	"github.com/cfoust/mines/pkg/protocol"
)

// What the terminal client knows about a cell. Unlike the server it only
// ever sees the cells the reveal events described.
type knownCell uint8

const (
	cellHidden knownCell = iota
	cellSafe
	cellMine
)

type playView struct {
	board  [game.BoardSize][game.BoardSize]knownCell
	scores [2]int
	player int
	mode   string
}

func (v *playView) render() {
	fmt.Print("   ")
	for col := 0; col < game.BoardSize; col++ {
		fmt.Printf("%d ", col)
	}
	fmt.Println()

	for row := 0; row < game.BoardSize; row++ {
		fmt.Printf("%d: ", row)
		for col := 0; col < game.BoardSize; col++ {
			switch v.board[row][col] {
			case cellHidden:
				fmt.Print("- ")
			case cellSafe:
				fmt.Print(". ")
			case cellMine:
				fmt.Print("* ")
			}
		}
		fmt.Println()
	}

	if v.mode == game.ModeScoring.String() {
		fmt.Printf("scores: you %d, opponent %d\n", v.scores[v.player], v.scores[1-v.player])
	}
}

func (v *playView) handle(message protocol.Message) (done bool) {
	switch message := message.(type) {
	case *protocol.Queued:
		fmt.Printf("waiting for a %s opponent...\n", message.Mode)
	case *protocol.Matched:
		v.player = message.Player
		v.mode = message.Mode
		fmt.Printf("matched! you are player %d\n", message.Player)
	case *protocol.TurnStart:
		if message.Player == v.player {
			v.render()
			fmt.Println("your turn: enter 'row col' (10 seconds)")
		} else {
			fmt.Println("opponent's turn")
		}
	case *protocol.Reveal:
		kind := cellSafe
		if message.IsMine {
			kind = cellMine
		}
		v.board[message.Row][message.Col] = kind
		if message.IsMine {
			fmt.Printf("player %d hit a mine at %d %d!\n", message.ByPlayer, message.Row, message.Col)
		}
	case *protocol.ScoreUpdate:
		v.scores = message.Scores
	case *protocol.GameOver:
		v.render()
		switch {
		case message.Outcome == "draw":
			fmt.Printf("game over: draw (%s)\n", message.Reason)
		case message.Winner != nil && *message.Winner == v.player:
			fmt.Printf("you won! (%s)\n", message.Reason)
		default:
			fmt.Printf("you lost (%s)\n", message.Reason)
		}
		return true
	case *protocol.Error:
		fmt.Printf("error: %s\n", message.Message)
	}

	return false
}

func playCommand(host string, port int, mode string) error {
	if _, err := game.ParseMode(mode); err != nil {
		return err
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}
	defer conn.Close()

	send := func(message protocol.Message) error {
		data, err := protocol.Encode(message)
		if err != nil {
			return err
		}
		_, err = conn.Write(data)
		return err
	}

	if err := send(protocol.Join{Mode: mode}); err != nil {
		return err
	}

	messages := make(chan protocol.Message)
	go func() {
		defer close(messages)

		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 0, 1024), protocol.MaxMessageSize)
		for scanner.Scan() {
			message, err := protocol.Decode(scanner.Bytes())
			if err != nil {
				continue
			}
			messages <- message
		}
	}()

	picks := make(chan [2]int)
	go func() {
		stdin := bufio.NewScanner(os.Stdin)
		for stdin.Scan() {
			line := strings.TrimSpace(stdin.Text())
			if line == "quit" {
				send(protocol.Leave{})
				return
			}

			fields := strings.Fields(line)
			if len(fields) != 2 {
				fmt.Println("enter 'row col', e.g. '3 4', or 'quit'")
				continue
			}

			row, err1 := strconv.Atoi(fields[0])
			col, err2 := strconv.Atoi(fields[1])
			if err1 != nil || err2 != nil {
				fmt.Println("enter 'row col', e.g. '3 4', or 'quit'")
				continue
			}

			picks <- [2]int{row, col}
		}
	}()

	view := playView{}

	for {
		select {
		case message, ok := <-messages:
			if !ok {
				fmt.Println("disconnected from server")
				return nil
			}
			if view.handle(message) {
				return nil
			}
		case pick := <-picks:
			if err := send(protocol.Pick{Row: pick[0], Col: pick[1]}); err != nil {
				return err
			}
		}
	}
}
