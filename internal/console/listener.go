package console

import (
	"strings"

	"go.uber.org/zap"

	"gridfall/internal/client"
	"gridfall/internal/grid"
	"gridfall/internal/protocol"
	"gridfall/internal/scores"
)

// listener prints lobby events.
type listener struct{ c *Console }

func (l listener) ChannelsUpdated(names []string) {
	if len(names) == 0 {
		l.c.println("no channels; /create one")
		return
	}
	l.c.println("channels:", strings.Join(names, ", "))
}

func (l listener) Joined(channel string) { l.c.println("joined", channel) }

func (l listener) Parted(channel string) { l.c.println("left", channel) }

func (l listener) UsersUpdated(users []string) {
	l.c.println("users:", strings.Join(users, ", "))
}

func (l listener) Message(from, text string) { l.c.printf("<%s> %s\n", from, text) }

func (l listener) System(text string) { l.c.println("*", text) }

func (l listener) NickChanged(old, name string) {
	l.c.printf("* %s is now known as %s\n", old, name)
}

func (l listener) HostGranted() {
	l.c.println("* you are the host; /start begins a game")
}

func (l listener) GameStarting() { l.c.startPending = true }

func (l listener) Cleared() { l.c.println(strings.Repeat("-", 40)) }

func (l listener) ErrorReceived(text string) { l.c.println("server:", text) }

func (c *Console) handlers() client.Handlers {
	return client.Handlers{
		Scores: func(m protocol.Scores) {
			c.println("scoreboard:")
			RenderScoreboard(c.out, m.Entries)
		},
		Board: func(m protocol.Board) {
			snap, err := grid.DecodeSnapshot(m.Data)
			if err != nil {
				c.log.Warn("bad board", zap.String("from", m.From), zap.Error(err))
				return
			}
			c.printf("%s's board:\n", m.From)
			RenderSnapshot(c.out, snap)
		},
		HiScores: func(m protocol.HiScores) {
			entries := make([]scores.Entry, len(m.Entries))
			for i, e := range m.Entries {
				entries[i] = scores.Entry{Name: e.Name, Score: e.Score}
			}
			c.println("online high scores:")
			RenderHighScores(c.out, entries)
		},
		NewScore: func(m protocol.NewScore) {
			c.printf("score recorded online: %s %d\n", m.Entry.Name, m.Entry.Score)
		},
	}
}
