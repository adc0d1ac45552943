// Package lobby tracks channel membership and chat for one client session
// and turns typed chat input into protocol requests.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"gridfall/internal/protocol"
	"gridfall/internal/transport"
)

// ErrQuit is returned by Input for the /quit command.
var ErrQuit = errors.New("quit requested")

// Listener receives lobby events on the goroutine that calls Handle or Input.
type Listener interface {
	ChannelsUpdated(names []string)
	Joined(channel string)
	Parted(channel string)
	UsersUpdated(users []string)
	Message(from, text string)
	System(text string)
	NickChanged(old, name string)
	HostGranted()
	GameStarting()
	Cleared()
	ErrorReceived(text string)
}

// NopListener ignores every event. Embed it to implement part of Listener.
type NopListener struct{}

func (NopListener) ChannelsUpdated([]string)   {}
func (NopListener) Joined(string)              {}
func (NopListener) Parted(string)              {}
func (NopListener) UsersUpdated([]string)      {}
func (NopListener) Message(string, string)     {}
func (NopListener) System(string)              {}
func (NopListener) NickChanged(string, string) {}
func (NopListener) HostGranted()               {}
func (NopListener) GameStarting()              {}
func (NopListener) Cleared()                   {}
func (NopListener) ErrorReceived(string)       {}

// Lobby is not safe for concurrent use; one goroutine owns it.
type Lobby struct {
	sender   transport.Sender
	listener Listener
	log      *zap.Logger

	nick      string
	channel   string
	inChannel bool
	host      bool
	users     map[string]struct{}

	handlers map[protocol.Kind]func(protocol.Message)
}

// New creates a lobby that sends requests through sender. nick is the
// nickname the server is expected to know us by until told otherwise.
func New(sender transport.Sender, nick string, l Listener, log *zap.Logger) *Lobby {
	if l == nil {
		l = NopListener{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	lb := &Lobby{
		sender:   sender,
		listener: l,
		log:      log,
		nick:     nick,
		users:    make(map[string]struct{}),
	}
	lb.handlers = map[protocol.Kind]func(protocol.Message){
		protocol.KindChannels: lb.onChannels,
		protocol.KindJoin:     lb.onJoin,
		protocol.KindParted:   lb.onParted,
		protocol.KindUsers:    lb.onUsers,
		protocol.KindMsg:      lb.onMsg,
		protocol.KindNick:     lb.onNick,
		protocol.KindHost:     lb.onHost,
		protocol.KindStart:    lb.onStart,
		protocol.KindError:    lb.onError,
	}
	return lb
}

func (lb *Lobby) Nick() string { return lb.nick }
func (lb *Lobby) IsHost() bool { return lb.host }

// Channel returns the current channel, if any.
func (lb *Lobby) Channel() (string, bool) { return lb.channel, lb.inChannel }

// Users returns the current channel's users, sorted.
func (lb *Lobby) Users() []string {
	out := make([]string, 0, len(lb.users))
	for u := range lb.users {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// Handle applies one server message. Kinds the lobby does not know are
// logged and dropped.
func (lb *Lobby) Handle(msg protocol.Message) {
	h, ok := lb.handlers[msg.Kind()]
	if !ok {
		lb.log.Debug("lobby ignoring message", zap.String("kind", string(msg.Kind())))
		return
	}
	h(msg)
}

func (lb *Lobby) onChannels(m protocol.Message) {
	lb.listener.ChannelsUpdated(m.(protocol.Channels).Names)
}

func (lb *Lobby) onJoin(m protocol.Message) {
	name := m.(protocol.Join).Name
	lb.channel, lb.inChannel = name, true
	lb.host = false
	clear(lb.users)
	lb.listener.Joined(name)
}

func (lb *Lobby) onParted(protocol.Message) {
	if !lb.inChannel {
		return
	}
	old := lb.channel
	lb.channel, lb.inChannel = "", false
	lb.host = false
	clear(lb.users)
	lb.listener.Parted(old)
}

func (lb *Lobby) onUsers(m protocol.Message) {
	clear(lb.users)
	for _, u := range m.(protocol.Users).Names {
		lb.users[u] = struct{}{}
	}
	lb.listener.UsersUpdated(lb.Users())
}

func (lb *Lobby) onMsg(m protocol.Message) {
	msg := m.(protocol.Msg)
	lb.listener.Message(msg.From, msg.Text)
}

// onNick handles both forms: a bare name is our own rename, old:new is
// someone else's.
func (lb *Lobby) onNick(m protocol.Message) {
	n := m.(protocol.Nick)
	old := n.Old
	if old == "" {
		old = lb.nick
		lb.nick = n.Name
	}
	_, member := lb.users[old]
	if member {
		delete(lb.users, old)
		lb.users[n.Name] = struct{}{}
	}
	lb.listener.NickChanged(old, n.Name)
	if member {
		lb.listener.UsersUpdated(lb.Users())
	}
}

func (lb *Lobby) onHost(protocol.Message) {
	lb.host = true
	lb.listener.HostGranted()
}

func (lb *Lobby) onStart(protocol.Message) {
	lb.listener.GameStarting()
}

func (lb *Lobby) onError(m protocol.Message) {
	text := m.(protocol.Error).Text
	lb.log.Warn("server error", zap.String("text", text))
	lb.listener.ErrorReceived(text)
}

// Input handles one line of chat input. Lines starting with '/' are local
// commands; anything else is sent as a chat message.
func (lb *Lobby) Input(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !strings.HasPrefix(text, "/") {
		if !lb.inChannel {
			lb.listener.System("join a channel to chat")
			return nil
		}
		return lb.send(ctx, protocol.Msg{Text: text})
	}

	cmd, arg, _ := strings.Cut(text[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "nick":
		if !protocol.ValidName(arg) {
			lb.listener.System("usage: /nick <name>")
			return nil
		}
		return lb.send(ctx, protocol.Nick{Name: arg})
	case "join":
		if !protocol.ValidName(arg) {
			lb.listener.System("usage: /join <channel>")
			return nil
		}
		return lb.send(ctx, protocol.Join{Name: arg})
	case "create":
		if !protocol.ValidName(arg) {
			lb.listener.System("usage: /create <channel>")
			return nil
		}
		return lb.send(ctx, protocol.Create{Name: arg})
	case "leave", "part":
		if !lb.inChannel {
			lb.listener.System("not in a channel")
			return nil
		}
		return lb.send(ctx, protocol.Part{})
	case "start":
		if !lb.host {
			lb.listener.System("only the host can start the game")
			return nil
		}
		return lb.send(ctx, protocol.Start{})
	case "refresh", "list":
		return lb.send(ctx, protocol.List{})
	case "users":
		return lb.send(ctx, protocol.UsersRequest{})
	case "clear":
		lb.listener.Cleared()
		return nil
	case "help":
		lb.listener.System("commands: /nick /join /create /leave /start /refresh /users /clear /quit")
		return nil
	case "quit":
		return ErrQuit
	}
	lb.listener.System(fmt.Sprintf("unknown command: /%s", cmd))
	return nil
}

func (lb *Lobby) send(ctx context.Context, m protocol.Message) error {
	if err := lb.sender.Send(ctx, protocol.Encode(m)); err != nil {
		return fmt.Errorf("send %s: %w", m.Kind(), err)
	}
	return nil
}
