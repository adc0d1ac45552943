package protocol

// Kind is the leading token of a wire message.
type Kind string

const (
	KindPiece    Kind = "PIECE"
	KindLives    Kind = "LIVES"
	KindDie      Kind = "DIE"
	KindScore    Kind = "SCORE"
	KindScores   Kind = "SCORES"
	KindBoard    Kind = "BOARD"
	KindError    Kind = "ERROR"
	KindList     Kind = "LIST"
	KindChannels Kind = "CHANNELS"
	KindCreate   Kind = "CREATE"
	KindJoin     Kind = "JOIN"
	KindPart     Kind = "PART"
	KindParted   Kind = "PARTED"
	KindMsg      Kind = "MSG"
	KindNick     Kind = "NICK"
	KindUsers    Kind = "USERS"
	KindHost     Kind = "HOST"
	KindStart    Kind = "START"
	KindHiScores Kind = "HISCORES"
	KindHiScore  Kind = "HISCORE"
	KindNewScore Kind = "NEWSCORE"
)

// Direction tells Decode which side produced a frame. A few kinds share a
// token but differ in payload shape per direction.
type Direction int

const (
	FromServer Direction = iota
	FromClient
)

// Message is one protocol frame.
type Message interface {
	Kind() Kind
	payload() string
}

// PieceRequest asks the server for one piece.
type PieceRequest struct{}

// Piece delivers one piece shape id.
type Piece struct{ Shape int }

// Lives reports remaining lives after a loss.
type Lives struct{ N int }

// Die reports elimination.
type Die struct{}

// Score reports the current score.
type Score struct{ N int }

// PlayerScore is one scoreboard row. Dead players have Dead set and Lives 0.
type PlayerScore struct {
	Name  string
	Score int
	Lives int
	Dead  bool
}

// Scores is the channel scoreboard.
type Scores struct{ Entries []PlayerScore }

// Board carries a board snapshot. From is set on relayed boards.
type Board struct {
	From string
	Data string
}

// Error is a non-fatal server error.
type Error struct{ Text string }

// List requests the channel list.
type List struct{}

// Channels lists open channels.
type Channels struct{ Names []string }

// Create opens and joins a channel.
type Create struct{ Name string }

// Join requests, or confirms, channel membership.
type Join struct{ Name string }

// Part leaves the current channel.
type Part struct{}

// Parted confirms Part.
type Parted struct{}

// Msg is a chat line. From is empty when sent by a client.
type Msg struct {
	From string
	Text string
}

// Nick requests or announces a nickname. Old is set when announcing someone
// else's rename.
type Nick struct {
	Old  string
	Name string
}

// UsersRequest asks for the current channel's users.
type UsersRequest struct{}

// Users lists the current channel's users.
type Users struct{ Names []string }

// Host grants host privilege.
type Host struct{}

// Start requests (client) or announces (server) the game start.
type Start struct{}

// HiScore is one name:score pair.
type HiScore struct {
	Name  string
	Score int
}

// HiScoresRequest asks for the online high score table.
type HiScoresRequest struct{}

// HiScores is the online high score table.
type HiScores struct{ Entries []HiScore }

// SubmitScore submits a high score.
type SubmitScore struct{ Entry HiScore }

// NewScore acknowledges SubmitScore.
type NewScore struct{ Entry HiScore }

func (PieceRequest) Kind() Kind    { return KindPiece }
func (Piece) Kind() Kind           { return KindPiece }
func (Lives) Kind() Kind           { return KindLives }
func (Die) Kind() Kind             { return KindDie }
func (Score) Kind() Kind           { return KindScore }
func (Scores) Kind() Kind          { return KindScores }
func (Board) Kind() Kind           { return KindBoard }
func (Error) Kind() Kind           { return KindError }
func (List) Kind() Kind            { return KindList }
func (Channels) Kind() Kind        { return KindChannels }
func (Create) Kind() Kind          { return KindCreate }
func (Join) Kind() Kind            { return KindJoin }
func (Part) Kind() Kind            { return KindPart }
func (Parted) Kind() Kind          { return KindParted }
func (Msg) Kind() Kind             { return KindMsg }
func (Nick) Kind() Kind            { return KindNick }
func (UsersRequest) Kind() Kind    { return KindUsers }
func (Users) Kind() Kind           { return KindUsers }
func (Host) Kind() Kind            { return KindHost }
func (Start) Kind() Kind           { return KindStart }
func (HiScoresRequest) Kind() Kind { return KindHiScores }
func (HiScores) Kind() Kind        { return KindHiScores }
func (SubmitScore) Kind() Kind     { return KindHiScore }
func (NewScore) Kind() Kind        { return KindNewScore }
