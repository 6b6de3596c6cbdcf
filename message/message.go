package message

import (
	"fmt"
	"strconv"
	"time"
)

type MsgType int

const (
	PollType   MsgType = iota + 100 // broadcast
	BallotType                      // voter -> organizer
	ResultType                      // broadcast, settlement
	FaultType                       // broadcast
)

// Message is what the node sends over the network. The JSON encoding of
// every message starts with its Type.
type Message interface {
	GetType() MsgType
	GetFrom() string
	GetTo() string
	GetTopic() string
	MarshalJSON() ([]byte, error)
	UnmarshalJSON([]byte) error
}

// PollMessage announces an election and carries its encoded poll, with the
// image ID its result will be proven under.
type PollMessage struct {
	Type       MsgType
	From       string
	To         string
	Topic      string
	Title      string
	Brief      string
	StartTime  time.Time
	Deadline   time.Time
	Candidates []string
	ImageID    string
	Poll       []byte
}

func (v PollMessage) GetTopic() string {
	return v.Topic
}

func (v PollMessage) GetFrom() string {
	return v.From
}

func (v PollMessage) GetTo() string {
	return v.To
}

func (v PollMessage) GetType() MsgType {
	return v.Type
}

// BallotMessage carries the serialized ciphertexts of one ballot.
type BallotMessage struct {
	Type   MsgType
	From   string
	To     string
	Topic  string
	Voter  string
	Ballot [][]byte
}

func (v BallotMessage) GetTopic() string {
	return v.Topic
}

func (v BallotMessage) GetFrom() string {
	return v.From
}

func (v BallotMessage) GetTo() string {
	return v.To
}

func (v BallotMessage) GetType() MsgType {
	return v.Type
}

// ResultMessage publishes a proven result for settlement and audit.
type ResultMessage struct {
	Type    MsgType
	From    string
	To      string
	Topic   string
	ImageID string
	Result  map[string]int64
	Journal []byte
	Proof   []byte
}

func (v ResultMessage) GetTopic() string {
	return v.Topic
}

func (v ResultMessage) GetFrom() string {
	return v.From
}

func (v ResultMessage) GetTo() string {
	return v.To
}

func (v ResultMessage) GetType() MsgType {
	return v.Type
}

// FaultMessage reports a run that never completed, which is not the same
// outcome as a proof that fails verification.
type FaultMessage struct {
	Type   MsgType
	From   string
	To     string
	Topic  string
	Stage  string
	Reason string
}

func (v FaultMessage) GetTopic() string {
	return v.Topic
}

func (v FaultMessage) GetFrom() string {
	return v.From
}

func (v FaultMessage) GetTo() string {
	return v.To
}

func (v FaultMessage) GetType() MsgType {
	return v.Type
}

// ParseMsg decodes a message of any type.
func ParseMsg(b []byte) (Message, error) {
	msgType, err := getMsgType(string(b))
	if err != nil {
		return nil, err
	}
	var message Message
	switch msgType {
	case PollType:
		message = new(PollMessage)
	case BallotType:
		message = new(BallotMessage)
	case ResultType:
		message = new(ResultMessage)
	case FaultType:
		message = new(FaultMessage)
	default:
		return nil, fmt.Errorf("cannot ParseMsg: unknown message type %d", msgType)
	}
	if err := message.UnmarshalJSON(b); err != nil {
		return nil, fmt.Errorf("cannot ParseMsg: %w", err)
	}
	return message, nil
}

// getMsgType reads the type code of {"Type":NNN,...
func getMsgType(s string) (MsgType, error) {
	if len(s) < 11 || s[:8] != `{"Type":` {
		return 0, fmt.Errorf("cannot ParseMsg: message does not start with its type")
	}
	code, err := strconv.Atoi(s[8:11])
	if err != nil {
		return 0, fmt.Errorf("cannot ParseMsg: %w", err)
	}
	return MsgType(code), nil
}
