package netwrk

import "fmt"

// Kind is the one byte tag that follows the length in every frame header.
type Kind uint8

const (
	KindEnterRequest   Kind = 1
	KindEnterResponse  Kind = 2
	KindLeaveRequest   Kind = 3
	KindLeaveResponse  Kind = 4
	KindInputState     Kind = 10
	KindUpdateSnapshot Kind = 11
	KindPing           Kind = 250
	KindPong           Kind = 251
)

func (k Kind) String() string {
	switch k {
	case KindEnterRequest:
		return "EnterRequest"
	case KindEnterResponse:
		return "EnterResponse"
	case KindLeaveRequest:
		return "LeaveRequest"
	case KindLeaveResponse:
		return "LeaveResponse"
	case KindInputState:
		return "InputState"
	case KindUpdateSnapshot:
		return "UpdateSnapshot"
	case KindPing:
		return "Ping"
	case KindPong:
		return "Pong"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Message is any member of the catalog below.
type Message interface {
	Kind() Kind
}

// Role values carried by EnterResponse.
const (
	RoleObserver = 0
	RolePlayer1  = 1
	RolePlayer2  = 2
)

type EnterRequest struct {
	Name string `json:"name"`
}

type EnterResponse struct {
	PlayerNumber int `json:"playerNumber"`
}

type LeaveRequest struct{}

type LeaveResponse struct{}

type InputState struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// UpdateSnapshot is broadcast to every session once per simulated tick.
type UpdateSnapshot struct {
	P1X      int  `json:"p1X"`
	P1Y      int  `json:"p1Y"`
	P2X      int  `json:"p2X"`
	P2Y      int  `json:"p2Y"`
	BallX    int  `json:"ballX"`
	BallY    int  `json:"ballY"`
	Score1   int  `json:"score1"`
	Score2   int  `json:"score2"`
	WithP1   bool `json:"withP1"`
	WithP2   bool `json:"withP2"`
	WithBall bool `json:"withBall"`
}

type Ping struct{}

type Pong struct{}

func (EnterRequest) Kind() Kind   { return KindEnterRequest }
func (EnterResponse) Kind() Kind  { return KindEnterResponse }
func (LeaveRequest) Kind() Kind   { return KindLeaveRequest }
func (LeaveResponse) Kind() Kind  { return KindLeaveResponse }
func (InputState) Kind() Kind     { return KindInputState }
func (UpdateSnapshot) Kind() Kind { return KindUpdateSnapshot }
func (Ping) Kind() Kind           { return KindPing }
func (Pong) Kind() Kind           { return KindPong }

// newMessage returns a pointer to the zero value of the message for kind.
func newMessage(kind Kind) (any, error) {
	switch kind {
	case KindEnterRequest:
		return &EnterRequest{}, nil
	case KindEnterResponse:
		return &EnterResponse{}, nil
	case KindLeaveRequest:
		return &LeaveRequest{}, nil
	case KindLeaveResponse:
		return &LeaveResponse{}, nil
	case KindInputState:
		return &InputState{}, nil
	case KindUpdateSnapshot:
		return &UpdateSnapshot{}, nil
	case KindPing:
		return &Ping{}, nil
	case KindPong:
		return &Pong{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
}

// deref turns the pointer produced by newMessage back into a value Message.
func deref(v any) Message {
	switch m := v.(type) {
	case *EnterRequest:
		return *m
	case *EnterResponse:
		return *m
	case *LeaveRequest:
		return *m
	case *LeaveResponse:
		return *m
	case *InputState:
		return *m
	case *UpdateSnapshot:
		return *m
	case *Ping:
		return *m
	case *Pong:
		return *m
	}
	return nil
}
