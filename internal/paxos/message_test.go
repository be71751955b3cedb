package paxos

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "prepare",
			msg:  Message{DecisionID: 0, Kind: KindPrepareRequest, SenderID: "p1", Proposal: 1, Value: NoValue},
			want: "0,1,p1,1,?\n",
		},
		{
			name: "accepted value",
			msg:  Message{DecisionID: 42, Kind: KindAcceptedValue, SenderID: "a3", Proposal: 7, Value: "p2"},
			want: "42,4,a3,7,p2\n",
		},
		{
			name: "empty fields",
			msg:  Message{},
			want: "0,0,,0,\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(Encode(tt.msg)); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessageString(t *testing.T) {
	m := Message{DecisionID: 3, Kind: KindConsensusNotification, SenderID: "p1", Proposal: 2, Value: "p1"}
	if got := m.String(); got != "3,6,p1,2,p1" {
		t.Errorf("String() = %q", got)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Message
	}{
		{"with newline", "0,1,p1,1,?\n", Message{0, KindPrepareRequest, "p1", 1, NoValue}},
		{"crlf", "5,5,a1,3,p2\r\n", Message{5, KindRejectReply, "a1", 3, "p2"}},
		{"empty value", "1,7,p1,0,\n", Message{1, KindPing, "p1", 0, ""}},
		{"max uint64", "18446744073709551615,3,p1,18446744073709551615,p1\n", Message{^uint64(0), KindAcceptRequest, "p1", ^uint64(0), "p1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"only a terminator", "\n"},
		{"missing terminator", "5,2,a1,3,?"},
		{"cut inside the value", "1,4,a1,1,proposer-long"},
		{"two terminators", "0,1,p1,1,?\n\n"},
		{"too few fields", "0,1,p1,1\n"},
		{"too many fields", "0,1,p1,1,?,extra\n"},
		{"decision not a number", "x,1,p1,1,?\n"},
		{"negative decision", "-1,1,p1,1,?\n"},
		{"kind not a number", "0,prepare,p1,1,?\n"},
		{"kind out of range", "0,8,p1,1,?\n"},
		{"kind overflows byte", "0,300,p1,1,?\n"},
		{"proposal not a number", "0,1,p1,one,?\n"},
		{"decision overflow", "18446744073709551616,1,p1,1,?\n"},
		{"embedded newline", "0,1,p\n1,1,?\n"},
		{"embedded carriage return", "0,1,p1,1,a\rb\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformedMessage", tt.input, err)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ids := []string{"p1", "p2", "a1", "a2", "a3", "node-7.example", NoValue, ""}

	for i := 0; i < 500; i++ {
		m := Message{
			DecisionID: rng.Uint64(),
			Kind:       Kind(rng.Intn(int(KindPing) + 1)),
			SenderID:   ids[rng.Intn(len(ids))],
			Proposal:   rng.Uint64() >> uint(rng.Intn(64)),
			Value:      ids[rng.Intn(len(ids))],
		}
		got, err := Decode(Encode(m))
		if err != nil {
			t.Fatalf("Decode(Encode(%+v)) error = %v", m, err)
		}
		if got != m {
			t.Fatalf("round trip = %+v, want %+v", got, m)
		}
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		maxSize int
		wantErr error
	}{
		{"valid", Message{Kind: KindPing, SenderID: "p1", Value: "x"}, DefaultBufferSize, nil},
		{"no size limit", Message{Kind: KindPing, SenderID: "p1", Value: strings.Repeat("x", 4096)}, 0, nil},
		{"comma in sender", Message{Kind: KindPing, SenderID: "p,1", Value: "x"}, DefaultBufferSize, ErrInvalidIdentifier},
		{"newline in value", Message{Kind: KindPing, SenderID: "p1", Value: "x\n"}, DefaultBufferSize, ErrInvalidIdentifier},
		{"carriage return in value", Message{Kind: KindPing, SenderID: "p1", Value: "x\r"}, DefaultBufferSize, ErrInvalidIdentifier},
		{"too large", Message{Kind: KindPing, SenderID: "p1", Value: strings.Repeat("x", DefaultBufferSize)}, DefaultBufferSize, ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate(tt.maxSize)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	want := []string{"none", "prepare", "promise", "accept", "accepted", "reject", "consensus", "ping"}
	for i, name := range want {
		if got := Kind(i).String(); got != name {
			t.Errorf("Kind(%d).String() = %q, want %q", i, got, name)
		}
	}
	if got := Kind(99).String(); got != "unknown" {
		t.Errorf("Kind(99).String() = %q", got)
	}
}

func TestMajority(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{1, 1}, {2, 2}, {3, 2}, {4, 3}, {5, 3}, {6, 4}, {7, 4}, {8, 5}, {9, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			if got := Majority(tt.n); got != tt.want {
				t.Errorf("Majority(%d) = %d, want %d", tt.n, got, tt.want)
			}
			if 2*Majority(tt.n) <= tt.n {
				t.Errorf("two majorities of %d do not intersect", tt.n)
			}
		})
	}
}
