package protocol_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/omochice/whisper-chat/internal/cipher"
	"github.com/omochice/whisper-chat/pkg/protocol"
)

func newCodec(t *testing.T) *cipher.Codec {
	t.Helper()
	codec, err := cipher.New([]byte("aaaaaaaaaaaaaaaa"))
	if err != nil {
		t.Fatalf("cipher.New() error = %v", err)
	}
	return codec
}

func TestEnvelope_Encode(t *testing.T) {
	tests := []struct {
		name string
		env  protocol.Envelope
		want string
	}{
		{
			name: "message",
			env:  protocol.NewMessage("u1", "K", "hi"),
			want: `{"code":"message","userId":"u1","text":"hi","key":"K"}`,
		},
		{
			name: "setup carries key as data",
			env:  protocol.NewSetup("u1", "5994471abb01112a"),
			want: `{"code":"setup","userId":"u1","data":"5994471abb01112a","key":"5994471abb01112a"}`,
		},
		{
			name: "users",
			env:  protocol.NewUsers("u1", "K"),
			want: `{"code":"users","userId":"u1","key":"K"}`,
		},
		{
			name: "html is not escaped",
			env:  protocol.NewMessage("u1", "K", "<b>&</b>"),
			want: `{"code":"message","userId":"u1","text":"<b>&</b>","key":"K"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.env.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEnvelope_Decode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    protocol.Envelope
		wantErr bool
	}{
		{
			name: "message",
			data: `{"code":"message","userId":"u1","text":"hi","key":"K"}`,
			want: protocol.Envelope{Code: protocol.CodeMessage, UserID: "u1", Text: "hi", Key: "K"},
		},
		{
			name: "unknown code still decodes",
			data: `{"code":"ping","userId":"u1","key":"K"}`,
			want: protocol.Envelope{Code: "ping", UserID: "u1", Key: "K"},
		},
		{
			name:    "not json",
			data:    "hello",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got protocol.Envelope
			err := got.Decode([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSeal_MatchesWireVector(t *testing.T) {
	codec := newCodec(t)

	frame, err := protocol.Seal(protocol.NewMessage("u1", "K", "hi"), codec)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	want := "W+RZeCagd+SkvC5jauvFBZdM66xprpQJblBlnYINl0UG62gKTPXLPngOqAncrTO1uGTIg3ZHOEDXIAiNiFSmVQ=="
	if frame != want {
		t.Errorf("Seal() = %q, want %q", frame, want)
	}
}

func TestSealOpen_ByteIdenticalJSON(t *testing.T) {
	codec := newCodec(t)
	env := protocol.NewMessage("u1", "K", "hi")

	encoded, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	frame, err := protocol.Seal(env, codec)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	plaintext, err := codec.Decrypt(frame)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if plaintext != string(encoded) {
		t.Errorf("decrypted %q, want %q", plaintext, encoded)
	}

	opened, err := protocol.Open(frame, codec)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if opened != env {
		t.Errorf("Open() = %+v, want %+v", opened, env)
	}
}

func TestOpen_Errors(t *testing.T) {
	codec := newCodec(t)

	if _, err := protocol.Open("not a frame", codec); err == nil {
		t.Error("expected error for malformed frame")
	}
	if _, err := protocol.Open(codec.Encrypt("plain line"), codec); err == nil {
		t.Error("expected error for non-json plaintext")
	}
}

func TestParseFrameText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		wantOK bool
		want   protocol.Envelope
	}{
		{
			name:   "envelope",
			text:   `{"code":"message","userId":"u1","text":"hi","key":"K"}`,
			wantOK: true,
			want:   protocol.Envelope{Code: protocol.CodeMessage, UserID: "u1", Text: "hi", Key: "K"},
		},
		{name: "display line", text: "[07-01 10:00:00] alice: hi"},
		{name: "unknown code", text: `{"code":"ping","userId":"u1","key":"K"}`},
		{name: "broken json", text: `{"code":`},
		{name: "empty", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := protocol.ParseFrameText(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ParseFrameText() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseFrameText() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCode_String(t *testing.T) {
	tests := []struct {
		code  protocol.Code
		want  string
		valid bool
	}{
		{protocol.CodeSetup, "setup", true},
		{protocol.CodeUsers, "users", true},
		{protocol.CodeMessage, "message", true},
		{protocol.Code("other"), "other", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
			if got := tt.code.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestSealOpenProperty(t *testing.T) {
	codec := newCodec(t)
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("open inverts seal", prop.ForAll(
		func(userID, key, text string) bool {
			env := protocol.NewMessage(userID, key, text)
			frame, err := protocol.Seal(env, codec)
			if err != nil {
				return false
			}
			got, err := protocol.Open(frame, codec)
			return err == nil && got == env
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
