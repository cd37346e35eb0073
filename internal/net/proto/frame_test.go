package proto

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame := Encode("CT", "server", "hello #1 & 100% $ettled")
	name, args, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if name != "CT" {
		t.Fatalf("name = %q", name)
	}
	if len(args) != 2 || args[0] != "server" || args[1] != "hello #1 & 100% $ettled" {
		t.Fatalf("args = %q", args)
	}
}

func TestEncodeZeroArgs(t *testing.T) {
	if got := Encode("DONE"); got != "DONE#%" {
		t.Fatalf("got %q", got)
	}
	name, args, err := Decode("DONE#%")
	if err != nil || name != "DONE" || len(args) != 0 {
		t.Fatalf("got %q %q %v", name, args, err)
	}
}

func TestDecodeTrimsLineEndings(t *testing.T) {
	name, args, err := Decode("HI#hdid123#%\r\n")
	if err != nil || name != "HI" {
		t.Fatalf("got %q %v", name, err)
	}
	if len(args) != 1 || args[0] != "hdid123" {
		t.Fatalf("args = %q", args)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{"", "CT#server#hello", "#%", "CT#server", "no terminator"} {
		if _, _, err := Decode(raw); err == nil {
			t.Errorf("Decode(%q) should fail", raw)
		}
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	in := "a#b%c$d&e"
	if got := Unescape(Escape(in)); got != in {
		t.Fatalf("round trip changed the text: %q", got)
	}
	if got := Escape("#"); got != "<num>" {
		t.Fatalf("got %q", got)
	}
}
