// Package proto implements the text framing used on the wire: a command
// name and its arguments joined with '#', closed with '%'. Argument text
// is escaped so the delimiters survive round-trips.
package proto

import (
	"errors"
	"strings"
)

// Terminator closes every frame.
const Terminator = "%"

var escaper = strings.NewReplacer(
	"#", "<num>",
	"%", "<percent>",
	"$", "<dollar>",
	"&", "<and>",
)

var unescaper = strings.NewReplacer(
	"<num>", "#",
	"<percent>", "%",
	"<dollar>", "$",
	"<and>", "&",
)

// Escape encodes one argument for transport.
func Escape(s string) string { return escaper.Replace(s) }

// Unescape decodes one received argument.
func Unescape(s string) string { return unescaper.Replace(s) }

// Encode renders one frame.
func Encode(name string, args ...string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, arg := range args {
		b.WriteByte('#')
		b.WriteString(Escape(arg))
	}
	b.WriteByte('#')
	b.WriteString(Terminator)
	return b.String()
}

// ErrMalformed reports a frame that does not end with the terminator or
// has no command name.
var ErrMalformed = errors.New("malformed frame")

// Decode splits one received frame into its command name and unescaped
// arguments. A bare "NAME#%" decodes to zero arguments.
func Decode(raw string) (string, []string, error) {
	raw = strings.TrimRight(raw, "\r\n")
	if !strings.HasSuffix(raw, "#"+Terminator) {
		return "", nil, ErrMalformed
	}
	raw = strings.TrimSuffix(raw, "#"+Terminator)
	parts := strings.Split(raw, "#")
	if parts[0] == "" {
		return "", nil, ErrMalformed
	}
	name := parts[0]
	args := make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		args = append(args, Unescape(part))
	}
	return name, args, nil
}
