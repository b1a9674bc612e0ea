// Package pop3 implements a small POP3 dialect: a server that serves mbox
// spool files, a client for it, and the command line parser both share.
//
// Besides the usual verbs the dialect has INFO, which lists the sender, time
// and subject of every message as a fixed-width table.
package pop3

import (
	"bytes"
	"fmt"
	"math"
)

// Verb identifies a POP3 command.
type Verb int

const (
	VerbQuit Verb = iota
	VerbList
	VerbInfo
	VerbUser
	VerbRetr
	VerbTop
	VerbDele
	VerbRset
	VerbNoop
)

var verbNames = [...]string{
	VerbQuit: "QUIT",
	VerbList: "LIST",
	VerbInfo: "INFO",
	VerbUser: "USER",
	VerbRetr: "RETR",
	VerbTop:  "TOP",
	VerbDele: "DELE",
	VerbRset: "RSET",
	VerbNoop: "NOOP",
}

func (v Verb) String() string {
	if v < 0 || int(v) >= len(verbNames) {
		return fmt.Sprintf("Verb(%d)", int(v))
	}
	return verbNames[v]
}

// Command is one parsed request. Msg is the message index for RETR, TOP and
// DELE; Lines is TOP's line count; User is USER's mailbox name.
type Command struct {
	Verb  Verb
	Msg   int
	Lines int
	User  string
}

func List() Command              { return Command{Verb: VerbList} }
func Info() Command              { return Command{Verb: VerbInfo} }
func User(name string) Command   { return Command{Verb: VerbUser, User: name} }
func Retr(msg int) Command       { return Command{Verb: VerbRetr, Msg: msg} }
func Top(msg, lines int) Command { return Command{Verb: VerbTop, Msg: msg, Lines: lines} }
func Dele(msg int) Command       { return Command{Verb: VerbDele, Msg: msg} }
func Rset() Command              { return Command{Verb: VerbRset} }
func Noop() Command              { return Command{Verb: VerbNoop} }
func Quit() Command              { return Command{Verb: VerbQuit} }

// Line renders the command as a CRLF-terminated request line.
func (c Command) Line() string {
	switch c.Verb {
	case VerbRetr, VerbDele:
		return fmt.Sprintf("%s %d\r\n", c.Verb, c.Msg)
	case VerbTop:
		return fmt.Sprintf("%s %d %d\r\n", c.Verb, c.Msg, c.Lines)
	case VerbUser:
		return fmt.Sprintf("%s %s\r\n", c.Verb, c.User)
	default:
		return c.Verb.String() + "\r\n"
	}
}

// ParseCommand parses the first n bytes of buf. Verbs match case-sensitively
// by prefix; any unrecognized line is treated as QUIT.
//
// RETR and DELE collect every digit after the verb into one number; numbers
// past math.MaxInt32 become -1, which matches no message. TOP reads
// its first number starting right after "TOP " and its second from the byte
// after the first non-digit. USER keeps only the ASCII letters of its argument.
func ParseCommand(buf []byte, n int) Command {
	n = min(n, len(buf))
	buf = buf[:n]

	switch {
	case bytes.HasPrefix(buf, []byte("LIST")):
		return List()
	case bytes.HasPrefix(buf, []byte("RETR")):
		return Retr(collectDigits(buf, 4))
	case bytes.HasPrefix(buf, []byte("DELE")):
		return Dele(collectDigits(buf, 4))
	case bytes.HasPrefix(buf, []byte("TOP")):
		msg, next := leadingNumber(buf, 4)
		lines, _ := leadingNumber(buf, next)
		return Top(msg, lines)
	case bytes.HasPrefix(buf, []byte("RSET")):
		return Rset()
	case bytes.HasPrefix(buf, []byte("NOOP")):
		return Noop()
	case bytes.HasPrefix(buf, []byte("INFO")):
		return Info()
	case bytes.HasPrefix(buf, []byte("USER")):
		return User(letters(buf, 5))
	default:
		return Quit()
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// noSuchMessage replaces a number that does not fit in 31 bits. It is never a
// valid message index.
const noSuchMessage = -1

// appendDigit shifts d into num, saturating at noSuchMessage once the value
// passes math.MaxInt32.
func appendDigit(num int, d byte) int {
	v := int(d - '0')
	if num < 0 || num > (math.MaxInt32-v)/10 {
		return noSuchMessage
	}
	return num*10 + v
}

// collectDigits concatenates every digit from buf[from:], skipping anything else.
func collectDigits(buf []byte, from int) int {
	num := 0
	for i := from; i < len(buf); i++ {
		if isDigit(buf[i]) {
			num = appendDigit(num, buf[i])
		}
	}
	return num
}

// leadingNumber reads digits from buf[from:] up to the first non-digit and
// returns the number with the index just past that non-digit.
func leadingNumber(buf []byte, from int) (num, next int) {
	for i := from; i < len(buf); i++ {
		if !isDigit(buf[i]) {
			return num, i + 1
		}
		num = appendDigit(num, buf[i])
	}
	return num, len(buf)
}

func letters(buf []byte, from int) string {
	var out []byte
	for i := from; i < len(buf); i++ {
		b := buf[i]
		if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') {
			out = append(out, b)
		}
	}
	return string(out)
}
