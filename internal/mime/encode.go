// Package mime builds outbound message byte streams: RFC 822 style headers
// followed by a single encoded body or a boundary-delimited multipart body.
//
// The multipart boundary is the fixed token "0123456789" so output is
// deterministic for fixed input. Content that itself contains a line
// "--0123456789" will corrupt the part structure; the codec does not scan for
// collisions.
package mime

import (
	"bytes"
	"encoding/base64"
	"fmt"
	stdmime "mime"
	"mime/quotedprintable"
	"os"
	"path/filepath"

	"github.com/shineum/mailkit-lite/internal/mailerr"
)

// Boundary separates the sections of a multipart body.
const Boundary = "0123456789"

// base64LineLength is the RFC 2045 maximum encoded line length.
const base64LineLength = 76

// Part is one section of a multipart message.
//
// When Filename is set the file's bytes are the part content and are always
// base64-encoded; Content and Encoding are ignored.
type Part struct {
	Filename    string
	Content     string
	ContentType ContentType
	Encoding    TransferEncoding
}

// Encode renders a complete message. Multipart content types take their body
// from parts and ignore body; any other content type encodes body with enc.
func Encode(from, to, subject string, enc TransferEncoding, ct ContentType, body string, parts []Part) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\n", from, to, subject)

	if !ct.IsMultipart() {
		fmt.Fprintf(&buf, "Content-Type: %s; charset=\"utf-8\"\r\n", ct)
		fmt.Fprintf(&buf, "Content-Transfer-Encoding: %s\r\n\r\n", enc)
		if err := encodeBody(&buf, []byte(body), enc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "Content-Type: %s; boundary=%q\r\n", ct, Boundary)

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: content type %s", mailerr.ErrMissingAttachment, ct)
	}

	for i, part := range parts {
		if err := encodePart(&buf, part); err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
	}
	fmt.Fprintf(&buf, "\r\n--%s--\r\n", Boundary)

	return buf.Bytes(), nil
}

func encodePart(buf *bytes.Buffer, part Part) error {
	fmt.Fprintf(buf, "\r\n--%s\r\n", Boundary)

	if part.Filename == "" {
		fmt.Fprintf(buf, "Content-Type: %s; charset=\"utf-8\"\r\n", part.ContentType)
		fmt.Fprintf(buf, "Content-Transfer-Encoding: %s\r\n\r\n", part.Encoding)
		return encodeBody(buf, []byte(part.Content), part.Encoding)
	}

	data, err := os.ReadFile(part.Filename)
	if err != nil {
		return fmt.Errorf("%w: read attachment: %w", mailerr.ErrIO, err)
	}

	name := stdmime.QEncoding.Encode("utf-8", filepath.Base(part.Filename))
	fmt.Fprintf(buf, "Content-Type: %s; name=%q\r\n", part.ContentType, name)
	fmt.Fprintf(buf, "Content-Transfer-Encoding: %s\r\n\r\n", Base64)
	writeBase64(buf, data)
	return nil
}

func encodeBody(buf *bytes.Buffer, data []byte, enc TransferEncoding) error {
	switch enc {
	case Base64:
		writeBase64(buf, data)
		return nil
	case SevenBit:
		return writeSevenBit(buf, data)
	case QuotedPrintable:
		return writeQuotedPrintable(buf, data)
	default:
		return fmt.Errorf("%w: unsupported transfer encoding %s", mailerr.ErrEncoding, enc)
	}
}

// writeSevenBit copies data unchanged after checking that every byte is ASCII.
func writeSevenBit(buf *bytes.Buffer, data []byte) error {
	for i, b := range data {
		if b >= 0x80 {
			return fmt.Errorf("%w: non-ASCII byte 0x%02x at offset %d in 7bit content", mailerr.ErrEncoding, b, i)
		}
	}
	buf.Write(data)
	return nil
}

// writeQuotedPrintable keeps CRLF pairs as hard line breaks and escapes lone
// CR and LF bytes as =0D and =0A, so decoding yields the input unchanged.
func writeQuotedPrintable(buf *bytes.Buffer, data []byte) error {
	for i, line := range bytes.Split(data, []byte("\r\n")) {
		if i > 0 {
			buf.WriteString("\r\n")
		}
		w := quotedprintable.NewWriter(buf)
		w.Binary = true
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("%w: %w", mailerr.ErrEncoding, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("%w: %w", mailerr.ErrEncoding, err)
		}
	}
	return nil
}

// writeBase64 encodes data with CRLF line breaks every 76 characters.
func writeBase64(buf *bytes.Buffer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for i := 0; i < len(encoded); i += base64LineLength {
		if i > 0 {
			buf.WriteString("\r\n")
		}
		end := min(i+base64LineLength, len(encoded))
		buf.WriteString(encoded[i:end])
	}
}
